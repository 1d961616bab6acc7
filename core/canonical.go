package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// The block hash preimage format is fixed by the wallets and snapshots
// already in circulation: JSON with lexicographically sorted keys, ", "
// between members and ": " after keys, timestamps in naive ISO-8601. The
// writers below reproduce those bytes exactly; anything else forks the
// network. (The signature preimage is not JSON; see SignaturePreimage.)

// Timestamp is a wall-clock instant serialized in ISO-8601 form.
type Timestamp struct {
	time.Time
}

// Now returns the current instant as a Timestamp.
func Now() Timestamp {
	return Timestamp{time.Now()}
}

// ISOFormat renders t the way the network expects: seconds precision, plus
// six fractional digits when the instant carries sub-second detail.
func (t Timestamp) ISOFormat() string {
	base := t.Format("2006-01-02T15:04:05")
	if micros := t.Nanosecond() / 1000; micros != 0 {
		return base + fmt.Sprintf(".%06d", micros)
	}
	return base
}

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseTimestamp accepts the canonical naive form as well as RFC3339
// variants produced by other tooling.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ISOFormat())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// canonicalWriter assembles a sorted-key JSON object or array using the
// network's member separators. Callers append fields in sorted key order;
// the writer only handles framing.
type canonicalWriter struct {
	buf   bytes.Buffer
	count int
}

func (w *canonicalWriter) openObject()  { w.buf.WriteByte('{'); w.count = 0 }
func (w *canonicalWriter) closeObject() { w.buf.WriteByte('}') }

func (w *canonicalWriter) sep() {
	if w.count > 0 {
		w.buf.WriteString(", ")
	}
	w.count++
}

func (w *canonicalWriter) key(name string) {
	w.sep()
	w.buf.WriteByte('"')
	w.buf.WriteString(name)
	w.buf.WriteString(`": `)
}

func (w *canonicalWriter) uintField(name string, v uint64) {
	w.key(name)
	w.buf.WriteString(strconv.FormatUint(v, 10))
}

func (w *canonicalWriter) stringField(name, v string) {
	w.key(name)
	w.buf.Write(jsonString(v))
}

func (w *canonicalWriter) stringsField(name string, vs []string) {
	w.key(name)
	w.buf.WriteByte('[')
	for i, v := range vs {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		w.buf.Write(jsonString(v))
	}
	w.buf.WriteByte(']')
}

func (w *canonicalWriter) rawField(name string, raw []byte) {
	w.key(name)
	w.buf.Write(raw)
}

func (w *canonicalWriter) bytes() []byte { return w.buf.Bytes() }

// jsonString escapes a single string value. Keys and signatures are base64
// and hashes are hex, so escaping rarely fires, but arbitrary input must
// still produce valid JSON.
func jsonString(s string) []byte {
	b, err := json.Marshal(s)
	if err != nil {
		// json.Marshal of a string cannot fail
		return []byte(`""`)
	}
	return b
}

// canonicalArray frames a list of pre-canonicalized elements.
func canonicalArray(elems [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.Write(e)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
