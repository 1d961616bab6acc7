package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBlockHashDeterministic(t *testing.T) {
	ts, err := ParseTimestamp("2024-05-01T10:30:00.123456")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	base := Block{
		Index: 3,
		Transactions: []Transaction{{
			TransactionCreate: TransactionCreate{
				Sender: "alice", Recipient: "bob", Amount: 10, Nonce: 1, Signature: "sig",
			},
			Timestamp: ts,
		}},
		Nonce:        0,
		ParentHashes: []string{"aaa", "bbb"},
		Timestamp:    ts,
	}

	if base.Hash() != base.Hash() {
		t.Fatal("hash not stable")
	}
	clone := base
	if clone.Hash() != base.Hash() {
		t.Fatal("identical content must hash identically")
	}

	mutate := []struct {
		name string
		f    func(*Block)
	}{
		{"Index", func(b *Block) { b.Index = 4 }},
		{"Nonce", func(b *Block) { b.Nonce = 1 }},
		{"Parents", func(b *Block) { b.ParentHashes = []string{"bbb", "aaa"} }},
		{"Timestamp", func(b *Block) { b.Timestamp = Timestamp{ts.Add(time.Second)} }},
		{"TxAmount", func(b *Block) { b.Transactions[0].Amount = 11 }},
	}
	for _, tc := range mutate {
		t.Run(tc.name, func(t *testing.T) {
			b := base
			b.Transactions = []Transaction{base.Transactions[0]}
			b.ParentHashes = append([]string{}, base.ParentHashes...)
			tc.f(&b)
			if b.Hash() == base.Hash() {
				t.Fatal("mutation left hash unchanged")
			}
		})
	}
}

// The canonical form is pinned byte-for-byte: sorted keys, ", " and ": "
// separators, transactions without timestamps.
func TestBlockCanonicalBytes(t *testing.T) {
	ts, _ := ParseTimestamp("2024-05-01T10:30:00.123456")
	b := Block{
		Index: 0,
		Transactions: []Transaction{{
			TransactionCreate: TransactionCreate{
				Sender: "s", Recipient: "r", Amount: 10, Nonce: 1, Signature: "x",
			},
			Timestamp: ts,
		}},
		ParentHashes: []string{"p1", "p2"},
		Timestamp:    ts,
	}
	want := `{"index": 0, "nonce": 0, "parent_hashes": ["p1", "p2"], ` +
		`"timestamp": "2024-05-01T10:30:00.123456", ` +
		`"transactions": [{"amount": 10, "nonce": 1, "recipient": "r", "sender": "s", "signature": "x"}]}`
	if got := string(b.canonicalBytes()); got != want {
		t.Fatalf("canonical bytes mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestTimestampISOFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Micros", "2024-05-01T10:30:00.123456", "2024-05-01T10:30:00.123456"},
		{"WholeSecond", "2024-05-01T10:30:00", "2024-05-01T10:30:00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts, err := ParseTimestamp(tc.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := ts.ISOFormat(); got != tc.want {
				t.Fatalf("format = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBlockUnmarshalLegacyFieldName(t *testing.T) {
	legacy := `{"index": 1, "transactions": [], "nonce": 0,` +
		` "children_hashes": ["abc"], "timestamp": "2024-05-01T10:30:00"}`
	var b Block
	if err := json.Unmarshal([]byte(legacy), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(b.ParentHashes) != 1 || b.ParentHashes[0] != "abc" {
		t.Fatalf("children_hashes not mapped: %v", b.ParentHashes)
	}

	out, err := json.Marshal(&b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"parent_hashes"`) {
		t.Fatalf("marshal must use the current field name: %s", out)
	}
}
