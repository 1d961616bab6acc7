package core

import (
	"strconv"
)

// TransactionCreate is the wire body a wallet submits: the signed value
// transfer without the node-assigned timestamp.
type TransactionCreate struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

// Transaction is an admitted transfer. The timestamp is attached by the node
// at admission and is informational only; it is not covered by the
// signature and never enters the block hash.
type Transaction struct {
	TransactionCreate
	Timestamp Timestamp `json:"timestamp"`
}

// SignaturePreimage returns the exact bytes a wallet signs:
// sender, recipient, then the base-10 amount and nonce, concatenated with
// no separators.
func (tx *TransactionCreate) SignaturePreimage() []byte {
	out := make([]byte, 0, len(tx.Sender)+len(tx.Recipient)+40)
	out = append(out, tx.Sender...)
	out = append(out, tx.Recipient...)
	out = strconv.AppendUint(out, tx.Amount, 10)
	out = strconv.AppendUint(out, tx.Nonce, 10)
	return out
}

// VerifySignature checks the transaction's signature against its sender key.
// Undecodable keys or signatures count as invalid.
func (tx *TransactionCreate) VerifySignature() bool {
	pub, err := Decode(tx.Sender)
	if err != nil {
		return false
	}
	sig, err := Decode(tx.Signature)
	if err != nil {
		return false
	}
	return VerifySignature(tx.SignaturePreimage(), sig, pub)
}

// canonicalBytes renders the transaction in its hashed form: sorted keys,
// no timestamp.
func (tx *Transaction) canonicalBytes() []byte {
	var w canonicalWriter
	w.openObject()
	w.uintField("amount", tx.Amount)
	w.uintField("nonce", tx.Nonce)
	w.stringField("recipient", tx.Recipient)
	w.stringField("sender", tx.Sender)
	w.stringField("signature", tx.Signature)
	w.closeObject()
	return w.bytes()
}

// wireSize approximates the in-memory footprint of the transaction for the
// pool's byte accounting. The canonical form is a stable proxy that two
// replicas compute identically.
func (tx *Transaction) wireSize() int {
	return len(tx.canonicalBytes()) + len(tx.Timestamp.ISOFormat())
}
