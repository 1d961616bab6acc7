package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Block batches admitted transactions and anchors them into the DAG by
// naming the hashes of the prior blocks it extends.
//
// Index is the insertion ordinal at creation time and Nonce is a reserved
// placeholder (always 0); neither is a consensus field, but both are part
// of the hashed content.
type Block struct {
	Index        uint64        `json:"index"`
	Transactions []Transaction `json:"transactions"`
	Nonce        uint64        `json:"nonce"`
	ParentHashes []string      `json:"parent_hashes"`
	Timestamp    Timestamp     `json:"timestamp"`
}

// Hash returns the hex SHA-256 of the block's canonical serialization.
// Two blocks with identical content collide on purpose; the DAG store
// deduplicates them.
func (b *Block) Hash() string {
	sum := sha256.Sum256(b.canonicalBytes())
	return hex.EncodeToString(sum[:])
}

// canonicalBytes renders the hashed content: sorted keys, parent hashes in
// given order, transactions in list order in their own canonical form.
func (b *Block) canonicalBytes() []byte {
	txs := make([][]byte, len(b.Transactions))
	for i := range b.Transactions {
		txs[i] = b.Transactions[i].canonicalBytes()
	}
	var w canonicalWriter
	w.openObject()
	w.uintField("index", b.Index)
	w.uintField("nonce", b.Nonce)
	w.stringsField("parent_hashes", b.ParentHashes)
	w.stringField("timestamp", b.Timestamp.ISOFormat())
	w.rawField("transactions", canonicalArray(txs))
	w.closeObject()
	return w.bytes()
}

// blockWire mirrors Block for decoding, accepting the legacy field name
// children_hashes still present in old snapshots and gossip from older
// peers.
type blockWire struct {
	Index          uint64        `json:"index"`
	Transactions   []Transaction `json:"transactions"`
	Nonce          uint64        `json:"nonce"`
	ParentHashes   []string      `json:"parent_hashes"`
	ChildrenHashes []string      `json:"children_hashes"`
	Timestamp      Timestamp     `json:"timestamp"`
}

// UnmarshalJSON implements json.Unmarshaler with the children_hashes
// fallback.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w blockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.Index = w.Index
	b.Transactions = w.Transactions
	b.Nonce = w.Nonce
	b.ParentHashes = w.ParentHashes
	if b.ParentHashes == nil {
		b.ParentHashes = w.ChildrenHashes
	}
	b.Timestamp = w.Timestamp
	return nil
}
