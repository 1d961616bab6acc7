package core

import (
	"sync"
	"testing"
)

// ------------------------------------------------------------
// Shared fixtures: two funded identities and transaction/block
// constructors used across the package tests.
// ------------------------------------------------------------

type testIdentity struct {
	PublicKey string
	secret    []byte
}

var (
	fixtureOnce sync.Once
	genesisID   testIdentity
	sebastianID testIdentity
)

func identities(t *testing.T) (genesis, sebastian testIdentity) {
	t.Helper()
	fixtureOnce.Do(func() {
		genesisID = newIdentity(t)
		sebastianID = newIdentity(t)
	})
	return genesisID, sebastianID
}

func newIdentity(t *testing.T) testIdentity {
	t.Helper()
	pub, priv, err := DilithiumKeypair()
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	return testIdentity{PublicKey: Encode(pub), secret: priv}
}

func signedTx(t *testing.T, from testIdentity, to string, amount, nonce uint64) Transaction {
	t.Helper()
	tx := Transaction{
		TransactionCreate: TransactionCreate{
			Sender:    from.PublicKey,
			Recipient: to,
			Amount:    amount,
			Nonce:     nonce,
		},
		Timestamp: Now(),
	}
	sig, err := DilithiumSign(from.secret, tx.SignaturePreimage())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tx.Signature = Encode(sig)
	return tx
}

// emptyBlock builds a distinct transaction-free block; index keeps hashes
// apart.
func emptyBlock(index uint64, parents ...string) *Block {
	return &Block{
		Index:        index,
		Transactions: []Transaction{},
		ParentHashes: parents,
		Timestamp:    Now(),
	}
}

func mustAdd(t *testing.T, d *DAG, led *Ledger, b *Block) string {
	t.Helper()
	status, _, err := d.AddBlock(b, led)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if status != BlockAdded {
		t.Fatalf("AddBlock status = %v, want BlockAdded", status)
	}
	return b.Hash()
}

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	g, _ := identities(t)
	return NewLedger(g.PublicKey, DefaultDecimalPlaces)
}
