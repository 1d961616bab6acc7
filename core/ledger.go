package core

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// GenesisEndowment is the total supply, seeded to the genesis key at cold
// start. Transfers only after that; nothing is ever minted or burned.
const GenesisEndowment uint64 = 100000

// DefaultDecimalPlaces converts minor units to display values
// (minor / 10^places).
const DefaultDecimalPlaces = 2

// Ledger holds the confirmed balance and nonce state. Balances are integers
// in minor units; nonces record the last applied nonce per sender, with an
// absent entry meaning 0.
//
// The ledger itself is not synchronized; the owning Node serializes access.
type Ledger struct {
	Balances map[string]uint64
	Nonces   map[string]uint64

	genesisPublicKey string
	decimalPlaces    int
}

// NewLedger returns a ledger at genesis: the endowment credited to
// genesisPublicKey and no recorded nonces.
func NewLedger(genesisPublicKey string, decimalPlaces int) *Ledger {
	if decimalPlaces <= 0 {
		decimalPlaces = DefaultDecimalPlaces
	}
	l := &Ledger{
		genesisPublicKey: genesisPublicKey,
		decimalPlaces:    decimalPlaces,
	}
	l.Reset()
	return l
}

// Reset discards all state and re-seeds the genesis endowment. Replay and
// DAG adoption start from here.
func (l *Ledger) Reset() {
	l.Balances = map[string]uint64{l.genesisPublicKey: GenesisEndowment}
	l.Nonces = make(map[string]uint64)
}

// ExpectedNonce returns the last applied nonce for sender, 0 when none.
func (l *Ledger) ExpectedNonce(sender string) uint64 {
	return l.Nonces[sender]
}

// Balance returns the balance of publicKey in minor units, 0 when absent.
func (l *Ledger) Balance(publicKey string) uint64 {
	return l.Balances[publicKey]
}

// DisplayBalance converts the minor-unit balance to its decimal display
// value.
func (l *Ledger) DisplayBalance(publicKey string) float64 {
	return float64(l.Balances[publicKey]) / math.Pow10(l.decimalPlaces)
}

// HasAccount reports whether publicKey has a balance entry.
func (l *Ledger) HasAccount(publicKey string) bool {
	_, ok := l.Balances[publicKey]
	return ok
}

// Validate checks tx against current state: signature, nonce continuity and
// funds. A sender with no recorded nonce passes the nonce check with any
// value here; stricter admission rules live in the pool.
func (l *Ledger) Validate(tx *Transaction) error {
	if !tx.VerifySignature() {
		return ErrInvalidSignature
	}
	if recorded, ok := l.Nonces[tx.Sender]; ok && tx.Nonce != recorded+1 {
		return fmt.Errorf("%w: expected %d, got %d", ErrBadNonce, recorded+1, tx.Nonce)
	}
	if l.Balances[tx.Sender] < tx.Amount {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyBatch applies txs atomically: every transaction is validated against
// an evolving copy of balances and nonces, in list order, and state is
// replaced only if all of them pass. On failure the copy is discarded and
// the error names the offending transaction.
func (l *Ledger) ApplyBatch(txs []Transaction) error {
	balances := make(map[string]uint64, len(l.Balances))
	for k, v := range l.Balances {
		balances[k] = v
	}
	nonces := make(map[string]uint64, len(l.Nonces))
	for k, v := range l.Nonces {
		nonces[k] = v
	}

	for i := range txs {
		tx := &txs[i]
		if !tx.VerifySignature() {
			return fmt.Errorf("batch tx %d: %w", i, ErrInvalidSignature)
		}
		if recorded, ok := nonces[tx.Sender]; ok && tx.Nonce != recorded+1 {
			return fmt.Errorf("batch tx %d: %w: expected %d, got %d",
				i, ErrBadNonce, recorded+1, tx.Nonce)
		}
		if balances[tx.Sender] < tx.Amount {
			return fmt.Errorf("batch tx %d: %w", i, ErrInsufficientFunds)
		}
		balances[tx.Sender] -= tx.Amount
		balances[tx.Recipient] += tx.Amount
		nonces[tx.Sender] = tx.Nonce
	}

	l.Balances = balances
	l.Nonces = nonces
	logrus.Debugf("applied batch of %d transactions", len(txs))
	return nil
}

// applyTx moves funds for a single already-validated transaction. Replay
// uses this per-transaction path; live confirmation goes through ApplyBatch.
func (l *Ledger) applyTx(tx *Transaction) {
	l.Balances[tx.Sender] -= tx.Amount
	l.Balances[tx.Recipient] += tx.Amount
	l.Nonces[tx.Sender] = tx.Nonce
}
