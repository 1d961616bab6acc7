package core

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// TxPool buffers admitted transactions until the block builder drains them.
// Size is accounted in bytes because the block trigger is a byte threshold.
//
// The pool tracks its own pending nonce per sender so pipelined submissions
// from one wallet chain correctly before any of them confirm; the ledger's
// nonces move only at confirmation. Like the ledger, the pool relies on the
// owning Node for locking.
type TxPool struct {
	txs      []Transaction
	byteSize int
	pending  map[string]uint64
	maxBytes int
}

// NewTxPool returns an empty pool refusing admissions past maxBytes
// (0 disables the cap).
func NewTxPool(maxBytes int) *TxPool {
	return &TxPool{pending: make(map[string]uint64), maxBytes: maxBytes}
}

// pendingNonce returns the sender's pool-aware nonce: the highest nonce the
// sender has in flight (queued or cut into a not-yet-confirmed block), never
// below the confirmed value.
func (p *TxPool) pendingNonce(sender string, led *Ledger) uint64 {
	confirmed := led.ExpectedNonce(sender)
	if n, ok := p.pending[sender]; ok && n > confirmed {
		return n
	}
	return confirmed
}

// Submit admits tx or rejects it with a reason. Admission requires a known
// sender, covering funds, a verifying signature, and the next nonce in the
// sender's chain (1 for senders never seen before).
func (p *TxPool) Submit(tx Transaction, led *Ledger) error {
	if p.maxBytes > 0 && p.byteSize >= p.maxBytes {
		return ErrPoolFull
	}
	if !led.HasAccount(tx.Sender) {
		return ErrUnknownSender
	}
	if led.Balance(tx.Sender) < tx.Amount {
		return ErrInsufficientFunds
	}
	if !tx.VerifySignature() {
		return ErrInvalidSignature
	}
	if expected := p.pendingNonce(tx.Sender, led) + 1; tx.Nonce != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrBadNonce, expected, tx.Nonce)
	}

	p.txs = append(p.txs, tx)
	p.byteSize += tx.wireSize()
	p.pending[tx.Sender] = tx.Nonce
	logrus.Debugf("pool: admitted tx nonce %d from %.12s (%d bytes queued)",
		tx.Nonce, tx.Sender, p.byteSize)
	return nil
}

// Snapshot returns a copy of the queued transactions in admission order.
func (p *TxPool) Snapshot() []Transaction {
	out := make([]Transaction, len(p.txs))
	copy(out, p.txs)
	return out
}

// ByteSize returns the tracked in-memory size of the queue.
func (p *TxPool) ByteSize() int { return p.byteSize }

// Len returns the number of queued transactions.
func (p *TxPool) Len() int { return len(p.txs) }

// Reconcile drops pending nonces the ledger has caught up with, so senders
// whose transactions all confirmed fall back to the confirmed chain. Called
// after each block confirmation.
func (p *TxPool) Reconcile(led *Ledger) {
	for sender, n := range p.pending {
		if led.ExpectedNonce(sender) >= n {
			delete(p.pending, sender)
		}
	}
}

// Drain removes exactly the given transactions (matched by canonical
// content) and recomputes byte accounting. Pending nonces are kept: drained
// transactions sit in a block that is not confirmed yet, and later
// submissions from the same sender must chain past them.
func (p *TxPool) Drain(included []Transaction) {
	taken := make(map[string]int, len(included))
	for i := range included {
		taken[string(included[i].canonicalBytes())]++
	}
	kept := p.txs[:0]
	for i := range p.txs {
		key := string(p.txs[i].canonicalBytes())
		if taken[key] > 0 {
			taken[key]--
			continue
		}
		kept = append(kept, p.txs[i])
	}
	p.txs = kept

	p.byteSize = 0
	for i := range p.txs {
		p.byteSize += p.txs[i].wireSize()
	}
}
