package core

import (
	"errors"
	"testing"
)

func TestLedgerGenesis(t *testing.T) {
	g, s := identities(t)
	led := NewLedger(g.PublicKey, DefaultDecimalPlaces)
	if got := led.Balance(g.PublicKey); got != GenesisEndowment {
		t.Fatalf("genesis balance = %d, want %d", got, GenesisEndowment)
	}
	if got := led.Balance(s.PublicKey); got != 0 {
		t.Fatalf("unknown balance = %d, want 0", got)
	}
	if got := led.ExpectedNonce(g.PublicKey); got != 0 {
		t.Fatalf("genesis nonce = %d, want 0", got)
	}
	if got := led.DisplayBalance(g.PublicKey); got != 1000.00 {
		t.Fatalf("display balance = %v, want 1000.00", got)
	}
}

func TestLedgerValidate(t *testing.T) {
	g, s := identities(t)
	led := NewLedger(g.PublicKey, DefaultDecimalPlaces)
	led.Nonces[g.PublicKey] = 5

	badSig := signedTx(t, g, s.PublicKey, 100, 6)
	badSig.Signature = Encode([]byte("nonsense"))

	tests := []struct {
		name string
		tx   Transaction
		want error
	}{
		{"Ok", signedTx(t, g, s.PublicKey, 100, 6), nil},
		{"BadSignature", badSig, ErrInvalidSignature},
		{"NonceTooHigh", signedTx(t, g, s.PublicKey, 100, 7), ErrBadNonce},
		{"NonceReuse", signedTx(t, g, s.PublicKey, 100, 5), ErrBadNonce},
		{"Overspend", signedTx(t, g, s.PublicKey, 200000, 6), ErrInsufficientFunds},
		{"UnknownSender", signedTx(t, s, g.PublicKey, 1, 1), ErrInsufficientFunds},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := led.Validate(&tc.tx)
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestApplyBatchCommits(t *testing.T) {
	g, s := identities(t)
	led := NewLedger(g.PublicKey, DefaultDecimalPlaces)

	batch := []Transaction{
		signedTx(t, g, s.PublicKey, 1000, 1),
		signedTx(t, g, s.PublicKey, 500, 2),
	}
	if err := led.ApplyBatch(batch); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := led.Balance(g.PublicKey); got != 98500 {
		t.Fatalf("sender balance = %d, want 98500", got)
	}
	if got := led.Balance(s.PublicKey); got != 1500 {
		t.Fatalf("recipient balance = %d, want 1500", got)
	}
	if got := led.ExpectedNonce(g.PublicKey); got != 2 {
		t.Fatalf("nonce = %d, want 2", got)
	}
}

func TestApplyBatchAtomic(t *testing.T) {
	g, s := identities(t)

	tests := []struct {
		name  string
		batch func(t *testing.T) []Transaction
		want  error
	}{
		{
			"OverspendMidBatch",
			func(t *testing.T) []Transaction {
				return []Transaction{
					signedTx(t, g, s.PublicKey, 1000, 1),
					signedTx(t, g, s.PublicKey, GenesisEndowment, 2), // exceeds remainder
				}
			},
			ErrInsufficientFunds,
		},
		{
			"NonceGapMidBatch",
			func(t *testing.T) []Transaction {
				return []Transaction{
					signedTx(t, g, s.PublicKey, 100, 1),
					signedTx(t, g, s.PublicKey, 100, 3),
				}
			},
			ErrBadNonce,
		},
		{
			"BadSignatureMidBatch",
			func(t *testing.T) []Transaction {
				bad := signedTx(t, g, s.PublicKey, 100, 2)
				bad.Amount = 101 // breaks the signed preimage
				return []Transaction{signedTx(t, g, s.PublicKey, 100, 1), bad}
			},
			ErrInvalidSignature,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			led := NewLedger(g.PublicKey, DefaultDecimalPlaces)
			err := led.ApplyBatch(tc.batch(t))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if got := led.Balance(g.PublicKey); got != GenesisEndowment {
				t.Fatalf("failed batch mutated balances: %d", got)
			}
			if got := led.ExpectedNonce(g.PublicKey); got != 0 {
				t.Fatalf("failed batch mutated nonces: %d", got)
			}
		})
	}
}

func TestBalanceConservation(t *testing.T) {
	g, s := identities(t)
	third := newIdentity(t)
	led := NewLedger(g.PublicKey, DefaultDecimalPlaces)

	if err := led.ApplyBatch([]Transaction{
		signedTx(t, g, s.PublicKey, 40000, 1),
		signedTx(t, g, third.PublicKey, 10000, 2),
		signedTx(t, s, third.PublicKey, 5000, 1),
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	var total uint64
	for _, v := range led.Balances {
		total += v
	}
	if total != GenesisEndowment {
		t.Fatalf("sum of balances = %d, want %d", total, GenesisEndowment)
	}
}

func TestNonceMonotonicity(t *testing.T) {
	g, s := identities(t)
	led := NewLedger(g.PublicKey, DefaultDecimalPlaces)

	for nonce := uint64(1); nonce <= 4; nonce++ {
		if err := led.ApplyBatch([]Transaction{signedTx(t, g, s.PublicKey, 10, nonce)}); err != nil {
			t.Fatalf("nonce %d: %v", nonce, err)
		}
	}
	if got := led.ExpectedNonce(g.PublicKey); got != 4 {
		t.Fatalf("nonce = %d, want 4", got)
	}
	// Reuse and gaps both fail once a chain is recorded.
	if err := led.ApplyBatch([]Transaction{signedTx(t, g, s.PublicKey, 10, 4)}); !errors.Is(err, ErrBadNonce) {
		t.Fatalf("reuse: err = %v", err)
	}
	if err := led.ApplyBatch([]Transaction{signedTx(t, g, s.PublicKey, 10, 6)}); !errors.Is(err, ErrBadNonce) {
		t.Fatalf("gap: err = %v", err)
	}
}
