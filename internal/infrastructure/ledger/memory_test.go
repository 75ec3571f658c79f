package ledger

import (
	"context"
	"testing"

	domain "mazaochain-backend/internal/domain/ledger"
)

func TestMemory_MintCreditsTreasury(t *testing.T) {
	m := NewMemory()

	res, err := m.CreateAndMintFungibleToken(context.Background(), 750000, 2, "0.0.98")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if res.TokenID == "" || res.TxID == "" {
		t.Fatalf("mint result incomplete: %+v", res)
	}
	bal, err := m.GetAccountTokenBalance(context.Background(), "0.0.98", res.TokenID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 750000 {
		t.Fatalf("treasury balance: want 750000, got %d", bal)
	}

	if _, err := m.CreateAndMintFungibleToken(context.Background(), 0, 2, "0.0.98"); err == nil {
		t.Fatal("zero supply must be rejected")
	}
}

func TestMemory_TransferMovesValue(t *testing.T) {
	m := NewMemory()
	m.Credit("0.0.98", 1000)

	tx, err := m.TransferValue(context.Background(), "0.0.98", "0.0.200", 400)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tx == "" {
		t.Fatal("transfer must return a tx id")
	}
	if m.values["0.0.98"] != 600 || m.values["0.0.200"] != 400 {
		t.Fatalf("balances after transfer: %d / %d", m.values["0.0.98"], m.values["0.0.200"])
	}
}

func TestMemory_TransferRejectsOverdraft(t *testing.T) {
	m := NewMemory()
	m.Credit("0.0.98", 100)

	_, err := m.TransferValue(context.Background(), "0.0.98", "0.0.200", 101)
	if err == nil {
		t.Fatal("overdraft must be rejected")
	}
	if domain.IsRecoverable(err) {
		t.Fatalf("overdraft is not retryable: %v", err)
	}
	if m.values["0.0.98"] != 100 || m.values["0.0.200"] != 0 {
		t.Fatalf("rejected transfer must not move value: %d / %d", m.values["0.0.98"], m.values["0.0.200"])
	}
}
