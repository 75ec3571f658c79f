package ledger

import (
	"context"
	"fmt"
	"sync"

	domain "mazaochain-backend/internal/domain/ledger"
)

// Memory is the in-memory ledger used by tests and local development. It is
// injected in place of the HTTP gateway client; never selected by runtime
// environment sniffing.
type Memory struct {
	mu sync.Mutex

	nextToken int64
	nextTx    int64
	// token id -> total supply
	supplies map[string]int64
	// account -> token id -> balance
	balances map[string]map[string]int64
	// account -> transferable value units
	values map[string]int64
}

func NewMemory() *Memory {
	return &Memory{
		supplies: make(map[string]int64),
		balances: make(map[string]map[string]int64),
		values:   make(map[string]int64),
	}
}

// Credit seeds an account with value units (test/dev helper).
func (m *Memory) Credit(account string, units int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[account] += units
}

func (m *Memory) CreateAndMintFungibleToken(_ context.Context, supply int64, _ int32, treasury string) (domain.MintResult, error) {
	if supply <= 0 {
		return domain.MintResult{}, domain.Fatal("mint", fmt.Errorf("supply must be > 0, got %d", supply))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextToken++
	m.nextTx++
	tokenID := fmt.Sprintf("0.0.%d", 100000+m.nextToken)
	txID := fmt.Sprintf("0.0.2@%d", m.nextTx)

	m.supplies[tokenID] = supply
	if m.balances[treasury] == nil {
		m.balances[treasury] = make(map[string]int64)
	}
	m.balances[treasury][tokenID] = supply
	return domain.MintResult{TokenID: tokenID, TxID: txID}, nil
}

func (m *Memory) TransferValue(_ context.Context, from, to string, amountUnits int64) (string, error) {
	if amountUnits <= 0 {
		return "", domain.Fatal("transfer", fmt.Errorf("amount must be > 0, got %d", amountUnits))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// balances never go negative; a short account points at a mis-routed
	// or un-seeded transfer
	if m.values[from] < amountUnits {
		return "", domain.Fatal("transfer",
			fmt.Errorf("account %s holds %d units, cannot send %d", from, m.values[from], amountUnits))
	}
	m.values[from] -= amountUnits
	m.values[to] += amountUnits
	m.nextTx++
	return fmt.Sprintf("0.0.2@%d", m.nextTx), nil
}

func (m *Memory) GetAccountTokenBalance(_ context.Context, account, tokenID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account][tokenID], nil
}
