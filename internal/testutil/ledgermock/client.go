package ledgermock

import (
	"context"

	"mazaochain-backend/internal/domain/ledger"
)

var _ ledger.Client = (*Client)(nil)

// Client is a function-backed mock that satisfies ledger.Client.
type Client struct {
	CreateAndMintFungibleTokenFn func(ctx context.Context, supply int64, decimals int32, treasury string) (ledger.MintResult, error)
	TransferValueFn              func(ctx context.Context, from, to string, amountUnits int64) (string, error)
	GetAccountTokenBalanceFn     func(ctx context.Context, account, tokenID string) (int64, error)
}

func (m *Client) CreateAndMintFungibleToken(ctx context.Context, supply int64, decimals int32, treasury string) (ledger.MintResult, error) {
	if m.CreateAndMintFungibleTokenFn != nil {
		return m.CreateAndMintFungibleTokenFn(ctx, supply, decimals, treasury)
	}
	return ledger.MintResult{TokenID: "0.0.100001", TxID: "0.0.2@1"}, nil
}

func (m *Client) TransferValue(ctx context.Context, from, to string, amountUnits int64) (string, error) {
	if m.TransferValueFn != nil {
		return m.TransferValueFn(ctx, from, to, amountUnits)
	}
	return "0.0.2@2", nil
}

func (m *Client) GetAccountTokenBalance(ctx context.Context, account, tokenID string) (int64, error) {
	if m.GetAccountTokenBalanceFn != nil {
		return m.GetAccountTokenBalanceFn(ctx, account, tokenID)
	}
	return 0, nil
}
