package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	domain "mazaochain-backend/internal/domain/ledger"
)

// Gateway talks to the ledger gateway's REST API. Requests carry a bounded
// timeout; 5xx/429 and network timeouts are classified recoverable so the
// resilience layer retries them, 4xx are fatal.
type Gateway struct {
	baseURL string
	client  *http.Client
}

func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type mintRequest struct {
	Supply   int64  `json:"supply"`
	Decimals int32  `json:"decimals"`
	Treasury string `json:"treasury"`
}

type mintResponse struct {
	TokenID string `json:"token_id"`
	TxID    string `json:"tx_id"`
}

type transferRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountUnits int64  `json:"amount_units"`
}

type transferResponse struct {
	TxID string `json:"tx_id"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

func (g *Gateway) CreateAndMintFungibleToken(ctx context.Context, supply int64, decimals int32, treasury string) (domain.MintResult, error) {
	var out mintResponse
	err := g.post(ctx, "mint", "/v1/tokens", mintRequest{Supply: supply, Decimals: decimals, Treasury: treasury}, &out)
	if err != nil {
		return domain.MintResult{}, err
	}
	return domain.MintResult{TokenID: out.TokenID, TxID: out.TxID}, nil
}

func (g *Gateway) TransferValue(ctx context.Context, from, to string, amountUnits int64) (string, error) {
	var out transferResponse
	err := g.post(ctx, "transfer", "/v1/transfers", transferRequest{From: from, To: to, AmountUnits: amountUnits}, &out)
	if err != nil {
		return "", err
	}
	return out.TxID, nil
}

func (g *Gateway) GetAccountTokenBalance(ctx context.Context, account, tokenID string) (int64, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/tokens/%s/balance", g.baseURL, account, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, domain.Fatal("balance", err)
	}
	var out balanceResponse
	if err := g.do("balance", req, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (g *Gateway) post(ctx context.Context, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return domain.Fatal(op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return domain.Fatal(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(op, req, out)
}

func (g *Gateway) do(op string, req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return domain.Recoverable(op, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Recoverable(op, err)
		}
		// connection refused and friends: worth a retry
		return domain.Recoverable(op, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Recoverable(op, err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(b, out); err != nil {
			return domain.Fatal(op, fmt.Errorf("decoding response: %w", err))
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.Recoverable(op, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, b))
	default:
		return domain.Fatal(op, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, b))
	}
}
