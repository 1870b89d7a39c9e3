// Package settlement moves value out of the vault. The ledger only records
// balances; actual transfers go through an external settlement gateway that
// executes native payouts and token transfer-from pulls.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ticketvault/ticketvault/internal/domain"
	"github.com/ticketvault/ticketvault/internal/observability"
)

// Client talks to the settlement gateway. A non-2xx response means the
// transfer did not happen, which aborts the ledger transaction around it.
type Client struct {
	baseURL string
	// tokenAddress selects the token contract for transfer-from pulls.
	tokenAddress string
	httpc        *http.Client
}

func NewClient(baseURL, tokenAddress string) *Client {
	return &Client{
		baseURL:      baseURL,
		tokenAddress: tokenAddress,
		httpc:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, path string, body map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "settlement gateway")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("settlement gateway: %s returned %d", path, resp.StatusCode)
	}
	return nil
}

// Transfer pays native value out to an address.
func (c *Client) Transfer(ctx context.Context, to domain.Address, amount *big.Int) error {
	return c.post(ctx, "/v1/transfers", map[string]string{
		"to":         string(to),
		"amount_wei": amount.String(),
	})
}

// TransferFrom pulls pre-approved tokens from the buyer into the vault.
func (c *Client) TransferFrom(ctx context.Context, from, to domain.Address, amount *big.Int) error {
	return c.post(ctx, "/v1/token-transfers", map[string]string{
		"token":      c.tokenAddress,
		"from":       string(from),
		"to":         string(to),
		"amount_wei": amount.String(),
	})
}

// Logging is the dev-mode settlement backend: it records transfers in the log
// and always succeeds.
type Logging struct {
	logger observability.Logger
}

func NewLogging(logger observability.Logger) *Logging {
	return &Logging{logger: logger}
}

func (l *Logging) Transfer(ctx context.Context, to domain.Address, amount *big.Int) error {
	l.logger.WithField("to", string(to)).WithField("amount_wei", amount.String()).Info("native transfer")
	return nil
}

func (l *Logging) TransferFrom(ctx context.Context, from, to domain.Address, amount *big.Int) error {
	l.logger.WithField("from", string(from)).WithField("amount_wei", amount.String()).Info("token transfer-from")
	return nil
}
