package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/ledger"
	"github.com/roach88/cavityproof/internal/streak"
)

// RejectedError is a request the gateway refused. It carries the ledger's
// code, so ledger.CodeOf reports it unchanged.
type RejectedError struct {
	Status  int
	Receipt ledger.Receipt
	Code    string
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

// ErrorCode exposes the code to ledger.CodeOf.
func (e *RejectedError) ErrorCode() string { return e.Code }

// Client talks to a gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the gateway at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit sends b and waits for the ledger's verdict. A rejected batch
// returns its Receipt and a *RejectedError.
func (c *Client) Submit(ctx context.Context, b ledger.Batch) (ledger.Receipt, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("encode batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/batches", bytes.NewReader(body))
	if err != nil {
		return ledger.Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var rcpt ledger.Receipt
	if err := c.do(req, &rcpt); err != nil {
		var rerr *RejectedError
		if errors.As(err, &rerr) {
			return rerr.Receipt, rerr
		}
		return ledger.Receipt{}, err
	}
	return rcpt, nil
}

// UserState reads user's committed claim state.
func (c *Client) UserState(ctx context.Context, user ir.Pubkey) (claim.UserState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/users/"+user.String()+"/state", nil)
	if err != nil {
		return claim.UserState{}, err
	}
	var view UserState
	if err := c.do(req, &view); err != nil {
		return claim.UserState{}, err
	}
	return claim.UserState{
		Owner: view.Owner,
		State: streak.State{
			Streak:         view.Streak,
			LastDayClaimed: view.LastDayClaimed,
			TotalClaims:    view.TotalClaims,
		},
	}, nil
}

// NonceUsed reports whether user's nonce has been consumed.
func (c *Client) NonceUsed(ctx context.Context, user ir.Pubkey, nonce ir.Nonce) (bool, error) {
	url := c.baseURL + "/v1/users/" + user.String() + "/nonces/" + nonce.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	var status NonceStatus
	if err := c.do(req, &status); err != nil {
		return false, err
	}
	return status.Used, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("gateway %s %s: read body: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var rej Rejection
		if err := json.Unmarshal(data, &rej); err != nil || rej.Code == "" {
			return fmt.Errorf("gateway %s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
		}
		return &RejectedError{
			Status:  resp.StatusCode,
			Receipt: ledger.Receipt{ID: rej.ID, Seq: rej.Seq},
			Code:    rej.Code,
			Message: rej.Error,
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("gateway %s %s: decode: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
