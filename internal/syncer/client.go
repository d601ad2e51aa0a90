package syncer

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

	"github.com/famscrap/scrapbill/internal/models"
)

const (
	syncBillPath   = "/api/sync-bill/"
	syncStatusPath = "/api/sync-status/"
)

// Client talks to the remote backend. Every call carries an explicit
// timeout; a timeout cancels that single call only.
type Client struct {
	baseURL      string
	http         *http.Client
	syncTimeout  time.Duration
	probeTimeout time.Duration
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, syncTimeout, probeTimeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{},
		syncTimeout:  syncTimeout,
		probeTimeout: probeTimeout,
	}
}

// syncResponse is the backend's JSON envelope.
type syncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Probe checks backend reachability with a short timeout. Any 2xx means
// reachable.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+syncStatusPath, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportErr("probe backend", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: probe returned status %d", models.ErrOffline, resp.StatusCode)
	}
	return nil
}

// SyncBill transmits one canonical payload. A non-2xx status or a structured
// failure body is reported with the server's message when available.
func (c *Client) SyncBill(ctx context.Context, payload *Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.syncTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+syncBillPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportErr("send bill", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return classifyTransportErr("read sync response", err)
	}

	var parsed syncResponse
	parseErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parseErr == nil && remoteMessage(parsed) != "" {
			return fmt.Errorf("%w: %s", models.ErrRemoteRejected, remoteMessage(parsed))
		}
		return fmt.Errorf("%w: status %d", models.ErrRemoteRejected, resp.StatusCode)
	}
	if parseErr != nil {
		return fmt.Errorf("%w: malformed response body", models.ErrRemoteRejected)
	}
	if !parsed.Success {
		if msg := remoteMessage(parsed); msg != "" {
			return fmt.Errorf("%w: %s", models.ErrRemoteRejected, msg)
		}
		return fmt.Errorf("%w: backend reported failure", models.ErrRemoteRejected)
	}
	return nil
}

func remoteMessage(resp syncResponse) string {
	if resp.Error != "" {
		return resp.Error
	}
	return resp.Message
}

// classifyTransportErr maps transport failures onto the error taxonomy:
// deadline hits are timeouts, everything else is unreachability.
func classifyTransportErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, models.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrOffline, err)
}
