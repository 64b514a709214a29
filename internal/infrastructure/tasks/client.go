// Package tasks is the thin client for the external task collaborator.
// Delivery sales get an audit task created there, fire-and-forget.
package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/infrastructure/config"
)

// Client posts audit task requests to the task service
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a task client from configuration
func NewClient(cfg config.TasksConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateAuditTask asks the task service to audit a delivery transaction.
// The caller treats any failure as best-effort.
func (c *Client) CreateAuditTask(ctx context.Context, transactionID uuid.UUID, address string) error {
	if c.endpoint == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"transaction_id": transactionID.String(),
		"address":        address,
		"type":           "delivery_audit",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/tasks", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("task service returned status %d", resp.StatusCode)
	}
	return nil
}
