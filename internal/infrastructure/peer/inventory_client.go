package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/contract/acl"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/config"
)

// maxResponseSize caps peer response bodies at 1MB
const maxResponseSize = 1 << 20

// InventoryClient queries the inventory peer for unit capability
// records during finance approval.
type InventoryClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     *ServiceTokenSource
}

func NewInventoryClient(cfg config.PeerConfig, tokens *ServiceTokenSource) *InventoryClient {
	return &InventoryClient{
		baseURL:    cfg.InventoryBaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		tokens:     tokens,
	}
}

type unitPayload struct {
	ID           uuid.UUID `json:"id"`
	Model        string    `json:"model"`
	SerialNumber string    `json:"serial_number"`
	ColorCapable bool      `json:"color_capable"`
}

// GetUnit fetches the capability record for a physical unit. The peer
// being unreachable or answering with an unexpected shape surfaces as
// DEPENDENCY_FAILED, which aborts the approval transaction.
func (c *InventoryClient) GetUnit(ctx context.Context, unitID uuid.UUID) (acl.UnitReference, error) {
	var payload unitPayload
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, unitID), &payload); err != nil {
		return acl.UnitReference{}, err
	}

	return acl.UnitReference{
		UnitID:       payload.ID,
		Model:        payload.Model,
		SerialNumber: payload.SerialNumber,
		ColorCapable: payload.ColorCapable,
	}, nil
}

func (c *InventoryClient) getJSON(ctx context.Context, url string, out interface{}) error {
	token, err := c.tokens.Token()
	if err != nil {
		return shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Failed to mint service token: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Failed to build peer request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Inventory peer unreachable: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return shared.ErrNotFound
	case resp.StatusCode >= 400:
		return shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Inventory peer returned HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Failed to read peer response: %v", err))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Unexpected peer response shape: %v", err))
	}
	return nil
}

var _ acl.UnitQueryService = (*InventoryClient)(nil)
