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

// CustomerDirectoryClient queries the customer directory peer for
// contact details when composing notifications. Callers tolerate
// failure, so errors here only cost the notification its nice name.
type CustomerDirectoryClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     *ServiceTokenSource
}

func NewCustomerDirectoryClient(cfg config.PeerConfig, tokens *ServiceTokenSource) *CustomerDirectoryClient {
	return &CustomerDirectoryClient{
		baseURL:    cfg.CustomerBaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		tokens:     tokens,
	}
}

type customerPayload struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

func (c *CustomerDirectoryClient) GetCustomer(ctx context.Context, customerID uuid.UUID) (acl.CustomerReference, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return acl.CustomerReference{}, shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Failed to mint service token: %v", err))
	}

	url := fmt.Sprintf("%s/api/v1/customers/%s", c.baseURL, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return acl.CustomerReference{}, shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Failed to build peer request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return acl.CustomerReference{}, shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Customer directory unreachable: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return acl.CustomerReference{}, shared.ErrNotFound
	case resp.StatusCode >= 400:
		return acl.CustomerReference{}, shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Customer directory returned HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return acl.CustomerReference{}, shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Failed to read peer response: %v", err))
	}

	var payload customerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return acl.CustomerReference{}, shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Unexpected peer response shape: %v", err))
	}

	return acl.CustomerReference{
		CustomerID: payload.ID,
		Name:       payload.Name,
		Email:      payload.Email,
		Phone:      payload.Phone,
	}, nil
}

var _ acl.CustomerQueryService = (*CustomerDirectoryClient)(nil)
