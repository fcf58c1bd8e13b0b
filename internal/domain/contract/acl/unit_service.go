// Package acl holds the anti-corruption layer ports the contract context
// uses to query peer services. Interfaces are defined here and implemented
// in the infrastructure layer, keeping the domain free of transport
// concerns.
package acl

import (
	"context"

	"github.com/google/uuid"
)

// UnitReference is the minimal view of a physical unit the contract
// context needs during finance approval.
type UnitReference struct {
	UnitID       uuid.UUID
	Model        string
	SerialNumber string
	ColorCapable bool
}

// UnitQueryService queries the inventory peer for unit capability
// records. A failed lookup during finance approval aborts the whole
// approval transaction.
type UnitQueryService interface {
	// GetUnit retrieves the capability record for a physical unit.
	// Returns shared.ErrNotFound when the peer has no such unit and a
	// DEPENDENCY_FAILED error when the peer is unreachable or returns an
	// unexpected shape.
	GetUnit(ctx context.Context, unitID uuid.UUID) (UnitReference, error)
}

// CustomerReference is the minimal customer contact view used when
// composing notifications.
type CustomerReference struct {
	CustomerID uuid.UUID
	Name       string
	Email      string
	Phone      string
}

// CustomerQueryService queries the customer directory peer. Lookups are
// tolerant of failure: callers receive a zero reference and supply their
// own fallback, because notification composition must never block a
// billing mutation.
type CustomerQueryService interface {
	GetCustomer(ctx context.Context, customerID uuid.UUID) (CustomerReference, error)
}
