package allocation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestAllocation(t *testing.T) *Allocation {
	a, err := NewAllocation(uuid.New(), uuid.New(), uuid.New(), uuid.New(), "SN-1001",
		valueobject.NewMeterReading(5000, 100, 800, 0))
	require.NoError(t, err)
	return a
}

func TestNewAllocation(t *testing.T) {
	t.Run("creates allocation in ALLOCATED state", func(t *testing.T) {
		tenantID := uuid.New()
		contractID := uuid.New()
		unitID := uuid.New()
		initial := valueobject.NewMeterReading(5000, 100, 800, 0)

		a, err := NewAllocation(tenantID, contractID, uuid.New(), unitID, "SN-1001", initial)
		require.NoError(t, err)

		assert.Equal(t, tenantID, a.TenantID)
		assert.Equal(t, contractID, a.ContractID)
		assert.Equal(t, unitID, a.UnitID)
		assert.Equal(t, "SN-1001", a.SerialNumber)
		assert.Equal(t, StatusAllocated, a.Status)
		assert.Equal(t, initial, a.InitialReadings)
		assert.Equal(t, initial, a.CurrentReadings)
		assert.Nil(t, a.ReturnedAt)
		assert.True(t, a.IsAllocated())
	})

	t.Run("rejects nil contract", func(t *testing.T) {
		_, err := NewAllocation(uuid.New(), uuid.Nil, uuid.New(), uuid.New(), "SN-1", valueobject.ZeroMeterReading())
		assert.Error(t, err)
	})

	t.Run("rejects nil unit", func(t *testing.T) {
		_, err := NewAllocation(uuid.New(), uuid.New(), uuid.New(), uuid.Nil, "SN-1", valueobject.ZeroMeterReading())
		assert.Error(t, err)
	})

	t.Run("rejects negative baseline", func(t *testing.T) {
		_, err := NewAllocation(uuid.New(), uuid.New(), uuid.New(), uuid.New(), "SN-1",
			valueobject.NewMeterReading(-1, 0, 0, 0))
		assert.Error(t, err)
	})
}

func TestAllocation_UpdateCurrentReadings(t *testing.T) {
	a := createTestAllocation(t)
	latest := valueobject.NewMeterReading(6300, 150, 950, 0)

	a.UpdateCurrentReadings(latest)

	assert.Equal(t, latest, a.CurrentReadings)
	// The baseline anchor never moves.
	assert.Equal(t, valueobject.NewMeterReading(5000, 100, 800, 0), a.InitialReadings)
}

func TestAllocation_MarkReturned(t *testing.T) {
	t.Run("returns an allocated unit", func(t *testing.T) {
		a := createTestAllocation(t)

		err := a.MarkReturned()
		require.NoError(t, err)

		assert.Equal(t, StatusReturned, a.Status)
		require.NotNil(t, a.ReturnedAt)
		assert.WithinDuration(t, time.Now(), *a.ReturnedAt, time.Second)
		assert.False(t, a.IsAllocated())
	})

	t.Run("publishes UnitReturned event", func(t *testing.T) {
		a := createTestAllocation(t)
		require.NoError(t, a.MarkReturned())

		events := a.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeUnitReturned, events[0].EventType())

		event, ok := events[0].(*UnitReturnedEvent)
		require.True(t, ok)
		assert.Equal(t, a.UnitID, event.UnitID)
		assert.Equal(t, a.ContractID, event.ContractID)
	})

	t.Run("rejects double return", func(t *testing.T) {
		a := createTestAllocation(t)
		require.NoError(t, a.MarkReturned())
		assert.Error(t, a.MarkReturned())
	})
}
