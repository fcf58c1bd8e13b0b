package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/contract/acl"
	"github.com/meterbill/backend/internal/domain/metering"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================
// Test Helpers
// ============================================

type MockCustomerQueryService struct {
	mock.Mock
}

func (m *MockCustomerQueryService) GetCustomer(ctx context.Context, customerID uuid.UUID) (acl.CustomerReference, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(acl.CustomerReference), args.Error(1)
}

type CapturingNotifier struct {
	Messages []Message
	Err      error
}

func (n *CapturingNotifier) Notify(_ context.Context, msg Message) error {
	if n.Err != nil {
		return n.Err
	}
	n.Messages = append(n.Messages, msg)
	return nil
}

func invoiceEvent(t *testing.T, final bool) (*metering.InvoiceCreatedEvent, uuid.UUID) {
	t.Helper()
	tenantID := uuid.New()
	customerID := uuid.New()
	event := &metering.InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			metering.EventTypeInvoiceCreated, metering.AggregateTypeMeterUsage, uuid.New(), tenantID),
		ContractID:     uuid.New(),
		ContractNumber: "INV-2026-00042",
		CustomerID:     customerID,
		PeriodStart:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.RequireFromString("288"),
		Final:          final,
	}
	return event, customerID
}

// ============================================
// InvoiceCreatedHandler Tests
// ============================================

func TestInvoiceCreatedHandler_PeriodInvoice(t *testing.T) {
	event, customerID := invoiceEvent(t, false)

	customers := new(MockCustomerQueryService)
	customers.On("GetCustomer", mock.Anything, customerID).Return(acl.CustomerReference{
		CustomerID: customerID,
		Name:       "Acme Corp",
		Email:      "billing@acme.example",
	}, nil)

	notifier := &CapturingNotifier{}
	handler := NewInvoiceCreatedHandler(customers, notifier, zap.NewNop())

	err := handler.Handle(context.Background(), event)
	require.NoError(t, err)

	require.Len(t, notifier.Messages, 1)
	msg := notifier.Messages[0]
	assert.Equal(t, "Acme Corp", msg.CustomerName)
	assert.Equal(t, "billing@acme.example", msg.CustomerEmail)
	assert.Equal(t, "INV-2026-00042", msg.ContractNumber)
	assert.Equal(t, "Invoice INV-2026-00042 for period 2026-01-01 to 2026-01-31", msg.Subject)
	assert.Contains(t, msg.Body, "288.00")
}

func TestInvoiceCreatedHandler_FinalSettlementSubject(t *testing.T) {
	event, customerID := invoiceEvent(t, true)

	customers := new(MockCustomerQueryService)
	customers.On("GetCustomer", mock.Anything, customerID).Return(acl.CustomerReference{
		CustomerID: customerID,
		Name:       "Acme Corp",
	}, nil)

	notifier := &CapturingNotifier{}
	handler := NewInvoiceCreatedHandler(customers, notifier, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), event))
	require.Len(t, notifier.Messages, 1)
	assert.Equal(t, "Final settlement invoice INV-2026-00042", notifier.Messages[0].Subject)
}

func TestInvoiceCreatedHandler_DirectoryDown_FallsBackToID(t *testing.T) {
	event, customerID := invoiceEvent(t, false)

	customers := new(MockCustomerQueryService)
	customers.On("GetCustomer", mock.Anything, customerID).
		Return(acl.CustomerReference{}, shared.NewDomainError("DEPENDENCY_FAILED", "customer directory unreachable"))

	notifier := &CapturingNotifier{}
	handler := NewInvoiceCreatedHandler(customers, notifier, zap.NewNop())

	err := handler.Handle(context.Background(), event)
	require.NoError(t, err, "directory outage must not fail invoice notification")

	require.Len(t, notifier.Messages, 1)
	assert.Equal(t, customerID.String(), notifier.Messages[0].CustomerName)
	assert.Empty(t, notifier.Messages[0].CustomerEmail)
}

func TestInvoiceCreatedHandler_NotifierFailure(t *testing.T) {
	event, customerID := invoiceEvent(t, false)

	customers := new(MockCustomerQueryService)
	customers.On("GetCustomer", mock.Anything, customerID).Return(acl.CustomerReference{Name: "Acme Corp"}, nil)

	notifier := &CapturingNotifier{Err: shared.NewDomainError("DEPENDENCY_FAILED", "smtp relay refused connection")}
	handler := NewInvoiceCreatedHandler(customers, notifier, zap.NewNop())

	err := handler.Handle(context.Background(), event)
	assert.Error(t, err)
}

func TestInvoiceCreatedHandler_WrongEventType(t *testing.T) {
	handler := NewInvoiceCreatedHandler(new(MockCustomerQueryService), &CapturingNotifier{}, zap.NewNop())

	wrong := &contract.ContractCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			contract.EventTypeContractCreated, contract.AggregateTypeContract, uuid.New(), uuid.New()),
	}
	err := handler.Handle(context.Background(), wrong)
	assert.Error(t, err)
}

// ============================================
// ContractApprovedHandler Tests
// ============================================

func TestContractApprovedHandler_ActiveContractBody(t *testing.T) {
	tenantID := uuid.New()
	customerID := uuid.New()
	approvedBy := uuid.New()
	approvedAt := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	event := &contract.ContractFinanceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			contract.EventTypeContractFinanceApproved, contract.AggregateTypeContract, uuid.New(), tenantID),
		ContractID:     uuid.New(),
		ContractNumber: "INV-2026-00007",
		CustomerID:     customerID,
		SaleType:       contract.SaleTypeRent,
		Status:         contract.StatusActive,
		ApprovedBy:     &approvedBy,
		ApprovedAt:     &approvedAt,
	}

	customers := new(MockCustomerQueryService)
	customers.On("GetCustomer", mock.Anything, customerID).Return(acl.CustomerReference{Name: "Acme Corp"}, nil)

	notifier := &CapturingNotifier{}
	handler := NewContractApprovedHandler(customers, notifier, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), event))
	require.Len(t, notifier.Messages, 1)
	msg := notifier.Messages[0]
	assert.Equal(t, "Contract INV-2026-00007 approved", msg.Subject)
	assert.Contains(t, msg.Body, "is now active")
}

func TestContractApprovedHandler_SaleInvoiceBody(t *testing.T) {
	customerID := uuid.New()
	event := &contract.ContractFinanceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			contract.EventTypeContractFinanceApproved, contract.AggregateTypeContract, uuid.New(), uuid.New()),
		ContractID:     uuid.New(),
		ContractNumber: "INV-2026-00008",
		CustomerID:     customerID,
		SaleType:       contract.SaleTypeSale,
		Status:         contract.StatusIssued,
	}

	customers := new(MockCustomerQueryService)
	customers.On("GetCustomer", mock.Anything, customerID).Return(acl.CustomerReference{Name: "Acme Corp"}, nil)

	notifier := &CapturingNotifier{}
	handler := NewContractApprovedHandler(customers, notifier, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), event))
	require.Len(t, notifier.Messages, 1)
	assert.Contains(t, notifier.Messages[0].Body, "purchase invoice INV-2026-00008 has been issued")
}
