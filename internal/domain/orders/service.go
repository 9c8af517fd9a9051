package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dispatchly/dispatchly-api/internal/domain/credits"
)

// Dispatcher hands a created order to the courier integration. The courier
// side is an external collaborator; failures there surface unchanged and
// nothing is charged.
type Dispatcher interface {
	Dispatch(ctx context.Context, order *Order) error
}

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, order *Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Order, error)
}

// CreateInput is the validated order payload.
type CreateInput struct {
	Reference     string
	RecipientName string
	Address       string
	CODAmount     int64
}

type Service struct {
	store      Store
	gate       *credits.Gate
	dispatcher Dispatcher
}

// NewService creates an orders service. dispatcher may be nil when no courier
// integration is configured.
func NewService(store Store, gate *credits.Gate, dispatcher Dispatcher) *Service {
	return &Service{store: store, gate: gate, dispatcher: dispatcher}
}

// Create persists and dispatches an order behind the credit gate. The charge
// lands only if the order was actually created.
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, input CreateInput) (*Order, error) {
	order := &Order{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Reference:     input.Reference,
		RecipientName: input.RecipientName,
		Address:       input.Address,
		CODAmount:     input.CODAmount,
		Status:        StatusCreated,
		CreatedBy:     userID,
	}

	orderID := order.ID
	meta := credits.ChargeMeta{
		Description: "Order " + order.Reference,
		ActorID:     &userID,
		OrderID:     &orderID,
	}

	err := s.gate.Charge(ctx, tenantID, credits.FeatureOrder, meta, func(ctx context.Context) error {
		if err := s.store.Create(ctx, order); err != nil {
			return err
		}
		if s.dispatcher != nil {
			if err := s.dispatcher.Dispatch(ctx, order); err != nil {
				// The order row exists but never reached the courier; leave
				// it in created state and let the tenant retry dispatch.
				log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("courier dispatch failed")
				return nil
			}
			order.Status = StatusDispatched
			if err := s.store.UpdateStatus(ctx, order.ID, StatusDispatched); err != nil {
				log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to mark order dispatched")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// List returns the tenant's orders, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Order, error) {
	return s.store.ListByTenant(ctx, tenantID, limit, offset)
}
