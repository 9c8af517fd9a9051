package credits

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dispatchly/dispatchly-api/internal/pkg/metrics"
)

// ChargeMeta annotates the debit a gated operation produces.
type ChargeMeta struct {
	Description string
	ActorID     *uuid.UUID
	OrderID     *uuid.UUID
}

// Gate wraps paid feature calls: credits are charged if and only if the
// wrapped operation succeeded.
type Gate struct {
	svc   *Service
	costs *CostTable
}

// NewGate creates a consumption gate
func NewGate(svc *Service, costs *CostTable) *Gate {
	return &Gate{svc: svc, costs: costs}
}

// Charge runs op behind the credit gate for the given feature:
//
//  1. A cheap balance pre-check rejects obviously broke tenants before any
//     work happens (ErrInsufficientCredits, nothing charged).
//  2. op runs; its error is returned as-is and nothing is charged.
//  3. The atomic debit is taken. If it fails after op succeeded, the result
//     stands: the external side effect cannot be un-done, so the discrepancy
//     is logged and counted for out-of-band reconciliation instead of
//     failing the caller.
func (g *Gate) Charge(ctx context.Context, tenantID uuid.UUID, feature Feature, meta ChargeMeta, op func(ctx context.Context) error) error {
	cost, err := g.costs.Cost(feature)
	if err != nil {
		return err
	}

	ok, err := g.svc.HasSufficientCredits(ctx, tenantID, cost)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientCredits
	}

	if err := op(ctx); err != nil {
		return err
	}

	txMeta := TxMeta{
		Feature:     feature,
		Description: meta.Description,
		ActorID:     meta.ActorID,
		OrderID:     meta.OrderID,
	}
	if _, err := g.svc.Debit(ctx, tenantID, cost, txMeta); err != nil {
		metrics.DeductionFailures.WithLabelValues(string(feature)).Inc()
		log.Error().
			Err(err).
			Str("tenant_id", tenantID.String()).
			Str("feature", string(feature)).
			Int64("cost", cost).
			Msg("deduction failed after operation succeeded, needs reconciliation")
	}

	return nil
}

// Cost exposes the price of a feature for handlers that want to show it.
func (g *Gate) Cost(feature Feature) (int64, error) {
	return g.costs.Cost(feature)
}
