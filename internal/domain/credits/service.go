package credits

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dispatchly/dispatchly-api/internal/pkg/metrics"
)

// Store is the account-store surface the service and the gates depend on.
// Implemented by *Repository; tests substitute an in-memory fake.
type Store interface {
	GetAccount(ctx context.Context, tenantID uuid.UUID) (*Account, error)
	HasSufficientCredits(ctx context.Context, tenantID uuid.UUID, amount int64) (bool, error)
	Credit(ctx context.Context, tenantID uuid.UUID, amount int64, meta TxMeta) (*Account, error)
	Debit(ctx context.Context, tenantID uuid.UUID, amount int64, meta TxMeta) (*Account, error)
	Reset(ctx context.Context, tenantID uuid.UUID, newBalance int64, meta TxMeta) (*Account, error)
	CreditPayment(ctx context.Context, tenantID uuid.UUID, amount int64, paymentRef string, meta TxMeta) (*Account, error)
	ListTransactions(ctx context.Context, tenantID uuid.UUID, p Pagination) ([]Transaction, error)
}

// Service wraps the store with validation, payment verification and the
// display-balance cache.
type Service struct {
	store Store
	cache *BalanceCache
}

// NewService creates a credits service. cache may be nil.
func NewService(store Store, cache *BalanceCache) *Service {
	return &Service{store: store, cache: cache}
}

// GetAccount returns the account for display. Served from the cache when
// possible; gating decisions never go through here.
func (s *Service) GetAccount(ctx context.Context, tenantID uuid.UUID) (*Account, error) {
	if acct, ok := s.cache.Get(ctx, tenantID); ok {
		return acct, nil
	}

	acct, err := s.store.GetAccount(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, acct)
	return acct, nil
}

// HasSufficientCredits is the cheap pre-check used for early-exit UX.
func (s *Service) HasSufficientCredits(ctx context.Context, tenantID uuid.UUID, amount int64) (bool, error) {
	return s.store.HasSufficientCredits(ctx, tenantID, amount)
}

// Credit adds credits to a tenant.
func (s *Service) Credit(ctx context.Context, tenantID uuid.UUID, amount int64, meta TxMeta) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, err := s.store.Credit(ctx, tenantID, amount, meta)
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("credit", "error").Inc()
		return nil, err
	}

	metrics.LedgerOperations.WithLabelValues("credit", "ok").Inc()
	s.cache.Invalidate(ctx, tenantID)
	log.Info().
		Str("tenant_id", tenantID.String()).
		Int64("amount", amount).
		Str("feature", string(meta.Feature)).
		Int64("balance", acct.Balance).
		Msg("credits added")
	return acct, nil
}

// Debit deducts credits from a tenant.
func (s *Service) Debit(ctx context.Context, tenantID uuid.UUID, amount int64, meta TxMeta) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, err := s.store.Debit(ctx, tenantID, amount, meta)
	if err != nil {
		if err == ErrInsufficientCredits {
			metrics.InsufficientCredits.Inc()
			metrics.LedgerOperations.WithLabelValues("debit", "insufficient").Inc()
		} else {
			metrics.LedgerOperations.WithLabelValues("debit", "error").Inc()
		}
		return nil, err
	}

	metrics.LedgerOperations.WithLabelValues("debit", "ok").Inc()
	s.cache.Invalidate(ctx, tenantID)
	log.Info().
		Str("tenant_id", tenantID.String()).
		Int64("amount", amount).
		Str("feature", string(meta.Feature)).
		Int64("balance", acct.Balance).
		Msg("credits used")
	return acct, nil
}

// Reset forces the balance to newBalance, recording the delta in the ledger.
func (s *Service) Reset(ctx context.Context, tenantID uuid.UUID, newBalance int64, description string, actorID uuid.UUID) (*Account, error) {
	meta := TxMeta{
		Feature:     FeatureManual,
		Description: description,
		ActorID:     &actorID,
	}

	acct, err := s.store.Reset(ctx, tenantID, newBalance, meta)
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("reset", "error").Inc()
		return nil, err
	}

	metrics.LedgerOperations.WithLabelValues("reset", "ok").Inc()
	s.cache.Invalidate(ctx, tenantID)
	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("actor_id", actorID.String()).
		Int64("balance", acct.Balance).
		Msg("credit balance reset")
	return acct, nil
}

// VerifyAndCredit turns an externally verified payment into a ledger credit
// exactly once per reference. extractedAmount, when present, is the amount an
// independent verifier detected on the proof; the claimed amount is untrusted
// input and must match it.
func (s *Service) VerifyAndCredit(ctx context.Context, tenantID uuid.UUID, paymentRef string, claimedAmount int64, extractedAmount *int64, actorID *uuid.UUID) (*Account, error) {
	if claimedAmount <= 0 || paymentRef == "" {
		return nil, ErrInvalidAmount
	}

	if extractedAmount != nil && *extractedAmount != claimedAmount {
		log.Warn().
			Str("tenant_id", tenantID.String()).
			Str("payment_ref", paymentRef).
			Int64("claimed", claimedAmount).
			Int64("extracted", *extractedAmount).
			Msg("payment amount mismatch")
		return nil, ErrAmountMismatch
	}

	meta := TxMeta{
		Feature:     FeaturePayment,
		Description: fmt.Sprintf("Payment %s verified for %d credits", paymentRef, claimedAmount),
		ActorID:     actorID,
	}

	acct, err := s.store.CreditPayment(ctx, tenantID, claimedAmount, paymentRef, meta)
	if err != nil {
		if err == ErrAlreadyProcessed {
			metrics.DuplicatePayments.Inc()
			log.Info().
				Str("tenant_id", tenantID.String()).
				Str("payment_ref", paymentRef).
				Msg("duplicate payment reference skipped")
		} else {
			metrics.LedgerOperations.WithLabelValues("payment_credit", "error").Inc()
		}
		return nil, err
	}

	metrics.LedgerOperations.WithLabelValues("payment_credit", "ok").Inc()
	s.cache.Invalidate(ctx, tenantID)
	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("payment_ref", paymentRef).
		Int64("amount", claimedAmount).
		Int64("balance", acct.Balance).
		Msg("payment credited")
	return acct, nil
}

// ListTransactions returns paginated ledger history, newest first.
func (s *Service) ListTransactions(ctx context.Context, tenantID uuid.UUID, p Pagination) ([]Transaction, error) {
	return s.store.ListTransactions(ctx, tenantID, p)
}
