package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

// Repository owns the credit_accounts and credit_transactions tables. Every
// mutation runs as one transaction: lock the tenant row, move the balance and
// totals, append the ledger entry with the resulting balance. Tenants never
// share a lock, so mutations for different tenants run fully in parallel.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetAccount returns the tenant's account, or a zero-initialized one if the
// tenant has never touched credits. Read-only: no lock, no row creation.
func (r *Repository) GetAccount(ctx context.Context, tenantID uuid.UUID) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var acct Account
	err := r.db.GetContext(ctx2, &acct, `
		SELECT tenant_id, balance, total_added, total_used, updated_at
		FROM credit_accounts
		WHERE tenant_id = $1
	`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Account{TenantID: tenantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get account", ErrInternal)
	}
	return &acct, nil
}

// HasSufficientCredits is a cheap unlocked read. It is a UX convenience only;
// the authoritative check happens inside Debit under the row lock.
func (r *Repository) HasSufficientCredits(ctx context.Context, tenantID uuid.UUID, amount int64) (bool, error) {
	acct, err := r.GetAccount(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return acct.Balance >= amount, nil
}

// Credit atomically adds credits and appends the ledger entry.
func (r *Repository) Credit(ctx context.Context, tenantID uuid.UUID, amount int64, meta TxMeta) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	return r.withAccountLock(ctx, tenantID, func(tx *sqlx.Tx, acct *Account) error {
		acct.Balance += amount
		acct.TotalAdded += amount
		if err := r.updateAccount(ctx, tx, acct); err != nil {
			return err
		}
		return r.insertLedger(ctx, tx, acct.TenantID, TxKindCredit, amount, acct.Balance, "", meta)
	})
}

// Debit atomically checks the balance and deducts under the same row lock.
// The check and the mutation are inseparable; a plain read-compare-write
// would lose updates under concurrency.
func (r *Repository) Debit(ctx context.Context, tenantID uuid.UUID, amount int64, meta TxMeta) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	return r.withAccountLock(ctx, tenantID, func(tx *sqlx.Tx, acct *Account) error {
		if acct.Balance < amount {
			return ErrInsufficientCredits
		}
		acct.Balance -= amount
		acct.TotalUsed += amount
		if err := r.updateAccount(ctx, tx, acct); err != nil {
			return err
		}
		return r.insertLedger(ctx, tx, acct.TenantID, TxKindDebit, amount, acct.Balance, "", meta)
	})
}

// Reset is the administrative override: it forces the balance to newBalance
// and records the signed delta as a regular credit or debit entry, so the
// ledger replay still reproduces the balance and the totals identity holds.
func (r *Repository) Reset(ctx context.Context, tenantID uuid.UUID, newBalance int64, meta TxMeta) (*Account, error) {
	if newBalance < 0 {
		return nil, ErrInvalidAmount
	}

	return r.withAccountLock(ctx, tenantID, func(tx *sqlx.Tx, acct *Account) error {
		delta := newBalance - acct.Balance
		if delta == 0 {
			return nil
		}

		kind := TxKindCredit
		magnitude := delta
		if delta < 0 {
			kind = TxKindDebit
			magnitude = -delta
		}

		acct.Balance = newBalance
		if kind == TxKindCredit {
			acct.TotalAdded += magnitude
		} else {
			acct.TotalUsed += magnitude
		}

		if err := r.updateAccount(ctx, tx, acct); err != nil {
			return err
		}
		return r.insertLedger(ctx, tx, acct.TenantID, kind, magnitude, acct.Balance, "", meta)
	})
}

// CreditPayment credits a verified payment at most once per reference. The
// dedup check runs under the same row lock as the credit, and the partial
// unique index on (tenant_id, payment_ref) backstops any race the check
// cannot see.
func (r *Repository) CreditPayment(ctx context.Context, tenantID uuid.UUID, amount int64, paymentRef string, meta TxMeta) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if paymentRef == "" {
		return nil, fmt.Errorf("%w: empty payment reference", ErrInvalidAmount)
	}

	return r.withAccountLock(ctx, tenantID, func(tx *sqlx.Tx, acct *Account) error {
		var exists bool
		err := tx.GetContext(ctx, &exists, `
			SELECT EXISTS (
				SELECT 1 FROM credit_transactions
				WHERE tenant_id = $1 AND payment_ref = $2
			)
		`, tenantID, paymentRef)
		if err != nil {
			return fmt.Errorf("%w: check payment reference", ErrInternal)
		}
		if exists {
			return ErrAlreadyProcessed
		}

		acct.Balance += amount
		acct.TotalAdded += amount
		if err := r.updateAccount(ctx, tx, acct); err != nil {
			return err
		}
		return r.insertLedger(ctx, tx, acct.TenantID, TxKindCredit, amount, acct.Balance, paymentRef, meta)
	})
}

// ListTransactions returns a page of the tenant's ledger, newest first.
func (r *Repository) ListTransactions(ctx context.Context, tenantID uuid.UUID, p Pagination) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit, offset := p.normalize()

	transactions := make([]Transaction, 0)
	err := r.db.SelectContext(ctx2, &transactions, `
		SELECT id, tenant_id, kind, amount, balance_after, feature, description,
		       payment_ref, actor_id, order_id, created_at
		FROM credit_transactions
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}

	return transactions, nil
}

// withAccountLock runs fn inside one transaction holding the tenant's row
// lock, then commits. The balance update and its ledger entry either both
// land or neither does.
func (r *Repository) withAccountLock(ctx context.Context, tenantID uuid.UUID, fn func(tx *sqlx.Tx, acct *Account) error) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	acct, err := r.lockAccount(ctx2, tx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := fn(tx, acct); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return acct, nil
}

// lockAccount lazily creates the tenant row and takes the FOR UPDATE lock,
// serializing all mutations for this tenant.
func (r *Repository) lockAccount(ctx context.Context, tx *sqlx.Tx, tenantID uuid.UUID) (*Account, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_accounts (tenant_id, balance, total_added, total_used)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (tenant_id) DO NOTHING
	`, tenantID); err != nil {
		return nil, fmt.Errorf("%w: ensure account", ErrInternal)
	}

	var acct Account
	err := tx.GetContext(ctx, &acct, `
		SELECT tenant_id, balance, total_added, total_used, updated_at
		FROM credit_accounts
		WHERE tenant_id = $1
		FOR UPDATE
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: lock account row", ErrInternal)
	}
	return &acct, nil
}

func (r *Repository) updateAccount(ctx context.Context, tx *sqlx.Tx, acct *Account) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE credit_accounts
		SET balance = $1, total_added = $2, total_used = $3, updated_at = now()
		WHERE tenant_id = $4
	`, acct.Balance, acct.TotalAdded, acct.TotalUsed, acct.TenantID)
	if err != nil {
		return fmt.Errorf("%w: update account", ErrInternal)
	}
	return nil
}

func (r *Repository) insertLedger(ctx context.Context, tx *sqlx.Tx, tenantID uuid.UUID, kind TxKind, amount, balanceAfter int64, paymentRef string, meta TxMeta) error {
	var ref interface{}
	if paymentRef != "" {
		ref = paymentRef
	}

	var actorID, orderID interface{}
	if meta.ActorID != nil {
		actorID = *meta.ActorID
	}
	if meta.OrderID != nil {
		orderID = *meta.OrderID
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (
			id, tenant_id, kind, amount, balance_after, feature, description,
			payment_ref, actor_id, order_id
		)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, tenantID, string(kind), amount, balanceAfter, string(meta.Feature), meta.Description, ref, actorID, orderID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("%w: insert transaction", ErrInternal)
	}
	return nil
}
