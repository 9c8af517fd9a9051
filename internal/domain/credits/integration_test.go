package credits_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/dispatchly/dispatchly-api/internal/domain/credits"
	"github.com/dispatchly/dispatchly-api/internal/pkg/database"
)

// testRepo connects to the database named by TEST_DATABASE_URL and applies
// the migrations. Tests using it are skipped when no database is configured.
func testRepo(t *testing.T) *credits.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database integration test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("db not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}

	return credits.NewRepository(db)
}

func TestIntegrationConcurrentDebits(t *testing.T) {
	repo := testRepo(t)
	tenant := uuid.New()
	ctx := context.Background()

	if _, err := repo.Credit(ctx, tenant, 10, credits.TxMeta{Feature: credits.FeatureManual, Description: "seed"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const attempts = 15
	var wg sync.WaitGroup
	var mu sync.Mutex
	success, insufficient := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := repo.Debit(ctx, tenant, 1, credits.TxMeta{Feature: credits.FeatureOrder, Description: "concurrent"})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, credits.ErrInsufficientCredits):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 10 || insufficient != 5 {
		t.Fatalf("expected 10 successes and 5 rejections, got %d/%d", success, insufficient)
	}

	acct, err := repo.GetAccount(ctx, tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.Balance != 0 {
		t.Fatalf("expected balance 0, got %d", acct.Balance)
	}
	if acct.Balance != acct.TotalAdded-acct.TotalUsed {
		t.Fatalf("totals identity broken: %+v", acct)
	}
}

func TestIntegrationConcurrentPaymentCredits(t *testing.T) {
	repo := testRepo(t)
	tenant := uuid.New()
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	credited, duplicate := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := repo.CreditPayment(ctx, tenant, 100, "race-ref", credits.TxMeta{Feature: credits.FeaturePayment})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				credited++
			case errors.Is(err, credits.ErrAlreadyProcessed):
				duplicate++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if credited != 1 || duplicate != attempts-1 {
		t.Fatalf("expected exactly one credit, got %d credits and %d duplicates", credited, duplicate)
	}

	acct, err := repo.GetAccount(ctx, tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.Balance != 100 {
		t.Fatalf("expected balance 100, got %d", acct.Balance)
	}
}

func TestIntegrationLedgerReplay(t *testing.T) {
	repo := testRepo(t)
	tenant := uuid.New()
	ctx := context.Background()

	if _, err := repo.CreditPayment(ctx, tenant, 60, "replay-ref", credits.TxMeta{Feature: credits.FeaturePayment}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := repo.Debit(ctx, tenant, 2, credits.TxMeta{Feature: credits.FeatureImageProcessing}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	actor := uuid.New()
	if _, err := repo.Reset(ctx, tenant, 40, credits.TxMeta{Feature: credits.FeatureManual, Description: "correction", ActorID: &actor}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transactions, err := repo.ListTransactions(ctx, tenant, credits.Pagination{Limit: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transactions) != 6 {
		t.Fatalf("expected 6 ledger entries, got %d", len(transactions))
	}

	// Replay oldest first and check each running balance matches the recorded
	// balance_after snapshot.
	var running int64
	for i := len(transactions) - 1; i >= 0; i-- {
		e := transactions[i]
		if e.Kind == credits.TxKindCredit {
			running += e.Amount
		} else {
			running -= e.Amount
		}
		if e.BalanceAfter != running {
			t.Fatalf("entry %s: balance_after %d, replay says %d", e.ID, e.BalanceAfter, running)
		}
	}

	acct, err := repo.GetAccount(ctx, tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if running != acct.Balance || acct.Balance != 40 {
		t.Fatalf("replay %d does not reproduce balance %d", running, acct.Balance)
	}
}
