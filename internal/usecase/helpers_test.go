package usecase_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
	"github.com/iho/tradeledger/internal/usecase/mocks"
)

var testActor = domain.Actor{UserID: "user-1", TenantID: "tenant-1"}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type fixture struct {
	deps      usecase.MutatorDeps
	store     *mocks.Store
	resolver  *mocks.StaticResolver
	ledger    *usecase.LedgerEngine
	activity  *usecase.ActivityLog
	directory *usecase.DirectoryUseCase
	sales     *usecase.SaleMutator
	purchases *usecase.PurchaseMutator
	payments  *usecase.PaymentMutator
	expenses  *usecase.ExpenseMutator
	returns   *usecase.ReturnMutator
	restore   *usecase.RestoreUseCase
	query     *usecase.LedgerQueryUseCase
	reconcile *usecase.ReconciliationUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := mocks.NewStore()
	resolver := &mocks.StaticResolver{}
	ids := &mocks.SequentialIDs{Prefix: "id"}
	logger := zerolog.Nop()

	ledger := usecase.NewLedgerEngine(store.Parties(), store.Movement(), ids, nil)
	inventory := usecase.NewInventory(store.Products(), nil)
	activity := usecase.NewActivityLog(store.ActivityLog(), ids, nil)

	deps := usecase.MutatorDeps{
		TxManager: store,
		Parties:   store.Parties(),
		Products:  store.Products(),
		Resolver:  resolver,
		Ledger:    ledger,
		Inventory: inventory,
		Activity:  activity,
		IDGen:     ids,
		Logger:    logger,
	}

	f := &fixture{
		deps:      deps,
		store:     store,
		resolver:  resolver,
		ledger:    ledger,
		activity:  activity,
		directory: usecase.NewDirectoryUseCase(store, nil, store.Parties(), store.Products(), ledger, activity, ids, logger),
		sales:     usecase.NewSaleMutator(deps, store.Sales(), store.Returns()),
		purchases: usecase.NewPurchaseMutator(deps, store.Purchases(), store.Returns()),
		payments:  usecase.NewPaymentMutator(deps, store.Payments()),
		expenses:  usecase.NewExpenseMutator(deps, store.Expenses()),
		returns:   usecase.NewReturnMutator(deps, store.Returns(), store.Sales(), store.Purchases()),
		reconcile: usecase.NewReconciliationUseCase(store, store.Parties(), store.Movement(), nil),
	}
	f.query = usecase.NewLedgerQueryUseCase(store.Parties(), store.Movement(), f.sales, f.purchases, f.payments, f.expenses, f.returns)
	f.restore = usecase.NewRestoreUseCase(usecase.RestoreDeps{
		TxManager:  store,
		Activities: store.ActivityLog(),
		Log:        activity,
		Directory:  f.directory,
		Sales:      f.sales,
		Purchases:  f.purchases,
		Payments:   f.payments,
		Expenses:   f.expenses,
		Returns:    f.returns,
		Logger:     logger,
	})
	return f
}

func (f *fixture) party(t *testing.T, kind domain.LedgerKind, currency, opening string) *domain.Party {
	t.Helper()
	p, err := f.directory.CreateParty(context.Background(), testActor, usecase.CreatePartyInput{
		Kind:           kind,
		Name:           string(kind) + " " + currency,
		Currency:       currency,
		OpeningBalance: dec(opening),
	})
	if err != nil {
		t.Fatalf("create %s: %v", kind, err)
	}
	return p
}

func (f *fixture) customer(t *testing.T, currency string) *domain.Party {
	t.Helper()
	return f.party(t, domain.LedgerCustomer, currency, "0")
}

func (f *fixture) supplier(t *testing.T, currency string) *domain.Party {
	t.Helper()
	return f.party(t, domain.LedgerSupplier, currency, "0")
}

func (f *fixture) bank(t *testing.T, currency, opening string) *domain.Party {
	t.Helper()
	return f.party(t, domain.LedgerBankAccount, currency, opening)
}

func (f *fixture) product(t *testing.T, stock int64) *domain.Product {
	t.Helper()
	p, err := f.directory.CreateProduct(context.Background(), testActor, usecase.CreateProductInput{
		Name:          "widget",
		UnitPrice:     dec("10"),
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (f *fixture) assertBalance(t *testing.T, target domain.LedgerTarget, want string) {
	t.Helper()
	if got := f.store.Balance(target); !got.Equal(dec(want)) {
		t.Fatalf("%s balance: expected %s, got %s", target, want, got)
	}
}

func (f *fixture) assertStock(t *testing.T, productID string, want int64) {
	t.Helper()
	if got := f.store.Stock(productID); got != want {
		t.Fatalf("product %s stock: expected %d, got %d", productID, want, got)
	}
}

// assertReconciled checks every balance against its movement journal.
func (f *fixture) assertReconciled(t *testing.T) {
	t.Helper()
	report, err := f.reconcile.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.Healthy() {
		for _, m := range report.Mismatches {
			t.Errorf("%s: recorded %s, journal %s", m.Target, m.RecordedBalance, m.CalculatedBalance)
		}
		t.FailNow()
	}
}

func lines(productID string, qty int64, price string) []usecase.LineItemInput {
	return []usecase.LineItemInput{{ProductID: productID, Quantity: qty, UnitPrice: dec(price)}}
}

// lastActivity returns the newest committed activity matching kind and action.
func (f *fixture) lastActivity(t *testing.T, kind domain.EntityKind, action domain.ActivityAction) domain.Activity {
	t.Helper()
	all := f.store.Activities()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Entity.Kind == kind && all[i].Action == action {
			return all[i]
		}
	}
	t.Fatalf("no %s activity for %s", action, kind)
	return domain.Activity{}
}

func (f *fixture) countActivities(kind domain.EntityKind) int {
	n := 0
	for _, a := range f.store.Activities() {
		if a.Entity.Kind == kind {
			n++
		}
	}
	return n
}
