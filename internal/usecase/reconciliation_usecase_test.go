package usecase_test

import (
	"context"
	"testing"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

func TestReconciliationUseCase_ReconcileAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(t, "USD")
	bank := f.bank(t, "USD", "250")
	product := f.product(t, 10)

	if _, err := f.sales.Create(ctx, testActor, usecase.SaleInput{CustomerID: customer.ID, Items: lines(product.ID, 1, "99.99")}); err != nil {
		t.Fatalf("sale: %v", err)
	}
	if _, err := f.payments.Create(ctx, testActor, usecase.PaymentInput{CustomerID: customer.ID, BankAccountID: bank.ID, Amount: dec("50")}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	report, err := f.reconcile.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Healthy() || report.Checked != 2 {
		t.Fatalf("expected 2 healthy parties, got checked=%d mismatches=%d", report.Checked, len(report.Mismatches))
	}
}

func TestReconciliationUseCase_DetectsDrift(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(t, "USD")
	f.store.SeedParty(domain.Party{
		Kind:     domain.LedgerSupplier,
		ID:       "drifted",
		TenantID: testActor.TenantID,
		Name:     "drifted",
		Currency: "USD",
		Balance:  dec("12.34"),
	})

	report, err := f.reconcile.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Checked != 2 || len(report.Mismatches) != 1 {
		t.Fatalf("expected 1 mismatch out of 2, got %d of %d", len(report.Mismatches), report.Checked)
	}

	m := report.Mismatches[0]
	if m.Target != domain.SupplierTarget("drifted") || !m.Difference.Equal(dec("12.34")) || m.IsReconciled {
		t.Fatalf("unexpected mismatch: %+v", m)
	}

	result, err := f.reconcile.ReconcileParty(context.Background(), customer)
	if err != nil {
		t.Fatalf("reconcile party: %v", err)
	}
	if !result.IsReconciled {
		t.Fatalf("expected customer to reconcile: %+v", result)
	}
}

func TestReconciliationUseCase_StaleReadIsRechecked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(t, "USD")
	product := f.product(t, 10)

	// The listed balance predates a sale that commits before the journal is summed.
	listed := *customer
	if _, err := f.sales.Create(ctx, testActor, usecase.SaleInput{CustomerID: customer.ID, Items: lines(product.ID, 1, "50")}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	result, err := f.reconcile.ReconcileParty(ctx, &listed)
	if err != nil {
		t.Fatalf("reconcile party: %v", err)
	}
	if !result.IsReconciled || !result.RecordedBalance.Equal(dec("50")) || !result.CalculatedBalance.Equal(dec("50")) {
		t.Fatalf("expected reconciled 50/50 after the locked re-read, got %+v", result)
	}
}

func TestReconciliationReport_ForTenant(t *testing.T) {
	f := newFixture(t)
	f.customer(t, "USD")
	f.store.SeedParty(domain.Party{
		Kind:     domain.LedgerCustomer,
		ID:       "foreign",
		TenantID: "tenant-b",
		Name:     "foreign",
		Currency: "USD",
		Balance:  dec("5"),
	})

	report, err := f.reconcile.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	own := report.ForTenant(testActor.TenantID)
	if !own.Healthy() || own.Checked != 1 {
		t.Fatalf("expected own tenant healthy with 1 party, got checked=%d mismatches=%d", own.Checked, len(own.Mismatches))
	}

	other := report.ForTenant("tenant-b")
	if other.Healthy() || other.Checked != 1 || other.Mismatches[0].Target.ID != "foreign" {
		t.Fatalf("expected foreign drift in tenant-b report: %+v", other)
	}
}
