package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

func TestActivityLog_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(t, "USD")
	product := f.product(t, 10)

	sale, err := f.sales.Create(ctx, testActor, usecase.SaleInput{CustomerID: customer.ID, Items: lines(product.ID, 1, "10")})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if err := f.sales.Delete(ctx, testActor, sale.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	tests := []struct {
		name       string
		actor      domain.Actor
		filter     domain.ActivityFilter
		wantCount  int
		wantAction domain.ActivityAction
	}{
		{name: "everything", actor: testActor, wantCount: 4, wantAction: domain.ActionDeleted},
		{name: "sales only", actor: testActor, filter: domain.ActivityFilter{EntityKind: domain.EntitySale}, wantCount: 2, wantAction: domain.ActionDeleted},
		{name: "deletions", actor: testActor, filter: domain.ActivityFilter{Action: domain.ActionDeleted}, wantCount: 1, wantAction: domain.ActionDeleted},
		{name: "one entity", actor: testActor, filter: domain.ActivityFilter{EntityID: customer.ID}, wantCount: 1, wantAction: domain.ActionCreated},
		{name: "paged", actor: testActor, filter: domain.ActivityFilter{Limit: 1, Offset: 3}, wantCount: 1, wantAction: domain.ActionCreated},
		{name: "other tenant", actor: domain.Actor{UserID: "user-2", TenantID: "tenant-2"}},
		{name: "tenant filter is forced", actor: domain.Actor{UserID: "user-2", TenantID: "tenant-2"}, filter: domain.ActivityFilter{TenantID: testActor.TenantID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.activity.List(ctx, tt.actor, tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.wantCount {
				t.Fatalf("expected %d entries, got %d", tt.wantCount, len(got))
			}
			if tt.wantCount > 0 && got[0].Action != tt.wantAction {
				t.Fatalf("expected newest entry %s, got %s", tt.wantAction, got[0].Action)
			}
		})
	}
}

func TestActivityLog_ListRejectsUnknownKind(t *testing.T) {
	f := newFixture(t)

	_, err := f.activity.List(context.Background(), testActor, domain.ActivityFilter{EntityKind: "invoice"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestActivityLog_DescribesEntity(t *testing.T) {
	f := newFixture(t)
	f.bank(t, "EUR", "0")

	entry := f.lastActivity(t, domain.EntityBankAccount, domain.ActionCreated)
	want := `created bank_account "bank_account EUR" (EUR)`
	if entry.Description != want {
		t.Fatalf("expected %q, got %q", want, entry.Description)
	}
}
