package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

func TestDirectoryUseCase_CreateParty(t *testing.T) {
	tests := []struct {
		name    string
		input   usecase.CreatePartyInput
		wantErr error
	}{
		{
			name:  "bank with opening balance",
			input: usecase.CreatePartyInput{Kind: domain.LedgerBankAccount, Name: "Main", Currency: "usd", OpeningBalance: dec("100.005")},
		},
		{
			name:  "customer",
			input: usecase.CreatePartyInput{Kind: domain.LedgerCustomer, Name: "Acme", Currency: "EUR"},
		},
		{
			name:    "unknown kind",
			input:   usecase.CreatePartyInput{Kind: "vendor", Name: "Acme", Currency: "EUR"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "blank name",
			input:   usecase.CreatePartyInput{Kind: domain.LedgerSupplier, Name: "  ", Currency: "EUR"},
			wantErr: domain.ErrInvalidName,
		},
		{
			name:    "bad currency",
			input:   usecase.CreatePartyInput{Kind: domain.LedgerSupplier, Name: "Acme", Currency: "EURO"},
			wantErr: domain.ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			party, err := f.directory.CreateParty(context.Background(), testActor, tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if f.store.Begins != 0 {
					t.Fatalf("invalid input must not open a transaction")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := domain.QuantizeMoney(tt.input.OpeningBalance)
			if party.TenantID != testActor.TenantID || party.CreatedBy != testActor.UserID {
				t.Fatalf("party not owned by actor: %+v", party)
			}
			if party.Currency != domain.NormalizeCurrency(tt.input.Currency) || !party.Balance.Equal(want) {
				t.Fatalf("unexpected party: %+v", party)
			}
			f.assertBalance(t, party.Target(), want.String())
			f.assertReconciled(t)
			f.lastActivity(t, tt.input.Kind.EntityKind(), domain.ActionCreated)
		})
	}
}

func TestDirectoryUseCase_Product(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.directory.CreateProduct(ctx, testActor, usecase.CreateProductInput{Name: "bolt", UnitPrice: dec("1"), StockQuantity: -1}); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	product := f.product(t, 7)
	got, err := f.directory.GetProduct(ctx, testActor, product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StockQuantity != 7 {
		t.Fatalf("expected stock 7, got %d", got.StockQuantity)
	}

	stranger := domain.Actor{UserID: "user-2", TenantID: "tenant-2"}
	if _, err := f.directory.GetProduct(ctx, stranger, product.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := f.directory.DeleteProduct(ctx, stranger, product.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	if err := f.directory.DeleteProduct(ctx, testActor, product.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	deleted := f.lastActivity(t, domain.EntityProduct, domain.ActionDeleted)
	if deleted.Snapshot == nil || deleted.Snapshot.Product == nil || deleted.Snapshot.Product.StockQuantity != 7 {
		t.Fatalf("expected product snapshot, got %+v", deleted.Snapshot)
	}
}

func TestDirectoryUseCase_DeleteParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(t, "USD")

	if err := f.directory.DeleteParty(ctx, testActor, customer.Target()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.directory.GetParty(ctx, testActor, customer.Target()); !errors.Is(err, domain.ErrPartyNotFound) {
		t.Fatalf("expected ErrPartyNotFound, got %v", err)
	}
	if err := f.directory.DeleteParty(ctx, testActor, customer.Target()); !errors.Is(err, domain.ErrPartyNotFound) {
		t.Fatalf("second delete: expected ErrPartyNotFound, got %v", err)
	}
}
