package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

func TestBalanceFromDomain(t *testing.T) {
	party := &domain.Party{
		Kind:     domain.LedgerSupplier,
		ID:       "sup-1",
		Name:     "Acme",
		Currency: "EUR",
		Balance:  decimal.RequireFromString("-12.5"),
	}

	resp := BalanceFromDomain(party)
	if resp.Kind != "supplier" || resp.Balance != "-12.50" {
		t.Fatalf("unexpected balance response: %+v", resp)
	}
}

func TestMovementsFromDomain(t *testing.T) {
	movements := []*domain.Movement{{
		ID:              "m-1",
		Entity:          domain.CustomerTarget("c-1"),
		Source:          domain.ActivityRef{Kind: domain.EntitySale, ID: "s-1"},
		Delta:           decimal.NewFromInt(100),
		PreviousBalance: decimal.Zero,
		CurrentBalance:  decimal.NewFromInt(100),
	}}

	list := MovementsFromDomain(movements)
	if len(list) != 1 || list[0].Delta != "100.00" || list[0].SourceKind != "sale" {
		t.Fatalf("unexpected movements: %+v", list[0])
	}
}

func TestConvertedAmountFromUseCase(t *testing.T) {
	resp := ConvertedAmountFromUseCase(&usecase.ConvertedAmount{
		Document:        domain.ActivityRef{Kind: domain.EntitySale, ID: "s-1"},
		Currency:        "EUR",
		OriginalAmount:  decimal.NewFromInt(100),
		ExchangeRate:    decimal.RequireFromString("1.087"),
		ConvertedAmount: decimal.RequireFromString("108.7"),
	})

	if resp.ExchangeRate != "1.087000" || resp.ConvertedAmount != "108.70" || resp.AccountAmount != "0.00" {
		t.Fatalf("unexpected converted amount: %+v", resp)
	}
}

func TestActivityFromDomain(t *testing.T) {
	snap, err := domain.NewSnapshot(&domain.Product{ID: "p-1", Name: "Widget"})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	activity := &domain.Activity{
		ID:        "a-1",
		Action:    domain.ActionDeleted,
		Entity:    domain.ActivityRef{Kind: domain.EntityProduct, ID: "p-1"},
		Snapshot:  snap,
		CreatedAt: time.Now(),
	}

	full := ActivityFromDomain(activity, true)
	if !full.Restorable || full.Snapshot == nil {
		t.Fatalf("expected restorable entry with snapshot: %+v", full)
	}

	body, err := json.Marshal(full)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(body), `"kind":"product"`) {
		t.Fatalf("snapshot not encoded: %s", body)
	}

	list := ActivitiesFromDomain([]*domain.Activity{activity})
	if list[0].Snapshot != nil {
		t.Fatalf("list view should omit snapshots")
	}
}

func TestReconciliationFromUseCase(t *testing.T) {
	report := &usecase.ReconciliationReport{
		Checked: 3,
		Mismatches: []*usecase.ReconciliationResult{{
			Target:            domain.BankAccountTarget("b-1"),
			RecordedBalance:   decimal.NewFromInt(10),
			CalculatedBalance: decimal.NewFromInt(8),
			Difference:        decimal.NewFromInt(2),
		}},
	}

	resp := ReconciliationFromUseCase(report)
	if resp.Healthy || resp.Checked != 3 || resp.Mismatches[0].Difference != "2.00" {
		t.Fatalf("unexpected reconciliation response: %+v", resp)
	}
}
