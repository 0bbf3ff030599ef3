package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertPostings(t *testing.T, got []Posting, want []Posting) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d postings, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].Target != want[i].Target || !got[i].Delta.Equal(want[i].Delta) {
			t.Errorf("posting %d: got %v %s, want %v %s", i, got[i].Target, got[i].Delta, want[i].Target, want[i].Delta)
		}
	}
}

func TestDocumentPostingSigns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  interface{ Postings() []Posting }
		want []Posting
	}{
		{
			name: "sale to customer raises receivable",
			doc:  &Sale{Counterparty: Counterparty{CustomerID: "c1"}, ConvertedAmount: d("92")},
			want: []Posting{{Target: CustomerTarget("c1"), Delta: d("92")}},
		},
		{
			name: "sale to supplier lowers payable",
			doc:  &Sale{Counterparty: Counterparty{SupplierID: "s1"}, ConvertedAmount: d("50")},
			want: []Posting{{Target: SupplierTarget("s1"), Delta: d("-50")}},
		},
		{
			name: "purchase paid from bank touches only the bank",
			doc: &Purchase{
				Counterparty:    Counterparty{SupplierID: "s1"},
				BankAccountID:   "b1",
				ConvertedAmount: d("80"),
				AccountAmount:   d("75"),
			},
			want: []Posting{{Target: BankAccountTarget("b1"), Delta: d("-75")}},
		},
		{
			name: "purchase on credit from supplier raises payable",
			doc:  &Purchase{Counterparty: Counterparty{SupplierID: "s1"}, ConvertedAmount: d("80")},
			want: []Posting{{Target: SupplierTarget("s1"), Delta: d("80")}},
		},
		{
			name: "purchase from customer lowers receivable",
			doc:  &Purchase{Counterparty: Counterparty{CustomerID: "c1"}, ConvertedAmount: d("80")},
			want: []Posting{{Target: CustomerTarget("c1"), Delta: d("-80")}},
		},
		{
			name: "customer payment in",
			doc: &Payment{
				Counterparty:    Counterparty{CustomerID: "c1"},
				BankAccountID:   "b1",
				ConvertedAmount: d("50"),
				AccountAmount:   d("50"),
			},
			want: []Posting{
				{Target: CustomerTarget("c1"), Delta: d("-50")},
				{Target: BankAccountTarget("b1"), Delta: d("50")},
			},
		},
		{
			name: "supplier payment out",
			doc: &Payment{
				Counterparty:    Counterparty{SupplierID: "s1"},
				BankAccountID:   "b1",
				ConvertedAmount: d("40"),
				AccountAmount:   d("43.48"),
			},
			want: []Posting{
				{Target: SupplierTarget("s1"), Delta: d("-40")},
				{Target: BankAccountTarget("b1"), Delta: d("-43.48")},
			},
		},
		{
			name: "expense against supplier",
			doc: &Expense{
				SupplierID:      "s1",
				BankAccountID:   "b1",
				ConvertedAmount: d("10"),
				AccountAmount:   d("11"),
			},
			want: []Posting{
				{Target: SupplierTarget("s1"), Delta: d("-10")},
				{Target: BankAccountTarget("b1"), Delta: d("-11")},
			},
		},
		{
			name: "expense without supplier",
			doc:  &Expense{BankAccountID: "b1", AccountAmount: d("11")},
			want: []Posting{{Target: BankAccountTarget("b1"), Delta: d("-11")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertPostings(t, tt.doc.Postings(), tt.want)
		})
	}
}

func TestNetPostings(t *testing.T) {
	t.Parallel()

	in := []Posting{
		{Target: BankAccountTarget("a"), Delta: d("1")},
		{Target: SupplierTarget("z"), Delta: d("2")},
		{Target: CustomerTarget("b"), Delta: d("3")},
		{Target: CustomerTarget("a"), Delta: d("4")},
		{Target: CustomerTarget("b"), Delta: d("5")},
		{Target: SupplierTarget("y"), Delta: d("7")},
		{Target: SupplierTarget("y"), Delta: d("-7")},
		{Target: CustomerTarget(""), Delta: d("9")},
	}

	got := NetPostings(in)
	want := []Posting{
		{Target: CustomerTarget("a"), Delta: d("4")},
		{Target: CustomerTarget("b"), Delta: d("8")},
		{Target: SupplierTarget("z"), Delta: d("2")},
		{Target: BankAccountTarget("a"), Delta: d("1")},
	}
	assertPostings(t, got, want)

	if in[0].Target.Kind != LedgerBankAccount {
		t.Fatalf("NetPostings must not reorder its input")
	}
}

func TestNetStock(t *testing.T) {
	t.Parallel()

	got := NetStock([]StockAdjustment{
		{ProductID: "b", Delta: -5},
		{ProductID: "a", Delta: 2},
		{ProductID: "b", Delta: 4},
		{ProductID: "c", Delta: 3},
		{ProductID: "c", Delta: -3},
	})
	want := []StockAdjustment{{ProductID: "a", Delta: 2}, {ProductID: "b", Delta: -1}}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestStockAdjustmentsFollowDocumentDirection(t *testing.T) {
	t.Parallel()

	items := []LineItem{{ProductID: "p1", Quantity: 3}}

	if got := (&Sale{Items: items}).StockAdjustments(); got[0].Delta != -3 {
		t.Errorf("sale should decrease stock, got %d", got[0].Delta)
	}
	if got := (&Purchase{Items: items}).StockAdjustments(); got[0].Delta != 3 {
		t.Errorf("purchase should increase stock, got %d", got[0].Delta)
	}

	saleReturn := &Return{Kind: SaleReturn, Items: items, Committed: true}
	if got := saleReturn.StockAdjustments(); got[0].Delta != 3 {
		t.Errorf("sale return should increase stock, got %d", got[0].Delta)
	}
	purchaseReturn := &Return{Kind: PurchaseReturn, Items: items, Committed: true}
	if got := purchaseReturn.StockAdjustments(); got[0].Delta != -3 {
		t.Errorf("purchase return should decrease stock, got %d", got[0].Delta)
	}

	shell := &Return{Kind: SaleReturn, Items: items}
	if got := shell.StockAdjustments(); len(got) != 0 {
		t.Errorf("uncommitted return must not move stock, got %v", got)
	}
}

func TestNegateRoundTrip(t *testing.T) {
	t.Parallel()

	ps := []Posting{{Target: CustomerTarget("c1"), Delta: d("12.34")}}
	back := NegatePostings(NegatePostings(ps))
	assertPostings(t, back, ps)

	adj := []StockAdjustment{{ProductID: "p", Delta: 4}}
	if NegateStock(adj)[0].Delta != -4 {
		t.Fatalf("expected negated stock delta")
	}
}
