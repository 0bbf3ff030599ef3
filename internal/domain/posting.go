package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Posting is a signed change to one party balance.
type Posting struct {
	Target LedgerTarget
	Delta  decimal.Decimal
}

// StockAdjustment is a signed change to one product's stock.
type StockAdjustment struct {
	ProductID string
	Delta     int64
}

// NegatePostings returns the postings that undo ps.
func NegatePostings(ps []Posting) []Posting {
	out := make([]Posting, len(ps))
	for i, p := range ps {
		out[i] = Posting{Target: p.Target, Delta: p.Delta.Neg()}
	}
	return out
}

// NegateStock returns the adjustments that undo adj.
func NegateStock(adj []StockAdjustment) []StockAdjustment {
	out := make([]StockAdjustment, len(adj))
	for i, a := range adj {
		out[i] = StockAdjustment{ProductID: a.ProductID, Delta: -a.Delta}
	}
	return out
}

// NetPostings merges postings to the same target and sorts the result into
// lock order: customers, suppliers, then bank accounts, each by id. Targets
// whose deltas cancel out are dropped.
func NetPostings(ps []Posting) []Posting {
	sums := make(map[LedgerTarget]decimal.Decimal, len(ps))
	out := make([]Posting, 0, len(ps))
	for _, p := range ps {
		if p.Target.ID == "" {
			continue
		}
		if _, seen := sums[p.Target]; !seen {
			out = append(out, Posting{Target: p.Target})
		}
		sums[p.Target] = sums[p.Target].Add(p.Delta)
	}

	netted := out[:0]
	for _, p := range out {
		p.Delta = sums[p.Target]
		if !p.Delta.IsZero() {
			netted = append(netted, p)
		}
	}

	sort.Slice(netted, func(i, j int) bool {
		a, b := netted[i].Target, netted[j].Target
		if ra, rb := a.Kind.lockRank(), b.Kind.lockRank(); ra != rb {
			return ra < rb
		}
		return a.ID < b.ID
	})
	return netted
}

// NetStock merges adjustments per product, drops zero sums and sorts by
// product id.
func NetStock(adj []StockAdjustment) []StockAdjustment {
	sums := make(map[string]int64, len(adj))
	for _, a := range adj {
		sums[a.ProductID] += a.Delta
	}
	out := make([]StockAdjustment, 0, len(sums))
	for id, delta := range sums {
		if delta != 0 {
			out = append(out, StockAdjustment{ProductID: id, Delta: delta})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func linesStock(items []LineItem, sign int64) []StockAdjustment {
	out := make([]StockAdjustment, 0, len(items))
	for _, it := range items {
		out = append(out, StockAdjustment{ProductID: it.ProductID, Delta: sign * it.Quantity})
	}
	return out
}
