package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

var errTxDone = errors.New("transaction already closed")

// Store is an in-memory implementation of every usecase repository. A
// transaction works on a private copy of the state and commit swaps it in,
// so a rolled back transaction leaves nothing behind. Transactions are
// serialized, which stands in for row locks.
type Store struct {
	writer sync.Mutex
	mu     sync.RWMutex
	state  *state

	// Hooks for failure injection. Each is consulted inside the transaction.
	CreateActivityFunc func(activity *domain.Activity) error
	UpdateBalanceFunc  func(target domain.LedgerTarget, balance decimal.Decimal) error

	Begins    int
	Commits   int
	Rollbacks int
}

type state struct {
	parties    map[domain.LedgerTarget]domain.Party
	products   map[string]domain.Product
	sales      map[string]domain.Sale
	purchases  map[string]domain.Purchase
	payments   map[string]domain.Payment
	expenses   map[string]domain.Expense
	returns    map[string]domain.Return
	activities []domain.Activity
	movements  []domain.Movement
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{state: &state{
		parties:   map[domain.LedgerTarget]domain.Party{},
		products:  map[string]domain.Product{},
		sales:     map[string]domain.Sale{},
		purchases: map[string]domain.Purchase{},
		payments:  map[string]domain.Payment{},
		expenses:  map[string]domain.Expense{},
		returns:   map[string]domain.Return{},
	}}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies the maps. Values are stored by value with item slices never
// mutated in place, so a shallow copy of each map is enough.
func (s *state) clone() *state {
	return &state{
		parties:    copyMap(s.parties),
		products:   copyMap(s.products),
		sales:      copyMap(s.sales),
		purchases:  copyMap(s.purchases),
		payments:   copyMap(s.payments),
		expenses:   copyMap(s.expenses),
		returns:    copyMap(s.returns),
		activities: append([]domain.Activity(nil), s.activities...),
		movements:  append([]domain.Movement(nil), s.movements...),
	}
}

func cloneItems(items []domain.LineItem) []domain.LineItem {
	return append([]domain.LineItem(nil), items...)
}

// Tx is a Store transaction.
type Tx struct {
	store *Store
	state *state
	done  bool
}

// Begin starts a transaction, waiting for any open one to finish.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	s.writer.Lock()
	s.mu.Lock()
	s.Begins++
	st := s.state.clone()
	s.mu.Unlock()
	return &Tx{store: s, state: st}, nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.store.mu.Lock()
	t.store.state = t.state
	t.store.Commits++
	t.store.mu.Unlock()
	t.store.writer.Unlock()
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	t.store.Rollbacks++
	t.store.mu.Unlock()
	t.store.writer.Unlock()
	return nil
}

func txState(tx usecase.Transaction) *state {
	return tx.(*Tx).state
}

// read runs fn against the committed state.
func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

// Seed helpers write directly to the committed state.

func (s *Store) SeedParty(p domain.Party) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.parties[p.Target()] = p
}

func (s *Store) SeedProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = p
}

// Balance returns the committed balance of target.
func (s *Store) Balance(target domain.LedgerTarget) decimal.Decimal {
	var bal decimal.Decimal
	s.read(func(st *state) { bal = st.parties[target].Balance })
	return bal
}

// Stock returns the committed stock of a product.
func (s *Store) Stock(productID string) int64 {
	var qty int64
	s.read(func(st *state) { qty = st.products[productID].StockQuantity })
	return qty
}

// Movements returns every committed movement in write order.
func (s *Store) Movements() []domain.Movement {
	var out []domain.Movement
	s.read(func(st *state) { out = append(out, st.movements...) })
	return out
}

// Activities returns every committed activity in write order.
func (s *Store) Activities() []domain.Activity {
	var out []domain.Activity
	s.read(func(st *state) { out = append(out, st.activities...) })
	return out
}

// Parties returns the PartyRepository view of the store.
func (s *Store) Parties() *PartyRepository { return &PartyRepository{s} }

func (s *Store) Movement() *MovementRepository { return &MovementRepository{s} }

func (s *Store) Products() *ProductRepository { return &ProductRepository{s} }

func (s *Store) Sales() *SaleRepository { return &SaleRepository{s} }

func (s *Store) Purchases() *PurchaseRepository { return &PurchaseRepository{s} }

func (s *Store) Payments() *PaymentRepository { return &PaymentRepository{s} }

func (s *Store) Expenses() *ExpenseRepository { return &ExpenseRepository{s} }

func (s *Store) Returns() *ReturnRepository { return &ReturnRepository{s} }

func (s *Store) ActivityLog() *ActivityRepository { return &ActivityRepository{s} }

// PartyRepository implements usecase.PartyRepository.
type PartyRepository struct{ s *Store }

func (r *PartyRepository) Create(ctx context.Context, tx usecase.Transaction, party *domain.Party) error {
	st := txState(tx)
	if _, ok := st.parties[party.Target()]; ok {
		return domain.ErrReferenceViolation
	}
	st.parties[party.Target()] = *party
	return nil
}

func (r *PartyRepository) GetByID(ctx context.Context, target domain.LedgerTarget) (*domain.Party, error) {
	var (
		p  domain.Party
		ok bool
	)
	r.s.read(func(st *state) { p, ok = st.parties[target] })
	if !ok {
		return nil, domain.ErrPartyNotFound
	}
	return &p, nil
}

func (r *PartyRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, target domain.LedgerTarget) (*domain.Party, error) {
	p, ok := txState(tx).parties[target]
	if !ok {
		return nil, domain.ErrPartyNotFound
	}
	return &p, nil
}

func (r *PartyRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, target domain.LedgerTarget, balance decimal.Decimal, updatedAt time.Time) error {
	if r.s.UpdateBalanceFunc != nil {
		if err := r.s.UpdateBalanceFunc(target, balance); err != nil {
			return err
		}
	}
	st := txState(tx)
	p, ok := st.parties[target]
	if !ok {
		return domain.ErrPartyNotFound
	}
	p.Balance = balance
	p.UpdatedAt = updatedAt
	st.parties[target] = p
	return nil
}

func (r *PartyRepository) Delete(ctx context.Context, tx usecase.Transaction, target domain.LedgerTarget) error {
	st := txState(tx)
	if _, ok := st.parties[target]; !ok {
		return domain.ErrPartyNotFound
	}
	delete(st.parties, target)
	return nil
}

func (r *PartyRepository) List(ctx context.Context, kind domain.LedgerKind, limit, offset int) ([]*domain.Party, error) {
	var all []*domain.Party
	r.s.read(func(st *state) {
		for _, p := range st.parties {
			if p.Kind == kind {
				p := p
				all = append(all, &p)
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// MovementRepository implements usecase.MovementRepository.
type MovementRepository struct{ s *Store }

func (r *MovementRepository) Create(ctx context.Context, tx usecase.Transaction, movement *domain.Movement) error {
	st := txState(tx)
	st.movements = append(st.movements, *movement)
	return nil
}

func (r *MovementRepository) ListByEntity(ctx context.Context, target domain.LedgerTarget, limit, offset int) ([]*domain.Movement, error) {
	var out []*domain.Movement
	r.s.read(func(st *state) {
		for i := len(st.movements) - 1; i >= 0; i-- {
			if st.movements[i].Entity == target {
				m := st.movements[i]
				out = append(out, &m)
			}
		}
	})
	return page(out, limit, offset), nil
}

func (r *MovementRepository) SumByEntity(ctx context.Context, target domain.LedgerTarget) (decimal.Decimal, error) {
	sum := decimal.Zero
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			if m.Entity == target {
				sum = sum.Add(m.Delta)
			}
		}
	})
	return sum, nil
}

// ProductRepository implements usecase.ProductRepository.
type ProductRepository struct{ s *Store }

func (r *ProductRepository) Create(ctx context.Context, tx usecase.Transaction, product *domain.Product) error {
	st := txState(tx)
	if _, ok := st.products[product.ID]; ok {
		return domain.ErrReferenceViolation
	}
	st.products[product.ID] = *product
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var (
		p  domain.Product
		ok bool
	)
	r.s.read(func(st *state) { p, ok = st.products[id] })
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *ProductRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Product, error) {
	p, ok := txState(tx).products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *ProductRepository) UpdateStock(ctx context.Context, tx usecase.Transaction, id string, quantity int64, updatedAt time.Time) error {
	st := txState(tx)
	p, ok := st.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.StockQuantity = quantity
	p.UpdatedAt = updatedAt
	st.products[id] = p
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	delete(txState(tx).products, id)
	return nil
}

// docTable is the shared body of the document repositories.
type docTable[T any] struct {
	s     *Store
	table func(st *state) map[string]T
	id    func(doc *T) string
	copy  func(doc T) T
}

func (d docTable[T]) create(tx usecase.Transaction, doc *T) error {
	m := d.table(txState(tx))
	if _, ok := m[d.id(doc)]; ok {
		return domain.ErrReferenceViolation
	}
	m[d.id(doc)] = d.copy(*doc)
	return nil
}

func (d docTable[T]) update(tx usecase.Transaction, doc *T) error {
	m := d.table(txState(tx))
	if _, ok := m[d.id(doc)]; !ok {
		return domain.ErrDocumentNotFound
	}
	m[d.id(doc)] = d.copy(*doc)
	return nil
}

func (d docTable[T]) get(id string) (*T, error) {
	var (
		doc T
		ok  bool
	)
	d.s.read(func(st *state) { doc, ok = d.table(st)[id] })
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	doc = d.copy(doc)
	return &doc, nil
}

func (d docTable[T]) getTx(tx usecase.Transaction, id string) (*T, error) {
	doc, ok := d.table(txState(tx))[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	doc = d.copy(doc)
	return &doc, nil
}

func (d docTable[T]) delete(tx usecase.Transaction, id string) error {
	m := d.table(txState(tx))
	if _, ok := m[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m, id)
	return nil
}

// SaleRepository implements usecase.SaleRepository.
type SaleRepository struct{ s *Store }

func (r *SaleRepository) t() docTable[domain.Sale] {
	return docTable[domain.Sale]{
		s:     r.s,
		table: func(st *state) map[string]domain.Sale { return st.sales },
		id:    func(d *domain.Sale) string { return d.ID },
		copy:  func(d domain.Sale) domain.Sale { d.Items = cloneItems(d.Items); return d },
	}
}

func (r *SaleRepository) Create(ctx context.Context, tx usecase.Transaction, sale *domain.Sale) error {
	return r.t().create(tx, sale)
}

func (r *SaleRepository) Update(ctx context.Context, tx usecase.Transaction, sale *domain.Sale) error {
	return r.t().update(tx, sale)
}

func (r *SaleRepository) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	return r.t().get(id)
}

func (r *SaleRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Sale, error) {
	return r.t().getTx(tx, id)
}

func (r *SaleRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return r.t().delete(tx, id)
}

// PurchaseRepository implements usecase.PurchaseRepository.
type PurchaseRepository struct{ s *Store }

func (r *PurchaseRepository) t() docTable[domain.Purchase] {
	return docTable[domain.Purchase]{
		s:     r.s,
		table: func(st *state) map[string]domain.Purchase { return st.purchases },
		id:    func(d *domain.Purchase) string { return d.ID },
		copy:  func(d domain.Purchase) domain.Purchase { d.Items = cloneItems(d.Items); return d },
	}
}

func (r *PurchaseRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Purchase) error {
	return r.t().create(tx, p)
}

func (r *PurchaseRepository) Update(ctx context.Context, tx usecase.Transaction, p *domain.Purchase) error {
	return r.t().update(tx, p)
}

func (r *PurchaseRepository) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	return r.t().get(id)
}

func (r *PurchaseRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Purchase, error) {
	return r.t().getTx(tx, id)
}

func (r *PurchaseRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return r.t().delete(tx, id)
}

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct{ s *Store }

func (r *PaymentRepository) t() docTable[domain.Payment] {
	return docTable[domain.Payment]{
		s:     r.s,
		table: func(st *state) map[string]domain.Payment { return st.payments },
		id:    func(d *domain.Payment) string { return d.ID },
		copy:  func(d domain.Payment) domain.Payment { return d },
	}
}

func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	return r.t().create(tx, p)
}

func (r *PaymentRepository) Update(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	return r.t().update(tx, p)
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.t().get(id)
}

func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Payment, error) {
	return r.t().getTx(tx, id)
}

func (r *PaymentRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return r.t().delete(tx, id)
}

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct{ s *Store }

func (r *ExpenseRepository) t() docTable[domain.Expense] {
	return docTable[domain.Expense]{
		s:     r.s,
		table: func(st *state) map[string]domain.Expense { return st.expenses },
		id:    func(d *domain.Expense) string { return d.ID },
		copy:  func(d domain.Expense) domain.Expense { return d },
	}
}

func (r *ExpenseRepository) Create(ctx context.Context, tx usecase.Transaction, e *domain.Expense) error {
	return r.t().create(tx, e)
}

func (r *ExpenseRepository) Update(ctx context.Context, tx usecase.Transaction, e *domain.Expense) error {
	return r.t().update(tx, e)
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	return r.t().get(id)
}

func (r *ExpenseRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Expense, error) {
	return r.t().getTx(tx, id)
}

func (r *ExpenseRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return r.t().delete(tx, id)
}

// ReturnRepository implements usecase.ReturnRepository.
type ReturnRepository struct{ s *Store }

func (r *ReturnRepository) t() docTable[domain.Return] {
	return docTable[domain.Return]{
		s:     r.s,
		table: func(st *state) map[string]domain.Return { return st.returns },
		id:    func(d *domain.Return) string { return d.ID },
		copy:  func(d domain.Return) domain.Return { d.Items = cloneItems(d.Items); return d },
	}
}

func (r *ReturnRepository) Create(ctx context.Context, tx usecase.Transaction, ret *domain.Return) error {
	return r.t().create(tx, ret)
}

func (r *ReturnRepository) Update(ctx context.Context, tx usecase.Transaction, ret *domain.Return) error {
	return r.t().update(tx, ret)
}

func (r *ReturnRepository) GetByID(ctx context.Context, id string) (*domain.Return, error) {
	return r.t().get(id)
}

func (r *ReturnRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Return, error) {
	return r.t().getTx(tx, id)
}

func (r *ReturnRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return r.t().delete(tx, id)
}

func (r *ReturnRepository) CountBySource(ctx context.Context, tx usecase.Transaction, kind domain.ReturnKind, sourceID string) (int, error) {
	n := 0
	for _, ret := range txState(tx).returns {
		if ret.Kind == kind && ret.SourceID == sourceID {
			n++
		}
	}
	return n, nil
}

func (r *ReturnRepository) ReturnedQuantities(ctx context.Context, tx usecase.Transaction, kind domain.ReturnKind, sourceID, excludeID string) (map[string]int64, error) {
	returned := make(map[string]int64)
	for id, ret := range txState(tx).returns {
		if !ret.Committed || ret.Kind != kind || ret.SourceID != sourceID || id == excludeID {
			continue
		}
		for _, it := range ret.Items {
			returned[it.ProductID] += it.Quantity
		}
	}
	return returned, nil
}

// ActivityRepository implements usecase.ActivityRepository.
type ActivityRepository struct{ s *Store }

func (r *ActivityRepository) Create(ctx context.Context, tx usecase.Transaction, activity *domain.Activity) error {
	if r.s.CreateActivityFunc != nil {
		if err := r.s.CreateActivityFunc(activity); err != nil {
			return err
		}
	}
	st := txState(tx)
	st.activities = append(st.activities, *activity)
	return nil
}

func findActivity(st *state, id string) int {
	for i := range st.activities {
		if st.activities[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	var (
		a  domain.Activity
		ok bool
	)
	r.s.read(func(st *state) {
		if i := findActivity(st, id); i >= 0 {
			a, ok = st.activities[i], true
		}
	})
	if !ok {
		return nil, domain.ErrActivityNotFound
	}
	return &a, nil
}

func (r *ActivityRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Activity, error) {
	st := txState(tx)
	i := findActivity(st, id)
	if i < 0 {
		return nil, domain.ErrActivityNotFound
	}
	a := st.activities[i]
	return &a, nil
}

func (r *ActivityRepository) MarkRestored(ctx context.Context, tx usecase.Transaction, id, description string, restoredAt time.Time) error {
	st := txState(tx)
	i := findActivity(st, id)
	if i < 0 {
		return domain.ErrActivityNotFound
	}
	st.activities[i].Description = description
	st.activities[i].RestoredAt = &restoredAt
	return nil
}

func (r *ActivityRepository) List(ctx context.Context, filter domain.ActivityFilter) ([]*domain.Activity, error) {
	var out []*domain.Activity
	r.s.read(func(st *state) {
		for i := len(st.activities) - 1; i >= 0; i-- {
			a := st.activities[i]
			if a.TenantID != filter.TenantID ||
				(filter.EntityKind != "" && a.Entity.Kind != filter.EntityKind) ||
				(filter.EntityID != "" && a.Entity.ID != filter.EntityID) ||
				(filter.ActorID != "" && a.ActorID != filter.ActorID) ||
				(filter.Action != "" && a.Action != filter.Action) {
				continue
			}
			out = append(out, &a)
		}
	})
	return page(out, filter.Limit, filter.Offset), nil
}
