package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityKind is the closed set of entities the activity log tracks.
type EntityKind string

const (
	EntitySale           EntityKind = "sale"
	EntityPurchase       EntityKind = "purchase"
	EntityPayment        EntityKind = "payment"
	EntityExpense        EntityKind = "expense"
	EntitySaleReturn     EntityKind = "sale_return"
	EntityPurchaseReturn EntityKind = "purchase_return"
	EntityCustomer       EntityKind = "customer"
	EntitySupplier       EntityKind = "supplier"
	EntityBankAccount    EntityKind = "bank_account"
	EntityProduct        EntityKind = "product"
)

func (k EntityKind) Valid() bool {
	switch k {
	case EntitySale, EntityPurchase, EntityPayment, EntityExpense,
		EntitySaleReturn, EntityPurchaseReturn,
		EntityCustomer, EntitySupplier, EntityBankAccount, EntityProduct:
		return true
	}
	return false
}

// ActivityRef names one tracked entity.
type ActivityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// Trackable is anything the activity log can record.
type Trackable interface {
	ActivityRef() ActivityRef
	Describe() string
}

// ActivityAction is what happened to the entity.
type ActivityAction string

const (
	ActionCreated  ActivityAction = "created"
	ActionUpdated  ActivityAction = "updated"
	ActionDeleted  ActivityAction = "deleted"
	ActionRestored ActivityAction = "restored"
)

// Activity is one append-only log entry. Deleted entries carry a snapshot of
// the entity as it was just before deletion.
type Activity struct {
	CreatedAt   time.Time
	RestoredAt  *time.Time
	Snapshot    *Snapshot
	ID          string
	TenantID    string
	ActorID     string
	Action      ActivityAction
	Description string
	Entity      ActivityRef
}

// Restorable reports whether the entry can be replayed by a restore.
func (a *Activity) Restorable() error {
	if a.Action != ActionDeleted {
		return fmt.Errorf("%w: action is %s", ErrNotRestorable, a.Action)
	}
	if a.Snapshot == nil {
		return fmt.Errorf("%w: no snapshot", ErrNotRestorable)
	}
	if a.RestoredAt != nil {
		return fmt.Errorf("%w: already restored", ErrNotRestorable)
	}
	return nil
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	TenantID   string
	EntityKind EntityKind
	EntityID   string
	ActorID    string
	Action     ActivityAction
	Limit      int
	Offset     int
}

// Snapshot holds a deleted entity. Exactly one field matching Kind is set.
type Snapshot struct {
	Sale     *Sale
	Purchase *Purchase
	Payment  *Payment
	Expense  *Expense
	Return   *Return
	Party    *Party
	Product  *Product
	Kind     EntityKind
}

// NewSnapshot captures entity for later restore.
func NewSnapshot(entity Trackable) (*Snapshot, error) {
	s := &Snapshot{Kind: entity.ActivityRef().Kind}
	switch e := entity.(type) {
	case *Sale:
		c := *e
		c.Items = append([]LineItem(nil), e.Items...)
		s.Sale = &c
	case *Purchase:
		c := *e
		c.Items = append([]LineItem(nil), e.Items...)
		s.Purchase = &c
	case *Payment:
		c := *e
		s.Payment = &c
	case *Expense:
		c := *e
		s.Expense = &c
	case *Return:
		c := *e
		c.Items = append([]LineItem(nil), e.Items...)
		s.Return = &c
	case *Party:
		c := *e
		s.Party = &c
	case *Product:
		c := *e
		s.Product = &c
	default:
		return nil, fmt.Errorf("cannot snapshot %T", entity)
	}
	return s, nil
}

// Entity returns the captured entity.
func (s *Snapshot) Entity() (Trackable, error) {
	var e Trackable
	switch s.Kind {
	case EntitySale:
		e = s.Sale
	case EntityPurchase:
		e = s.Purchase
	case EntityPayment:
		e = s.Payment
	case EntityExpense:
		e = s.Expense
	case EntitySaleReturn, EntityPurchaseReturn:
		e = s.Return
	case EntityCustomer, EntitySupplier, EntityBankAccount:
		e = s.Party
	case EntityProduct:
		e = s.Product
	default:
		return nil, fmt.Errorf("%w: unknown snapshot kind %q", ErrNotRestorable, s.Kind)
	}
	if isNilTrackable(e) {
		return nil, fmt.Errorf("%w: empty %s snapshot", ErrNotRestorable, s.Kind)
	}
	return e, nil
}

func isNilTrackable(e Trackable) bool {
	switch v := e.(type) {
	case *Sale:
		return v == nil
	case *Purchase:
		return v == nil
	case *Payment:
		return v == nil
	case *Expense:
		return v == nil
	case *Return:
		return v == nil
	case *Party:
		return v == nil
	case *Product:
		return v == nil
	}
	return e == nil
}

type snapshotEnvelope struct {
	Kind EntityKind      `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	e, err := s.Entity()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshotEnvelope{Kind: s.Kind, Data: data})
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var env snapshotEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	out := Snapshot{Kind: env.Kind}
	var target any
	switch env.Kind {
	case EntitySale:
		out.Sale = &Sale{}
		target = out.Sale
	case EntityPurchase:
		out.Purchase = &Purchase{}
		target = out.Purchase
	case EntityPayment:
		out.Payment = &Payment{}
		target = out.Payment
	case EntityExpense:
		out.Expense = &Expense{}
		target = out.Expense
	case EntitySaleReturn, EntityPurchaseReturn:
		out.Return = &Return{}
		target = out.Return
	case EntityCustomer, EntitySupplier, EntityBankAccount:
		out.Party = &Party{}
		target = out.Party
	case EntityProduct:
		out.Product = &Product{}
		target = out.Product
	default:
		return fmt.Errorf("unknown snapshot kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("decode %s snapshot: %w", env.Kind, err)
	}
	*s = out
	return nil
}
