package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// PartyRepository implements usecase.PartyRepository over the customers,
// suppliers and bank_accounts tables.
type PartyRepository struct {
	db querier
}

// NewPartyRepository creates a new PartyRepository.
func NewPartyRepository(db querier) *PartyRepository {
	return &PartyRepository{db: db}
}

func partyTable(kind domain.LedgerKind) (string, error) {
	switch kind {
	case domain.LedgerCustomer:
		return "customers", nil
	case domain.LedgerSupplier:
		return "suppliers", nil
	case domain.LedgerBankAccount:
		return "bank_accounts", nil
	}
	return "", fmt.Errorf("%w: unknown ledger kind %q", domain.ErrPartyNotFound, kind)
}

func partySelect(kind domain.LedgerKind) (string, error) {
	table, err := partyTable(kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`SELECT id, tenant_id, name, currency, %s, created_by, created_at, updated_at FROM %s`,
		kind.BalanceField(), table), nil
}

func (r *PartyRepository) Create(ctx context.Context, tx usecase.Transaction, party *domain.Party) error {
	table, err := partyTable(party.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, tenant_id, name, currency, %s, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, table, party.Kind.BalanceField())

	_, err = inTx(tx).Exec(ctx, query,
		party.ID, party.TenantID, party.Name, party.Currency, party.Balance,
		party.CreatedBy, party.CreatedAt, party.UpdatedAt,
	)
	return mapError(err)
}

func (r *PartyRepository) GetByID(ctx context.Context, target domain.LedgerTarget) (*domain.Party, error) {
	query, err := partySelect(target.Kind)
	if err != nil {
		return nil, err
	}
	return scanParty(target.Kind, r.db.QueryRow(ctx, query+` WHERE id = $1`, target.ID))
}

// GetByIDForUpdate locks the party row until the transaction ends.
func (r *PartyRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, target domain.LedgerTarget) (*domain.Party, error) {
	query, err := partySelect(target.Kind)
	if err != nil {
		return nil, err
	}
	return scanParty(target.Kind, inTx(tx).QueryRow(ctx, query+` WHERE id = $1 FOR UPDATE`, target.ID))
}

func (r *PartyRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, target domain.LedgerTarget, balance decimal.Decimal, updatedAt time.Time) error {
	table, err := partyTable(target.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, updated_at = $3 WHERE id = $1`, table, target.Kind.BalanceField())
	return execOne(ctx, inTx(tx), domain.ErrPartyNotFound, query, target.ID, balance, updatedAt)
}

// Delete fails with ErrReferenceViolation while documents still point at the party.
func (r *PartyRepository) Delete(ctx context.Context, tx usecase.Transaction, target domain.LedgerTarget) error {
	table, err := partyTable(target.Kind)
	if err != nil {
		return err
	}
	return execOne(ctx, inTx(tx), domain.ErrPartyNotFound, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), target.ID)
}

func (r *PartyRepository) List(ctx context.Context, kind domain.LedgerKind, limit, offset int) ([]*domain.Party, error) {
	query, err := partySelect(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query+` ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var parties []*domain.Party
	for rows.Next() {
		p, err := scanParty(kind, rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

func scanParty(kind domain.LedgerKind, row pgx.Row) (*domain.Party, error) {
	p := &domain.Party{Kind: kind}
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Currency, &p.Balance, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err, domain.ErrPartyNotFound)
	}
	return p, nil
}
