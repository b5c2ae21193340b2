package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/oriento/auth/internal/auth/domain"
	"github.com/oriento/auth/internal/auth/store"
)

type principalsRepo struct {
	q querier
}

const principalColumns = `id, email, tax_id, name, password_hash, created_at, updated_at`

func (r *principalsRepo) GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = ?`, id)
	return scanPrincipal(row)
}

func (r *principalsRepo) GetPrincipalByEmail(ctx context.Context, email string) (domain.Principal, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE email = ?`, email)
	return scanPrincipal(row)
}

func (r *principalsRepo) GetPrincipalByTaxID(ctx context.Context, taxID string) (domain.Principal, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE tax_id = ?`, taxID)
	return scanPrincipal(row)
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO principals (id, email, tax_id, name, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		mapOptionalString(p.Email),
		mapOptionalString(p.TaxID),
		p.Name,
		p.PasswordHash,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *principalsRepo) UpdatePasswordHash(ctx context.Context, principalID string, newHash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE principals SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), principalID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *principalsRepo) DeletePrincipal(ctx context.Context, principalID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM principals WHERE id = ?`, principalID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// scanner lets us scan from either *sql.Row or *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row scanner) (domain.Principal, error) {
	var p domain.Principal
	var email, taxID sql.NullString

	err := row.Scan(&p.ID, &email, &taxID, &p.Name, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}

	p.Email = mapNullStringPtr(email)
	p.TaxID = mapNullStringPtr(taxID)
	return p, nil
}
