package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTable = "registry_credentials"

type CredentialStore struct {
	pool  *pgxpool.Pool
	table string
}

type Opts struct {
	TablePrefix string
}

type credentialRow struct {
	ID             string
	AccountID      string
	Type           string
	Username       string
	SealedPassword []byte
	RegistryURL    string
	State          string
	Errors         []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func rowFromDomain(c domain.Credential) (credentialRow, error) {
	var errs []byte
	if len(c.Errors) > 0 {
		encoded, err := json.Marshal(c.Errors)
		if err != nil {
			return credentialRow{}, fmt.Errorf("failed to encode credential errors: %w", err)
		}

		errs = encoded
	}

	return credentialRow{
		ID:             c.ID,
		AccountID:      c.AccountID,
		Type:           c.Type.String(),
		Username:       c.Username,
		SealedPassword: c.SealedPassword,
		RegistryURL:    c.RegistryURL,
		State:          string(c.State),
		Errors:         errs,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}, nil
}

func (r credentialRow) toDomain() (domain.Credential, error) {
	credentialType, err := domain.ParseCredentialType(r.Type)
	if err != nil {
		return domain.Credential{}, err
	}

	var errs domain.FieldErrors
	if len(r.Errors) > 0 {
		if err := json.Unmarshal(r.Errors, &errs); err != nil {
			return domain.Credential{}, fmt.Errorf("failed to decode credential errors: %w", err)
		}
	}

	return domain.Credential{
		ID:             r.ID,
		AccountID:      r.AccountID,
		Type:           credentialType,
		Username:       r.Username,
		SealedPassword: r.SealedPassword,
		RegistryURL:    r.RegistryURL,
		State:          domain.CredentialState(r.State),
		Errors:         errs,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

func New(ctx context.Context, pool *pgxpool.Pool, opts Opts) (*CredentialStore, error) {
	table := defaultTable
	if opts.TablePrefix != "" {
		table = fmt.Sprintf("%s_%s", opts.TablePrefix, defaultTable)
	}

	store := &CredentialStore{
		pool:  pool,
		table: table,
	}

	if err := store.ensureTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure tables: %w", err)
	}

	return store, nil
}

func (s *CredentialStore) ensureTables(ctx context.Context) error {
	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			type TEXT NOT NULL,
			username TEXT NOT NULL,
			sealed_password BYTEA,
			registry_url TEXT NOT NULL,
			state TEXT NOT NULL,
			errors JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (account_id, type)
		)
	`, s.table)

	if _, err := s.pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create %s table: %w", s.table, err)
	}

	return nil
}

const selectColumns = "id, account_id, type, username, sealed_password, registry_url, state, errors, created_at, updated_at"

func scanRow(row pgx.Row) (credentialRow, error) {
	var r credentialRow

	err := row.Scan(
		&r.ID,
		&r.AccountID,
		&r.Type,
		&r.Username,
		&r.SealedPassword,
		&r.RegistryURL,
		&r.State,
		&r.Errors,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	return r, err
}

func (s *CredentialStore) Insert(ctx context.Context, credential domain.Credential) error {
	row, err := rowFromDomain(credential)
	if err != nil {
		return err
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_id, type) DO NOTHING
	`, s.table, selectColumns)

	tag, err := s.pool.Exec(ctx, insertSQL,
		row.ID,
		row.AccountID,
		row.Type,
		row.Username,
		row.SealedPassword,
		row.RegistryURL,
		row.State,
		row.Errors,
		row.CreatedAt,
		row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateCredential
	}

	return nil
}

func (s *CredentialStore) Get(ctx context.Context, accountID string, credentialType domain.CredentialType) (domain.Credential, error) {
	querySQL := fmt.Sprintf(`SELECT %s FROM %s WHERE account_id = $1 AND type = $2`, selectColumns, s.table)

	row, err := scanRow(s.pool.QueryRow(ctx, querySQL, accountID, credentialType.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credential{}, domain.ErrNotFound
		}

		return domain.Credential{}, fmt.Errorf("failed to get credential: %w", err)
	}

	return row.toDomain()
}

func (s *CredentialStore) List(ctx context.Context, accountID string) ([]domain.Credential, error) {
	querySQL := fmt.Sprintf(`SELECT %s FROM %s WHERE account_id = $1 ORDER BY seq ASC`, selectColumns, s.table)

	rows, err := s.pool.Query(ctx, querySQL, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var credentials []domain.Credential
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}

		credential, err := row.toDomain()
		if err != nil {
			return nil, err
		}

		credentials = append(credentials, credential)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credentials: %w", err)
	}

	return credentials, nil
}

func (s *CredentialStore) Replace(ctx context.Context, credential domain.Credential) error {
	row, err := rowFromDomain(credential)
	if err != nil {
		return err
	}

	updateSQL := fmt.Sprintf(`
		UPDATE %s
		SET id = $3, username = $4, sealed_password = $5, registry_url = $6, state = $7, errors = $8, updated_at = $9
		WHERE account_id = $1 AND type = $2
	`, s.table)

	tag, err := s.pool.Exec(ctx, updateSQL,
		row.AccountID,
		row.Type,
		row.ID,
		row.Username,
		row.SealedPassword,
		row.RegistryURL,
		row.State,
		row.Errors,
		row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to replace credential: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, accountID string, credentialType domain.CredentialType) error {
	deleteSQL := fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1 AND type = $2`, s.table)

	tag, err := s.pool.Exec(ctx, deleteSQL, accountID, credentialType.String())
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
