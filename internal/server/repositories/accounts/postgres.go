package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/dbx"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/shopspring/decimal"
)

const constraintTOTPRequiresSecret = "totp_enabled_requires_secret"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, acct *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, email, password_hash, api_key, balance, used, tier, totp_secret, totp_enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		acct.ID, acct.Email, acct.PasswordHash, acct.APIKey,
		acct.Balance, acct.Used, string(acct.Tier),
		nullString(acct.TOTPSecret), acct.TOTPEnabled,
	).Scan(&acct.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return acct, nil
}

const selectAccount = `SELECT id, email, password_hash, api_key, balance, used, tier, totp_secret, totp_enabled, created_at
		 FROM accounts
		 `

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+`WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+`WHERE email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.Account, error) {
	var (
		acct   models.Account
		tier   string
		secret sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&acct.ID, &acct.Email, &acct.PasswordHash, &acct.APIKey,
		&acct.Balance, &acct.Used, &tier, &secret, &acct.TOTPEnabled, &acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	acct.Tier = models.Tier(tier)
	acct.TOTPSecret = secret.String
	return &acct, nil
}

func (r *PostgresRepository) SetAPIKey(ctx context.Context, id, apiKey string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET api_key = $2 WHERE id = $1`, id, apiKey)
	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) SetTOTPSecret(ctx context.Context, id, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET totp_secret = $2, totp_enabled = FALSE WHERE id = $1`,
		id, nullString(secret))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) SetTOTPEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET totp_enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		if dbx.IsCheckViolation(err, constraintTOTPRequiresSecret) {
			return fmt.Errorf("%w: totp secret is not set", common.ErrorValidation)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) RecordUsage(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.addTo(ctx, `UPDATE accounts SET used = used + $2 WHERE id = $1 RETURNING used`, id, amount)
}

// ChargeUsage guards the increment in the WHERE clause, so the check and the
// write are one statement. A miss is either an unknown id or a short balance.
func (r *PostgresRepository) ChargeUsage(ctx context.Context, id string, amount, overdraft decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() || overdraft.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", common.ErrorValidation)
	}

	query :=
		`UPDATE accounts SET used = used + $2
		 WHERE id = $1 AND balance - used + $3 >= $2
		 RETURNING used`

	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, id, amount, overdraft).Scan(&total)
	if err == nil {
		return total, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return decimal.Zero, common.ErrorNotFound
	}
	return decimal.Zero, common.ErrInsufficientBalance
}

func (r *PostgresRepository) Credit(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.addTo(ctx, `UPDATE accounts SET balance = balance + $2 WHERE id = $1 RETURNING balance`, id, amount)
}

// addTo runs a single-statement increment so concurrent callers never lose updates.
func (r *PostgresRepository) addTo(ctx context.Context, query, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", common.ErrorValidation)
	}

	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, id, amount).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, common.ErrorNotFound
		}
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
