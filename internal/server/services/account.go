// Package services contains the server-side business logic: account
// lifecycle, address allocation, billing admission and the Gateway that
// composes them for the transport layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/cryptox"
	"github.com/dmitrijs2005/any2json/internal/logging"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/accounts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinPasswordLength = 8
	apiKeyAttempts    = 3
)

// dummyHash keeps login timing uniform when the email is unknown.
var dummyHash = cryptox.HashPassword("any2json-timing-equalizer")

// AccountService handles credentials and counters of accounts.
type AccountService struct {
	repo accounts.Repository
	log  logging.Logger
}

func NewAccountService(repo accounts.Repository, log logging.Logger) *AccountService {
	return &AccountService{repo: repo, log: log.With("module", "accounts")}
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", common.ErrorValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLength)
	}
	return nil
}

// Register creates a free-tier account with a fresh API key.
func (s *AccountService) Register(ctx context.Context, email, password string) (*models.Account, error) {
	email = NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	apiKey, err := common.NewAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	acct, err := s.repo.Create(ctx, &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: cryptox.HashPassword(password),
		APIKey:       apiKey,
		Balance:      decimal.Zero,
		Used:         decimal.Zero,
		Tier:         models.TierFree,
	})
	if err != nil {
		return nil, storeErr(err)
	}

	s.log.Info(ctx, "account registered", "account_id", acct.ID)
	return acct, nil
}

// CheckPassword returns the account when the password matches. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *AccountService) CheckPassword(ctx context.Context, email, password string) (*models.Account, error) {
	acct, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.VerifyPassword(dummyHash, password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, storeErr(err)
	}

	ok, err := cryptox.VerifyPassword(acct.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}
	return acct, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	acct, err := s.repo.GetByID(ctx, id)
	return acct, storeErr(err)
}

// RotateAPIKey replaces the account's API key; the old key stops being valid.
func (s *AccountService) RotateAPIKey(ctx context.Context, id string) (string, error) {
	for i := 0; i < apiKeyAttempts; i++ {
		key, err := common.NewAPIKey()
		if err != nil {
			return "", fmt.Errorf("generate api key: %w", err)
		}
		err = s.repo.SetAPIKey(ctx, id, key)
		if err == nil {
			s.log.Info(ctx, "api key rotated", "account_id", id)
			return key, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) {
			return "", storeErr(err)
		}
	}
	return "", fmt.Errorf("%w: could not generate a unique api key", common.ErrorInternal)
}

func (s *AccountService) RecordUsage(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	used, err := s.repo.RecordUsage(ctx, id, amount)
	return used, storeErr(err)
}

// ChargeUsage records a metered request unless the account can no longer
// cover it; see accounts.Repository.ChargeUsage.
func (s *AccountService) ChargeUsage(ctx context.Context, id string, amount, overdraft decimal.Decimal) (decimal.Decimal, error) {
	used, err := s.repo.ChargeUsage(ctx, id, amount, overdraft)
	return used, storeErr(err)
}

func (s *AccountService) Credit(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := s.repo.Credit(ctx, id, amount)
	return balance, storeErr(err)
}
