// Package twofactor implements TOTP enrollment and verification.
//
// An account moves Disabled -> PendingVerification (BeginEnrollment) ->
// Enabled (ConfirmEnrollment with a valid code) and back to Disabled with
// Disable. Re-running BeginEnrollment while pending replaces the secret.
package twofactor

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/logging"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultIssuer = "any2json"
	DefaultSkew   = 1

	period     = 30
	secretSize = 20
)

// Store is the slice of the account repository the service mutates.
type Store interface {
	SetTOTPSecret(ctx context.Context, id, secret string) error
	SetTOTPEnabled(ctx context.Context, id string, enabled bool) error
}

// Enrollment is returned to the user once, at setup time.
type Enrollment struct {
	Secret string
	URL    string
}

type Options struct {
	Issuer string
	// Skew is the number of 30 second steps accepted on either side of now.
	Skew uint
	// Guard rejects codes that were already accepted. Nil disables replay protection.
	Guard ReplayGuard
}

type Service struct {
	store  Store
	issuer string
	skew   uint
	guard  ReplayGuard
	now    func() time.Time
	log    logging.Logger
}

func NewService(store Store, opts Options, log logging.Logger) *Service {
	if opts.Issuer == "" {
		opts.Issuer = DefaultIssuer
	}
	return &Service{
		store:  store,
		issuer: opts.Issuer,
		skew:   opts.Skew,
		guard:  opts.Guard,
		now:    time.Now,
		log:    log.With("module", "twofactor"),
	}
}

// ReplayHorizon is how long an accepted code stays valid and must be remembered.
func (s *Service) ReplayHorizon() time.Duration {
	return time.Duration(2*s.skew+1) * period * time.Second
}

// BeginEnrollment generates a fresh secret and leaves the account pending.
func (s *Service) BeginEnrollment(ctx context.Context, acct *models.Account) (*Enrollment, error) {
	if acct.TwoFactorState() == models.TwoFactorEnabled {
		return nil, common.ErrAlreadyEnrolled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: acct.Email,
		Period:      period,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	if err := s.store.SetTOTPSecret(ctx, acct.ID, key.Secret()); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "totp enrollment started", "account_id", acct.ID)
	return &Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// ConfirmEnrollment enables 2FA when code matches the pending secret.
// A mismatch is reported as false, not as an error, and changes nothing.
func (s *Service) ConfirmEnrollment(ctx context.Context, acct *models.Account, code string) (bool, error) {
	switch acct.TwoFactorState() {
	case models.TwoFactorDisabled:
		return false, common.ErrNotEnrolled
	case models.TwoFactorEnabled:
		return false, common.ErrAlreadyEnrolled
	}

	ok, release, err := s.check(ctx, acct, code)
	if err != nil || !ok {
		return false, err
	}

	if err := s.store.SetTOTPEnabled(ctx, acct.ID, true); err != nil {
		release()
		return false, err
	}
	s.log.Info(ctx, "totp enabled", "account_id", acct.ID)
	return true, nil
}

// VerifyLogin checks a code for an account with 2FA enabled.
func (s *Service) VerifyLogin(ctx context.Context, acct *models.Account, code string) error {
	_, err := s.verify(ctx, acct, code)
	return err
}

// verify is VerifyLogin returning the claim release for callers that act on
// the code afterwards.
func (s *Service) verify(ctx context.Context, acct *models.Account, code string) (func(), error) {
	if acct.TwoFactorState() != models.TwoFactorEnabled {
		return nil, common.ErrNotEnrolled
	}
	ok, release, err := s.check(ctx, acct, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrInvalid2FA
	}
	return release, nil
}

// Disable turns 2FA off after a valid code and forgets the secret.
func (s *Service) Disable(ctx context.Context, acct *models.Account, code string) error {
	release, err := s.verify(ctx, acct, code)
	if err != nil {
		return err
	}
	if err := s.store.SetTOTPSecret(ctx, acct.ID, ""); err != nil {
		release()
		return err
	}
	s.log.Info(ctx, "totp disabled", "account_id", acct.ID)
	return nil
}

// check matches code against every step in the skew window and, when replay
// protection is on, claims the matched step so it cannot be used twice.
// release gives the step back when the caller's follow-up write fails.
func (s *Service) check(ctx context.Context, acct *models.Account, code string) (ok bool, release func(), err error) {
	release = func() {}
	if len(code) != int(otp.DigitsSix) {
		return false, release, nil
	}

	now := s.now()
	opts := totp.ValidateOpts{Period: period, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}
	current := now.Unix() / period

	for offset := -int64(s.skew); offset <= int64(s.skew); offset++ {
		at := now.Add(time.Duration(offset*period) * time.Second)
		expected, err := totp.GenerateCodeCustom(acct.TOTPSecret, at, opts)
		if err != nil {
			return false, release, fmt.Errorf("generate totp code: %w", err)
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) != 1 {
			continue
		}

		if s.guard == nil {
			return true, release, nil
		}
		key := fmt.Sprintf("%s:%d", acct.ID, current+offset)
		fresh, err := s.guard.Claim(ctx, key, s.ReplayHorizon())
		if err != nil {
			return false, release, fmt.Errorf("%w: replay guard: %v", common.ErrorUnavailable, err)
		}
		if !fresh {
			s.log.Warn(ctx, "totp code replayed", "account_id", acct.ID)
			return false, release, nil
		}
		release = func() {
			if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
				s.log.Error(ctx, "replay guard release failed", "account_id", acct.ID, "error", err)
			}
		}
		return true, release, nil
	}
	return false, release, nil
}
