package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/server/kv"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/shopspring/decimal"
)

// Key layout:
//
//	acct:<id>       JSON account record
//	email:<email>   account id
//	apikey:<key>    account id
const (
	prefixAccount = "acct:"
	prefixEmail   = "email:"
	prefixAPIKey  = "apikey:"

	// indexLock serializes writes touching the unique email/api-key indexes.
	indexLock = "\x00index"
)

// PebbleRepository persists accounts in an embedded Pebble database.
type PebbleRepository struct {
	db    *kv.Store
	locks kv.KeyedMutex
	now   func() time.Time
}

func NewPebbleRepository(db *kv.Store) *PebbleRepository {
	return &PebbleRepository{db: db, now: time.Now}
}

func (r *PebbleRepository) Create(_ context.Context, acct *models.Account) (*models.Account, error) {
	unlock := r.locks.Lock(indexLock)
	defer unlock()

	for _, key := range []string{prefixEmail + acct.Email, prefixAPIKey + acct.APIKey, prefixAccount + acct.ID} {
		v, err := r.db.Get([]byte(key))
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if v != nil {
			return nil, common.ErrorAlreadyExists
		}
	}

	acct.CreatedAt = r.now().UTC()
	data, err := json.Marshal(acct)
	if err != nil {
		return nil, err
	}

	b := r.db.NewBatch()
	if err := setAll(b,
		entry{prefixAccount + acct.ID, data},
		entry{prefixEmail + acct.Email, []byte(acct.ID)},
		entry{prefixAPIKey + acct.APIKey, []byte(acct.ID)},
	); err != nil {
		b.Discard()
		return nil, err
	}
	if err := b.Commit(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	out := *acct
	return &out, nil
}

func (r *PebbleRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	return r.load(id)
}

func (r *PebbleRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	id, err := r.db.Get([]byte(prefixEmail + email))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if id == nil {
		return nil, common.ErrorNotFound
	}
	return r.load(string(id))
}

func (r *PebbleRepository) load(id string) (*models.Account, error) {
	data, err := r.db.Get([]byte(prefixAccount + id))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if data == nil {
		return nil, common.ErrorNotFound
	}

	var acct models.Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("corrupt account record %s: %w", id, err)
	}
	return &acct, nil
}

func (r *PebbleRepository) SetAPIKey(_ context.Context, id, apiKey string) error {
	unlockIndex := r.locks.Lock(indexLock)
	defer unlockIndex()
	unlock := r.locks.Lock(id)
	defer unlock()

	acct, err := r.load(id)
	if err != nil {
		return err
	}
	owner, err := r.db.Get([]byte(prefixAPIKey + apiKey))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if owner != nil && string(owner) != id {
		return common.ErrorAlreadyExists
	}

	old := acct.APIKey
	acct.APIKey = apiKey
	data, err := json.Marshal(acct)
	if err != nil {
		return err
	}

	b := r.db.NewBatch()
	if err := b.Delete([]byte(prefixAPIKey + old)); err != nil {
		b.Discard()
		return err
	}
	if err := setAll(b, entry{prefixAccount + id, data}, entry{prefixAPIKey + apiKey, []byte(id)}); err != nil {
		b.Discard()
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PebbleRepository) SetTOTPSecret(_ context.Context, id, secret string) error {
	return r.update(id, func(a *models.Account) error {
		a.TOTPSecret = secret
		a.TOTPEnabled = false
		return nil
	})
}

func (r *PebbleRepository) SetTOTPEnabled(_ context.Context, id string, enabled bool) error {
	return r.update(id, func(a *models.Account) error {
		if enabled && a.TOTPSecret == "" {
			return fmt.Errorf("%w: totp secret is not set", common.ErrorValidation)
		}
		a.TOTPEnabled = enabled
		return nil
	})
}

func (r *PebbleRepository) RecordUsage(_ context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", common.ErrorValidation)
	}
	var total decimal.Decimal
	err := r.update(id, func(a *models.Account) error {
		a.Used = a.Used.Add(amount)
		total = a.Used
		return nil
	})
	return total, err
}

func (r *PebbleRepository) ChargeUsage(_ context.Context, id string, amount, overdraft decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() || overdraft.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", common.ErrorValidation)
	}
	var total decimal.Decimal
	err := r.update(id, func(a *models.Account) error {
		if err := chargeable(a, amount, overdraft); err != nil {
			return err
		}
		a.Used = a.Used.Add(amount)
		total = a.Used
		return nil
	})
	return total, err
}

func (r *PebbleRepository) Credit(_ context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", common.ErrorValidation)
	}
	var total decimal.Decimal
	err := r.update(id, func(a *models.Account) error {
		a.Balance = a.Balance.Add(amount)
		total = a.Balance
		return nil
	})
	return total, err
}

// update performs a read-modify-write of one record under its account lock.
func (r *PebbleRepository) update(id string, fn func(*models.Account) error) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	acct, err := r.load(id)
	if err != nil {
		return err
	}
	if err := fn(acct); err != nil {
		return err
	}

	data, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	if err := r.db.Set([]byte(prefixAccount+id), data); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type entry struct {
	key   string
	value []byte
}

func setAll(b *kv.Batch, entries ...entry) error {
	for _, e := range entries {
		if err := b.Set([]byte(e.key), e.value); err != nil {
			return err
		}
	}
	return nil
}
