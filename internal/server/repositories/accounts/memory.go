package accounts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/shopspring/decimal"
)

type memoryRecord struct {
	mu   sync.Mutex
	acct models.Account
}

// MemoryRepository keeps accounts in process memory. Indexes guard the maps;
// each record has its own mutex so updates to different accounts never contend.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]*memoryRecord
	byEmail  map[string]string
	byAPIKey map[string]string
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[string]*memoryRecord),
		byEmail:  make(map[string]string),
		byAPIKey: make(map[string]string),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, acct *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[acct.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if _, ok := r.byAPIKey[acct.APIKey]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if _, ok := r.byID[acct.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}

	acct.CreatedAt = r.now().UTC()
	r.byID[acct.ID] = &memoryRecord{acct: *acct}
	r.byEmail[acct.Email] = acct.ID
	r.byAPIKey[acct.APIKey] = acct.ID

	out := *acct
	return &out, nil
}

func (r *MemoryRepository) record(id string) (*memoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	rec, err := r.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	out := rec.acct
	return &out, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) SetAPIKey(_ context.Context, id, apiKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if owner, taken := r.byAPIKey[apiKey]; taken && owner != id {
		return common.ErrorAlreadyExists
	}

	rec.mu.Lock()
	delete(r.byAPIKey, rec.acct.APIKey)
	rec.acct.APIKey = apiKey
	rec.mu.Unlock()

	r.byAPIKey[apiKey] = id
	return nil
}

func (r *MemoryRepository) SetTOTPSecret(_ context.Context, id, secret string) error {
	return r.update(id, func(a *models.Account) error {
		a.TOTPSecret = secret
		a.TOTPEnabled = false
		return nil
	})
}

func (r *MemoryRepository) SetTOTPEnabled(_ context.Context, id string, enabled bool) error {
	return r.update(id, func(a *models.Account) error {
		if enabled && a.TOTPSecret == "" {
			return fmt.Errorf("%w: totp secret is not set", common.ErrorValidation)
		}
		a.TOTPEnabled = enabled
		return nil
	})
}

func (r *MemoryRepository) RecordUsage(_ context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.increment(id, amount, func(a *models.Account) {
		a.Used = a.Used.Add(amount)
		total = a.Used
	})
	return total, err
}

func (r *MemoryRepository) ChargeUsage(_ context.Context, id string, amount, overdraft decimal.Decimal) (decimal.Decimal, error) {
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

func (r *MemoryRepository) Credit(_ context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.increment(id, amount, func(a *models.Account) {
		a.Balance = a.Balance.Add(amount)
		total = a.Balance
	})
	return total, err
}

func (r *MemoryRepository) increment(id string, amount decimal.Decimal, apply func(*models.Account)) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", common.ErrorValidation)
	}
	return r.update(id, func(a *models.Account) error {
		apply(a)
		return nil
	})
}

func (r *MemoryRepository) update(id string, fn func(*models.Account) error) error {
	rec, err := r.record(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := rec.acct
	if err := fn(&next); err != nil {
		return err
	}
	rec.acct = next
	return nil
}
