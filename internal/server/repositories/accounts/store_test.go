package accounts

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/server/kv"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddedStores returns the repositories that run without an external database.
func embeddedStores(t *testing.T) map[string]Repository {
	t.Helper()
	db, err := kv.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"pebble": NewPebbleRepository(db),
	}
}

func newAccount(id, email, key string) *models.Account {
	return &models.Account{ID: id, Email: email, APIKey: key, PasswordHash: "h", Tier: models.TierFree}
}

func TestEmbedded_CreateAndLookup(t *testing.T) {
	for name, repo := range embeddedStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created, err := repo.Create(ctx, newAccount("id-1", "a@x.io", "a2j_1"))
			require.NoError(t, err)
			assert.False(t, created.CreatedAt.IsZero())

			byID, err := repo.GetByID(ctx, "id-1")
			require.NoError(t, err)
			assert.Equal(t, "a@x.io", byID.Email)

			byEmail, err := repo.GetByEmail(ctx, "a@x.io")
			require.NoError(t, err)
			assert.Equal(t, "id-1", byEmail.ID)

			_, err = repo.Create(ctx, newAccount("id-2", "a@x.io", "a2j_2"))
			assert.ErrorIs(t, err, common.ErrorAlreadyExists)

			_, err = repo.GetByID(ctx, "missing")
			assert.ErrorIs(t, err, common.ErrorNotFound)
			_, err = repo.GetByEmail(ctx, "missing@x.io")
			assert.ErrorIs(t, err, common.ErrorNotFound)
		})
	}
}

func TestEmbedded_APIKeyRotation(t *testing.T) {
	for name, repo := range embeddedStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := repo.Create(ctx, newAccount("id-1", "a@x.io", "a2j_1"))
			require.NoError(t, err)
			_, err = repo.Create(ctx, newAccount("id-2", "b@x.io", "a2j_2"))
			require.NoError(t, err)

			require.NoError(t, repo.SetAPIKey(ctx, "id-1", "a2j_new"))
			got, _ := repo.GetByID(ctx, "id-1")
			assert.Equal(t, "a2j_new", got.APIKey)

			assert.ErrorIs(t, repo.SetAPIKey(ctx, "id-1", "a2j_2"), common.ErrorAlreadyExists)
			assert.ErrorIs(t, repo.SetAPIKey(ctx, "missing", "a2j_x"), common.ErrorNotFound)

			// the released key can be reused
			require.NoError(t, repo.SetAPIKey(ctx, "id-2", "a2j_1"))
		})
	}
}

func TestEmbedded_TOTPInvariant(t *testing.T) {
	for name, repo := range embeddedStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := repo.Create(ctx, newAccount("id-1", "a@x.io", "a2j_1"))
			require.NoError(t, err)

			assert.ErrorIs(t, repo.SetTOTPEnabled(ctx, "id-1", true), common.ErrorValidation)

			require.NoError(t, repo.SetTOTPSecret(ctx, "id-1", "SECRET"))
			require.NoError(t, repo.SetTOTPEnabled(ctx, "id-1", true))
			got, _ := repo.GetByID(ctx, "id-1")
			assert.Equal(t, models.TwoFactorEnabled, got.TwoFactorState())

			require.NoError(t, repo.SetTOTPSecret(ctx, "id-1", "OTHER"))
			got, _ = repo.GetByID(ctx, "id-1")
			assert.Equal(t, models.TwoFactorPending, got.TwoFactorState())

			require.NoError(t, repo.SetTOTPSecret(ctx, "id-1", ""))
			got, _ = repo.GetByID(ctx, "id-1")
			assert.Equal(t, models.TwoFactorDisabled, got.TwoFactorState())
		})
	}
}

func TestEmbedded_RecordUsageConcurrent(t *testing.T) {
	for name, repo := range embeddedStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := repo.Create(ctx, newAccount("id-1", "a@x.io", "a2j_1"))
			require.NoError(t, err)

			const n = 100
			cost := decimal.RequireFromString("0.01")

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := repo.RecordUsage(ctx, "id-1", cost)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := repo.GetByID(ctx, "id-1")
			require.NoError(t, err)
			assert.True(t, got.Used.Equal(cost.Mul(decimal.NewFromInt(n))), "used = %s", got.Used)

			_, err = repo.RecordUsage(ctx, "id-1", decimal.NewFromInt(-1))
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestEmbedded_ChargeUsageNeverOverdraws(t *testing.T) {
	for name, repo := range embeddedStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := repo.Create(ctx, newAccount("id-1", "a@x.io", "a2j_1"))
			require.NoError(t, err)
			_, err = repo.Credit(ctx, "id-1", decimal.RequireFromString("0.05"))
			require.NoError(t, err)

			const n = 40
			cost := decimal.RequireFromString("0.01")
			allowance := decimal.RequireFromString("0.02")

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				charged int
				refused int
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := repo.ChargeUsage(ctx, "id-1", cost, allowance)
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						charged++
						return
					}
					assert.ErrorIs(t, err, common.ErrInsufficientBalance)
					refused++
				}()
			}
			wg.Wait()

			assert.Equal(t, 7, charged)
			assert.Equal(t, n-7, refused)

			got, err := repo.GetByID(ctx, "id-1")
			require.NoError(t, err)
			assert.Equal(t, "0.07", got.Used.String())
			assert.Equal(t, "-0.02", got.Available().String())

			_, err = repo.ChargeUsage(ctx, "missing", cost, decimal.Zero)
			assert.ErrorIs(t, err, common.ErrorNotFound)
			_, err = repo.ChargeUsage(ctx, "id-1", cost, decimal.NewFromInt(-1))
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestEmbedded_Credit(t *testing.T) {
	for name, repo := range embeddedStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := repo.Create(ctx, newAccount("id-1", "a@x.io", "a2j_1"))
			require.NoError(t, err)

			bal, err := repo.Credit(ctx, "id-1", decimal.RequireFromString("5.5"))
			require.NoError(t, err)
			assert.True(t, bal.Equal(decimal.RequireFromString("5.5")))

			_, err = repo.Credit(ctx, "missing", decimal.NewFromInt(1))
			assert.ErrorIs(t, err, common.ErrorNotFound)
		})
	}
}
