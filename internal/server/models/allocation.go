package models

import "time"

// Allocation binds one payment address to an (account, network) pair.
// Once recorded it is never removed and the address never returns to the pool.
type Allocation struct {
	AccountID   string    `json:"account_id"`
	Network     string    `json:"network"`
	Address     string    `json:"address"`
	AllocatedAt time.Time `json:"allocated_at"`
}
