package models

import "time"

// Staff roles.
const (
	RoleAdmin  = "admin"
	RoleLeader = "leader"
	RoleStaff  = "staff"
)

// Staff is a roster member. PasswordHash is set only for accounts allowed
// to sign in to the admin screens.
type Staff struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Role         string    `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
