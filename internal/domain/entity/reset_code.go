package entity

import "time"

// ResetCode código OTP de restablecimiento de contraseña. Solo se guarda su hash.
type ResetCode struct {
	ID        string
	UserID    string
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}

// Expired indica si el código ya venció en el instante now.
func (c *ResetCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
