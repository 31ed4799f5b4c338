package entity

import "time"

// Vendor proveedor de mercancía.
type Vendor struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
}
