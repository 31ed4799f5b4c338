package entity

import "time"

// Location ubicación física de almacenamiento (bodega, zona, estante).
type Location struct {
	ID        string
	Name      string
	Type      string // warehouse, zone, shelf...
	Capacity  int64
	CreatedAt time.Time
}
