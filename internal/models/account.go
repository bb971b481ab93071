package models

import "time"

// Account is the slice of the account directory this core reads. Account
// management itself lives in another service; bookings only need identity
// and the provider flag.
type Account struct {
	ID         int64     `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`
	IsProvider bool      `json:"is_provider" db:"is_provider"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DecorService is the catalog entry a booking references. Catalog CRUD is
// out of scope; the lifecycle manager only needs the owning account.
type DecorService struct {
	ID          int64     `json:"id" db:"id"`
	AccountID   int64     `json:"account_id" db:"account_id"`
	Style       string    `json:"style" db:"style"`
	Description string    `json:"description" db:"description"`
	BasePrice   float64   `json:"base_price" db:"base_price"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
