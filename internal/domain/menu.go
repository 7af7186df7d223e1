package domain

import "github.com/shopspring/decimal"

// MenuItem is the catalog entry a cart line is priced from.
type MenuItem struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}
