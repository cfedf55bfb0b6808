package model

import "time"

// AlertState remembers which signal dates were already announced per symbol.
type AlertState struct {
	LastBuy   map[string]time.Time `json:"last_buy"`
	LastSell  map[string]time.Time `json:"last_sell"`
	UpdatedAt time.Time            `json:"updated_at"`
}
