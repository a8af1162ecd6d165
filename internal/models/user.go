package models

import "time"

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// WatchlistItem carries the symbol's latest stored quote, if any.
type WatchlistItem struct {
	Symbol    string     `json:"symbol"`
	AddedAt   time.Time  `json:"addedAt"`
	Price     *float64   `json:"price"`
	Timestamp *time.Time `json:"timestamp"`
}
