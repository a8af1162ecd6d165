package models

import (
	"math"
	"strings"
	"time"
)

const MaxSymbolLength = 10

// Quote is a single price observation. Synthetic points are produced on read
// to pad sparse history and are never stored.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Synthetic bool      `json:"-"`
}

// ValidSymbol accepts 1-10 ASCII letters, digits or dots.
func ValidSymbol(s string) bool {
	if s == "" || len(s) > MaxSymbolLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.':
		default:
			return false
		}
	}
	return true
}

func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func ValidPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
