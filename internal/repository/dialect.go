package repository

import (
	"strconv"
	"strings"

	"github.com/volatria/volatria-backend/internal/db"
)

// dialect holds what differs between the SQLite and Postgres backends.
// Queries are written with ? placeholders.
type dialect struct {
	driver db.Driver
}

func dialectFor(d db.Driver) dialect {
	return dialect{driver: d}
}

func (d dialect) rebind(query string) string {
	if d.driver != db.Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) schema() []string {
	userID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	price := "REAL"
	if d.driver == db.Postgres {
		userID = "BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY"
		price = "DOUBLE PRECISION"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + userID + `,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quotes (
			symbol TEXT NOT NULL,
			price ` + price + ` NOT NULL,
			ts BIGINT NOT NULL,
			PRIMARY KEY (symbol, ts)
		)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			user_id BIGINT NOT NULL REFERENCES users(id),
			symbol TEXT NOT NULL,
			added_at BIGINT NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_added ON watchlist (user_id, added_at)`,
	}
}
