package repository

import (
	"database/sql"
	"strings"

	"github.com/golang-sql/civil"
)

// parseDate reads an ISO calendar date. Blank or malformed values report ok=false.
func parseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}
	d, err := civil.ParseDate(s)
	if err != nil || !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

func nullDate(ns sql.NullString) (civil.Date, bool) {
	if !ns.Valid {
		return civil.Date{}, false
	}
	return parseDate(ns.String)
}
