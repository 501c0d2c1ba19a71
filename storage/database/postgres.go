package database

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// IsNoRows reports whether err signals an empty result.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func quoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func quoteLiteral(s string) string {
	return pq.QuoteLiteral(strings.TrimSpace(s))
}

// CheckAffected returns notFound when res affected no row.
func CheckAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "getting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
