// Copyright 2025 Certen Protocol

package database

import (
	"errors"

	"github.com/lib/pq"
)

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), as raised by the transactions table's
// (service_id, message_hash, direction) constraint.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
