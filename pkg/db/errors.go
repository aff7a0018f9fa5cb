package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique violation. When
// constraintName is set, only violations of that constraint match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	if diag, ok := pkgerrors.PostgresDiagnostics(err); ok {
		if diag.Code != uniqueViolationCode {
			return false
		}
		return constraintName == "" || diag.Constraint == constraintName
	}

	// sqlite reports constraint failures as plain text.

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
