package gormstore

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isUniqueViolation reports whether err is a primary-key/unique constraint
// violation. Both sqlite and pgx report this distinctly from other
// failures but without a shared typed error, so this matches on the
// driver-level message text the way the teacher's metadata store does for
// its own collision retries.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
