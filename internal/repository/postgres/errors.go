package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/lib/pq"
)

// IsUnavailable reports whether err means the database cannot serve
// requests at all, as opposed to rejecting this particular one.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "53"):
			return true
		case code == "57P01", code == "57P02", code == "57P03":
			return true
		case code == "42501":
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// wrap tags backend outages with domain.ErrBackendUnavailable and leaves
// every other error untouched.
func wrap(err error) error {
	if err == nil || !IsUnavailable(err) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
