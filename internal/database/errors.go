package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrorKind classifies storage failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConnectivity: the database could not be reached or the connection broke.
	KindConnectivity
	// KindConstraint: a constraint other than the upsert conflict target was violated.
	KindConstraint
	// KindContention: serialization failure, deadlock or lock timeout.
	KindContention
	// KindCanceled: the context was canceled or its deadline passed.
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindConstraint:
		return "constraint"
	case KindContention:
		return "contention"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// StorageError is returned by storage operations. Err is the driver error,
// unmodified and reachable through errors.As/errors.Is.
type StorageError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func newStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) ErrorKind {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			return KindConstraint
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return KindContention
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
			return KindConnectivity
		}
		return KindUnknown
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity_constraint_violation
			return KindConstraint
		case "40": // transaction_rollback: serialization_failure, deadlock_detected
			return KindContention
		case "55": // lock_not_available
			return KindContention
		case "08", "57": // connection_exception, operator_intervention
			return KindConnectivity
		}
		return KindUnknown
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return KindConnectivity
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnectivity
	}

	return KindUnknown
}
