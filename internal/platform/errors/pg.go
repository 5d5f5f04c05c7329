package errors

// Postgres helpers that fold pgx errors into the project ErrorCode taxonomy.
// The journal repo wraps its query errors here so callers reason about
// codes, not SQLSTATEs

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE values the journal runs into in practice
const (
	sqlstateUniqueViolation  = "23505"
	sqlstateForeignKey       = "23503"
	sqlstateNotNull          = "23502"
	sqlstateCheckViolation   = "23514"
	sqlstateStringTruncation = "22001"
	sqlstateInvalidText      = "22P02"
	sqlstateSerialization    = "40001"
	sqlstateDeadlock         = "40P01"
	sqlstateLockNotAvailable = "55P03"
	sqlstateReadOnlyTx       = "25006"
	sqlstateCannotConnectNow = "57P03" // server still starting up
)

// sqlstateCodes maps SQLSTATEs onto project codes.
// States missing here classify as plain ErrorCodeDB
var sqlstateCodes = map[string]ErrorCode{
	sqlstateUniqueViolation:  ErrorCodeDuplicateKey,
	sqlstateForeignKey:       ErrorCodeInvalidArgument, // input referenced a row that is not there
	sqlstateNotNull:          ErrorCodeValidation,
	sqlstateCheckViolation:   ErrorCodeValidation,
	sqlstateStringTruncation: ErrorCodeInvalidArgument,
	sqlstateInvalidText:      ErrorCodeInvalidArgument,
	sqlstateSerialization:    ErrorCodeDB, // contention stays a DB error, retry is decided separately
	sqlstateDeadlock:         ErrorCodeDB,
	sqlstateLockNotAvailable: ErrorCodeDB,
	sqlstateReadOnlyTx:       ErrorCodeUnavailable,
	sqlstateCannotConnectNow: ErrorCodeUnavailable,
}

// retryableSQLStates are server side contention states worth another attempt
var retryableSQLStates = map[string]bool{
	sqlstateSerialization:    true,
	sqlstateDeadlock:         true,
	sqlstateLockNotAvailable: true,
}

// retryableTexts covers driver errors that surface as plain text rather
// than a PgError, mostly around commit and admin initiated disconnects
var retryableTexts = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"serialization failure",
	"canceling statement due to statement timeout",
	"canceling statement due to lock timeout",
	"could not obtain lock on row",
	"terminating connection due to administrator command",
}

// ExtractPgError returns (*pgconn.PgError, true) if the root cause is a PgError.
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether the error is a Postgres error with the given SQLSTATE code
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// IsDuplicateKey reports whether the error is a unique constraint violation
func IsDuplicateKey(err error) bool { return IsSQLState(err, sqlstateUniqueViolation) }

// IsSerializationFailure reports whether the error is a serialization failure
func IsSerializationFailure(err error) bool { return IsSQLState(err, sqlstateSerialization) }

// IsDeadlock reports whether the error is a deadlock detected error
func IsDeadlock(err error) bool { return IsSQLState(err, sqlstateDeadlock) }

// IsLockNotAvailable reports whether the error is a lock not available error
func IsLockNotAvailable(err error) bool { return IsSQLState(err, sqlstateLockNotAvailable) }

// DBErrorCode maps a Postgres error to an ErrorCode with an ok flag.
// !ok means err wasn't a PgError; caller may fall back to generic handling
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	if code, ok := sqlstateCodes[pgErr.Code]; ok {
		return code, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps a pg error with a mapped ErrorCode and message.
// If err is nil, returns nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := DBErrorCode(err); ok {
		return Wrap(err, code, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}

// FromPostgresf is the formatted variant of FromPostgres
func FromPostgresf(err error, format string, a ...any) error {
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// IsRetryable reports whether a database error represents a transient condition
// worth retrying. It handles both structured *pgconn.PgError codes and the
// generic pgx text seen on commit (e.g. "commit unexpectedly resulted in rollback")
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Local cancellations and deadlines stop the attempt, never retry them here
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Unwrap to the root cause so we can see either PgError or the commit text
	root := Root(err)

	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		return retryableSQLStates[pgErr.Code]
	}

	s := strings.ToLower(root.Error())
	for _, probe := range retryableTexts {
		if strings.Contains(s, probe) {
			return true
		}
	}
	return false
}
