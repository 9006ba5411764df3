package pgconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// SQLSTATE codes from https://www.postgresql.org/docs/current/errcodes-appendix.html.
const (
	PgErrorSuccessfulCompletionCode                  = "00000"
	PgErrorWarningCode                                = "01000"
	PgErrorNoDataCode                                 = "02000"
	PgErrorSqlStatementNotYetCompleteCode             = "03000"
	PgErrorConnectionExceptionCode                    = "08000"
	PgErrorConnectionDoesNotExistCode                 = "08003"
	PgErrorConnectionFailureCode                      = "08006"
	PgErrorSqlclientUnableToEstablishSqlconnectionCode = "08001"
	PgErrorProtocolViolationCode                      = "08P01"
	PgErrorFeatureNotSupportedCode                    = "0A000"
	PgErrorInvalidTransactionInitiationCode           = "0B000"
	PgErrorInvalidAuthorizationSpecificationCode      = "28000"
	PgErrorInvalidPasswordCode                        = "28P01"
	PgErrorSyntaxErrorOrAccessRuleViolationCode        = "42000"
	PgErrorSyntaxErrorCode                            = "42601"
	PgErrorInsufficientPrivilegeCode                  = "42501"
	PgErrorUndefinedColumnCode                        = "42703"
	PgErrorUndefinedTableCode                         = "42P01"
	PgErrorUndefinedFunctionCode                      = "42883"
	PgErrorDuplicateTableCode                         = "42P07"
	PgErrorUniqueViolationCode                        = "23505"
	PgErrorForeignKeyViolationCode                    = "23503"
	PgErrorNotNullViolationCode                       = "23502"
	PgErrorCheckViolationCode                         = "23514"
	PgErrorInFailedSqlTransactionCode                 = "25P02"
	PgErrorInvalidCursorNameCode                      = "34000"
	PgErrorTooManyConnectionsCode                     = "53300"
	PgErrorQueryCanceledCode                          = "57014"
	PgErrorAdminShutdownCode                          = "57P01"
	PgErrorCrashShutdownCode                          = "57P02"
	PgErrorCannotConnectNowCode                       = "57P03"
	PgErrorIdleInTransactionSessionTimeoutCode        = "25P03"
	PgErrorIdleSessionTimeoutCode                     = "57P05"
	PgErrorInternalErrorCode                          = "XX000"
)

// SafeToRetry reports whether err is guaranteed to have occurred
// before any bytes of the failed operation reached the server.
func SafeToRetry(err error) bool {
	if e, ok := err.(interface{ SafeToRetry() bool }); ok {
		return e.SafeToRetry()
	}
	return false
}

// Timeout reports whether err carries pgconn's timeout wrapper: a
// socket timeout (a net.Error whose Timeout() is true) hit while the
// operation's context was not canceled, or a context that was already
// done (canceled or past its deadline) when the operation began.
func Timeout(err error) bool {
	var timeoutErr *errTimeout
	return errors.As(err, &timeoutErr)
}

// PgError represents an error reported by the server in an
// ErrorResponse. See
// https://www.postgresql.org/docs/current/protocol-error-fields.html.
type PgError struct {
	Severity string
	// SeverityUnlocalized is the same severity in English, regardless
	// of the server's lc_messages; empty on servers predating its
	// introduction (PostgreSQL 9.6).
	SeverityUnlocalized string
	Code                string
	Message             string
	Detail              string
	Hint                string
	Position            int32
	InternalPosition    int32
	InternalQuery       string
	Where               string
	SchemaName          string
	TableName           string
	ColumnName          string
	DataTypeName        string
	ConstraintName      string
	File                string
	Line                int32
	Routine             string
}

func (pe *PgError) Error() string {
	return pe.Severity + ": " + pe.Message + " (SQLSTATE " + pe.Code + ")"
}

// SQLState returns the error's SQLSTATE code.
func (pe *PgError) SQLState() string {
	return pe.Code
}

type connectError struct {
	config *Config
	msg    string
	err    error
}

func (e *connectError) Error() string {
	host := "?"
	if len(e.config.Hosts) > 0 {
		host = e.config.Hosts[0].Host
	}
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "failed to connect to `host=%s user=%s database=%s`: %s", host, e.config.User, e.config.Database, e.msg)
	if e.err != nil {
		fmt.Fprintf(sb, " (%s)", e.err.Error())
	}
	return sb.String()
}

func (e *connectError) Unwrap() error {
	return e.err
}

type connLockError struct {
	status string
}

func (e *connLockError) SafeToRetry() bool {
	return true
}

func (e *connLockError) Error() string {
	return e.status
}

func normalizeTimeoutError(ctx context.Context, err error) error {
	if err, ok := err.(net.Error); ok && err.Timeout() {
		switch ctx.Err() {
		case context.Canceled:
			return context.Canceled
		case context.DeadlineExceeded:
			return &errTimeout{err: ctx.Err()}
		default:
			return &errTimeout{err: err}
		}
	}
	return err
}

type pgconnError struct {
	msg         string
	err         error
	safeToRetry bool
}

func (e *pgconnError) Error() string {
	if e.msg == "" {
		return e.err.Error()
	}
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.err.Error())
}

func (e *pgconnError) SafeToRetry() bool {
	return e.safeToRetry
}

func (e *pgconnError) Unwrap() error {
	return e.err
}

// errTimeout wraps an error caused by a timeout: a context.Canceled,
// context.DeadlineExceeded, or a net.Error with Timeout() true.
type errTimeout struct {
	err error
}

func (e *errTimeout) Error() string {
	return fmt.Sprintf("timeout: %s", e.err.Error())
}

func (e *errTimeout) SafeToRetry() bool {
	return SafeToRetry(e.err)
}

func (e *errTimeout) Unwrap() error {
	return e.err
}

type contextAlreadyDoneError struct {
	err error
}

func (e *contextAlreadyDoneError) Error() string {
	return fmt.Sprintf("context already done: %s", e.err.Error())
}

func (e *contextAlreadyDoneError) SafeToRetry() bool {
	return true
}

func (e *contextAlreadyDoneError) Unwrap() error {
	return e.err
}

func newContextAlreadyDoneError(ctx context.Context) error {
	return &errTimeout{&contextAlreadyDoneError{err: ctx.Err()}}
}

// InvalidArgument indicates a client-side validation failure caught
// before any bytes were sent to the server, such as exceeding the
// extended protocol's parameter limit.
type InvalidArgument struct {
	msg string
}

func (e *InvalidArgument) Error() string {
	return e.msg
}

func (e *InvalidArgument) SafeToRetry() bool {
	return true
}

// ErrClosed is a sentinel for a closed Conn. No operation in this
// package returns it: an operation on a closed Conn fails with the
// lock error "conn closed" instead.
var ErrClosed = errors.New("conn closed")

// ErrNoRows is a sentinel for a query that returned no row. No
// operation in this package returns it.
var ErrNoRows = errors.New("no rows in result")
