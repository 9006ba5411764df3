package pgconn

import "github.com/riverstone/pgwire/pgproto3"

func pgErrorFromFields(msg pgproto3.ErrorResponse) *PgError {
	return &PgError{
		Severity:            msg.Severity,
		SeverityUnlocalized: msg.SeverityUnlocalized,
		Code:                msg.Code,
		Message:             msg.Message,
		Detail:              msg.Detail,
		Hint:                msg.Hint,
		Position:            msg.Position,
		InternalPosition:    msg.InternalPosition,
		InternalQuery:       msg.InternalQuery,
		Where:               msg.Where,
		SchemaName:          msg.SchemaName,
		TableName:           msg.TableName,
		ColumnName:          msg.ColumnName,
		DataTypeName:        msg.DataTypeName,
		ConstraintName:      msg.ConstraintName,
		File:                msg.File,
		Line:                msg.Line,
		Routine:             msg.Routine,
	}
}

func errorResponseToPgError(msg *pgproto3.ErrorResponse) *PgError {
	return pgErrorFromFields(*msg)
}

// isFatal reports whether severity indicates the backend has closed,
// or is about to close, the connection.
func isFatal(severity string) bool {
	switch severity {
	case "FATAL", "PANIC":
		return true
	default:
		return false
	}
}
