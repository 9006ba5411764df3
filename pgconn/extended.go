package pgconn

import (
	"context"
	"fmt"

	"github.com/riverstone/pgwire/pgproto3"
)

// StatementDescription is the result of Prepare: the statement's
// parameter and result shape. Immutable once returned.
type StatementDescription struct {
	Name              string
	SQL               string
	ParamOIDs         []uint32
	FieldDescriptions []pgproto3.FieldDescription
}

// maxExtendedProtocolParameters is the wire format's hard limit: the
// parameter count and each format-code array are framed as uint16.
const maxExtendedProtocolParameters = 65535

// Prepare parses and describes a statement without binding or
// executing it. On a non-fatal PgError the connection is drained back
// to ReadyForQuery before the error is returned; the lock is released
// in both the success and error paths.
func (c *Conn) Prepare(ctx context.Context, name, sql string, paramOIDs []uint32) (*StatementDescription, error) {
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.unlock()

	c.frontend.Send(&pgproto3.Parse{Name: name, Query: sql, ParameterOIDs: paramOIDs})
	c.frontend.Send(&pgproto3.Describe{ObjectType: 'S', Name: name})
	c.frontend.Send(&pgproto3.Sync{})
	if err := c.flush(ctx); err != nil {
		return nil, err
	}

	psd := &StatementDescription{Name: name, SQL: sql}

	for {
		msg, err := c.receiveMessage(ctx)
		if err != nil {
			if pgErr, ok := err.(*PgError); ok {
				if !isFatal(pgErr.Severity) {
					c.restoreConnectionState()
				}
				return nil, pgErr
			}
			return nil, err
		}

		switch m := msg.(type) {
		case *pgproto3.ParameterDescription:
			psd.ParamOIDs = m.ParameterOIDs
		case *pgproto3.RowDescription:
			psd.FieldDescriptions = append([]pgproto3.FieldDescription(nil), m.Fields...)
		case *pgproto3.NoData:
			// statement produces no rows; FieldDescriptions stays nil
		case *pgproto3.ParseComplete:
		case *pgproto3.ReadyForQuery:
			return psd, nil
		}
	}
}

// ExecParams binds literal parameter values to sql without a named
// prepared statement and executes it through the unnamed portal.
func (c *Conn) ExecParams(ctx context.Context, sql string, paramValues [][]byte, paramOIDs []uint32, paramFormats, resultFormats []int16) *ExtendedResultReader {
	return c.execExtended(ctx, "", sql, paramValues, paramOIDs, paramFormats, resultFormats, true)
}

// ExecPrepared executes a statement previously registered with
// Prepare.
func (c *Conn) ExecPrepared(ctx context.Context, stmtName string, paramValues [][]byte, paramFormats, resultFormats []int16) *ExtendedResultReader {
	return c.execExtended(ctx, stmtName, "", paramValues, nil, paramFormats, resultFormats, false)
}

func (c *Conn) execExtended(ctx context.Context, stmtName, sql string, paramValues [][]byte, paramOIDs []uint32, paramFormats, resultFormats []int16, sendParse bool) *ExtendedResultReader {
	rr := &ExtendedResultReader{conn: c, ctx: ctx}

	if len(paramValues) > maxExtendedProtocolParameters {
		rr.err = &InvalidArgument{msg: fmt.Sprintf("extended protocol limited to %d parameters", maxExtendedProtocolParameters)}
		rr.closed = true
		return rr
	}
	if l := len(paramFormats); l != 0 && l != 1 && l != len(paramValues) {
		rr.err = &InvalidArgument{msg: fmt.Sprintf("paramFormats must have length 0, 1, or %d, got %d", len(paramValues), l)}
		rr.closed = true
		return rr
	}

	if err := checkCanceled(ctx); err != nil {
		rr.err = err
		rr.closed = true
		return rr
	}

	if err := c.lock(); err != nil {
		rr.err = err
		rr.closed = true
		return rr
	}

	if sendParse {
		c.frontend.Send(&pgproto3.Parse{Name: stmtName, Query: sql, ParameterOIDs: paramOIDs})
	}
	c.frontend.Send(&pgproto3.Bind{
		DestinationPortal:    "",
		PreparedStatement:    stmtName,
		ParameterFormatCodes: paramFormats,
		Parameters:           paramValues,
		ResultFormatCodes:    resultFormats,
	})
	c.frontend.Send(&pgproto3.Describe{ObjectType: 'P', Name: ""})
	c.frontend.Send(&pgproto3.Execute{Portal: "", MaxRows: 0})
	c.frontend.Send(&pgproto3.Sync{})

	if err := c.flush(ctx); err != nil {
		c.unlock()
		rr.err = err
		rr.closed = true
		return rr
	}

	rr.readUntilRowDescription()
	return rr
}

// ExtendedResultReader reads the single result an extended-protocol
// execution produces.
type ExtendedResultReader struct {
	conn *Conn
	ctx  context.Context

	fieldDescriptions []pgproto3.FieldDescription
	values            [][]byte
	commandTag        CommandTag

	closed bool
	err    error
}

func (rr *ExtendedResultReader) readUntilRowDescription() {
	for {
		msg, err := rr.conn.receiveMessage(rr.ctx)
		if err != nil {
			rr.setErr(err)
			return
		}

		switch m := msg.(type) {
		case *pgproto3.ParseComplete, *pgproto3.BindComplete:
		case *pgproto3.RowDescription:
			rr.fieldDescriptions = append([]pgproto3.FieldDescription(nil), m.Fields...)
			return
		case *pgproto3.NoData:
			return
		case *pgproto3.CommandComplete:
			rr.commandTag = CommandTag(m.CommandTag)
			return
		case *pgproto3.EmptyQueryResponse:
			return
		case *pgproto3.ReadyForQuery:
			rr.closed = true
			rr.conn.unlock()
			return
		}
	}
}

// setErr records the terminal error for this read, draining to
// ReadyForQuery first on a non-fatal PgError, and always releases the
// lock: every path through readUntilRowDescription/NextRow that ends
// here leaves the operation done, and the connection must go back to
// IDLE for the next caller regardless of which error ended it.
func (rr *ExtendedResultReader) setErr(err error) {
	if pgErr, ok := err.(*PgError); ok {
		rr.err = pgErr
		if !isFatal(pgErr.Severity) {
			rr.conn.restoreConnectionState()
		}
	} else {
		rr.err = err
	}
	rr.closed = true
	rr.conn.unlock()
}

// FieldDescriptions returns the result's column descriptions, or nil
// for a no-rows result.
func (rr *ExtendedResultReader) FieldDescriptions() []pgproto3.FieldDescription {
	return rr.fieldDescriptions
}

// NextRow advances to the next row.
func (rr *ExtendedResultReader) NextRow() bool {
	if rr.closed {
		return false
	}

	for {
		msg, err := rr.conn.receiveMessage(rr.ctx)
		if err != nil {
			rr.setErr(err)
			return false
		}

		switch m := msg.(type) {
		case *pgproto3.DataRow:
			rr.values = m.Values
			return true
		case *pgproto3.CommandComplete:
			rr.commandTag = CommandTag(m.CommandTag)
		case *pgproto3.ReadyForQuery:
			rr.closed = true
			rr.conn.unlock()
			return false
		}
	}
}

// Values returns the current row's column values. Valid only until
// the next call to NextRow.
func (rr *ExtendedResultReader) Values() [][]byte {
	return rr.values
}

// Close drains to ReadyForQuery if the caller stopped consuming rows
// early, releases the connection, and returns the command tag.
func (rr *ExtendedResultReader) Close() (CommandTag, error) {
	if rr.closed {
		return rr.commandTag, rr.err
	}
	for rr.NextRow() {
	}
	return rr.commandTag, rr.err
}
