package pgconn

import (
	"context"

	"github.com/riverstone/pgwire/pgproto3"
)

// Result is one statement's outcome within a simple-protocol query:
// its row values (already collected) plus the field descriptions and
// command tag that described them.
type Result struct {
	FieldDescriptions []pgproto3.FieldDescription
	Rows              [][][]byte
	CommandTag        CommandTag
	Err               error
}

// Exec sends sql via the simple query protocol. sql may contain
// multiple ;-separated statements, each producing its own Result.
// Exec returns immediately; the server's replies are consumed through
// the returned MultiResultReader.
func (c *Conn) Exec(ctx context.Context, sql string) *MultiResultReader {
	mrr := &MultiResultReader{conn: c, ctx: ctx}

	if err := checkCanceled(ctx); err != nil {
		mrr.closed = true
		mrr.err = err
		return mrr
	}

	if err := c.lock(); err != nil {
		mrr.closed = true
		mrr.err = err
		return mrr
	}

	c.frontend.Send(&pgproto3.Query{String: sql})
	if err := c.flush(ctx); err != nil {
		c.unlock()
		mrr.closed = true
		mrr.err = err
		return mrr
	}

	return mrr
}

// MultiResultReader iterates the zero or more Results a simple-protocol
// query produces.
type MultiResultReader struct {
	conn *Conn
	ctx  context.Context

	rr *ResultReaderSimple

	closed         bool
	err            error
	partialResults []*Result
}

// NextResult advances to the next statement's result. It returns
// false when the server has sent ReadyForQuery (no more results) or
// an error ended iteration; Err returns that error.
func (mrr *MultiResultReader) NextResult() bool {
	if mrr.closed {
		return false
	}

	for {
		msg, err := mrr.conn.receiveMessage(mrr.ctx)
		if err != nil {
			if pgErr, ok := err.(*PgError); ok {
				mrr.err = pgErr
				if !isFatal(pgErr.Severity) {
					mrr.conn.restoreConnectionState()
				}
			} else {
				mrr.err = err
			}
			mrr.close()
			return false
		}

		switch m := msg.(type) {
		case *pgproto3.RowDescription:
			fields := make([]pgproto3.FieldDescription, len(m.Fields))
			copy(fields, m.Fields)
			mrr.rr = &ResultReaderSimple{mrr: mrr, fieldDescriptions: fields}
			return true

		case *pgproto3.CommandComplete:
			mrr.rr = &ResultReaderSimple{mrr: mrr, commandTag: CommandTag(m.CommandTag), done: true}
			return true

		case *pgproto3.EmptyQueryResponse:
			mrr.rr = &ResultReaderSimple{mrr: mrr, done: true}
			return true

		case *pgproto3.ReadyForQuery:
			mrr.close()
			return false

		default:
			// NoticeResponse, ParameterStatus etc. already handled by
			// receiveMessage's side effects; keep draining.
		}
	}
}

// ResultReader returns the reader for the result NextResult just
// advanced to.
func (mrr *MultiResultReader) ResultReader() *ResultReaderSimple {
	return mrr.rr
}

// Err returns the error, if any, that ended iteration.
func (mrr *MultiResultReader) Err() error {
	return mrr.err
}

// PartialResults returns the Results ReadAll fully read before an
// error ended iteration. It is nil when ReadAll was not used.
func (mrr *MultiResultReader) PartialResults() []*Result {
	return mrr.partialResults
}

// Close drains and releases the connection if NextResult has not
// already done so. Safe to call multiple times.
func (mrr *MultiResultReader) Close() error {
	if mrr.closed {
		return mrr.err
	}
	for mrr.NextResult() {
		mrr.rr.Close()
	}
	return mrr.err
}

func (mrr *MultiResultReader) close() {
	if mrr.closed {
		return
	}
	mrr.closed = true
	mrr.conn.unlock()
}

// ReadAll drains every result into a slice, stopping at the first
// error. Use PartialResults to retrieve whatever succeeded before
// that.
func (mrr *MultiResultReader) ReadAll() ([]*Result, error) {
	var results []*Result
	for mrr.NextResult() {
		rr := mrr.ResultReader()
		res := &Result{FieldDescriptions: rr.FieldDescriptions()}
		for rr.NextRow() {
			row := make([][]byte, len(rr.Values()))
			for i, v := range rr.Values() {
				if v != nil {
					cp := make([]byte, len(v))
					copy(cp, v)
					v = cp
				}
				row[i] = v
			}
			res.Rows = append(res.Rows, row)
		}
		tag, err := rr.Close()
		res.CommandTag = tag
		res.Err = err
		results = append(results, res)
		if err != nil {
			return results, err
		}
		mrr.partialResults = results
	}
	if mrr.err != nil {
		return results, mrr.err
	}
	return results, nil
}

// ResultReaderSimple reads one statement's result within a
// MultiResultReader.
type ResultReaderSimple struct {
	mrr *MultiResultReader

	fieldDescriptions []pgproto3.FieldDescription
	values            [][]byte
	commandTag        CommandTag

	done   bool
	closed bool
	err    error
}

// FieldDescriptions returns the result's column descriptions, or nil
// for a no-rows result.
func (rr *ResultReaderSimple) FieldDescriptions() []pgproto3.FieldDescription {
	return rr.fieldDescriptions
}

// NextRow advances to the next row. Returns false at end of result or
// on error.
func (rr *ResultReaderSimple) NextRow() bool {
	if rr.done {
		return false
	}

	for {
		msg, err := rr.mrr.conn.receiveMessage(rr.mrr.ctx)
		if err != nil {
			rr.err = err
			rr.done = true
			// An error ends the whole query, as in NextResult: drain to
			// ReadyForQuery on a non-fatal PgError and release the lock.
			if pgErr, ok := err.(*PgError); ok && !isFatal(pgErr.Severity) {
				rr.mrr.conn.restoreConnectionState()
			}
			rr.mrr.err = err
			rr.mrr.close()
			return false
		}

		switch m := msg.(type) {
		case *pgproto3.DataRow:
			rr.values = m.Values
			return true
		case *pgproto3.CommandComplete:
			rr.commandTag = CommandTag(m.CommandTag)
			rr.done = true
			return false
		case *pgproto3.EmptyQueryResponse:
			rr.done = true
			return false
		}
	}
}

// Values returns the current row's column values. Valid only until
// the next call to NextRow.
func (rr *ResultReaderSimple) Values() [][]byte {
	return rr.values
}

// Close finishes this result, draining to CommandComplete if the
// caller stopped consuming rows early, and returns the command tag.
func (rr *ResultReaderSimple) Close() (CommandTag, error) {
	if rr.closed {
		return rr.commandTag, rr.err
	}
	rr.closed = true

	for !rr.done {
		rr.NextRow()
	}

	return rr.commandTag, rr.err
}
