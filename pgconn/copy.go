package pgconn

import (
	"context"
	"io"

	"github.com/riverstone/pgwire/pgproto3"
)

// CopyFrom streams src to the server via COPY IN. sql must be a COPY
// ... FROM STDIN statement. A read error on src aborts the COPY with
// CopyFail; the server's resulting ErrorResponse is drained, and the
// read error from src, not that PgError, is returned.
func (c *Conn) CopyFrom(ctx context.Context, sql string, src io.Reader) (CommandTag, error) {
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.unlock()

	c.frontend.Send(&pgproto3.Query{String: sql})
	if err := c.flush(ctx); err != nil {
		return nil, err
	}

	// The server might reject the COPY outright (e.g. wrong table),
	// replying with CommandComplete/ErrorResponse instead of
	// CopyInResponse.
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
		case *pgproto3.CopyInResponse:
			return c.copyFromForward(ctx, src)
		case *pgproto3.CommandComplete:
			tag := CommandTag(m.CommandTag)
			c.restoreConnectionState()
			return tag, nil
		case *pgproto3.ReadyForQuery:
			return nil, nil
		}
	}
}

type copyChunk struct {
	data []byte
	err  error
}

func (c *Conn) copyFromForward(ctx context.Context, src io.Reader) (CommandTag, error) {
	chunks := make(chan copyChunk)
	done := make(chan struct{})

	go func() {
		defer close(chunks)
		buf := make([]byte, 64*1024)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				cp := make([]byte, n)
				copy(cp, buf[:n])
				select {
				case chunks <- copyChunk{data: cp}:
				case <-done:
					return
				}
			}
			if err != nil {
				if err == io.EOF {
					return
				}
				select {
				case chunks <- copyChunk{err: err}:
				case <-done:
				}
				return
			}
		}
	}()
	defer close(done)

	var copyErr error
loop:
	for chunk := range chunks {
		if chunk.err != nil {
			copyErr = chunk.err
			break loop
		}
		if err := c.frontend.SendUnbuffered(&pgproto3.CopyData{Data: chunk.data}); err != nil {
			c.asyncClose()
			return nil, err
		}
	}

	if copyErr != nil {
		c.frontend.Send(&pgproto3.CopyFail{Message: copyErr.Error()})
	} else {
		c.frontend.Send(&pgproto3.CopyDone{})
	}
	if err := c.flush(ctx); err != nil {
		return nil, err
	}

	for {
		msg, err := c.receiveMessage(ctx)
		if err != nil {
			if pgErr, ok := err.(*PgError); ok {
				if !isFatal(pgErr.Severity) {
					c.restoreConnectionState()
				}
				if copyErr != nil {
					return nil, copyErr
				}
				return nil, pgErr
			}
			return nil, err
		}

		switch m := msg.(type) {
		case *pgproto3.CommandComplete:
			tag := CommandTag(m.CommandTag)
			c.restoreConnectionState()
			if copyErr != nil {
				return nil, copyErr
			}
			return tag, nil
		case *pgproto3.ReadyForQuery:
			if copyErr != nil {
				return nil, copyErr
			}
			return nil, nil
		}
	}
}

// CopyTo streams the result of a COPY ... TO STDOUT statement to dst.
// A write failure on dst triggers a best-effort cancelRequest and
// drains to ReadyForQuery before returning the original write error.
func (c *Conn) CopyTo(ctx context.Context, sql string, dst io.Writer) (CommandTag, error) {
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.unlock()

	c.frontend.Send(&pgproto3.Query{String: sql})
	if err := c.flush(ctx); err != nil {
		return nil, err
	}

	var sinkErr error
	var tag CommandTag

	for {
		msg, err := c.receiveMessage(ctx)
		if err != nil {
			if pgErr, ok := err.(*PgError); ok {
				if !isFatal(pgErr.Severity) {
					c.restoreConnectionState()
				}
				if sinkErr != nil {
					return nil, sinkErr
				}
				return nil, pgErr
			}
			return nil, err
		}

		switch m := msg.(type) {
		case *pgproto3.CopyOutResponse:
			// streaming begins with the next CopyData messages

		case *pgproto3.CopyData:
			if sinkErr == nil {
				if _, werr := dst.Write(m.Data); werr != nil {
					sinkErr = werr
					c.cancelRequest(ctx)
				}
			}

		case *pgproto3.CopyDone:
			// server finished sending; CommandComplete follows

		case *pgproto3.CommandComplete:
			tag = CommandTag(m.CommandTag)
			if sinkErr != nil {
				c.restoreConnectionState()
				return nil, sinkErr
			}
			// loop to consume ReadyForQuery

		case *pgproto3.ReadyForQuery:
			if sinkErr != nil {
				return nil, sinkErr
			}
			return tag, nil
		}
	}
}
