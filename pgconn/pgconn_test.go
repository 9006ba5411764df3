package pgconn

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverstone/pgwire/pgproto3"
)

// newTestConn wires a Conn directly to one end of an in-memory pipe,
// bypassing Connect/connectOne. The caller drives the other end as a
// fake backend.
func newTestConn(conn net.Conn) *Conn {
	c := &Conn{
		conn:       conn,
		config:     &Config{RuntimeParams: map[string]string{}},
		parameters: make(map[string]string),
		pid:        1234,
		secretKey:  5678,
	}
	c.frontend = pgproto3.NewFrontend(conn, conn, 0)
	c.status.Store(int32(connStatusIdle))
	return c
}

// readRawMessage reads one framed message off r without decoding its
// body. Safe to call from a background goroutine; failures are
// reported via t.Errorf rather than t.FailNow.
func readRawMessage(t *testing.T, r io.Reader) (byte, []byte) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		t.Errorf("read message header: %v", err)
		return 0, nil
	}
	bodyLen := int(binary.BigEndian.Uint32(header[1:])) - 4
	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			t.Errorf("read message body: %v", err)
			return 0, nil
		}
	}
	return header[0], body
}

func TestConnLockBusy(t *testing.T) {
	c := &Conn{}
	c.status.Store(int32(connStatusIdle))

	require.NoError(t, c.lock())
	err := c.lock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy")
	assert.True(t, SafeToRetry(err))
}

func TestConnLockClosed(t *testing.T) {
	c := &Conn{}
	c.status.Store(int32(connStatusClosed))
	err := c.lock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestConnCloseIdempotent(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	done := make(chan struct{})
	go func() {
		readRawMessage(t, serverConn) // Terminate
		close(done)
	}()

	require.NoError(t, c.Close(context.Background()))
	<-done
	assert.True(t, c.IsClosed())

	// A second Close must be a no-op, not a panic or error.
	require.NoError(t, c.Close(context.Background()))
}

func TestExecSimpleQuery(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	go func() {
		readRawMessage(t, serverConn) // Query
		serverConn.Write((&pgproto3.RowDescription{
			Fields: []pgproto3.FieldDescription{{Name: "n"}},
		}).Encode(nil))
		serverConn.Write((&pgproto3.DataRow{Values: [][]byte{[]byte("1")}}).Encode(nil))
		serverConn.Write((&pgproto3.CommandComplete{CommandTag: []byte("SELECT 1")}).Encode(nil))
		serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	}()

	results, err := c.Exec(context.Background(), "select 1").ReadAll()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, [][]byte{[]byte("1")}, results[0].Rows[0])
	assert.Equal(t, int64(1), results[0].CommandTag.RowsAffected())
	assert.Equal(t, connStatusIdle, c.status_())
}

func TestExecPartialResultsOnMidBatchError(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	go func() {
		readRawMessage(t, serverConn) // Query
		serverConn.Write((&pgproto3.CommandComplete{CommandTag: []byte("INSERT 0 1")}).Encode(nil))
		serverConn.Write((&pgproto3.ErrorResponse{Severity: "ERROR", Code: "23505", Message: "duplicate key"}).Encode(nil))
		serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	}()

	mrr := c.Exec(context.Background(), "insert into t values (1); insert into t values (1)")
	results, err := mrr.ReadAll()
	require.Error(t, err)
	var pgErr *PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "23505", pgErr.Code)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].CommandTag.RowsAffected())
	assert.Equal(t, connStatusIdle, c.status_())
}

func TestSyntaxErrorLeavesConnectionIdle(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	go func() {
		readRawMessage(t, serverConn) // Query
		serverConn.Write((&pgproto3.ErrorResponse{Severity: "ERROR", Code: "42601", Message: "syntax error"}).Encode(nil))
		serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	}()

	_, err := c.Exec(context.Background(), "selct 1").ReadAll()
	require.Error(t, err)
	assert.Equal(t, connStatusIdle, c.status_())

	// The connection must still be usable afterward.
	go func() {
		readRawMessage(t, serverConn) // Query
		serverConn.Write((&pgproto3.CommandComplete{CommandTag: []byte("SELECT 0")}).Encode(nil))
		serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	}()
	_, err = c.Exec(context.Background(), "select 1 where false").ReadAll()
	require.NoError(t, err)
}

func TestExecParamsRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	go func() {
		typ, _ := readRawMessage(t, serverConn) // Parse
		if typ != 'P' {
			t.Errorf("expected Parse, got %c", typ)
		}
		readRawMessage(t, serverConn) // Bind
		readRawMessage(t, serverConn) // Describe
		readRawMessage(t, serverConn) // Execute
		readRawMessage(t, serverConn) // Sync

		serverConn.Write((&pgproto3.ParseComplete{}).Encode(nil))
		serverConn.Write((&pgproto3.BindComplete{}).Encode(nil))
		serverConn.Write((&pgproto3.RowDescription{Fields: []pgproto3.FieldDescription{{Name: "x"}}}).Encode(nil))
		serverConn.Write((&pgproto3.DataRow{Values: [][]byte{[]byte("42")}}).Encode(nil))
		serverConn.Write((&pgproto3.CommandComplete{CommandTag: []byte("SELECT 1")}).Encode(nil))
		serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	}()

	rr := c.ExecParams(context.Background(), "select $1::int", [][]byte{[]byte("42")}, []uint32{23}, nil, nil)
	require.True(t, rr.NextRow())
	assert.Equal(t, []byte("42"), rr.Values()[0])
	require.False(t, rr.NextRow())
	tag, err := rr.Close()
	require.NoError(t, err)
	assert.Equal(t, int64(1), tag.RowsAffected())
}

func TestExecParamsTooManyParameters(t *testing.T) {
	c := &Conn{}
	c.status.Store(int32(connStatusIdle))

	params := make([][]byte, maxExtendedProtocolParameters+1)
	rr := c.ExecParams(context.Background(), "select 1", params, nil, nil, nil)
	_, err := rr.Close()
	require.Error(t, err)
}

func TestExecParamsAtParameterLimit(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	go func() {
		readRawMessage(t, serverConn) // Parse
		readRawMessage(t, serverConn) // Bind
		readRawMessage(t, serverConn) // Describe
		readRawMessage(t, serverConn) // Execute
		readRawMessage(t, serverConn) // Sync
		serverConn.Write((&pgproto3.ParseComplete{}).Encode(nil))
		serverConn.Write((&pgproto3.BindComplete{}).Encode(nil))
		serverConn.Write((&pgproto3.NoData{}).Encode(nil))
		serverConn.Write((&pgproto3.CommandComplete{CommandTag: []byte("SELECT 0")}).Encode(nil))
		serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	}()

	params := make([][]byte, maxExtendedProtocolParameters)
	rr := c.ExecParams(context.Background(), "select 1", params, nil, nil, nil)
	_, err := rr.Close()
	require.NoError(t, err)
}

func TestExecParamsErrorLeavesConnectionIdle(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	go func() {
		readRawMessage(t, serverConn) // Parse
		readRawMessage(t, serverConn) // Bind
		readRawMessage(t, serverConn) // Describe
		readRawMessage(t, serverConn) // Execute
		readRawMessage(t, serverConn) // Sync
		serverConn.Write((&pgproto3.ErrorResponse{Severity: "ERROR", Code: "42601", Message: "syntax error"}).Encode(nil))
		serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	}()

	rr := c.ExecParams(context.Background(), "selct $1::int", [][]byte{[]byte("1")}, []uint32{23}, nil, nil)
	require.False(t, rr.NextRow())
	_, err := rr.Close()
	require.Error(t, err)
	var pgErr *PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "42601", pgErr.Code)
	assert.Equal(t, connStatusIdle, c.status_())

	// The lock must actually have been released: a second operation
	// has to be able to acquire it.
	go func() {
		readRawMessage(t, serverConn) // Parse
		readRawMessage(t, serverConn) // Bind
		readRawMessage(t, serverConn) // Describe
		readRawMessage(t, serverConn) // Execute
		readRawMessage(t, serverConn) // Sync
		serverConn.Write((&pgproto3.ParseComplete{}).Encode(nil))
		serverConn.Write((&pgproto3.BindComplete{}).Encode(nil))
		serverConn.Write((&pgproto3.NoData{}).Encode(nil))
		serverConn.Write((&pgproto3.CommandComplete{CommandTag: []byte("SELECT 0")}).Encode(nil))
		serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	}()
	rr = c.ExecParams(context.Background(), "select $1::int", [][]byte{[]byte("1")}, []uint32{23}, nil, nil)
	_, err = rr.Close()
	require.NoError(t, err)
}

func TestWaitForNotification(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	go func() {
		serverConn.Write((&pgproto3.NotificationResponse{PID: 99, Channel: "orders", Payload: "42"}).Encode(nil))
	}()

	n, err := c.WaitForNotification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "orders", n.Channel)
	assert.Equal(t, "42", n.Payload)
}

func TestCopyFromRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	var received []byte
	go func() {
		readRawMessage(t, serverConn) // Query
		serverConn.Write((&pgproto3.CopyInResponse{OverallFormat: pgproto3.TextFormat}).Encode(nil))

		for {
			typ, body := readRawMessage(t, serverConn)
			switch typ {
			case 'd':
				received = append(received, body...)
			case 'c': // CopyDone
				serverConn.Write((&pgproto3.CommandComplete{CommandTag: []byte("COPY 2")}).Encode(nil))
				serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
				return
			case 'f': // CopyFail
				return
			}
		}
	}()

	src := &strReader{s: "1\tfoo\n2\tbar\n"}
	tag, err := c.CopyFrom(context.Background(), "copy t from stdin", src)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tag.RowsAffected())
	assert.Equal(t, "1\tfoo\n2\tbar\n", string(received))
}

func TestCopyToRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	c := newTestConn(clientConn)

	go func() {
		readRawMessage(t, serverConn) // Query
		serverConn.Write((&pgproto3.CopyOutResponse{OverallFormat: pgproto3.TextFormat}).Encode(nil))
		serverConn.Write((&pgproto3.CopyData{Data: []byte("1\tfoo\n")}).Encode(nil))
		serverConn.Write((&pgproto3.CopyData{Data: []byte("2\tbar\n")}).Encode(nil))
		serverConn.Write((&pgproto3.CopyDone{}).Encode(nil))
		serverConn.Write((&pgproto3.CommandComplete{CommandTag: []byte("COPY 2")}).Encode(nil))
		serverConn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	}()

	var dst strWriter
	tag, err := c.CopyTo(context.Background(), "copy t to stdout", &dst)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tag.RowsAffected())
	assert.Equal(t, "1\tfoo\n2\tbar\n", dst.s)
}

type strWriter struct{ s string }

func (w *strWriter) Write(p []byte) (int, error) {
	w.s += string(p)
	return len(p), nil
}

type strReader struct {
	s string
	i int
}

func (r *strReader) Read(p []byte) (int, error) {
	if r.i >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.i:])
	r.i += n
	return n, nil
}
