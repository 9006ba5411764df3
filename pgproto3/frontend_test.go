package pgproto3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontendSendFlush(t *testing.T) {
	var w bytes.Buffer
	f := NewFrontend(&bytes.Buffer{}, &w, 0)

	f.Send(&Query{String: "select 1"})
	f.Send(&Sync{})
	require.NoError(t, f.Flush())

	expected := (&Query{String: "select 1"}).Encode(nil)
	expected = (&Sync{}).Encode(expected)
	assert.Equal(t, expected, w.Bytes())
}

func TestFrontendSendUnbuffered(t *testing.T) {
	var w bytes.Buffer
	f := NewFrontend(&bytes.Buffer{}, &w, 0)

	f.Send(&Query{String: "x"})
	require.NoError(t, f.SendUnbuffered(&CopyData{Data: []byte("chunk")}))

	expected := (&Query{String: "x"}).Encode(nil)
	expected = (&CopyData{Data: []byte("chunk")}).Encode(expected)
	assert.Equal(t, expected, w.Bytes())
}

func TestFrontendReceiveDispatch(t *testing.T) {
	var wire bytes.Buffer
	wire.Write((&BackendKeyData{ProcessID: 99, SecretKey: 123}).Encode(nil))
	wire.Write((&ReadyForQuery{TxStatus: 'I'}).Encode(nil))
	wire.Write((&RowDescription{Fields: []FieldDescription{{Name: "n", Format: TextFormat}}}).Encode(nil))
	wire.Write((&DataRow{Values: [][]byte{[]byte("hi")}}).Encode(nil))
	wire.Write((&CommandComplete{CommandTag: []byte("SELECT 1")}).Encode(nil))
	wire.Write((&ErrorResponse{Severity: "ERROR", Code: "42601", Message: "syntax error"}).Encode(nil))
	wire.Write((&NotificationResponse{PID: 7, Channel: "c", Payload: "p"}).Encode(nil))

	f := NewFrontend(&wire, &bytes.Buffer{}, 0)

	msg, err := f.Receive()
	require.NoError(t, err)
	bkd, ok := msg.(*BackendKeyData)
	require.True(t, ok)
	assert.Equal(t, uint32(99), bkd.ProcessID)

	msg, err = f.Receive()
	require.NoError(t, err)
	_, ok = msg.(*ReadyForQuery)
	assert.True(t, ok)

	msg, err = f.Receive()
	require.NoError(t, err)
	rd, ok := msg.(*RowDescription)
	require.True(t, ok)
	assert.Equal(t, "n", rd.Fields[0].Name)

	msg, err = f.Receive()
	require.NoError(t, err)
	dr, ok := msg.(*DataRow)
	require.True(t, ok)
	assert.Equal(t, []byte("hi"), dr.Values[0])

	msg, err = f.Receive()
	require.NoError(t, err)
	cc, ok := msg.(*CommandComplete)
	require.True(t, ok)
	assert.Equal(t, []byte("SELECT 1"), cc.CommandTag)

	msg, err = f.Receive()
	require.NoError(t, err)
	er, ok := msg.(*ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, "42601", er.Code)

	msg, err = f.Receive()
	require.NoError(t, err)
	nr, ok := msg.(*NotificationResponse)
	require.True(t, ok)
	assert.Equal(t, "c", nr.Channel)
}

func TestFrontendReceiveUnknownMessageType(t *testing.T) {
	var wire bytes.Buffer
	wire.Write([]byte{'?', 0, 0, 0, 4})

	f := NewFrontend(&wire, &bytes.Buffer{}, 0)
	_, err := f.Receive()
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestFrontendReceiveInvalidLength(t *testing.T) {
	var wire bytes.Buffer
	wire.Write([]byte{'Z', 0, 0, 0, 2})

	f := NewFrontend(&wire, &bytes.Buffer{}, 0)
	_, err := f.Receive()
	assert.Error(t, err)
}

func TestFrontendReceiveSSLReply(t *testing.T) {
	wire := bytes.NewBufferString("S")
	f := NewFrontend(wire, &bytes.Buffer{}, 0)

	b, err := f.ReceiveSSLReply()
	require.NoError(t, err)
	assert.Equal(t, byte('S'), b)
}
