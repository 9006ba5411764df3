package pgproto3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponseRoundTrip(t *testing.T) {
	msg := ErrorResponse{
		Severity:       "ERROR",
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		Detail:         `Key (id)=(1) already exists.`,
		SchemaName:     "public",
		TableName:      "accounts",
		ConstraintName: "accounts_pkey",
		File:           "nbtinsert.c",
		Line:           666,
		Routine:        "_bt_check_unique",
	}

	buf := msg.Encode(nil)
	assert.Equal(t, byte('E'), buf[0])

	var decoded ErrorResponse
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestErrorResponseDecodeUnknownField(t *testing.T) {
	msg := ErrorResponse{Severity: "ERROR"}
	buf := msg.Encode(nil)
	buf = buf[:len(buf)-1]
	buf = append(buf, 'Z')
	buf = append(buf, "custom"...)
	buf = append(buf, 0, 0)

	var decoded ErrorResponse
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, "custom", decoded.UnknownFields['Z'])
}

func TestNoticeResponseRoundTrip(t *testing.T) {
	msg := NoticeResponse{Severity: "NOTICE", Message: "identifier will be truncated"}

	buf := msg.Encode(nil)
	assert.Equal(t, byte('N'), buf[0])

	var decoded NoticeResponse
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}
