package pgproto3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRoundTrip(t *testing.T) {
	msg := Query{String: "select 1; select 2"}

	buf := msg.Encode(nil)
	assert.Equal(t, byte('Q'), buf[0])

	var decoded Query
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestQueryDecodeMissingTerminator(t *testing.T) {
	var msg Query
	assert.Error(t, msg.Decode([]byte("select 1")))
}
