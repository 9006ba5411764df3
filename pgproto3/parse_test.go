package pgproto3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	msg := Parse{
		Name:          "stmt1",
		Query:         "select * from accounts where id = $1",
		ParameterOIDs: []uint32{23},
	}

	buf := msg.Encode(nil)
	assert.Equal(t, byte('P'), buf[0])

	var decoded Parse
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestParseRoundTripNoParameters(t *testing.T) {
	msg := Parse{Name: "", Query: "select 1"}

	buf := msg.Encode(nil)
	var decoded Parse
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg.Name, decoded.Name)
	assert.Equal(t, msg.Query, decoded.Query)
	assert.Len(t, decoded.ParameterOIDs, 0)
}
