package pgproto3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterStatusRoundTrip(t *testing.T) {
	msg := ParameterStatus{Name: "server_version", Value: "16.2"}

	buf := msg.Encode(nil)
	var decoded ParameterStatus
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestParameterDescriptionRoundTrip(t *testing.T) {
	msg := ParameterDescription{ParameterOIDs: []uint32{23, 25, 1043}}

	buf := msg.Encode(nil)
	assert.Equal(t, byte('t'), buf[0])

	var decoded ParameterDescription
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg.ParameterOIDs, decoded.ParameterOIDs)
}

func TestParameterDescriptionDecodeEmpty(t *testing.T) {
	msg := ParameterDescription{}
	buf := msg.Encode(nil)

	var decoded ParameterDescription
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Len(t, decoded.ParameterOIDs, 0)
}
