package pgproto3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordMessageRoundTrip(t *testing.T) {
	msg := PasswordMessage{Password: "md58a945e301d..."}

	buf := msg.Encode(nil)
	assert.Equal(t, byte('p'), buf[0])

	var decoded PasswordMessage
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestSASLInitialResponseRoundTrip(t *testing.T) {
	msg := SASLInitialResponse{AuthMechanism: "SCRAM-SHA-256", Data: []byte("n,,n=,r=clientnonce")}

	buf := msg.Encode(nil)
	var decoded SASLInitialResponse
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestSASLInitialResponseRoundTripNilData(t *testing.T) {
	msg := SASLInitialResponse{AuthMechanism: "SCRAM-SHA-256", Data: nil}

	buf := msg.Encode(nil)
	var decoded SASLInitialResponse
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg.AuthMechanism, decoded.AuthMechanism)
	assert.Nil(t, decoded.Data)
}

func TestSASLResponseRoundTrip(t *testing.T) {
	msg := SASLResponse{Data: []byte("c=biws,r=clientnonceservernonce,p=dGhlcHJvb2Y=")}

	buf := msg.Encode(nil)
	var decoded SASLResponse
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}
