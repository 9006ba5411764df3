package pgproto3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticationOkRoundTrip(t *testing.T) {
	msg := AuthenticationOk{}
	buf := msg.Encode(nil)
	assert.Equal(t, byte('R'), buf[0])

	var decoded AuthenticationOk
	require.NoError(t, decoded.Decode(buf[5:]))
}

func TestAuthenticationCleartextPasswordRoundTrip(t *testing.T) {
	msg := AuthenticationCleartextPassword{}
	buf := msg.Encode(nil)

	var decoded AuthenticationCleartextPassword
	require.NoError(t, decoded.Decode(buf[5:]))
}

func TestAuthenticationMD5PasswordRoundTrip(t *testing.T) {
	msg := AuthenticationMD5Password{Salt: [4]byte{0x01, 0x02, 0x03, 0x04}}
	buf := msg.Encode(nil)

	var decoded AuthenticationMD5Password
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestAuthenticationSASLRoundTrip(t *testing.T) {
	msg := AuthenticationSASL{AuthMechanisms: []string{"SCRAM-SHA-256", "SCRAM-SHA-256-PLUS"}}
	buf := msg.Encode(nil)

	var decoded AuthenticationSASL
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestAuthenticationSASLContinueRoundTrip(t *testing.T) {
	msg := AuthenticationSASLContinue{Data: []byte("r=clientnonceservernonce,s=salt,i=4096")}
	buf := msg.Encode(nil)

	var decoded AuthenticationSASLContinue
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestAuthenticationSASLFinalRoundTrip(t *testing.T) {
	msg := AuthenticationSASLFinal{Data: []byte("v=dGhlc2VydmVyc2lnbmF0dXJl")}
	buf := msg.Encode(nil)

	var decoded AuthenticationSASLFinal
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg, decoded)
}

func TestFindAuthenticationMessageTypeUnknown(t *testing.T) {
	f := &Frontend{}
	_, err := f.findAuthenticationMessageType([]byte{0x00, 0x00, 0x00, 0x63})
	assert.Error(t, err)
}

func TestFindAuthenticationMessageTypeTooShort(t *testing.T) {
	f := &Frontend{}
	_, err := f.findAuthenticationMessageType([]byte{0x00, 0x00})
	assert.Error(t, err)
}
