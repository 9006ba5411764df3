package scram

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

// fakeServer replays the server side of the exchange against a known
// password, salt and iteration count, the way a real backend would,
// so the test can check the client computes matching values without
// needing a live PostgreSQL server.
type fakeServer struct {
	password   string
	salt       []byte
	iterations int
	nonceExt   string
}

func (s *fakeServer) firstMessage(clientFirstBare string) string {
	parts := strings.SplitN(clientFirstBare, "r=", 2)
	cnonce := parts[1]
	return "r=" + cnonce + s.nonceExt + ",s=" + base64.StdEncoding.EncodeToString(s.salt) + ",i=" + itoa(s.iterations)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestClientSuccessfulExchange(t *testing.T) {
	server := &fakeServer{
		password:   "pencil",
		salt:       []byte("saltsaltsalt"),
		iterations: 4096,
		nonceExt:   "serverpart==",
	}

	c := NewClient(server.password)

	clientFirst := c.ClientFirstMessage()
	require.True(t, strings.HasPrefix(string(clientFirst), "n,,n="))

	serverFirst := server.firstMessage(c.clientFirstMessageBare)
	require.NoError(t, c.RecvServerFirstMessage([]byte(serverFirst)))

	clientFinal := c.ClientFinalMessage()
	require.Contains(t, string(clientFinal), "c=biws,r=")
	require.Contains(t, string(clientFinal), ",p=")

	saltedPassword := pbkdf2.Key([]byte(server.password), server.salt, server.iterations, sha256.Size, sha256.New)
	serverKey := hmacSum(saltedPassword, []byte("Server Key"))
	serverSignature := hmacSum(serverKey, []byte(c.authMessage))
	serverFinal := "v=" + base64.StdEncoding.EncodeToString(serverSignature)

	require.NoError(t, c.RecvServerFinalMessage([]byte(serverFinal)))
	require.True(t, c.Done())
}

func TestClientRejectsBadServerSignature(t *testing.T) {
	server := &fakeServer{
		password:   "pencil",
		salt:       []byte("differentsalt"),
		iterations: 4096,
		nonceExt:   "more==",
	}

	c := NewClient(server.password)
	c.ClientFirstMessage()
	require.NoError(t, c.RecvServerFirstMessage([]byte(server.firstMessage(c.clientFirstMessageBare))))
	c.ClientFinalMessage()

	err := c.RecvServerFinalMessage([]byte("v=" + base64.StdEncoding.EncodeToString([]byte("not-the-signature"))))
	require.Error(t, err)
	require.False(t, c.Done())
}

func TestClientRejectsServerError(t *testing.T) {
	server := &fakeServer{password: "pencil", salt: []byte("s"), iterations: 4096, nonceExt: "srv"}
	c := NewClient(server.password)
	c.ClientFirstMessage()
	require.NoError(t, c.RecvServerFirstMessage([]byte(server.firstMessage(c.clientFirstMessageBare))))
	c.ClientFinalMessage()

	err := c.RecvServerFinalMessage([]byte("e=other-error"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "other-error")
}

func TestClientRejectsMismatchedNonce(t *testing.T) {
	c := NewClient("pencil")
	c.ClientFirstMessage()
	err := c.RecvServerFirstMessage([]byte("r=totally-different,s=c2FsdA==,i=4096"))
	require.Error(t, err)
}

func TestStrangePasswordFallsBackToRaw(t *testing.T) {
	// A password with characters the OpaqueString profile rejects must
	// still be usable; PostgreSQL does not enforce SASLprep either.
	c := NewClient("ab")
	require.NotNil(t, c)
	require.NotEmpty(t, c.ClientFirstMessage())
}
