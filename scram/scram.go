// Package scram implements the client side of SCRAM-SHA-256, the SASL
// mechanism PostgreSQL uses for authentication since v10. See RFC 5802
// for the wire format and RFC 4013 for the SASLprep profile applied to
// the password.
package scram

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/secure/precis"
)

// Mechanism is the SASL mechanism name pgconn advertises and the
// server selects among in its AuthenticationSASL message.
const Mechanism = "SCRAM-SHA-256"

// Client drives one SCRAM-SHA-256 exchange. Its zero value is not
// usable; construct one with NewClient. A Client is used once and
// discarded.
type Client struct {
	password string
	cnonce   string

	clientFirstMessageBare string
	serverFirstMessage     string
	fullNonce              string
	saltedPassword         []byte
	authMessage            string

	done bool
}

// NewClient prepares a SCRAM-SHA-256 client for the given password. The
// password is SASLprepped here, and NewClient never fails: a password
// containing characters the profile rejects is used as-is, since
// PostgreSQL itself does not enforce SASLprep, and real-world passwords
// routinely fail the profile while working fine unprepped.
func NewClient(password string) *Client {
	prepped, err := precis.OpaqueString.String(password)
	if err != nil {
		prepped = password
	}
	return &Client{password: prepped, cnonce: newNonce()}
}

// ClientFirstMessage returns the SASLInitialResponse payload: the
// gs2-header, an empty authzid, and the client nonce. There is no
// channel binding, so the header is "n,,".
func (c *Client) ClientFirstMessage() []byte {
	c.clientFirstMessageBare = "n=,r=" + c.cnonce
	return []byte("n,," + c.clientFirstMessageBare)
}

// RecvServerFirstMessage parses the server's r=/s=/i= response and
// derives SaltedPassword via PBKDF2. It must be called exactly once,
// after ClientFirstMessage and before ClientFinalMessage.
func (c *Client) RecvServerFirstMessage(serverFirstMessage []byte) error {
	sfm := string(serverFirstMessage)
	c.serverFirstMessage = sfm

	parts := strings.Split(sfm, ",")
	if len(parts) < 3 {
		return fmt.Errorf("scram: malformed server-first-message")
	}
	if !strings.HasPrefix(parts[0], "r=") || !strings.HasPrefix(parts[1], "s=") || !strings.HasPrefix(parts[2], "i=") {
		return fmt.Errorf("scram: malformed server-first-message")
	}

	fullNonce := parts[0][2:]
	if !strings.HasPrefix(fullNonce, c.cnonce) || len(fullNonce) == len(c.cnonce) {
		return fmt.Errorf("scram: server nonce does not extend client nonce")
	}
	c.fullNonce = fullNonce

	salt, err := base64.StdEncoding.DecodeString(parts[1][2:])
	if err != nil {
		return fmt.Errorf("scram: invalid salt: %w", err)
	}

	iterations, err := strconv.Atoi(parts[2][2:])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("scram: invalid iteration count")
	}

	c.saltedPassword = pbkdf2.Key([]byte(c.password), salt, iterations, sha256.Size, sha256.New)
	return nil
}

// ClientFinalMessage computes ClientProof and returns the
// client-final-message. RecvServerFirstMessage must have succeeded
// first.
func (c *Client) ClientFinalMessage() []byte {
	clientFinalMessageWithoutProof := "c=biws,r=" + c.fullNonce

	c.authMessage = c.clientFirstMessageBare + "," + c.serverFirstMessage + "," + clientFinalMessageWithoutProof

	clientKey := hmacSum(c.saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSignature := hmacSum(storedKey[:], []byte(c.authMessage))

	clientProof := make([]byte, len(clientKey))
	for i := range clientProof {
		clientProof[i] = clientKey[i] ^ clientSignature[i]
	}

	return []byte(clientFinalMessageWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof))
}

// RecvServerFinalMessage verifies the server's ServerSignature in
// constant time. A mismatch means the server does not know the
// password or the exchange was tampered with; the connection must be
// abandoned.
func (c *Client) RecvServerFinalMessage(serverFinalMessage []byte) error {
	sfm := string(serverFinalMessage)
	if !strings.HasPrefix(sfm, "v=") {
		if strings.HasPrefix(sfm, "e=") {
			return fmt.Errorf("scram: server reported error: %s", sfm[2:])
		}
		return fmt.Errorf("scram: malformed server-final-message")
	}

	serverKey := hmacSum(c.saltedPassword, []byte("Server Key"))
	serverSignature := hmacSum(serverKey, []byte(c.authMessage))
	expected := base64.StdEncoding.EncodeToString(serverSignature)

	if subtle.ConstantTimeCompare([]byte(expected), []byte(sfm[2:])) != 1 {
		return fmt.Errorf("scram: server signature mismatch")
	}
	c.done = true
	return nil
}

// Done reports whether RecvServerFinalMessage has succeeded.
func (c *Client) Done() bool {
	return c.done
}

func hmacSum(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func newNonce() string {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		panic("scram: failed to read random nonce: " + err.Error())
	}
	return base64.StdEncoding.EncodeToString(buf)
}
