package pgproto3

import (
	"bytes"
	"errors"

	"github.com/riverstone/pgwire/internal/pgio"
)

// StartupMessage is the first message sent on a new connection (or the
// second, if preceded by an SSLRequest). Unlike every other frontend
// message it has no leading type byte.
type StartupMessage struct {
	ProtocolVersion uint32
	Parameters      map[string]string
}

func (*StartupMessage) Frontend() {}

func (dst *StartupMessage) Decode(src []byte) error {
	if len(src) < 4 {
		return errors.New("startup message too short")
	}

	dst.ProtocolVersion = uint32(int32(src[0])<<24 | int32(src[1])<<16 | int32(src[2])<<8 | int32(src[3]))
	rp := 4
	dst.Parameters = make(map[string]string)
	for {
		idx := bytes.IndexByte(src[rp:], 0)
		if idx < 0 {
			return &invalidMessageFormatErr{messageType: "StartupMessage"}
		}
		key := string(src[rp : rp+idx])
		rp += idx + 1
		if key == "" {
			break
		}

		idx = bytes.IndexByte(src[rp:], 0)
		if idx < 0 {
			return &invalidMessageFormatErr{messageType: "StartupMessage"}
		}
		value := string(src[rp : rp+idx])
		rp += idx + 1

		dst.Parameters[key] = value
	}

	return nil
}

// Encode appends the wire representation, including its own 4 byte
// length prefix (there is no leading type byte).
func (src *StartupMessage) Encode(dst []byte) []byte {
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)

	dst = pgio.AppendUint32(dst, src.ProtocolVersion)
	for k, v := range src.Parameters {
		dst = append(dst, k...)
		dst = append(dst, 0)
		dst = append(dst, v...)
		dst = append(dst, 0)
	}
	dst = append(dst, 0)

	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))

	return dst
}

// SSLRequest is sent in place of a StartupMessage to request TLS on the
// socket before the real handshake begins. The server replies with a
// single byte, 'S' or 'N', never a framed message.
type SSLRequest struct{}

func (*SSLRequest) Frontend() {}

const sslRequestCode = 80877103

func (dst *SSLRequest) Decode(src []byte) error {
	if len(src) != 4 {
		return &invalidMessageLenErr{messageType: "SSLRequest", expectedLen: 4, actualLen: len(src)}
	}
	return nil
}

func (src *SSLRequest) Encode(dst []byte) []byte {
	dst = pgio.AppendInt32(dst, 8)
	dst = pgio.AppendInt32(dst, sslRequestCode)
	return dst
}
