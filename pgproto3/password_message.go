package pgproto3

import (
	"bytes"

	"github.com/riverstone/pgwire/internal/pgio"
)

// PasswordMessage carries a cleartext or MD5-digested password in
// response to an AuthenticationCleartextPassword or
// AuthenticationMD5Password challenge.
type PasswordMessage struct {
	Password string
}

func (*PasswordMessage) Frontend() {}

func (dst *PasswordMessage) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx != len(src)-1 {
		return &invalidMessageFormatErr{messageType: "PasswordMessage"}
	}
	dst.Password = string(src[:idx])
	return nil
}

func (src *PasswordMessage) Encode(dst []byte) []byte {
	dst = append(dst, 'p')
	dst = pgio.AppendInt32(dst, int32(len(src.Password)+5))
	dst = append(dst, src.Password...)
	dst = append(dst, 0)
	return dst
}

// SASLInitialResponse starts a SASL authentication exchange (e.g.
// SCRAM-SHA-256).
type SASLInitialResponse struct {
	AuthMechanism string
	Data          []byte
}

func (*SASLInitialResponse) Frontend() {}

func (dst *SASLInitialResponse) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "SASLInitialResponse"}
	}
	dst.AuthMechanism = string(src[:idx])
	rp := idx + 1

	if len(src[rp:]) < 4 {
		return &invalidMessageFormatErr{messageType: "SASLInitialResponse"}
	}
	dataLen := int(int32(src[rp])<<24 | int32(src[rp+1])<<16 | int32(src[rp+2])<<8 | int32(src[rp+3]))
	rp += 4
	if dataLen == -1 {
		dst.Data = nil
		return nil
	}
	if len(src[rp:]) < dataLen {
		return &invalidMessageFormatErr{messageType: "SASLInitialResponse"}
	}
	dst.Data = src[rp : rp+dataLen]
	return nil
}

func (src *SASLInitialResponse) Encode(dst []byte) []byte {
	dst = append(dst, 'p')
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)

	dst = append(dst, src.AuthMechanism...)
	dst = append(dst, 0)
	if src.Data == nil {
		dst = pgio.AppendInt32(dst, -1)
	} else {
		dst = pgio.AppendInt32(dst, int32(len(src.Data)))
		dst = append(dst, src.Data...)
	}

	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}

// SASLResponse carries a subsequent message in a SASL exchange.
type SASLResponse struct {
	Data []byte
}

func (*SASLResponse) Frontend() {}

func (dst *SASLResponse) Decode(src []byte) error {
	dst.Data = src
	return nil
}

func (src *SASLResponse) Encode(dst []byte) []byte {
	dst = append(dst, 'p')
	dst = pgio.AppendInt32(dst, int32(4+len(src.Data)))
	dst = append(dst, src.Data...)
	return dst
}
