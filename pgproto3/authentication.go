package pgproto3

import (
	"fmt"

	"github.com/riverstone/pgwire/internal/pgio"
)

// Authentication type constants. See src/include/libpq/pqcomm.h in the
// PostgreSQL source for the canonical list; only the subset this
// driver understands is enumerated here.
const (
	AuthTypeOk                = 0
	AuthTypeCleartextPassword = 3
	AuthTypeMD5Password       = 5
	AuthTypeSASL              = 10
	AuthTypeSASLContinue      = 11
	AuthTypeSASLFinal         = 12
)

type AuthenticationOk struct{}

func (*AuthenticationOk) Backend()                {}
func (*AuthenticationOk) AuthenticationResponse() {}

func (dst *AuthenticationOk) Decode(src []byte) error {
	if len(src) != 4 {
		return &invalidMessageFormatErr{messageType: "AuthenticationOk"}
	}
	return nil
}

func (src *AuthenticationOk) Encode(dst []byte) []byte {
	dst = append(dst, 'R')
	dst = pgio.AppendInt32(dst, 8)
	dst = pgio.AppendUint32(dst, AuthTypeOk)
	return dst
}

type AuthenticationCleartextPassword struct{}

func (*AuthenticationCleartextPassword) Backend()                {}
func (*AuthenticationCleartextPassword) AuthenticationResponse() {}

func (dst *AuthenticationCleartextPassword) Decode(src []byte) error {
	if len(src) != 4 {
		return &invalidMessageFormatErr{messageType: "AuthenticationCleartextPassword"}
	}
	return nil
}

func (src *AuthenticationCleartextPassword) Encode(dst []byte) []byte {
	dst = append(dst, 'R')
	dst = pgio.AppendInt32(dst, 8)
	dst = pgio.AppendUint32(dst, AuthTypeCleartextPassword)
	return dst
}

type AuthenticationMD5Password struct {
	Salt [4]byte
}

func (*AuthenticationMD5Password) Backend()                {}
func (*AuthenticationMD5Password) AuthenticationResponse() {}

func (dst *AuthenticationMD5Password) Decode(src []byte) error {
	if len(src) != 8 {
		return &invalidMessageFormatErr{messageType: "AuthenticationMD5Password"}
	}
	copy(dst.Salt[:], src[4:8])
	return nil
}

func (src *AuthenticationMD5Password) Encode(dst []byte) []byte {
	dst = append(dst, 'R')
	dst = pgio.AppendInt32(dst, 12)
	dst = pgio.AppendUint32(dst, AuthTypeMD5Password)
	dst = append(dst, src.Salt[:]...)
	return dst
}

type AuthenticationSASL struct {
	AuthMechanisms []string
}

func (*AuthenticationSASL) Backend()                {}
func (*AuthenticationSASL) AuthenticationResponse() {}

func (dst *AuthenticationSASL) Decode(src []byte) error {
	rp := 4
	var mechanisms []string
	for {
		idx := indexZero(src[rp:])
		if idx < 0 {
			return &invalidMessageFormatErr{messageType: "AuthenticationSASL"}
		}
		if idx == 0 {
			rp++
			break
		}
		mechanisms = append(mechanisms, string(src[rp:rp+idx]))
		rp += idx + 1
	}
	dst.AuthMechanisms = mechanisms
	return nil
}

func (src *AuthenticationSASL) Encode(dst []byte) []byte {
	dst = append(dst, 'R')
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)
	dst = pgio.AppendUint32(dst, AuthTypeSASL)
	for _, m := range src.AuthMechanisms {
		dst = append(dst, m...)
		dst = append(dst, 0)
	}
	dst = append(dst, 0)
	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}

type AuthenticationSASLContinue struct {
	Data []byte
}

func (*AuthenticationSASLContinue) Backend()                {}
func (*AuthenticationSASLContinue) AuthenticationResponse() {}

func (dst *AuthenticationSASLContinue) Decode(src []byte) error {
	if len(src) < 4 {
		return &invalidMessageFormatErr{messageType: "AuthenticationSASLContinue"}
	}
	dst.Data = src[4:]
	return nil
}

func (src *AuthenticationSASLContinue) Encode(dst []byte) []byte {
	dst = append(dst, 'R')
	dst = pgio.AppendInt32(dst, int32(8+len(src.Data)))
	dst = pgio.AppendUint32(dst, AuthTypeSASLContinue)
	dst = append(dst, src.Data...)
	return dst
}

type AuthenticationSASLFinal struct {
	Data []byte
}

func (*AuthenticationSASLFinal) Backend()                {}
func (*AuthenticationSASLFinal) AuthenticationResponse() {}

func (dst *AuthenticationSASLFinal) Decode(src []byte) error {
	if len(src) < 4 {
		return &invalidMessageFormatErr{messageType: "AuthenticationSASLFinal"}
	}
	dst.Data = src[4:]
	return nil
}

func (src *AuthenticationSASLFinal) Encode(dst []byte) []byte {
	dst = append(dst, 'R')
	dst = pgio.AppendInt32(dst, int32(8+len(src.Data)))
	dst = pgio.AppendUint32(dst, AuthTypeSASLFinal)
	dst = append(dst, src.Data...)
	return dst
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

func authTypeName(t uint32) string {
	switch t {
	case AuthTypeOk:
		return "Ok"
	case AuthTypeCleartextPassword:
		return "CleartextPassword"
	case AuthTypeMD5Password:
		return "MD5Password"
	case AuthTypeSASL:
		return "SASL"
	case AuthTypeSASLContinue:
		return "SASLContinue"
	case AuthTypeSASLFinal:
		return "SASLFinal"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}
