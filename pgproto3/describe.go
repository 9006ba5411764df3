package pgproto3

import (
	"bytes"

	"github.com/riverstone/pgwire/internal/pgio"
)

// Describe asks the server for the ParameterDescription and
// RowDescription (or NoData) of a statement ('S') or portal ('P').
type Describe struct {
	ObjectType byte // 'S' or 'P'
	Name       string
}

func (*Describe) Frontend() {}

func (dst *Describe) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "Describe"}
	}
	dst.ObjectType = src[0]
	rp := 1
	idx := bytes.IndexByte(src[rp:], 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "Describe"}
	}
	dst.Name = string(src[rp : rp+idx])
	return nil
}

func (src *Describe) Encode(dst []byte) []byte {
	dst = append(dst, 'D')
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)

	dst = append(dst, src.ObjectType)
	dst = append(dst, src.Name...)
	dst = append(dst, 0)

	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}

// Execute asks the server to execute a bound portal. MaxRows of 0
// requests all rows; this driver never suspends a portal, so it is
// always 0.
type Execute struct {
	Portal  string
	MaxRows uint32
}

func (*Execute) Frontend() {}

func (dst *Execute) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "Execute"}
	}
	dst.Portal = string(src[:idx])
	rp := idx + 1
	if len(src[rp:]) != 4 {
		return &invalidMessageFormatErr{messageType: "Execute"}
	}
	dst.MaxRows = uint32(src[rp])<<24 | uint32(src[rp+1])<<16 | uint32(src[rp+2])<<8 | uint32(src[rp+3])
	return nil
}

func (src *Execute) Encode(dst []byte) []byte {
	dst = append(dst, 'E')
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)

	dst = append(dst, src.Portal...)
	dst = append(dst, 0)
	dst = pgio.AppendUint32(dst, src.MaxRows)

	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}

// Close closes a prepared statement ('S') or portal ('P').
type Close struct {
	ObjectType byte
	Name       string
}

func (*Close) Frontend() {}

func (dst *Close) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "Close"}
	}
	dst.ObjectType = src[0]
	rp := 1
	idx := bytes.IndexByte(src[rp:], 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "Close"}
	}
	dst.Name = string(src[rp : rp+idx])
	return nil
}

func (src *Close) Encode(dst []byte) []byte {
	dst = append(dst, 'C')
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)

	dst = append(dst, src.ObjectType)
	dst = append(dst, src.Name...)
	dst = append(dst, 0)

	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}
