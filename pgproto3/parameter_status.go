package pgproto3

import (
	"bytes"

	"github.com/riverstone/pgwire/internal/pgio"
)

// ParameterStatus reports the value of a run-time session parameter
// (server_version, TimeZone, ...). The server sends one on connection
// for every GUC it reports and again whenever one changes.
type ParameterStatus struct {
	Name  string
	Value string
}

func (*ParameterStatus) Backend() {}

func (dst *ParameterStatus) Decode(src []byte) error {
	buf := bytes.NewBuffer(src)

	name, err := buf.ReadBytes(0)
	if err != nil {
		return &invalidMessageFormatErr{messageType: "ParameterStatus"}
	}
	value, err := buf.ReadBytes(0)
	if err != nil {
		return &invalidMessageFormatErr{messageType: "ParameterStatus"}
	}

	dst.Name = string(name[:len(name)-1])
	dst.Value = string(value[:len(value)-1])
	return nil
}

func (src *ParameterStatus) Encode(dst []byte) []byte {
	dst = append(dst, 'S')
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)

	dst = append(dst, src.Name...)
	dst = append(dst, 0)
	dst = append(dst, src.Value...)
	dst = append(dst, 0)

	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}

// ParameterDescription reports the inferred or declared OIDs of a
// prepared statement's parameters, in response to Describe('S', ...).
type ParameterDescription struct {
	ParameterOIDs []uint32
}

func (*ParameterDescription) Backend() {}

func (dst *ParameterDescription) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "ParameterDescription"}
	}
	paramCount := int(src[0])<<8 | int(src[1])
	rp := 2

	oids := make([]uint32, paramCount)
	for i := 0; i < paramCount; i++ {
		if len(src[rp:]) < 4 {
			return &invalidMessageFormatErr{messageType: "ParameterDescription"}
		}
		oids[i] = uint32(src[rp])<<24 | uint32(src[rp+1])<<16 | uint32(src[rp+2])<<8 | uint32(src[rp+3])
		rp += 4
	}
	dst.ParameterOIDs = oids
	return nil
}

func (src *ParameterDescription) Encode(dst []byte) []byte {
	dst = append(dst, 't')
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)

	dst = pgio.AppendUint16(dst, uint16(len(src.ParameterOIDs)))
	for _, oid := range src.ParameterOIDs {
		dst = pgio.AppendUint32(dst, oid)
	}

	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}
