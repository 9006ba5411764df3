package pgproto3

import (
	"encoding/binary"

	"github.com/riverstone/pgwire/internal/pgio"
)

// DataRow carries one row of a result. Values hold raw, undecoded
// bytes; a nil entry is SQL NULL.
type DataRow struct {
	Values [][]byte
}

func (*DataRow) Backend() {}

func (dst *DataRow) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "DataRow"}
	}
	rp := 0
	fieldCount := int(binary.BigEndian.Uint16(src[rp:]))
	rp += 2

	if cap(dst.Values) < fieldCount || cap(dst.Values)-fieldCount > 32 {
		dst.Values = make([][]byte, fieldCount, 32)
	} else {
		dst.Values = dst.Values[:fieldCount]
	}

	for i := 0; i < fieldCount; i++ {
		if len(src[rp:]) < 4 {
			return &invalidMessageFormatErr{messageType: "DataRow"}
		}
		msgSize := int(int32(binary.BigEndian.Uint32(src[rp:])))
		rp += 4

		if msgSize == -1 {
			dst.Values[i] = nil
			continue
		}

		if len(src[rp:]) < msgSize {
			return &invalidMessageFormatErr{messageType: "DataRow"}
		}
		dst.Values[i] = src[rp : rp+msgSize]
		rp += msgSize
	}

	return nil
}

func (src *DataRow) Encode(dst []byte) []byte {
	dst = append(dst, 'D')
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)

	dst = pgio.AppendUint16(dst, uint16(len(src.Values)))
	for _, v := range src.Values {
		if v == nil {
			dst = pgio.AppendInt32(dst, -1)
			continue
		}
		dst = pgio.AppendInt32(dst, int32(len(v)))
		dst = append(dst, v...)
	}

	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}
