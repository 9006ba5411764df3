package pgproto3

import (
	"encoding/binary"

	"github.com/riverstone/pgwire/internal/pgio"
)

// CopyData carries one chunk of a COPY IN or COPY OUT byte stream.
type CopyData struct {
	Data []byte
}

func (*CopyData) Backend()  {}
func (*CopyData) Frontend() {}

func (dst *CopyData) Decode(src []byte) error {
	dst.Data = src
	return nil
}

func (src *CopyData) Encode(dst []byte) []byte {
	dst = append(dst, 'd')
	dst = pgio.AppendInt32(dst, int32(4+len(src.Data)))
	dst = append(dst, src.Data...)
	return dst
}

// CopyFail aborts an in-progress COPY IN, carrying a message the
// server will wrap in the resulting ErrorResponse.
type CopyFail struct {
	Message string
}

func (*CopyFail) Frontend() {}

func (dst *CopyFail) Decode(src []byte) error {
	if len(src) > 0 && src[len(src)-1] == 0 {
		src = src[:len(src)-1]
	}
	dst.Message = string(src)
	return nil
}

func (src *CopyFail) Encode(dst []byte) []byte {
	dst = append(dst, 'f')
	dst = pgio.AppendInt32(dst, int32(len(src.Message)+5))
	dst = append(dst, src.Message...)
	dst = append(dst, 0)
	return dst
}

func decodeCopyResponse(src []byte, messageType string) (overallFormat byte, columnFormatCodes []uint16, err error) {
	if len(src) < 3 {
		return 0, nil, &invalidMessageFormatErr{messageType: messageType}
	}
	overallFormat = src[0]
	columnCount := int(binary.BigEndian.Uint16(src[1:3]))
	rp := 3
	if len(src[rp:]) != columnCount*2 {
		return 0, nil, &invalidMessageFormatErr{messageType: messageType}
	}
	columnFormatCodes = make([]uint16, columnCount)
	for i := 0; i < columnCount; i++ {
		columnFormatCodes[i] = binary.BigEndian.Uint16(src[rp:])
		rp += 2
	}
	return overallFormat, columnFormatCodes, nil
}

func encodeCopyResponse(dst []byte, typeByte byte, overallFormat byte, columnFormatCodes []uint16) []byte {
	dst = append(dst, typeByte)
	dst = pgio.AppendInt32(dst, int32(4+1+2+2*len(columnFormatCodes)))
	dst = append(dst, overallFormat)
	dst = pgio.AppendUint16(dst, uint16(len(columnFormatCodes)))
	for _, fc := range columnFormatCodes {
		dst = pgio.AppendUint16(dst, fc)
	}
	return dst
}

// CopyInResponse tells the client the server is ready to receive a
// COPY IN byte stream.
type CopyInResponse struct {
	OverallFormat     byte
	ColumnFormatCodes []uint16
}

func (*CopyInResponse) Backend() {}

func (dst *CopyInResponse) Decode(src []byte) error {
	format, codes, err := decodeCopyResponse(src, "CopyInResponse")
	if err != nil {
		return err
	}
	dst.OverallFormat = format
	dst.ColumnFormatCodes = codes
	return nil
}

func (src *CopyInResponse) Encode(dst []byte) []byte {
	return encodeCopyResponse(dst, 'G', src.OverallFormat, src.ColumnFormatCodes)
}

// CopyOutResponse tells the client the server is about to send a
// COPY OUT byte stream.
type CopyOutResponse struct {
	OverallFormat     byte
	ColumnFormatCodes []uint16
}

func (*CopyOutResponse) Backend() {}

func (dst *CopyOutResponse) Decode(src []byte) error {
	format, codes, err := decodeCopyResponse(src, "CopyOutResponse")
	if err != nil {
		return err
	}
	dst.OverallFormat = format
	dst.ColumnFormatCodes = codes
	return nil
}

func (src *CopyOutResponse) Encode(dst []byte) []byte {
	return encodeCopyResponse(dst, 'H', src.OverallFormat, src.ColumnFormatCodes)
}
