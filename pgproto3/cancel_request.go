package pgproto3

import (
	"errors"

	"github.com/riverstone/pgwire/internal/pgio"
)

const cancelRequestCode = 80877102

// CancelRequest is sent, alone, on a fresh socket to ask the server to
// interrupt a query running on the connection identified by
// ProcessID/SecretKey. It is never sent on the connection it cancels.
type CancelRequest struct {
	ProcessID uint32
	SecretKey uint32
}

func (*CancelRequest) Frontend() {}

func (dst *CancelRequest) Decode(src []byte) error {
	if len(src) != 12 {
		return errors.New("cancel request must be 12 bytes")
	}
	dst.ProcessID = uint32(src[4])<<24 | uint32(src[5])<<16 | uint32(src[6])<<8 | uint32(src[7])
	dst.SecretKey = uint32(src[8])<<24 | uint32(src[9])<<16 | uint32(src[10])<<8 | uint32(src[11])
	return nil
}

func (src *CancelRequest) Encode(dst []byte) []byte {
	dst = pgio.AppendInt32(dst, 16)
	dst = pgio.AppendInt32(dst, cancelRequestCode)
	dst = pgio.AppendUint32(dst, src.ProcessID)
	dst = pgio.AppendUint32(dst, src.SecretKey)
	return dst
}
