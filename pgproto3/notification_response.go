package pgproto3

import (
	"bytes"
	"encoding/binary"

	"github.com/riverstone/pgwire/internal/pgio"
)

// NotificationResponse delivers a LISTEN/NOTIFY event. It may arrive
// at any time once the session is established, unrelated to whatever
// statement is currently in flight.
type NotificationResponse struct {
	PID     uint32
	Channel string
	Payload string
}

func (*NotificationResponse) Backend() {}

func (dst *NotificationResponse) Decode(src []byte) error {
	if len(src) < 4 {
		return &invalidMessageFormatErr{messageType: "NotificationResponse"}
	}
	dst.PID = binary.BigEndian.Uint32(src[:4])
	rp := 4

	idx := bytes.IndexByte(src[rp:], 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "NotificationResponse"}
	}
	dst.Channel = string(src[rp : rp+idx])
	rp += idx + 1

	idx = bytes.IndexByte(src[rp:], 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "NotificationResponse"}
	}
	dst.Payload = string(src[rp : rp+idx])

	return nil
}

func (src *NotificationResponse) Encode(dst []byte) []byte {
	dst = append(dst, 'A')
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)

	dst = pgio.AppendUint32(dst, src.PID)
	dst = append(dst, src.Channel...)
	dst = append(dst, 0)
	dst = append(dst, src.Payload...)
	dst = append(dst, 0)

	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}
