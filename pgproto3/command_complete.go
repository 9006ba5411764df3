package pgproto3

import (
	"bytes"

	"github.com/riverstone/pgwire/internal/pgio"
)

// CommandComplete ends a statement's result with its command tag
// ("SELECT 1", "UPDATE 3", ...).
type CommandComplete struct {
	CommandTag []byte
}

func (*CommandComplete) Backend() {}

func (dst *CommandComplete) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx != len(src)-1 {
		return &invalidMessageFormatErr{messageType: "CommandComplete"}
	}
	dst.CommandTag = src[:idx]
	return nil
}

func (src *CommandComplete) Encode(dst []byte) []byte {
	dst = append(dst, 'C')
	dst = pgio.AppendInt32(dst, int32(len(src.CommandTag)+5))
	dst = append(dst, src.CommandTag...)
	dst = append(dst, 0)
	return dst
}
