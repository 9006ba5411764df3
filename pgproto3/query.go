package pgproto3

import (
	"bytes"

	"github.com/riverstone/pgwire/internal/pgio"
)

// Query dispatches sql via the simple query protocol. sql may contain
// more than one statement separated by semicolons.
type Query struct {
	String string
}

func (*Query) Frontend() {}

func (dst *Query) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx != len(src)-1 {
		return &invalidMessageFormatErr{messageType: "Query"}
	}
	dst.String = string(src[:idx])
	return nil
}

func (src *Query) Encode(dst []byte) []byte {
	dst = append(dst, 'Q')
	dst = pgio.AppendInt32(dst, int32(len(src.String)+5))
	dst = append(dst, src.String...)
	dst = append(dst, 0)
	return dst
}
