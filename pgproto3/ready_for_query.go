package pgproto3

import "github.com/riverstone/pgwire/internal/pgio"

// ReadyForQuery marks the server's return to idle. TxStatus is 'I'
// (idle), 'T' (in transaction), or 'E' (failed transaction).
type ReadyForQuery struct {
	TxStatus byte
}

func (*ReadyForQuery) Backend() {}

func (dst *ReadyForQuery) Decode(src []byte) error {
	if len(src) != 1 {
		return &invalidMessageLenErr{messageType: "ReadyForQuery", expectedLen: 1, actualLen: len(src)}
	}
	dst.TxStatus = src[0]
	return nil
}

func (src *ReadyForQuery) Encode(dst []byte) []byte {
	dst = append(dst, 'Z')
	dst = pgio.AppendInt32(dst, 5)
	dst = append(dst, src.TxStatus)
	return dst
}
