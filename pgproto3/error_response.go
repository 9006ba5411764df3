package pgproto3

import (
	"bytes"
	"strconv"

	"github.com/riverstone/pgwire/internal/pgio"
)

// ErrorResponse and NoticeResponse carry the same set of fields (see
// https://www.postgresql.org/docs/current/protocol-error-fields.html);
// an ErrorResponse always ends the current query, a NoticeResponse
// never does.
type ErrorResponse struct {
	Severity         string
	SeverityUnlocalized string
	Code             string
	Message          string
	Detail           string
	Hint             string
	Position         int32
	InternalPosition int32
	InternalQuery    string
	Where            string
	SchemaName       string
	TableName        string
	ColumnName       string
	DataTypeName     string
	ConstraintName   string
	File             string
	Line             int32
	Routine          string

	UnknownFields map[byte]string
}

func (*ErrorResponse) Backend() {}

func (dst *ErrorResponse) Decode(src []byte) error {
	*dst = ErrorResponse{}

	buf := bytes.NewBuffer(src)
	for {
		fieldType, err := buf.ReadByte()
		if err != nil {
			return &invalidMessageFormatErr{messageType: "ErrorResponse"}
		}
		if fieldType == 0 {
			break
		}

		valueBytes, err := buf.ReadBytes(0)
		if err != nil {
			return &invalidMessageFormatErr{messageType: "ErrorResponse"}
		}
		value := string(valueBytes[:len(valueBytes)-1])

		switch fieldType {
		case 'V':
			dst.SeverityUnlocalized = value
		case 'S':
			dst.Severity = value
		case 'C':
			dst.Code = value
		case 'M':
			dst.Message = value
		case 'D':
			dst.Detail = value
		case 'H':
			dst.Hint = value
		case 'P':
			position, _ := strconv.ParseInt(value, 10, 32)
			dst.Position = int32(position)
		case 'p':
			position, _ := strconv.ParseInt(value, 10, 32)
			dst.InternalPosition = int32(position)
		case 'q':
			dst.InternalQuery = value
		case 'W':
			dst.Where = value
		case 's':
			dst.SchemaName = value
		case 't':
			dst.TableName = value
		case 'c':
			dst.ColumnName = value
		case 'd':
			dst.DataTypeName = value
		case 'n':
			dst.ConstraintName = value
		case 'F':
			dst.File = value
		case 'L':
			line, _ := strconv.ParseInt(value, 10, 32)
			dst.Line = int32(line)
		case 'R':
			dst.Routine = value
		default:
			if dst.UnknownFields == nil {
				dst.UnknownFields = make(map[byte]string)
			}
			dst.UnknownFields[fieldType] = value
		}
	}

	return nil
}

func (src *ErrorResponse) marshalFields(dst []byte) []byte {
	if src.SeverityUnlocalized != "" {
		dst = append(dst, 'V')
		dst = append(dst, src.SeverityUnlocalized...)
		dst = append(dst, 0)
	}
	if src.Severity != "" {
		dst = append(dst, 'S')
		dst = append(dst, src.Severity...)
		dst = append(dst, 0)
	}
	if src.Code != "" {
		dst = append(dst, 'C')
		dst = append(dst, src.Code...)
		dst = append(dst, 0)
	}
	if src.Message != "" {
		dst = append(dst, 'M')
		dst = append(dst, src.Message...)
		dst = append(dst, 0)
	}
	if src.Detail != "" {
		dst = append(dst, 'D')
		dst = append(dst, src.Detail...)
		dst = append(dst, 0)
	}
	if src.Hint != "" {
		dst = append(dst, 'H')
		dst = append(dst, src.Hint...)
		dst = append(dst, 0)
	}
	if src.Position != 0 {
		dst = append(dst, 'P')
		dst = append(dst, strconv.Itoa(int(src.Position))...)
		dst = append(dst, 0)
	}
	if src.InternalPosition != 0 {
		dst = append(dst, 'p')
		dst = append(dst, strconv.Itoa(int(src.InternalPosition))...)
		dst = append(dst, 0)
	}
	if src.InternalQuery != "" {
		dst = append(dst, 'q')
		dst = append(dst, src.InternalQuery...)
		dst = append(dst, 0)
	}
	if src.Where != "" {
		dst = append(dst, 'W')
		dst = append(dst, src.Where...)
		dst = append(dst, 0)
	}
	if src.SchemaName != "" {
		dst = append(dst, 's')
		dst = append(dst, src.SchemaName...)
		dst = append(dst, 0)
	}
	if src.TableName != "" {
		dst = append(dst, 't')
		dst = append(dst, src.TableName...)
		dst = append(dst, 0)
	}
	if src.ColumnName != "" {
		dst = append(dst, 'c')
		dst = append(dst, src.ColumnName...)
		dst = append(dst, 0)
	}
	if src.DataTypeName != "" {
		dst = append(dst, 'd')
		dst = append(dst, src.DataTypeName...)
		dst = append(dst, 0)
	}
	if src.ConstraintName != "" {
		dst = append(dst, 'n')
		dst = append(dst, src.ConstraintName...)
		dst = append(dst, 0)
	}
	if src.File != "" {
		dst = append(dst, 'F')
		dst = append(dst, src.File...)
		dst = append(dst, 0)
	}
	if src.Line != 0 {
		dst = append(dst, 'L')
		dst = append(dst, strconv.Itoa(int(src.Line))...)
		dst = append(dst, 0)
	}
	if src.Routine != "" {
		dst = append(dst, 'R')
		dst = append(dst, src.Routine...)
		dst = append(dst, 0)
	}
	for k, v := range src.UnknownFields {
		dst = append(dst, k)
		dst = append(dst, v...)
		dst = append(dst, 0)
	}
	return append(dst, 0)
}

func (src *ErrorResponse) encode(dst []byte, typeByte byte) []byte {
	dst = append(dst, typeByte)
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)
	dst = src.marshalFields(dst)
	pgio.SetInt32(dst[sp:], int32(len(dst)-sp))
	return dst
}

func (src *ErrorResponse) Encode(dst []byte) []byte {
	return src.encode(dst, 'E')
}

// NoticeResponse is structurally identical to ErrorResponse but never
// terminates the current operation.
type NoticeResponse ErrorResponse

func (*NoticeResponse) Backend() {}

func (dst *NoticeResponse) Decode(src []byte) error {
	return (*ErrorResponse)(dst).Decode(src)
}

func (src *NoticeResponse) Encode(dst []byte) []byte {
	return (*ErrorResponse)(src).encode(dst, 'N')
}
