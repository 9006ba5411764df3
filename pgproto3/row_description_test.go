package pgproto3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowDescriptionRoundTrip(t *testing.T) {
	msg := RowDescription{
		Fields: []FieldDescription{
			{
				Name:                  "id",
				TableOID:              16402,
				ColumnAttributeNumber: 1,
				DataTypeOID:           23,
				DataTypeSize:          4,
				TypeModifier:          -1,
				Format:                TextFormat,
			},
			{
				Name:                  "name",
				TableOID:              16402,
				ColumnAttributeNumber: 2,
				DataTypeOID:           25,
				DataTypeSize:          -1,
				TypeModifier:          -1,
				Format:                BinaryFormat,
			},
		},
	}

	buf := msg.Encode(nil)
	assert.Equal(t, byte('T'), buf[0])

	var decoded RowDescription
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Equal(t, msg.Fields, decoded.Fields)
}

func TestRowDescriptionDecodeNoFields(t *testing.T) {
	msg := RowDescription{}
	buf := msg.Encode(nil)

	var decoded RowDescription
	require.NoError(t, decoded.Decode(buf[5:]))
	assert.Len(t, decoded.Fields, 0)
}
