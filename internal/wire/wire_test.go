package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterOmitsZeroValues(t *testing.T) {
	w := NewWriter()
	w.String(1, "").Varint(2, 0).Int(3, 0).Bytes_(4, nil)
	assert.Empty(t, w.Bytes())
}

func TestWriterStringVarintRoundTrip(t *testing.T) {
	w := NewWriter()
	w.String(1, "hello").Varint(2, 7).Int(3, 1000)
	b := w.Bytes()

	fields, err := ParseFields(b)
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, "hello", fields[0].String())
	assert.Equal(t, uint64(7), fields[1].Varint)
	assert.Equal(t, uint64(1000), fields[2].Varint)
}

func TestWriterMessageField(t *testing.T) {
	inner := NewWriter()
	inner.String(1, "k").String(2, "v")

	outer := NewWriter()
	outer.Message(4, inner.Bytes())

	fields, err := ParseFields(outer.Bytes())
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.EqualValues(t, 4, fields[0].Num)

	innerFields, err := ParseFields(fields[0].Value)
	require.NoError(t, err)
	require.Len(t, innerFields, 2)
	assert.Equal(t, "k", innerFields[0].String())
	assert.Equal(t, "v", innerFields[1].String())
}

func TestParseFieldsReturnsUnknownFieldsForwardCompat(t *testing.T) {
	w := NewWriter()
	w.String(1, "keep").Varint(99, 5).String(2, "also-keep")
	fields, err := ParseFields(w.Bytes())
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "keep", fields[0].String())
	assert.EqualValues(t, 99, fields[1].Num)
	assert.Equal(t, "also-keep", fields[2].String())
}

func TestParseFieldsEmptyInput(t *testing.T) {
	fields, err := ParseFields(nil)
	require.NoError(t, err)
	assert.Empty(t, fields)
}
