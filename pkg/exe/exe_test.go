package exe

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	want := Executable{
		CodeBytes:   []byte{1, 2, 3, 4, 5, 6, 7, 8},
		StaticBytes: []byte{9, 9, 9},
		EntryPoint:  0,
	}

	var buf bytes.Buffer
	require.NoError(t, want.Write(&buf))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("NOPE0000")))
	assert.Error(t, err)
}

func TestReadRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.WriteByte(99)
	_, err := Read(&buf)
	assert.Error(t, err)
}

func TestImageConcatenatesCodeThenStatic(t *testing.T) {
	e := Executable{CodeBytes: []byte{1, 2}, StaticBytes: []byte{3, 4}}
	assert.Equal(t, []byte{1, 2, 3, 4}, e.Image())
}

func TestWriteReadEmptySections(t *testing.T) {
	want := Executable{}
	var buf bytes.Buffer
	require.NoError(t, want.Write(&buf))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, want.EntryPoint, got.EntryPoint)
	assert.Empty(t, got.CodeBytes)
	assert.Empty(t, got.StaticBytes)
}
