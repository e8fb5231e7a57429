package persistence

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	require.NoError(t, fw.WriteFrame(OpCodeTx, []byte(`{"a":1}`)))
	require.NoError(t, fw.WriteFrame(OpCodeTx, nil))

	f, n, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, byte(OpCodeTx), f.OpCode)
	assert.Equal(t, `{"a":1}`, string(f.Payload))
	assert.Equal(t, HeaderSize+7, n)

	f, _, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, byte(OpCodeTx), f.OpCode)
	assert.Empty(t, f.Payload)

	_, _, err = ReadFrame(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadFrameDetectsCorruption(t *testing.T) {
	raw := EncodeFrame(OpCodeTx, []byte("payload"))

	t.Run("checksum", func(t *testing.T) {
		bad := bytes.Clone(raw)
		bad[len(bad)-1] ^= 0xFF
		_, _, err := ReadFrame(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(raw)
		bad[0] = 0x00
		_, _, err := ReadFrame(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("torn payload", func(t *testing.T) {
		_, _, err := ReadFrame(bytes.NewReader(raw[:len(raw)-3]))
		assert.ErrorIs(t, err, ErrIncompleteFrame)
	})

	t.Run("torn header", func(t *testing.T) {
		_, _, err := ReadFrame(bytes.NewReader(raw[:4]))
		assert.ErrorIs(t, err, ErrIncompleteFrame)
	})
}

func TestReplayStopsAtTornTail(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeFrame(OpCodeTx, []byte("one")))
	buf.Write(EncodeFrame(OpCodeTx, []byte("two")))
	tail := EncodeFrame(OpCodeTx, []byte("three"))
	buf.Write(tail[:len(tail)-2])

	var got []string
	stats, err := Replay(&buf, func(f Frame) error {
		got = append(got, string(f.Payload))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
	assert.Equal(t, 2, stats.Frames)
	assert.True(t, stats.Truncated)
}
