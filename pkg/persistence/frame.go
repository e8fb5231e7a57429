package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"log/slog"
)

// Frame layout: [Magic(1)][OpCode(1)][Length(4)][CRC32(4)][Payload(N)].
const (
	// MagicByte marks the start of every frame.
	MagicByte = 0xA5

	// HeaderSize is Magic + OpCode + Length + CRC32.
	HeaderSize = 10

	// OpCodeTx is a committed graph transaction.
	OpCodeTx = 0x01
)

var (
	// ErrInvalidMagic indicates the stream lost synchronisation or is not a log.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates a corrupted payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the stream ended inside a frame.
	ErrIncompleteFrame = errors.New("incomplete frame")
)

// Frame is one decoded log record.
type Frame struct {
	OpCode  byte
	Payload []byte
}

// FrameWriter writes frames to an io.Writer.
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter wraps w. Pass a bufio.Writer so header and payload land in
// one syscall.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes and writes one frame in a single Write call.
func (fw *FrameWriter) WriteFrame(op byte, payload []byte) error {
	_, err := fw.w.Write(EncodeFrame(op, payload))
	return err
}

// EncodeFrame returns the wire form of a frame.
func EncodeFrame(op byte, payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	out[0] = MagicByte
	out[1] = op
	binary.LittleEndian.PutUint32(out[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(out[6:10], crc32.ChecksumIEEE(payload))
	copy(out[HeaderSize:], payload)
	return out
}

// ReadFrame reads and validates the next frame. It returns io.EOF only when
// the stream ends exactly on a frame boundary. The int result is the number
// of bytes consumed.
func ReadFrame(r io.Reader) (Frame, int, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return Frame{}, 0, io.EOF
		}
		return Frame{}, 0, ErrIncompleteFrame
	}
	if header[0] != MagicByte {
		return Frame{}, HeaderSize, ErrInvalidMagic
	}

	length := binary.LittleEndian.Uint32(header[2:6])
	expected := binary.LittleEndian.Uint32(header[6:10])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, HeaderSize, ErrIncompleteFrame
	}
	if crc32.ChecksumIEEE(payload) != expected {
		return Frame{}, HeaderSize + int(length), ErrChecksumMismatch
	}
	return Frame{OpCode: header[1], Payload: payload}, HeaderSize + int(length), nil
}

// ReplayStats describes a finished replay.
type ReplayStats struct {
	Frames    int
	Bytes     int64
	Truncated bool
}

// Replay reads frames from r and hands each to fn in order. A torn or
// corrupted tail stops the replay and is reported through Truncated rather
// than as an error, so that a crash mid-append never prevents startup.
// Errors returned by fn abort the replay.
func Replay(r io.Reader, fn func(Frame) error) (ReplayStats, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var stats ReplayStats
	for {
		frame, n, err := ReadFrame(br)
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			slog.Warn("AOF replay stopped at damaged frame",
				"offset", stats.Bytes, "frames", stats.Frames, "error", err)
			stats.Truncated = true
			return stats, nil
		}
		if err := fn(frame); err != nil {
			return stats, err
		}
		stats.Frames++
		stats.Bytes += int64(n)
	}
}
