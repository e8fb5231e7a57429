package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sanonone/kektorsnb/pkg/metrics"
)

// SyncMode selects when appended frames reach stable storage.
type SyncMode int

const (
	// SyncBatched hands frames to the OS every FlushInterval and fsyncs every
	// SyncInterval. A crash loses at most SyncInterval worth of commits.
	SyncBatched SyncMode = iota
	// SyncAlways fsyncs before Append returns.
	SyncAlways
)

// LogOptions configures a TxLog.
type LogOptions struct {
	Mode          SyncMode
	FlushInterval time.Duration
	SyncInterval  time.Duration
	// BufferSize is the size of the in-memory write buffer.
	BufferSize int
}

// DefaultLogOptions returns batched syncing with a 100ms flush and a 1s fsync.
func DefaultLogOptions() LogOptions {
	return LogOptions{
		Mode:          SyncBatched,
		FlushInterval: 100 * time.Millisecond,
		SyncInterval:  time.Second,
		BufferSize:    1 << 20,
	}
}

// ErrLogClosed is returned by Append after Close.
var ErrLogClosed = errors.New("transaction log is closed")

// TxLog is the append-only transaction log. It is safe for concurrent use.
type TxLog struct {
	mu   sync.Mutex
	opts LogOptions
	path string
	file *os.File
	buf  *bufio.Writer

	// size counts appended bytes, buffered ones included.
	size   int64
	dirty  bool
	closed bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// OpenTxLog opens or creates the log at path and appends to its end.
func OpenTxLog(path string, opts LogOptions) (*TxLog, error) {
	def := DefaultLogOptions()
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = def.FlushInterval
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = def.SyncInterval
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = def.BufferSize
	}

	file, size, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	l := &TxLog{
		opts: opts,
		path: path,
		file: file,
		buf:  bufio.NewWriterSize(file, opts.BufferSize),
		size: size,
		stop: make(chan struct{}),
	}
	if opts.Mode == SyncBatched {
		l.wg.Add(1)
		go l.background()
	}
	return l, nil
}

func openLogFile(path string) (*os.File, int64, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, 0, fmt.Errorf("open transaction log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat transaction log: %w", err)
	}
	return file, info.Size(), nil
}

// Append writes one frame. With SyncAlways the frame is on disk when Append
// returns.
func (l *TxLog) Append(op byte, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}
	frame := EncodeFrame(op, payload)
	if _, err := l.buf.Write(frame); err != nil {
		return fmt.Errorf("append to transaction log: %w", err)
	}
	l.size += int64(len(frame))
	l.dirty = true

	if l.opts.Mode == SyncAlways {
		return l.syncLocked()
	}
	return nil
}

// Flush hands buffered frames to the OS without waiting for the disk.
func (l *TxLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	return l.buf.Flush()
}

// Sync flushes and fsyncs.
func (l *TxLog) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	return l.syncLocked()
}

func (l *TxLog) syncLocked() error {
	if err := l.buf.Flush(); err != nil {
		return fmt.Errorf("flush transaction log: %w", err)
	}
	if !l.dirty {
		return nil
	}
	start := time.Now()
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("fsync transaction log: %w", err)
	}
	metrics.LogSyncDuration.Observe(time.Since(start).Seconds())
	l.dirty = false
	return nil
}

// Size returns the log size in bytes, including frames not yet flushed.
func (l *TxLog) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Path returns the file path.
func (l *TxLog) Path() string {
	return l.path
}

// Reset empties the log. Used once a snapshot holds everything it recorded.
func (l *TxLog) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Reset(l.file)
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate transaction log: %w", err)
	}
	if _, err := l.file.Seek(0, 0); err != nil {
		return err
	}
	l.size = 0
	l.dirty = false
	return l.file.Sync()
}

// Replace renames the file at newPath over the log and continues appending
// to it.
func (l *TxLog) Replace(newPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.buf.Flush(); err != nil {
		return fmt.Errorf("flush transaction log: %w", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Warn("Closing replaced transaction log failed", "path", l.path, "error", err)
	}
	if err := os.Rename(newPath, l.path); err != nil {
		return fmt.Errorf("replace transaction log: %w", err)
	}

	file, size, err := openLogFile(l.path)
	if err != nil {
		return err
	}
	l.file = file
	l.buf.Reset(file)
	l.size = size
	l.dirty = false
	return nil
}

// Close stops background syncing, writes out pending frames and closes the
// file.
func (l *TxLog) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLogClosed
	}
	l.closed = true
	l.mu.Unlock()

	close(l.stop)
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.syncLocked(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

func (l *TxLog) background() {
	defer l.wg.Done()

	flushTick := time.NewTicker(l.opts.FlushInterval)
	defer flushTick.Stop()
	syncTick := time.NewTicker(l.opts.SyncInterval)
	defer syncTick.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-flushTick.C:
			if err := l.Flush(); err != nil {
				slog.Error("Periodic transaction log flush failed", "error", err)
			}
		case <-syncTick.C:
			if err := l.Sync(); err != nil {
				slog.Error("Periodic transaction log sync failed", "error", err)
			}
		}
	}
}
