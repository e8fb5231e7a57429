package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLog(t *testing.T, path string) ([]string, ReplayStats) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []string
	stats, err := Replay(f, func(fr Frame) error {
		got = append(got, string(fr.Payload))
		return nil
	})
	require.NoError(t, err)
	return got, stats
}

func TestTxLogBatchedWritesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.aof")
	opts := DefaultLogOptions()
	opts.FlushInterval = time.Hour
	opts.SyncInterval = time.Hour

	l, err := OpenTxLog(path, opts)
	require.NoError(t, err)
	require.NoError(t, l.Append(OpCodeTx, []byte("first")))
	require.NoError(t, l.Append(OpCodeTx, []byte("second")))
	assert.Equal(t, int64(2*HeaderSize+11), l.Size())

	// Nothing is flushed before the first tick.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Append(OpCodeTx, []byte("late")), ErrLogClosed)
	assert.ErrorIs(t, l.Close(), ErrLogClosed)

	got, stats := readLog(t, path)
	assert.False(t, stats.Truncated)
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestTxLogBackgroundFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.aof")
	opts := DefaultLogOptions()
	opts.FlushInterval = 5 * time.Millisecond

	l, err := OpenTxLog(path, opts)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(OpCodeTx, []byte("tick")))
	require.Eventually(t, func() bool {
		info, err := os.Stat(path)
		return err == nil && info.Size() == int64(HeaderSize+4)
	}, time.Second, 5*time.Millisecond)
}

func TestTxLogSyncAlways(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.aof")
	l, err := OpenTxLog(path, LogOptions{Mode: SyncAlways})
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(OpCodeTx, []byte("durable")))
	got, _ := readLog(t, path)
	assert.Equal(t, []string{"durable"}, got)
}

func TestTxLogResetAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.aof")
	l, err := OpenTxLog(path, LogOptions{Mode: SyncAlways})
	require.NoError(t, err)

	require.NoError(t, l.Append(OpCodeTx, []byte("x")))
	require.NoError(t, l.Reset())
	assert.Zero(t, l.Size())
	require.NoError(t, l.Append(OpCodeTx, []byte("y")))
	require.NoError(t, l.Close())

	reopened, err := OpenTxLog(path, DefaultLogOptions())
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, int64(HeaderSize+1), reopened.Size())

	got, _ := readLog(t, path)
	assert.Equal(t, []string{"y"}, got)
}

func TestTxLogReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.aof")
	l, err := OpenTxLog(path, LogOptions{Mode: SyncAlways})
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(OpCodeTx, []byte("old-1")))
	require.NoError(t, l.Append(OpCodeTx, []byte("old-2")))

	compacted := filepath.Join(dir, "rewrite.tmp")
	require.NoError(t, os.WriteFile(compacted, EncodeFrame(OpCodeTx, []byte("all")), 0o644))
	require.NoError(t, l.Replace(compacted))
	assert.Equal(t, int64(HeaderSize+3), l.Size())
	assert.NoFileExists(t, compacted)

	require.NoError(t, l.Append(OpCodeTx, []byte("new")))
	got, _ := readLog(t, path)
	assert.Equal(t, []string{"all", "new"}, got)
}
