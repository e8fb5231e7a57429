// Package engine provides the embedded, persistent property graph store that
// the query library runs against.
//
// It orchestrates the in-memory graph (core) with an append-only transaction
// log (persistence) and periodic BadgerDB snapshots (snapshot), and
// implements graph.Store: View scopes share a read lock, Update scopes
// buffer their writes and commit them atomically.
//
// Basic usage:
//
//	opts := engine.DefaultOptions("./data")
//	db, err := engine.Open(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sanonone/kektorsnb/pkg/core"
	"github.com/sanonone/kektorsnb/pkg/metrics"
	"github.com/sanonone/kektorsnb/pkg/persistence"
	"github.com/sanonone/kektorsnb/pkg/snapshot"
)

var (
	// ErrClosed is returned by scopes opened after Close.
	ErrClosed = errors.New("engine is closed")
	// ErrInMemory is returned by persistence operations on an engine opened
	// without a data directory.
	ErrInMemory = errors.New("engine has no data directory")
)

// Options configures persistence paths and automatic maintenance.
type Options struct {
	// DataDir holds the transaction log and the snapshot database. It is
	// created if missing. An empty DataDir opens a purely in-memory engine.
	DataDir string

	// AofFilename is the transaction log name inside DataDir.
	AofFilename string

	// SnapshotDir is the Badger directory name inside DataDir.
	SnapshotDir string

	// SyncEveryCommit fsyncs the log before Update returns. When false the
	// log is flushed in batches and synced once per second.
	SyncEveryCommit bool

	// AutoSaveInterval is the minimum time between automatic snapshots.
	// Zero disables automatic snapshots.
	AutoSaveInterval time.Duration

	// AutoSaveThreshold is the minimum number of written vertices and edges
	// since the last snapshot before an automatic one is taken.
	AutoSaveThreshold int64

	// AofRewritePercentage compacts the log once it grows by this percentage
	// over its size after the last compaction. Zero disables it.
	AofRewritePercentage int

	// MaintenanceInterval is how often the background checks run.
	MaintenanceInterval time.Duration
}

// DefaultOptions returns the standard configuration for dataDir.
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:              dataDir,
		AofFilename:          "kektorsnb.aof",
		SnapshotDir:          "snapshot",
		AutoSaveInterval:     60 * time.Second,
		AutoSaveThreshold:    100000,
		AofRewritePercentage: 100,
		MaintenanceInterval:  1 * time.Second,
	}
}

// InMemoryOptions returns options for an engine without persistence.
func InMemoryOptions() Options {
	return Options{}
}

// Engine is the persistent graph store.
type Engine struct {
	// Graph is the in-memory graph. Reading it directly requires holding
	// its read lock; writes must go through Update to be logged.
	Graph *core.Graph

	aof   *persistence.TxLog
	snaps *snapshot.Store

	opts    Options
	aofPath string
	// aofBaseSize is the log size after the last rewrite or snapshot.
	// Read and written atomically.
	aofBaseSize int64

	// seq is the sequence number of the last committed transaction.
	// Written under commitMu, read atomically.
	seq int64

	dirtyCounter int64
	lastSaveTime time.Time

	// commitMu serialises write scopes; adminMu serialises snapshot and
	// log compaction.
	commitMu sync.Mutex
	adminMu  sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open initialises an engine.
//
// With a DataDir it loads the latest snapshot, replays the transaction log
// on top of it, truncates any torn tail and starts the background
// maintenance loop. It blocks until the graph is fully loaded.
func Open(opts Options) (*Engine, error) {
	e := &Engine{
		Graph:        core.NewGraph(),
		opts:         opts,
		lastSaveTime: time.Now(),
		closed:       make(chan struct{}),
	}
	if opts.DataDir == "" {
		return e, nil
	}

	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if opts.AofFilename == "" {
		opts.AofFilename = "kektorsnb.aof"
	}
	if opts.SnapshotDir == "" {
		opts.SnapshotDir = "snapshot"
	}
	e.opts = opts
	e.aofPath = filepath.Join(opts.DataDir, opts.AofFilename)

	snaps, err := snapshot.Open(snapshot.DefaultConfig(filepath.Join(opts.DataDir, opts.SnapshotDir)))
	if err != nil {
		return nil, err
	}
	e.snaps = snaps

	if err := e.loadSnapshot(); err != nil {
		snaps.Close()
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := e.replayAOF(); err != nil {
		snaps.Close()
		return nil, fmt.Errorf("failed to replay AOF: %w", err)
	}

	logOpts := persistence.DefaultLogOptions()
	if opts.SyncEveryCommit {
		logOpts.Mode = persistence.SyncAlways
	}
	txlog, err := persistence.OpenTxLog(e.aofPath, logOpts)
	if err != nil {
		snaps.Close()
		return nil, err
	}
	e.aof = txlog
	atomic.StoreInt64(&e.aofBaseSize, e.aof.Size())

	e.publishGauges()

	e.wg.Add(1)
	go e.backgroundTasks()

	slog.Info("Engine opened",
		"data_dir", opts.DataDir,
		"seq", atomic.LoadInt64(&e.seq),
		"sync_every_commit", opts.SyncEveryCommit,
	)
	return e, nil
}

// Persistent reports whether the engine has a data directory.
func (e *Engine) Persistent() bool {
	return e.aof != nil
}

// Close stops background maintenance and closes the log and snapshot store.
// It does not take a final snapshot: every committed transaction is already
// in the log.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.closed)
		e.wg.Wait()

		// Wait for an in-flight commit.
		e.commitMu.Lock()
		defer e.commitMu.Unlock()

		if e.aof != nil {
			err = e.aof.Close()
		}
		if e.snaps != nil {
			if cerr := e.snaps.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

func (e *Engine) isClosed() bool {
	select {
	case <-e.closed:
		return true
	default:
		return false
	}
}

func (e *Engine) backgroundTasks() {
	defer e.wg.Done()

	interval := e.opts.MaintenanceInterval
	if interval <= 0 {
		interval = 1 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.closed:
			return
		case <-ticker.C:
			e.checkMaintenance()
		}
	}
}

// checkMaintenance takes a snapshot or compacts the log when the configured
// thresholds are met.
func (e *Engine) checkMaintenance() {
	dirty := atomic.LoadInt64(&e.dirtyCounter)

	if e.opts.AutoSaveThreshold > 0 && e.opts.AutoSaveInterval > 0 {
		e.adminMu.Lock()
		due := dirty >= e.opts.AutoSaveThreshold && time.Since(e.lastSaveTime) >= e.opts.AutoSaveInterval
		e.adminMu.Unlock()
		if due {
			if _, err := e.SaveSnapshot(); err != nil {
				slog.Error("Background snapshot failed", "error", err)
			}
		}
	}

	if err := e.aof.Flush(); err != nil {
		slog.Error("Background AOF flush failed", "error", err)
	}

	if e.opts.AofRewritePercentage > 0 {
		currentSize := e.aof.Size()
		base := atomic.LoadInt64(&e.aofBaseSize)
		threshold := base + (base * int64(e.opts.AofRewritePercentage) / 100)
		// Don't compact tiny logs over and over.
		if threshold < 1024*1024 {
			threshold = 1024 * 1024
		}
		if base > 0 && currentSize > threshold {
			if err := e.RewriteAOF(); err != nil {
				slog.Error("Background AOF rewrite failed", "error", err)
			}
		}
	}

	e.publishGauges()
}

func (e *Engine) publishGauges() {
	s := e.Graph.Stats()
	for label, n := range s.Vertices {
		metrics.GraphVertices.WithLabelValues(label).Set(float64(n))
	}
	for label, n := range s.Edges {
		metrics.GraphEdges.WithLabelValues(label).Set(float64(n))
	}
}
