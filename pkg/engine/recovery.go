package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/metrics"
	"github.com/sanonone/kektorsnb/pkg/persistence"
	"github.com/sanonone/kektorsnb/pkg/snapshot"
)

// loadSnapshot restores the last Badger snapshot into the empty graph.
func (e *Engine) loadSnapshot() error {
	e.Graph.Lock()
	defer e.Graph.Unlock()

	meta, err := e.snaps.Load(e.Graph.PutVertex, e.Graph.PutEdge)
	if err != nil {
		return err
	}
	atomic.StoreInt64(&e.seq, meta.LastSeq)
	if !meta.SavedAt.IsZero() {
		e.lastSaveTime = meta.SavedAt
		slog.Info("Snapshot loaded",
			"vertices", meta.Vertices,
			"edges", meta.Edges,
			"last_seq", meta.LastSeq,
			"saved_at", meta.SavedAt,
		)
	}
	return nil
}

// replayAOF applies every logged transaction newer than the snapshot. A
// damaged tail is cut off so that new frames are appended after the last
// good one.
func (e *Engine) replayAOF() error {
	file, err := os.Open(e.aofPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	e.Graph.Lock()
	defer e.Graph.Unlock()

	var applied, skipped int
	stats, err := persistence.Replay(file, func(f persistence.Frame) error {
		if f.OpCode != persistence.OpCodeTx {
			return fmt.Errorf("unknown op code 0x%02x", f.OpCode)
		}
		var rec txRecord
		if err := json.Unmarshal(f.Payload, &rec); err != nil {
			return fmt.Errorf("decode transaction: %w", err)
		}
		if rec.Seq <= atomic.LoadInt64(&e.seq) {
			skipped++
			return nil
		}
		if err := applyRecord(e.Graph, rec); err != nil {
			return fmt.Errorf("transaction %d: %w", rec.Seq, err)
		}
		atomic.StoreInt64(&e.seq, rec.Seq)
		atomic.AddInt64(&e.dirtyCounter, int64(len(rec.Vertices)+len(rec.Edges)))
		applied++
		return nil
	})
	if err != nil {
		return err
	}

	if stats.Truncated {
		if err := os.Truncate(e.aofPath, stats.Bytes); err != nil {
			return fmt.Errorf("cut damaged AOF tail: %w", err)
		}
	}
	if stats.Frames > 0 {
		slog.Info("AOF replayed",
			"applied", applied,
			"skipped", skipped,
			"truncated", stats.Truncated,
			"seq", atomic.LoadInt64(&e.seq),
		)
	}
	return nil
}

// SaveSnapshot writes the whole graph to the snapshot store and empties the
// transaction log. Writers wait for it; readers don't.
func (e *Engine) SaveSnapshot() (snapshot.Meta, error) {
	if !e.Persistent() {
		return snapshot.Meta{}, ErrInMemory
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	return e.saveSnapshotLocked()
}

func (e *Engine) saveSnapshotLocked() (snapshot.Meta, error) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	start := time.Now()
	e.Graph.RLock()
	meta, err := e.snaps.Save(e.Graph, atomic.LoadInt64(&e.seq))
	e.Graph.RUnlock()
	if err != nil {
		return snapshot.Meta{}, err
	}

	if err := e.aof.Reset(); err != nil {
		return meta, fmt.Errorf("truncate AOF after snapshot: %w", err)
	}
	atomic.StoreInt64(&e.aofBaseSize, 0)

	atomic.StoreInt64(&e.dirtyCounter, 0)
	e.lastSaveTime = time.Now()
	metrics.SnapshotDuration.Observe(time.Since(start).Seconds())

	slog.Info("Snapshot saved",
		"vertices", meta.Vertices,
		"edges", meta.Edges,
		"last_seq", meta.LastSeq,
		"duration", time.Since(start),
	)
	return meta, nil
}

// RewriteAOF compacts the transaction log into a single record holding the
// current graph.
func (e *Engine) RewriteAOF() error {
	if !e.Persistent() {
		return ErrInMemory
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	rec := txRecord{Seq: atomic.LoadInt64(&e.seq), Full: true}
	e.Graph.RLock()
	for _, label := range e.Graph.Labels() {
		e.Graph.ScanVertices(label, func(v *graph.Vertex) bool {
			rec.Vertices = append(rec.Vertices, *v)
			return true
		})
	}
	e.Graph.ScanEdges(func(edge graph.Edge) bool {
		rec.Edges = append(rec.Edges, edge)
		return true
	})
	e.Graph.RUnlock()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode compacted log: %w", err)
	}

	tempAof := filepath.Join(e.opts.DataDir, "rewrite.tmp")
	if err := os.WriteFile(tempAof, persistence.EncodeFrame(persistence.OpCodeTx, payload), 0666); err != nil {
		return err
	}
	defer os.Remove(tempAof)

	if err := e.aof.Replace(tempAof); err != nil {
		return err
	}
	size := e.aof.Size()
	atomic.StoreInt64(&e.aofBaseSize, size)

	slog.Info("AOF rewritten", "vertices", len(rec.Vertices), "edges", len(rec.Edges), "bytes", size)
	return nil
}

// Stats describes the engine state.
type Stats struct {
	Vertices    map[string]int64 `json:"vertices"`
	Edges       map[string]int64 `json:"edges"`
	Seq         int64            `json:"seq"`
	DirtyWrites int64            `json:"dirty_writes"`
	Persistent  bool             `json:"persistent"`
	AOFBytes    int64            `json:"aof_bytes,omitempty"`
	LastSave    time.Time        `json:"last_save,omitzero"`
}

// Stats returns counts by label and persistence state.
func (e *Engine) Stats() Stats {
	gs := e.Graph.Stats()
	s := Stats{
		Vertices:    gs.Vertices,
		Edges:       gs.Edges,
		Seq:         atomic.LoadInt64(&e.seq),
		DirtyWrites: atomic.LoadInt64(&e.dirtyCounter),
		Persistent:  e.Persistent(),
	}
	if s.Persistent {
		s.AOFBytes = e.aof.Size()
		e.adminMu.Lock()
		s.LastSave = e.lastSaveTime
		e.adminMu.Unlock()
	}
	return s
}
