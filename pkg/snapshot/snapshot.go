// Package snapshot checkpoints the whole graph into BadgerDB.
//
// A snapshot replaces the previous one entirely. Vertices live under
// "v/<label>/<id>", edges under "e/<seq>" so that Load can restore every
// vertex before the first edge and keep adjacency insertion order.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sanonone/kektorsnb/pkg/core"
	"github.com/sanonone/kektorsnb/pkg/graph"
)

var (
	vertexPrefix = []byte("v/")
	edgePrefix   = []byte("e/")
	metaKey      = []byte("m/meta")
)

// Config holds configuration for the snapshot database.
type Config struct {
	// Path is the Badger directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps the database in RAM. Used in tests.
	InMemory bool
	// SyncWrites makes each batch durable before Save returns.
	SyncWrites bool
	// Logger receives Badger's own log output. Nil silences it.
	Logger *slog.Logger
	// GCDiscardRatio is passed to value log GC after each Save. Zero disables it.
	GCDiscardRatio float64
}

// DefaultConfig returns production settings for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		Logger:         slog.Default(),
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Meta describes the last saved snapshot. LastSeq is the sequence number of
// the last transaction it contains; log records at or below it are already
// applied.
type Meta struct {
	SavedAt  time.Time `json:"saved_at"`
	LastSeq  int64     `json:"last_seq"`
	Vertices int64     `json:"vertices"`
	Edges    int64     `json:"edges"`
}

// Store is a Badger-backed snapshot store.
type Store struct {
	db  *badger.DB
	cfg Config
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

// Open opens or creates the snapshot database.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("snapshot path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create snapshot directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with the current contents of g, which
// reflects every transaction up to lastSeq. The caller must hold at least a
// read lock on g.
func (s *Store) Save(g *core.Graph, lastSeq int64) (Meta, error) {
	if err := s.db.DropAll(); err != nil {
		return Meta{}, fmt.Errorf("drop previous snapshot: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	var (
		meta    = Meta{LastSeq: lastSeq}
		saveErr error
	)
	for _, label := range g.Labels() {
		g.ScanVertices(label, func(v *graph.Vertex) bool {
			data, err := json.Marshal(v)
			if err != nil {
				saveErr = fmt.Errorf("encode vertex %s: %w", v.Key(), err)
				return false
			}
			if err := wb.Set(vertexKey(v.Key()), data); err != nil {
				saveErr = fmt.Errorf("write vertex %s: %w", v.Key(), err)
				return false
			}
			meta.Vertices++
			return true
		})
		if saveErr != nil {
			return Meta{}, saveErr
		}
	}

	g.ScanEdges(func(e graph.Edge) bool {
		data, err := json.Marshal(e)
		if err != nil {
			saveErr = fmt.Errorf("encode edge %s -[%s]-> %s: %w", e.From, e.Label, e.To, err)
			return false
		}
		if err := wb.Set(edgeKey(meta.Edges), data); err != nil {
			saveErr = fmt.Errorf("write edge: %w", err)
			return false
		}
		meta.Edges++
		return true
	})
	if saveErr != nil {
		return Meta{}, saveErr
	}

	meta.SavedAt = time.Now().UTC()
	metaData, err := json.Marshal(meta)
	if err != nil {
		return Meta{}, err
	}
	if err := wb.Set(metaKey, metaData); err != nil {
		return Meta{}, fmt.Errorf("write snapshot meta: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return Meta{}, fmt.Errorf("flush snapshot: %w", err)
	}

	if s.cfg.GCDiscardRatio > 0 && !s.cfg.InMemory {
		if err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			slog.Warn("Snapshot value log GC failed", "error", err)
		}
	}
	return meta, nil
}

// Load streams the stored snapshot: every vertex first, then every edge in
// the order it was saved. It returns the snapshot meta, or a zero Meta when
// nothing was ever saved.
func (s *Store) Load(onVertex func(graph.Vertex) error, onEdge func(graph.Edge) error) (Meta, error) {
	var meta Meta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return fmt.Errorf("decode snapshot meta: %w", err)
		}

		if err := scan(txn, vertexPrefix, func(val []byte) error {
			var v graph.Vertex
			if err := json.Unmarshal(val, &v); err != nil {
				return fmt.Errorf("decode vertex: %w", err)
			}
			return onVertex(v)
		}); err != nil {
			return err
		}
		return scan(txn, edgePrefix, func(val []byte) error {
			var e graph.Edge
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("decode edge: %w", err)
			}
			return onEdge(e)
		})
	})
	return meta, err
}

func scan(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

func vertexKey(k graph.Key) []byte {
	return []byte(fmt.Sprintf("v/%s/%d", k.Label, k.ID))
}

func edgeKey(seq int64) []byte {
	key := make([]byte, len(edgePrefix)+8)
	copy(key, edgePrefix)
	binary.BigEndian.PutUint64(key[len(edgePrefix):], uint64(seq))
	return key
}
