// Package loader bulk loads an LDBC SNB dataset in the
// CsvCompositeMergeForeign layout with long dates.
//
// The dataset root must contain a static/ and a dynamic/ directory. Files are
// '|' delimited with a header row; dates are epoch milliseconds and
// multi-valued fields are ';' separated. Loading runs in four phases (static
// entities, static relationships, dynamic entities, dynamic relationships).
// Files within a phase do not depend on each other and are loaded
// concurrently; every batch of rows is committed in its own write scope.
package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of rows committed per write scope.
const DefaultBatchSize = 50000

// maxLineSize bounds a single CSV line. Message content stays well below it.
const maxLineSize = 4 * 1024 * 1024

// ErrLayout is returned when the dataset root lacks static/ or dynamic/.
var ErrLayout = errors.New("dataset directory must contain static/ and dynamic/ subdirectories")

// Loader writes CSV rows into a graph store.
type Loader struct {
	store     graph.Store
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	counts map[string]int64
}

// New returns a loader committing batchSize rows per write scope. A
// non-positive batchSize uses DefaultBatchSize.
func New(store graph.Store, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		store:     store,
		batchSize: batchSize,
		logger:    slog.Default(),
		counts:    make(map[string]int64),
	}
}

// WithLogger replaces the logger.
func (l *Loader) WithLogger(logger *slog.Logger) *Loader {
	l.logger = logger
	return l
}

// LoadAll loads every known file under root. Missing files are skipped with a
// warning and unparsable lines are skipped with a warning; a batch that fails
// to commit aborts the load.
func (l *Loader) LoadAll(ctx context.Context, root string) error {
	staticDir := filepath.Join(root, "static")
	dynamicDir := filepath.Join(root, "dynamic")
	for _, dir := range []string{staticDir, dynamicDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrLayout, root)
		}
	}

	l.logger.Info("Starting LDBC SNB data load", "root", root, "batch_size", l.batchSize)
	start := time.Now()

	for _, ph := range phases(staticDir, dynamicDir) {
		l.logger.Info("Loading phase", "phase", ph.name, "files", len(ph.files))
		if err := l.runPhase(ctx, ph.files); err != nil {
			return fmt.Errorf("phase %q: %w", ph.name, err)
		}
	}

	l.logger.Info("Data loading completed", "duration", time.Since(start).String())
	return nil
}

// Counts returns the number of vertices and edges loaded, by label. KNOWS
// counts both directions of every friendship.
func (l *Loader) Counts() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int64, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

func (l *Loader) runPhase(ctx context.Context, files []csvFile) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			return l.loadFile(gctx, f)
		})
	}
	return g.Wait()
}

// loadFile streams one file and commits its rows in batches.
func (l *Loader) loadFile(ctx context.Context, f csvFile) error {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("File not found", "file", f.path)
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var (
		batch   []row
		loaded  int64
		skipped int64
		lineNo  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, bad, err := l.commit(ctx, f, batch)
		if err != nil {
			return fmt.Errorf("%s: batch ending at line %d: %w", filepath.Base(f.path), lineNo, err)
		}
		loaded += n
		skipped += bad
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < f.minFields {
			l.logger.Warn("Skipping short line", "file", filepath.Base(f.path), "line", lineNo, "fields", len(fields))
			skipped++
			continue
		}
		batch = append(batch, row{line: lineNo, fields: fields})
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", f.path, err)
	}
	if err := flush(); err != nil {
		return err
	}

	l.mu.Lock()
	l.counts[f.label] += loaded
	l.mu.Unlock()

	l.logger.Info("Loaded file", "file", filepath.Base(f.path), "label", f.label, "count", loaded, "skipped", skipped)
	return nil
}

// commit writes one batch in a single write scope and returns the number of
// graph elements added and of rows skipped because they failed to parse.
func (l *Loader) commit(ctx context.Context, f csvFile, batch []row) (n, bad int64, err error) {
	err = l.store.Update(ctx, func(w graph.Writer) error {
		n, bad = 0, 0
		for i := range batch {
			r := &batch[i]
			added, err := f.write(w, r)
			if r.err != nil {
				l.logger.Warn("Skipping unparsable line", "file", filepath.Base(f.path), "line", r.line, "error", r.err)
				bad++
				continue
			}
			if err != nil {
				return fmt.Errorf("line %d: %w", r.line, err)
			}
			n += int64(added)
		}
		return nil
	})
	return n, bad, err
}

// row is one split CSV line. Its accessors record the first parse error.
type row struct {
	line   int
	fields []string
	err    error
}

func (r *row) str(i int) string {
	return r.fields[i]
}

func (r *row) id(i int) int64 {
	if r.err != nil {
		return 0
	}
	n, err := strconv.ParseInt(r.fields[i], 10, 64)
	if err != nil {
		r.err = fmt.Errorf("field %d: %q is not an integer", i, r.fields[i])
	}
	return n
}

func (r *row) integer(i int) int {
	return int(r.id(i))
}

func (r *row) date(i int) time.Time {
	return time.UnixMilli(r.id(i)).UTC()
}

func (r *row) list(i int) []string {
	if r.fields[i] == "" {
		return []string{}
	}
	return strings.Split(r.fields[i], ";")
}
