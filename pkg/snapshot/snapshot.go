// Package snapshot exports every table of a store to a compressed stream and
// imports such a stream into an empty store.
//
// Snapshots are XDR records compressed with zstd. They carry the table
// schemas, so an import recreates tables and indices before loading rows.
// Targets decide where the stream lives: a local file or an S3 object.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/internal/ratelimiter"
	"github.com/marmos91/deskfs/pkg/metrics"
	"github.com/marmos91/deskfs/pkg/store"
)

// ErrStoreNotEmpty is returned when importing into a store that already
// holds rows in a table the snapshot carries.
var ErrStoreNotEmpty = errors.New("target store is not empty")

// Result describes a finished export or import.
type Result struct {
	Tables    int
	Rows      int64
	Bytes     int64
	CreatedAt time.Time
	Duration  time.Duration
}

// Snapshotter moves whole stores to and from targets.
type Snapshotter struct {
	store   store.Store
	metrics metrics.SnapshotMetrics
	limiter *ratelimiter.RateLimiter
	now     func() time.Time
}

// New returns a Snapshotter over s. A nil m disables metrics.
func New(s store.Store, m metrics.SnapshotMetrics) *Snapshotter {
	if m == nil {
		m = metrics.NoopSnapshotMetrics()
	}
	return &Snapshotter{store: s, metrics: m, now: time.Now}
}

// WithRateLimit caps the compressed stream at bytesPerSecond. Zero means
// unlimited.
func (s *Snapshotter) WithRateLimit(bytesPerSecond int) *Snapshotter {
	s.limiter = ratelimiter.New(bytesPerSecond, 0)
	return s
}

// Export writes every table of the store to target.
func (s *Snapshotter) Export(ctx context.Context, target Target) (*Result, error) {
	start := s.now()
	result, err := s.export(ctx, target)
	result.Duration = s.now().Sub(start)
	s.metrics.RecordRun("export", target.Kind(), result.Rows, result.Bytes, result.Duration, err)
	if err != nil {
		return nil, err
	}

	logger.Info("Snapshot exported to %s: tables=%d rows=%d bytes=%d", target, result.Tables, result.Rows, result.Bytes)
	return result, nil
}

func (s *Snapshotter) export(ctx context.Context, target Target) (*Result, error) {
	result := &Result{CreatedAt: s.now().UTC()}

	w, err := target.Create(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to open %s: %w", target, err)
	}
	counter := &countingWriter{w: s.limiter.Writer(ctx, w)}

	err = Write(ctx, s.store, counter, result)
	if err != nil {
		_ = w.Close()
		return result, err
	}
	if err := w.Close(); err != nil {
		return result, fmt.Errorf("failed to finish %s: %w", target, err)
	}
	result.Bytes = counter.n
	return result, nil
}

// Import loads a snapshot from target into the store, which must hold no
// rows in any table the snapshot carries. Rows are loaded in a single
// transaction.
func (s *Snapshotter) Import(ctx context.Context, target Target) (*Result, error) {
	start := s.now()
	result, err := s.importFrom(ctx, target)
	result.Duration = s.now().Sub(start)
	s.metrics.RecordRun("import", target.Kind(), result.Rows, result.Bytes, result.Duration, err)
	if err != nil {
		return nil, err
	}

	logger.Info("Snapshot imported from %s: tables=%d rows=%d bytes=%d", target, result.Tables, result.Rows, result.Bytes)
	return result, nil
}

func (s *Snapshotter) importFrom(ctx context.Context, target Target) (*Result, error) {
	result := &Result{}

	r, err := target.Open(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to open %s: %w", target, err)
	}
	defer func() { _ = r.Close() }()
	counter := &countingReader{r: s.limiter.Reader(ctx, r)}

	if err := Read(ctx, s.store, counter, result); err != nil {
		return result, err
	}
	result.Bytes = counter.n
	return result, nil
}

// Write encodes every table of s to w. When result is non-nil it receives
// the table and row counts.
func Write(ctx context.Context, s store.Store, w io.Writer, result *Result) error {
	if result == nil {
		result = &Result{}
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}

	schemas := s.Tables()
	err = s.View(ctx, func(tx store.Tx) error {
		h := header{
			Magic:     magic,
			Version:   formatVersion,
			CreatedAt: result.CreatedAt.UnixNano(),
			Tables:    schemasToHeader(schemas),
		}
		if err := writeHeader(enc, h); err != nil {
			return err
		}

		for _, schema := range schemas {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := tx.All(schema.Name)
			if err != nil {
				return fmt.Errorf("failed to read table %s: %w", schema.Name, err)
			}
			for _, row := range rows {
				if err := writeRecord(enc, rowToRecord(schema.Name, row)); err != nil {
					return err
				}
			}
			result.Rows += int64(len(rows))
			logger.Debug("Snapshot: table %s exported %d rows", schema.Name, len(rows))
		}
		return writeRecord(enc, record{Value: []byte{}})
	})
	if err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush compressor: %w", err)
	}

	result.Tables = len(schemas)
	return nil
}

// Read decodes a snapshot from r into s. When result is non-nil it receives
// the table and row counts and the snapshot's creation time.
func Read(ctx context.Context, s store.Store, r io.Reader, result *Result) error {
	if result == nil {
		result = &Result{}
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer dec.Close()

	h, err := readHeader(dec)
	if err != nil {
		return err
	}
	result.CreatedAt = time.Unix(0, h.CreatedAt).UTC()
	result.Tables = len(h.Tables)

	schemas := headerToSchemas(h.Tables)
	if err := s.CreateTables(ctx, schemas...); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return s.Update(ctx, func(tx store.Tx) error {
		for _, schema := range schemas {
			rows, err := tx.All(schema.Name)
			if err != nil {
				return err
			}
			if len(rows) > 0 {
				return fmt.Errorf("%w: table %s has %d rows", ErrStoreNotEmpty, schema.Name, len(rows))
			}
		}

		for {
			rec, err := readRecord(dec)
			if err != nil {
				return err
			}
			if !rec.More {
				return nil
			}
			if err := tx.Put(rec.Table, rec.row()); err != nil {
				return fmt.Errorf("failed to load row %s/%s: %w", rec.Table, rec.Key, err)
			}
			result.Rows++
			if result.Rows%10000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
		}
	})
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
