package snapshot

import (
	"errors"
	"fmt"
	"io"
	"sort"

	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/marmos91/deskfs/pkg/store"
)

// Stream layout, before compression:
//
//	header
//	record (More=true) ...
//	record (More=false)
//
// Every structure is XDR encoded. Index maps are flattened to sorted pairs
// since XDR has no map type.

const (
	// magic is "DKFS" read as a big-endian uint32.
	magic         uint32 = 0x444b4653
	formatVersion uint32 = 1
)

var (
	// ErrBadMagic is returned when a stream is not a snapshot.
	ErrBadMagic = errors.New("not a deskfs snapshot")

	// ErrUnsupportedVersion is returned for snapshots written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot format version")
)

type header struct {
	Magic     uint32
	Version   uint32
	CreatedAt int64
	Tables    []tableHeader
}

type tableHeader struct {
	Name    string
	Indexes []string
}

type record struct {
	More  bool
	Table string
	Key   string
	Value []byte
	Index []indexPair
}

type indexPair struct {
	Name  string
	Value string
}

func schemasToHeader(schemas []store.TableSchema) []tableHeader {
	out := make([]tableHeader, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, tableHeader{Name: s.Name, Indexes: append([]string{}, s.Indexes...)})
	}
	return out
}

func headerToSchemas(tables []tableHeader) []store.TableSchema {
	out := make([]store.TableSchema, 0, len(tables))
	for _, t := range tables {
		out = append(out, store.TableSchema{Name: t.Name, Indexes: t.Indexes})
	}
	return out
}

func rowToRecord(table string, row store.Row) record {
	rec := record{More: true, Table: table, Key: row.Key, Value: row.Value}
	if rec.Value == nil {
		rec.Value = []byte{}
	}
	for name, value := range row.Index {
		rec.Index = append(rec.Index, indexPair{Name: name, Value: value})
	}
	sort.Slice(rec.Index, func(i, j int) bool { return rec.Index[i].Name < rec.Index[j].Name })
	return rec
}

func (r record) row() store.Row {
	row := store.Row{Key: r.Key, Value: r.Value}
	if len(r.Index) > 0 {
		row.Index = make(map[string]string, len(r.Index))
		for _, p := range r.Index {
			row.Index[p.Name] = p.Value
		}
	}
	return row
}

func writeHeader(w io.Writer, h header) error {
	if _, err := xdr.Marshal(w, &h); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	return nil
}

func readHeader(r io.Reader) (header, error) {
	var h header
	if _, err := xdr.Unmarshal(r, &h); err != nil {
		return h, fmt.Errorf("failed to decode header: %w", err)
	}
	if h.Magic != magic {
		return h, ErrBadMagic
	}
	if h.Version > formatVersion {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

func writeRecord(w io.Writer, rec record) error {
	if _, err := xdr.Marshal(w, &rec); err != nil {
		return fmt.Errorf("failed to encode row %s/%s: %w", rec.Table, rec.Key, err)
	}
	return nil
}

func readRecord(r io.Reader) (record, error) {
	var rec record
	if _, err := xdr.Unmarshal(r, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode row: %w", err)
	}
	return rec, nil
}
