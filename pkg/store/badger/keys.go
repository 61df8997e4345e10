package badger

import (
	"strings"
)

// Database Key Namespace Design
// ==============================
//
// Every table shares one BadgerDB keyspace. Keys are namespaced by a one-byte
// kind prefix and NUL separators, so that all rows of a table and all entries
// of one index form contiguous, byte-ordered ranges.
//
// Data Type      Key Format                                  Value
// =====================================================================
// Schema         s\x00<table>                                TableSchema (JSON)
// Row            t\x00<table>\x00<key>                       rowEnvelope (JSON)
// Index entry    i\x00<table>\x00<index>\x00<value>\x00<key> empty
//
// Index entries sort by (value, key) because NUL is the smallest byte, which
// gives range scans the ordering the store contract requires. Table names,
// index names, index values and primary keys must not contain NUL.

const sep = "\x00"

func schemaKey(table string) []byte {
	return []byte("s" + sep + table)
}

func schemaPrefix() []byte {
	return []byte("s" + sep)
}

func rowPrefix(table string) []byte {
	return []byte("t" + sep + table + sep)
}

func rowKey(table, key string) []byte {
	return append(rowPrefix(table), key...)
}

func indexPrefix(table, index string) []byte {
	return []byte("i" + sep + table + sep + index + sep)
}

func indexKey(table, index, value, key string) []byte {
	return append(indexPrefix(table, index), value+sep+key...)
}

// splitIndexKey extracts the index value and primary key from an index entry
// key, given the prefix it was found under.
func splitIndexKey(prefix, k []byte) (value, key string, ok bool) {
	rest := string(k[len(prefix):])
	i := strings.Index(rest, sep)
	if i < 0 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
