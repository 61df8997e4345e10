package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/deskfs/pkg/store"
)

// rowEnvelope is the stored form of a row. Index values travel with the row
// so Put can remove stale index entries before writing new ones.
type rowEnvelope struct {
	Value []byte            `json:"v"`
	Index map[string]string `json:"i,omitempty"`
}

func encodeRow(row store.Row) ([]byte, error) {
	data, err := json.Marshal(rowEnvelope{Value: row.Value, Index: row.Index})
	if err != nil {
		return nil, fmt.Errorf("failed to encode row %q: %w", row.Key, err)
	}
	return data, nil
}

func decodeRow(key string, data []byte) (store.Row, error) {
	var env rowEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return store.Row{}, fmt.Errorf("failed to decode row %q: %w", key, err)
	}
	return store.Row{Key: key, Value: env.Value, Index: env.Index}, nil
}

func encodeSchema(schema store.TableSchema) ([]byte, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema %q: %w", schema.Name, err)
	}
	return data, nil
}

func decodeSchema(data []byte) (store.TableSchema, error) {
	var schema store.TableSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return store.TableSchema{}, fmt.Errorf("failed to decode schema: %w", err)
	}
	return schema, nil
}
