package vfs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "rwxr-xr-x", want: 0o755},
		{in: "rw-r--r--", want: 0o644},
		{in: "---------", want: 0},
		{in: "755", want: 0o755},
		{in: "600", want: 0o600},
		{in: "rwxrwxrw", wantErr: true},
		{in: "rwxr-xr-q", wantErr: true},
		{in: "xwrr-xr-x", wantErr: true},
		{in: "789", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMode_Triplets(t *testing.T) {
	m := NewMode(PermAll, PermRead|PermDelete, PermNone)
	assert.Equal(t, "rwxr-x---", m.String())
	assert.Equal(t, PermAll, m.Owner())
	assert.True(t, m.Group().Has(PermRead))
	assert.False(t, m.Group().Has(PermWrite))
	assert.Equal(t, PermNone, m.Other())
}

func TestMode_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		M Mode `json:"m"`
	}{M: DefaultFileMode})
	require.NoError(t, err)
	assert.JSONEq(t, `{"m":"rw-r--r--"}`, string(data))

	var out struct {
		M Mode `json:"m"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"m":"750"}`), &out))
	assert.Equal(t, Mode(0o750), out.M)
}
