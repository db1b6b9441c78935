package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"match-collector/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWritesIndentedJSON(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), domain.Document{
		Category: domain.CategoryMatch,
		ID:       "2989",
		Body:     []byte(`{"gameId":2989,"teams":[1,2]}`),
	}))

	b, err := os.ReadFile(filepath.Join(dir, "games", "2989.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"gameId\": 2989,\n    \"teams\": [\n        1,\n        2\n    ]\n}\n", string(b))

	entries, err := os.ReadDir(filepath.Join(dir, "games"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, domain.Document{Category: domain.CategoryPlayerTiers, ID: "1", Body: []byte(`{"a":1}`)}))
	require.NoError(t, s.Save(ctx, domain.Document{Category: domain.CategoryPlayerTiers, ID: "1", Body: []byte(`{"a":2}`)}))

	b, err := os.ReadFile(filepath.Join(dir, "summoner_divisions", "1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(b))
}

func TestSaveRejects(t *testing.T) {
	s, err := New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name string
		doc  domain.Document
	}{
		{"unknown category", domain.Document{Category: "items", ID: "1", Body: []byte(`{}`)}},
		{"path traversal", domain.Document{Category: domain.CategoryMatch, ID: "../x", Body: []byte(`{}`)}},
		{"empty id", domain.Document{Category: domain.CategoryMatch, ID: "", Body: []byte(`{}`)}},
		{"invalid json", domain.Document{Category: domain.CategoryMatch, ID: "1", Body: []byte(`{`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.Save(ctx, tt.doc))
		})
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.Save(cancelled, domain.Document{Category: domain.CategoryMatch, ID: "1", Body: []byte(`{}`)}), context.Canceled)
}
