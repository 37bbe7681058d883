package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence/memory"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence/sqlite"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, err := Open(ctx, Config{Backend: Memory})
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, store)

	store, err = Open(ctx, Config{SQLitePath: filepath.Join(t.TempDir(), "db.sqlite")})
	require.NoError(t, err)
	require.IsType(t, &sqlite.Store{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, Config{Backend: SQLite})
	require.Error(t, err)

	_, err = Open(ctx, Config{Backend: Postgres})
	require.Error(t, err)

	_, err = Open(ctx, Config{Backend: "mongo"})
	require.Error(t, err)
}
