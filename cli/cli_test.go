package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/myscheme/schemeapi/logger"
	"github.com/myscheme/schemeapi/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "schemeapi", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "seed", "clear"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"env-file", "log-level", "db-driver", "mongodb-uri", "database"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	port := serve.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
}

func TestOverridesSkipEmptyFlags(t *testing.T) {
	opts := &RootOptions{DBDriver: "memory"}
	o := opts.overrides()
	assert.Equal(t, "memory", o["DB_DRIVER"])
	assert.Equal(t, "", o["LOG_LEVEL"])
}

func TestClearRequiresConfirmation(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"clear", "--db-driver", "memory", "--env-file", ""})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestBundledSeedLoadsIntoMemoryStore(t *testing.T) {
	data, err := loadSeedFile("")
	require.NoError(t, err)
	require.NotEmpty(t, data.Categories)
	require.NotEmpty(t, data.Schemes)

	store, err := memstore.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	ctx := context.Background()

	require.NoError(t, seedStore(ctx, store, data, logger.Discard()))

	cats, err := store.Categories().List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, cats, len(data.Categories))

	var counted int
	for _, c := range cats {
		counted += c.SchemeCount
	}
	assert.Equal(t, len(data.Schemes), counted)

	n, err := store.Schemes().CountActive(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, len(data.Schemes), n)

	// a second run reuses the categories
	require.NoError(t, seedStore(ctx, store, data, logger.Discard()))
	cats, err = store.Categories().List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, cats, len(data.Categories))
}

func TestSeedFileUnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: Only
schemes:
  - name: Lost
    category: Missing
`), 0o600))

	data, err := loadSeedFile(path)
	require.NoError(t, err)

	store, err := memstore.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	err = seedStore(context.Background(), store, data, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}
