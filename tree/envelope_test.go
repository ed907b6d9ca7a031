package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "devnet_tree.json")
	e := buildTestEnvelope(t, 3, 10)

	require.NoError(t, SaveEnvelope(path, e))

	loaded, err := LoadEnvelope(path)
	require.NoError(t, err)
	require.Equal(t, e, loaded)

	// projecting the loaded envelope reproduces the direct projection
	require.Equal(t, e.Hierarchy(), loaded.Hierarchy())
}

func TestSaveEnvelopeOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")

	first := buildTestEnvelope(t, 2, 1)
	require.NoError(t, SaveEnvelope(path, first))

	second := buildTestEnvelope(t, 4, 50)
	require.NoError(t, SaveEnvelope(path, second))

	loaded, err := LoadEnvelope(path)
	require.NoError(t, err)
	require.Equal(t, second, loaded)
}

func TestLoadEnvelopeMissing(t *testing.T) {
	_, err := LoadEnvelope(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadEnvelopeUnparsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0644))

	_, err := LoadEnvelope(path)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadEnvelopeToleratesMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	partial := `{"blockStart": 5, "blockEnd": 8, "depth": 2}`
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	loaded, err := LoadEnvelope(path)
	require.NoError(t, err)
	require.Equal(t, uint64(5), loaded.BlockStart)
	require.Empty(t, loaded.Blocks)
	require.Empty(t, loaded.CommitmentsBFS)

	// projecting an envelope without a BFS array yields an empty tree
	require.Nil(t, loaded.Hierarchy().Tree)
}
