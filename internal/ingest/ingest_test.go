package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/scorecast/dataset"
	"github.com/YuminosukeSato/scorecast/internal/artifact"
	"github.com/YuminosukeSato/scorecast/internal/config"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, rows int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("id,gender,math_score\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "%d,%s,%d\n", i, []string{"female", "male"}[i%2], 50+i)
	}
	path := filepath.Join(t.TempDir(), "stud.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func newIngestor(t *testing.T, source, dir string) (*Ingestor, *log.TestLogger) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.SourcePath = source
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return New(cfg, artifact.NewStore(dir, logger), logger), logger
}

func TestIngestor_Run(t *testing.T) {
	source := writeSource(t, 10)
	dir := t.TempDir()
	in, logger := newIngestor(t, source, dir)

	res, err := in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, res.TrainRows)
	assert.Equal(t, 2, res.TestRows)

	raw, err := os.ReadFile(source)
	require.NoError(t, err)
	copied, err := os.ReadFile(res.DataPath)
	require.NoError(t, err)
	assert.Equal(t, raw, copied, "data.csv is a byte copy of the source")

	assert.True(t, logger.ContainsMessage("ingestion complete"))
	assert.True(t, logger.ContainsField(log.TrainSamplesKey, float64(8)))
}

func TestNew_NilLogger(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SourcePath = writeSource(t, 10)
	store := artifact.NewStore(t.TempDir(), nil)

	res, err := New(cfg, store, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, res.TrainRows+res.TestRows)
	assert.True(t, store.Exists(artifact.TrainFile))
}

func TestIngestor_Partition(t *testing.T) {
	source := writeSource(t, 23)
	in, _ := newIngestor(t, source, t.TempDir())

	res, err := in.Run(context.Background())
	require.NoError(t, err)

	train, err := dataset.ReadCSVFile(res.TrainPath)
	require.NoError(t, err)
	test, err := dataset.ReadCSVFile(res.TestPath)
	require.NoError(t, err)

	trainIDs, err := train.Column("id")
	require.NoError(t, err)
	testIDs, err := test.Column("id")
	require.NoError(t, err)

	all := append(append([]string(nil), trainIDs...), testIDs...)
	require.Len(t, all, 23)
	seen := make(map[string]bool)
	for _, id := range all {
		assert.False(t, seen[id], "row %s appears twice", id)
		seen[id] = true
	}
	assert.Len(t, testIDs, 5)
	assert.Equal(t, train.Header(), test.Header())
}

func TestIngestor_Idempotent(t *testing.T) {
	source := writeSource(t, 40)

	read := func(dir string) map[string][]byte {
		in, _ := newIngestor(t, source, dir)
		_, err := in.Run(context.Background())
		require.NoError(t, err)
		out := make(map[string][]byte)
		for _, name := range []string{artifact.DataFile, artifact.TrainFile, artifact.TestFile} {
			b, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err)
			out[name] = b
		}
		return out
	}

	dir := t.TempDir()
	first := read(dir)
	second := read(dir)
	other := read(t.TempDir())
	assert.Equal(t, first, second)
	assert.Equal(t, first, other)
}

func TestIngestor_Errors(t *testing.T) {
	dir := t.TempDir()
	headerOnly := filepath.Join(dir, "header.csv")
	require.NoError(t, os.WriteFile(headerOnly, []byte("a,b\n"), 0o600))
	ragged := filepath.Join(dir, "ragged.csv")
	require.NoError(t, os.WriteFile(ragged, []byte("a,b\n1,2\n3\n"), 0o600))
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	tests := []struct {
		name   string
		source string
		reason string
	}{
		{"missing source", filepath.Join(dir, "nope.csv"), "reading source"},
		{"empty file", empty, "parsing source"},
		{"header only", headerOnly, "source has no data rows"},
		{"ragged rows", ragged, "parsing source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := t.TempDir()
			in, _ := newIngestor(t, tt.source, out)
			_, err := in.Run(context.Background())
			require.Error(t, err)

			var ingErr *errors.IngestionError
			require.True(t, errors.As(err, &ingErr), "got %T", err)
			assert.Equal(t, tt.reason, ingErr.Reason)
			assert.Equal(t, tt.source, ingErr.Source)

			entries, _ := os.ReadDir(out)
			assert.Empty(t, entries, "no artifacts on failure")
		})
	}
}
