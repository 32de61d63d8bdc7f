package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	sink := FileSink{Dir: dir}

	loc, err := Write(context.Background(), sink, "vehicles.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "\"Plate No\"\n")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "vehicles.csv"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "\"Plate No\"\n", string(data))

	nested := filepath.Join(dir, "out", "commands.csv")
	loc, err = sink.Put(context.Background(), nested, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, nested, loc)
}

func TestWriteRenderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Write(context.Background(), FileSink{Dir: t.TempDir()}, "x.csv", func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 6, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "exports/vehicles-20240309T130506Z-abcd1234.csv", ObjectKey("exports/", "vehicles.csv", at, "abcd1234"))
	assert.Equal(t, "commands-20240309T130506Z-1", ObjectKey("", "/tmp/commands", at, "1"))
}
