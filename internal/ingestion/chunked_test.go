package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thiago-r-goveia/cnpj-loader/internal/catalog"
)

func writeCNAEFile(t *testing.T, numRows int) string {
	t.Helper()
	var content strings.Builder
	for i := 0; i < numRows; i++ {
		content.WriteString(fmt.Sprintf("\"%07d\";\"atividade %d\"\n", i, i))
	}
	path := filepath.Join(t.TempDir(), "F.K03200.CNAECSV")
	require.NoError(t, os.WriteFile(path, []byte(content.String()), 0o644))
	return path
}

func cnaeSpec(t *testing.T) *catalog.Spec {
	t.Helper()
	spec, ok := catalog.New().Resolve("CNAECSV")
	require.True(t, ok)
	return spec
}

func TestChunkedLoaderShortFinalWindow(t *testing.T) {
	path := writeCNAEFile(t, 7)
	spec := cnaeSpec(t)

	db := new(MockDBManager)
	var upserted int
	db.On("BulkUpsert", "cnaes", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			upserted += len(args.Get(3).([][]any))
		}).Return(nil)

	loader := NewChunkedLoader(db, 5, false)
	total, err := loader.Load(path, spec)

	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, 7, upserted)
	assert.Equal(t, StateDone, loader.State())
	// One full window plus the draining window.
	db.AssertNumberOfCalls(t, "BulkUpsert", 2)
}

func TestChunkedLoaderExactMultipleOfWindow(t *testing.T) {
	path := writeCNAEFile(t, 10)
	spec := cnaeSpec(t)

	db := new(MockDBManager)
	var upserted int
	db.On("BulkUpsert", "cnaes", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			upserted += len(args.Get(3).([][]any))
		}).Return(nil)

	loader := NewChunkedLoader(db, 5, false)
	total, err := loader.Load(path, spec)

	require.NoError(t, err)
	// Exactly N x window rows terminate on the extra zero-row read with
	// nothing duplicated and nothing skipped.
	assert.Equal(t, int64(10), total)
	assert.Equal(t, 10, upserted)
	assert.Equal(t, StateDone, loader.State())
	db.AssertNumberOfCalls(t, "BulkUpsert", 2)
}

func TestChunkedLoaderEmptyFile(t *testing.T) {
	path := writeCNAEFile(t, 0)
	spec := cnaeSpec(t)

	db := new(MockDBManager)
	loader := NewChunkedLoader(db, 5, false)

	total, err := loader.Load(path, spec)

	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, StateDone, loader.State())
	db.AssertNotCalled(t, "BulkUpsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChunkedLoaderStorageFailure(t *testing.T) {
	path := writeCNAEFile(t, 12)
	spec := cnaeSpec(t)

	db := new(MockDBManager)
	db.On("BulkUpsert", "cnaes", mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()
	db.On("BulkUpsert", "cnaes", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset")).Once()

	loader := NewChunkedLoader(db, 5, false)
	total, err := loader.Load(path, spec)

	assert.Error(t, err)
	assert.Equal(t, StateFailed, loader.State())
	// The first committed window stands; re-running later re-applies it
	// idempotently.
	assert.Equal(t, int64(5), total)
}

func TestChunkedLoaderMissingFile(t *testing.T) {
	db := new(MockDBManager)
	loader := NewChunkedLoader(db, 5, false)

	_, err := loader.Load(filepath.Join(t.TempDir(), "missing.csv"), cnaeSpec(t))

	assert.Error(t, err)
	assert.Equal(t, StateFailed, loader.State())
}

func TestChunkedLoaderPreservesRowOrder(t *testing.T) {
	path := writeCNAEFile(t, 6)
	spec := cnaeSpec(t)

	db := new(MockDBManager)
	var codes []string
	db.On("BulkUpsert", "cnaes", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			for _, row := range args.Get(3).([][]any) {
				codes = append(codes, row[0].(string))
			}
		}).Return(nil)

	loader := NewChunkedLoader(db, 2, false)
	_, err := loader.Load(path, spec)
	require.NoError(t, err)

	expected := make([]string, 6)
	for i := range expected {
		expected[i] = fmt.Sprintf("%07d", i)
	}
	assert.Equal(t, expected, codes)
}
