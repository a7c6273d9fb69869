package reference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiago-r-goveia/cnpj-loader/internal/catalog"
	"github.com/thiago-r-goveia/cnpj-loader/internal/models"
)

func TestMissing(t *testing.T) {
	existing := map[string]bool{"A": true, "B": true}
	source := []Code{
		{Codigo: "A", Descricao: "first"},
		{Codigo: "B", Descricao: "second"},
		{Codigo: "C", Descricao: "third"},
	}

	missing := Missing(existing, source)

	require.Len(t, missing, 1)
	assert.Equal(t, "C", missing[0].Codigo)
}

func TestMissingIsIdempotent(t *testing.T) {
	existing := map[string]bool{"A": true}
	source := []Code{{Codigo: "A"}, {Codigo: "C"}}

	first := Missing(existing, source)
	require.Len(t, first, 1)

	// Apply the patch, then diff again: nothing left to add.
	for _, code := range first {
		existing[code.Codigo] = true
	}
	assert.Empty(t, Missing(existing, source))
}

func TestMissingSortedByCode(t *testing.T) {
	missing := Missing(map[string]bool{}, []Code{{Codigo: "9"}, {Codigo: "1"}, {Codigo: "5"}})

	assert.Equal(t, []string{"1", "5", "9"}, []string{missing[0].Codigo, missing[1].Codigo, missing[2].Codigo})
}

func TestExistingCodes(t *testing.T) {
	batch := &models.Batch{
		Columns: []string{"codigo", "descricao"},
		Rows: [][]any{
			{"01", "first"},
			{"02", nil},
			{nil, "orphan description"},
		},
	}

	existing := ExistingCodes(batch)

	assert.Equal(t, map[string]bool{"01": true, "02": true}, existing)
}

func TestAppendMissingPopulatesOnlyCodeAndDescription(t *testing.T) {
	batch := &models.Batch{
		Columns: []string{"codigo", "descricao"},
		Rows:    [][]any{{"01", "official"}},
	}

	AppendMissing(batch, []Code{{Codigo: "99", Descricao: "patched"}})

	require.Len(t, batch.Rows, 2)
	assert.Equal(t, []any{"99", "patched"}, batch.Rows[1])
}

func TestSerproSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"codigo":"01","descricao":"EXTINCAO POR ENCERRAMENTO"},{"codigo":"02","descricao":"INCORPORACAO"}]`))
	}))
	defer server.Close()

	source := NewSerproSource(server.URL)
	codes, err := source.Codes(context.Background())

	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, "01", codes[0].Codigo)
	assert.Equal(t, "INCORPORACAO", codes[1].Descricao)
}

func TestSerproSourceNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewSerproSource(server.URL).Codes(context.Background())

	assert.Error(t, err)
}

func TestPaisesSourceHasNoDuplicates(t *testing.T) {
	codes, err := PaisesSource{}.Codes(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, codes)

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Falsef(t, seen[code.Codigo], "duplicate code %s", code.Codigo)
		seen[code.Codigo] = true
		assert.Len(t, code.Codigo, 3)
	}
}

func TestForSpec(t *testing.T) {
	cat := catalog.New()

	motivo, _ := cat.Resolve("MOTICSV")
	assert.IsType(t, &SerproSource{}, ForSpec(motivo, ""))

	pais, _ := cat.Resolve("PAISCSV")
	assert.IsType(t, PaisesSource{}, ForSpec(pais, ""))

	cnae, _ := cat.Resolve("CNAECSV")
	assert.Nil(t, ForSpec(cnae, ""))
}
