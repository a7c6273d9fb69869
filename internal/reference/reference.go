// Package reference patches known gaps in the official reference extracts.
// The motivos list misses codes that SERPRO publishes, and the paises list
// misses country codes that appear in estabelecimento rows. Reconciliation
// is best-effort: a source failure never aborts the primary load.
package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/thiago-r-goveia/cnpj-loader/internal/catalog"
	"github.com/thiago-r-goveia/cnpj-loader/internal/models"
)

// Code is one reference-table entry. Only the code and description are
// populated when appended; all other columns stay NULL.
type Code struct {
	Codigo    string `json:"codigo"`
	Descricao string `json:"descricao"`
}

// Source provides the secondary code list for a reconciled category.
type Source interface {
	Codes(ctx context.Context) ([]Code, error)
}

// DefaultSerproURL is the public SERPRO endpoint listing motivo codes.
const DefaultSerproURL = "https://gateway.apiserpro.serpro.gov.br/consulta-cnpj-df/v2/motivos"

// SerproSource fetches motivo codes from the SERPRO API.
type SerproSource struct {
	URL    string
	Client *http.Client
}

func NewSerproSource(url string) *SerproSource {
	if url == "" {
		url = DefaultSerproURL
	}
	return &SerproSource{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SerproSource) Codes(ctx context.Context) ([]Code, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build SERPRO request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch SERPRO motivos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SERPRO motivos returned status %d", resp.StatusCode)
	}

	var codes []Code
	if err := json.NewDecoder(resp.Body).Decode(&codes); err != nil {
		return nil, fmt.Errorf("failed to decode SERPRO motivos: %w", err)
	}
	return codes, nil
}

// PaisesSource lists country codes referenced by estabelecimento rows but
// absent from the official PAISCSV extract.
type PaisesSource struct{}

func (PaisesSource) Codes(ctx context.Context) ([]Code, error) {
	return []Code{
		{Codigo: "150", Descricao: "JERSEY"},
		{Codigo: "359", Descricao: "GUERNSEY"},
		{Codigo: "367", Descricao: "ILHA DE MAN"},
		{Codigo: "393", Descricao: "KOSOVO"},
		{Codigo: "449", Descricao: "MACEDONIA DO NORTE"},
		{Codigo: "498", Descricao: "SAINT MARTIN"},
		{Codigo: "678", Descricao: "SAO BARTOLOMEU"},
		{Codigo: "699", Descricao: "SINT MAARTEN"},
	}, nil
}

// ForSpec returns the reconciliation source for a category spec, or nil
// when the category is not reconciled. serproURL overrides the default
// SERPRO endpoint when non-empty.
func ForSpec(spec *catalog.Spec, serproURL string) Source {
	switch spec.Reconciliation {
	case catalog.ReconcileSerpro:
		return NewSerproSource(serproURL)
	case catalog.ReconcilePaises:
		return PaisesSource{}
	default:
		return nil
	}
}

// Missing returns the source codes absent from the existing set, sorted by
// code for deterministic ordering. Running it against an already-patched
// set yields nothing, which keeps reconciliation idempotent.
func Missing(existing map[string]bool, codes []Code) []Code {
	var missing []Code
	for _, code := range codes {
		if !existing[code.Codigo] {
			missing = append(missing, code)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Codigo < missing[j].Codigo })
	return missing
}

// ExistingCodes collects the code column values already present in a batch.
func ExistingCodes(batch *models.Batch) map[string]bool {
	existing := make(map[string]bool)
	idx := batch.ColumnIndex("codigo")
	if idx < 0 {
		return existing
	}
	for _, row := range batch.Rows {
		if code, ok := row[idx].(string); ok {
			existing[code] = true
		}
	}
	return existing
}

// AppendMissing adds the missing codes to a batch as rows with only the
// code and description populated.
func AppendMissing(batch *models.Batch, missing []Code) {
	codeIdx := batch.ColumnIndex("codigo")
	descIdx := batch.ColumnIndex("descricao")
	if codeIdx < 0 {
		return
	}
	for _, code := range missing {
		row := make([]any, len(batch.Columns))
		row[codeIdx] = code.Codigo
		if descIdx >= 0 {
			row[descIdx] = code.Descricao
		}
		batch.Rows = append(batch.Rows, row)
	}
}

// ToBatch builds a standalone code batch, used on the chunked path where
// missing codes are upserted directly instead of appended to a batch.
func ToBatch(missing []Code) *models.Batch {
	batch := &models.Batch{Columns: []string{"codigo", "descricao"}}
	for _, code := range missing {
		batch.Rows = append(batch.Rows, []any{code.Codigo, code.Descricao})
	}
	return batch
}
