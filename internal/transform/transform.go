// Package transform applies the catalog's schema rules to raw CSV rows,
// producing typed batches ready for storage. Apply is a pure function of
// (rows, spec) so it behaves identically on a whole file or on each chunk.
package transform

import (
	"strconv"
	"strings"

	"github.com/thiago-r-goveia/cnpj-loader/internal/catalog"
	"github.com/thiago-r-goveia/cnpj-loader/internal/models"
)

// countryCodeColumn is zero-padded to three characters for the
// estabelecimentos category.
const countryCodeColumn = "pais"

// Apply transforms a batch of raw rows for the given category spec. Rules
// run in order: positional column naming, decimal comma-to-point coercion,
// date sentinel cleanup, country-code padding. A value that fails numeric
// coercion becomes NULL rather than failing the batch; the empty string is
// the NULL sentinel for every column.
func Apply(spec *catalog.Spec, rows [][]string) *models.Batch {
	width := spec.Width()
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := make([]string, width)
	for i := range columns {
		columns[i] = spec.ColumnName(i)
	}

	padCountry := spec.Category == catalog.CategoryEstabelecimento

	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		values := make([]any, width)
		for i := 0; i < width; i++ {
			var raw string
			if i < len(row) {
				raw = row[i]
			}
			values[i] = transformField(spec, columns[i], raw, padCountry)
		}
		out = append(out, values)
	}

	return &models.Batch{Columns: columns, Rows: out}
}

func transformField(spec *catalog.Spec, column, raw string, padCountry bool) any {
	if raw == "" {
		return nil
	}

	switch {
	case spec.IsNumeric(column):
		return parseLocaleFloat(raw)
	case spec.IsDate(column):
		if raw == "0" {
			return nil
		}
		return raw
	case padCountry && column == countryCodeColumn:
		return padCountryCode(raw)
	default:
		return raw
	}
}

// parseLocaleFloat converts a decimal-comma number to float64, returning
// nil for values that do not parse. Malformed numerics are row-local noise
// in the source data, not an ingestion failure.
func parseLocaleFloat(raw string) any {
	normalized := strings.Replace(raw, ",", ".", 1)
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return nil
	}
	return value
}

func padCountryCode(raw string) string {
	code := strings.TrimSpace(raw)
	if code == "" {
		return raw
	}
	for len(code) < 3 {
		code = "0" + code
	}
	return code
}
