// Package catalog holds the static schema metadata for every CNPJ extract
// category: which filename marker identifies it, which table it loads into,
// how its positional columns are named and typed, and whether its reference
// data needs reconciliation against a secondary source.
package catalog

import (
	"fmt"
	"strings"
)

// Category identifies one of the fixed input file shapes published by the
// Receita Federal.
type Category int

const (
	CategoryUnresolved Category = iota
	CategoryCNAE
	CategoryMotivo
	CategoryMunicipio
	CategoryNaturezaJuridica
	CategoryPais
	CategoryQualificacaoSocio
	CategoryEmpresa
	CategoryEstabelecimento
	CategorySocio
	CategorySimples
)

// Reconciliation names the secondary source used to patch gaps in a
// category's official code list.
type Reconciliation int

const (
	ReconcileNone Reconciliation = iota
	// ReconcileSerpro fetches missing motivo codes from the SERPRO API.
	ReconcileSerpro
	// ReconcilePaises appends country codes known to be absent from the
	// official PAISCSV extract.
	ReconcilePaises
)

// Spec is the full ingestion schema for one file category. Specs are built
// once by New and never mutated afterwards.
type Spec struct {
	Category Category
	// Marker is the filename substring that identifies this category.
	Marker string
	// Table is the destination table name.
	Table string
	// Columns maps zero-based input positions to column names. Positions
	// beyond the map get synthetic names via ColumnName.
	Columns map[int]string
	// NumericColumns use a locale decimal comma and are parsed to float.
	NumericColumns []string
	// DateColumns carry the "0" sentinel in place of NULL.
	DateColumns []string
	// ConflictColumns form the natural key used for idempotent upserts.
	ConflictColumns []string
	// Reconciliation flags this category for reference-data patching.
	Reconciliation Reconciliation
}

// ColumnName returns the mapped name for a position, or a synthetic
// "column_N" name for positions the mapping does not cover.
func (s *Spec) ColumnName(pos int) string {
	if name, ok := s.Columns[pos]; ok {
		return name
	}
	return fmt.Sprintf("column_%d", pos)
}

// Width is the number of columns the mapping covers.
func (s *Spec) Width() int {
	return len(s.Columns)
}

// IsNumeric reports whether the named column needs comma-to-point coercion.
func (s *Spec) IsNumeric(name string) bool {
	return contains(s.NumericColumns, name)
}

// IsDate reports whether the named column carries the "0" null sentinel.
func (s *Spec) IsDate(name string) bool {
	return contains(s.DateColumns, name)
}

func contains(list []string, name string) bool {
	for _, c := range list {
		if c == name {
			return true
		}
	}
	return false
}

var codeTableColumns = map[int]string{0: "codigo", 1: "descricao"}

// Catalog is the ordered, read-only set of category specs. Resolution walks
// the specs in declaration order and the first marker match wins.
type Catalog struct {
	specs []Spec
}

// New builds the catalog of all known CNPJ extract categories.
func New() *Catalog {
	return &Catalog{specs: []Spec{
		{
			Category:        CategoryCNAE,
			Marker:          "CNAECSV",
			Table:           "cnaes",
			Columns:         codeTableColumns,
			ConflictColumns: []string{"codigo"},
		},
		{
			Category:        CategoryMotivo,
			Marker:          "MOTICSV",
			Table:           "motivos",
			Columns:         codeTableColumns,
			ConflictColumns: []string{"codigo"},
			Reconciliation:  ReconcileSerpro,
		},
		{
			Category:        CategoryMunicipio,
			Marker:          "MUNICCSV",
			Table:           "municipios",
			Columns:         codeTableColumns,
			ConflictColumns: []string{"codigo"},
		},
		{
			Category:        CategoryNaturezaJuridica,
			Marker:          "NATJUCSV",
			Table:           "naturezas_juridicas",
			Columns:         codeTableColumns,
			ConflictColumns: []string{"codigo"},
		},
		{
			Category:        CategoryPais,
			Marker:          "PAISCSV",
			Table:           "paises",
			Columns:         codeTableColumns,
			ConflictColumns: []string{"codigo"},
			Reconciliation:  ReconcilePaises,
		},
		{
			Category:        CategoryQualificacaoSocio,
			Marker:          "QUALSCSV",
			Table:           "qualificacoes_socios",
			Columns:         codeTableColumns,
			ConflictColumns: []string{"codigo"},
		},
		{
			Category: CategoryEmpresa,
			Marker:   "EMPRECSV",
			Table:    "empresas",
			Columns: map[int]string{
				0: "cnpj_basico",
				1: "razao_social",
				2: "natureza_juridica",
				3: "qualificacao_responsavel",
				4: "capital_social",
				5: "porte",
				6: "ente_federativo_responsavel",
			},
			NumericColumns:  []string{"capital_social"},
			ConflictColumns: []string{"cnpj_basico"},
		},
		{
			Category: CategoryEstabelecimento,
			Marker:   "ESTABELE",
			Table:    "estabelecimentos",
			Columns: map[int]string{
				0:  "cnpj_basico",
				1:  "cnpj_ordem",
				2:  "cnpj_dv",
				3:  "identificador_matriz_filial",
				4:  "nome_fantasia",
				5:  "situacao_cadastral",
				6:  "data_situacao_cadastral",
				7:  "motivo_situacao_cadastral",
				8:  "nome_cidade_exterior",
				9:  "pais",
				10: "data_inicio_atividade",
				11: "cnae_fiscal_principal",
				12: "cnae_fiscal_secundaria",
				13: "tipo_logradouro",
				14: "logradouro",
				15: "numero",
				16: "complemento",
				17: "bairro",
				18: "cep",
				19: "uf",
				20: "municipio",
				21: "ddd_1",
				22: "telefone_1",
				23: "ddd_2",
				24: "telefone_2",
				25: "ddd_fax",
				26: "fax",
				27: "correio_eletronico",
				28: "situacao_especial",
				29: "data_situacao_especial",
			},
			DateColumns: []string{
				"data_situacao_cadastral",
				"data_inicio_atividade",
				"data_situacao_especial",
			},
			ConflictColumns: []string{"cnpj_basico", "cnpj_ordem", "cnpj_dv"},
		},
		{
			Category: CategorySocio,
			Marker:   "SOCIOCSV",
			Table:    "socios",
			Columns: map[int]string{
				0:  "cnpj_basico",
				1:  "identificador_de_socio",
				2:  "nome_socio",
				3:  "cnpj_cpf_do_socio",
				4:  "qualificacao_do_socio",
				5:  "data_entrada_sociedade",
				6:  "pais",
				7:  "representante_legal",
				8:  "nome_do_representante",
				9:  "qualificacao_do_representante_legal",
				10: "faixa_etaria",
			},
			DateColumns:     []string{"data_entrada_sociedade"},
			ConflictColumns: []string{"cnpj_basico", "identificador_de_socio", "cnpj_cpf_do_socio", "qualificacao_do_socio"},
		},
		{
			Category: CategorySimples,
			Marker:   "SIMPLESCSV",
			Table:    "dados_simples",
			Columns: map[int]string{
				0: "cnpj_basico",
				1: "opcao_pelo_simples",
				2: "data_opcao_pelo_simples",
				3: "data_exclusao_do_simples",
				4: "opcao_pelo_mei",
				5: "data_opcao_pelo_mei",
				6: "data_exclusao_do_mei",
			},
			DateColumns: []string{
				"data_opcao_pelo_simples",
				"data_exclusao_do_simples",
				"data_opcao_pelo_mei",
				"data_exclusao_do_mei",
			},
			ConflictColumns: []string{"cnpj_basico"},
		},
	}}
}

// Resolve matches a filename against the catalog markers. The filename is
// uppercased first; the first spec whose marker is a substring wins. The
// second return is false when no marker matches.
func (c *Catalog) Resolve(filename string) (*Spec, bool) {
	upper := strings.ToUpper(filename)
	for i := range c.specs {
		if strings.Contains(upper, c.specs[i].Marker) {
			return &c.specs[i], true
		}
	}
	return nil, false
}

// Specs returns all category specs in resolution order.
func (c *Catalog) Specs() []Spec {
	return c.specs
}
