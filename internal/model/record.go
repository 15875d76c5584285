package model

import "strings"

// Field names as delivered by the placement store. They are the raw column
// names of the mapa table and double as CSV export headers.
const (
	FieldUF          = "UF"
	FieldOperadora   = "OPERADORA"
	FieldPeriodo     = "ANO/MÊS"
	FieldTipo        = "TIPO_DA_COMUNICAÇÃO"
	FieldFoco        = "FOCO_COMUNICAÇÃO"
	FieldLatitude    = "LATITUDE"
	FieldLongitude   = "LONGITUDE"
	FieldCidade      = "CIDADE"
	FieldEndereco    = "ENDEREÇO"
	FieldBairro      = "BAIRRO"
	FieldObservacoes = "OBSERVAÇÕES"
)

// Record is one placement row. A nil value is a SQL NULL; a missing key means
// the source never delivered the column.
type Record map[string]*string

// Get returns the field value, or "" when the field is missing or NULL.
func (r Record) Get(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	return *v
}

// Raw returns the field pointer as stored (nil for missing or NULL).
func (r Record) Raw(field string) *string {
	return r[field]
}

// Trimmed returns the field value with surrounding whitespace removed.
func (r Record) Trimmed(field string) string {
	return strings.TrimSpace(r.Get(field))
}

// Operator returns the upper-cased operator name used for palette and dedup
// decisions. Records without an operator fall back to DefaultOperator.
func (r Record) Operator() string {
	op := strings.ToUpper(strings.TrimSpace(r.Get(FieldOperadora)))
	if op == "" {
		return DefaultOperator
	}
	return op
}

// DefaultOperator tags records whose OPERADORA column is empty.
const DefaultOperator = "PADRAO"

// TrustedOperator reports exact coordinates and is exempt from truncation and
// proximity deduplication.
const TrustedOperator = "CLARO"

// Dataset is the in-memory record set for a session. Columns holds the field
// names in source order, since Record is an unordered map.
type Dataset struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// Len returns the number of loaded records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// ColumnsOf returns the field names of rec in dataset column order. Fields the
// dataset has not seen (possible with JSON input) are appended in sorted order.
func (d *Dataset) ColumnsOf(rec Record) []string {
	cols := make([]string, 0, len(rec))
	seen := make(map[string]bool, len(rec))
	if d != nil {
		for _, c := range d.Columns {
			if _, ok := rec[c]; ok {
				cols = append(cols, c)
				seen[c] = true
			}
		}
	}
	var extra []string
	for k := range rec {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sortStrings(extra)
	return append(cols, extra...)
}

// Str is a helper for building records in code and tests.
func Str(s string) *string { return &s }
