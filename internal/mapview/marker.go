package mapview

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ooh-map/internal/model"
)

// DefaultColor marks operators missing from the palette.
const DefaultColor = "#000000"

var palette = map[string]string{
	"CLARO":               "#f20000",
	"VIVO":                "#660099",
	"TIM":                 "#0D97FF",
	"OI":                  "#FF8C00",
	"NIO":                 "#00FF7F",
	model.DefaultOperator: DefaultColor,
}

// LegendEntry is one operator swatch of the map legend.
type LegendEntry struct {
	Operator string `json:"operadora"`
	Color    string `json:"color"`
}

// Legend lists the palette in display order.
func Legend() []LegendEntry {
	ops := []string{"CLARO", "VIVO", "TIM", "OI", "NIO", model.DefaultOperator}
	out := make([]LegendEntry, 0, len(ops))
	for _, op := range ops {
		out = append(out, LegendEntry{Operator: op, Color: palette[op]})
	}
	return out
}

// Color returns the marker color for an upper-cased operator name.
func Color(operator string) string {
	if c, ok := palette[operator]; ok {
		return c
	}
	return DefaultColor
}

// Marker is one rendered placement.
type Marker struct {
	ID       string        `json:"id"`
	Lat      float64       `json:"lat"`
	Lng      float64       `json:"lng"`
	Operator string        `json:"operadora"`
	Color    string        `json:"color"`
	Focus    []string      `json:"foco"`
	Popup    template.HTML `json:"popup"`

	record model.Record
}

// Record returns the source record of the marker.
func (m Marker) Record() model.Record { return m.record }

const notInformed = "N/A"

var popupTmpl = template.Must(template.New("popup").Parse(`<div class="popup-content">
<h4>{{.Cidade}}</h4>
<p><strong>UF:</strong> {{.UF}}</p>
<p><strong>Período:</strong> {{.Periodo}}</p>
<p><strong>Operadora:</strong> {{.Operadora}}</p>
<p><strong>Tipo:</strong> {{.Tipo}}</p>
<p><strong>Foco:</strong> {{.Foco}}</p>
<p><strong>Endereço:</strong> {{.Endereco}}</p>
<p><strong>Bairro:</strong> {{.Bairro}}</p>
{{- if .Observacoes}}
<p><strong>Observações:</strong> {{.Observacoes}}</p>
{{- end}}
</div>`))

type popupData struct {
	Cidade      string
	UF          string
	Periodo     string
	Operadora   string
	Tipo        string
	Foco        string
	Endereco    string
	Bairro      string
	Observacoes string
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// renderPopup builds the popup body for rec. Field values are escaped; focus
// shows the categorized labels rather than the raw tag text.
func renderPopup(rec model.Record, focus []string) (template.HTML, error) {
	data := popupData{
		Cidade:      orDefault(rec.Get(model.FieldCidade), "Cidade não informada"),
		UF:          orDefault(rec.Get(model.FieldUF), notInformed),
		Periodo:     orDefault(rec.Get(model.FieldPeriodo), notInformed),
		Operadora:   orDefault(rec.Get(model.FieldOperadora), notInformed),
		Tipo:        orDefault(rec.Get(model.FieldTipo), notInformed),
		Foco:        orDefault(strings.Join(focus, ", "), notInformed),
		Endereco:    orDefault(rec.Get(model.FieldEndereco), notInformed),
		Bairro:      orDefault(rec.Get(model.FieldBairro), notInformed),
		Observacoes: rec.Get(model.FieldObservacoes),
	}

	var buf bytes.Buffer
	if err := popupTmpl.Execute(&buf, data); err != nil {
		return "", eris.Wrap(err, "mapview: render popup")
	}
	return template.HTML(buf.String()), nil //nolint:gosec
}
