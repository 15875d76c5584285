package export

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ooh-map/internal/model"
)

func fixedClock() Option {
	// 23:30 in Brasília is already the next day in UTC.
	return WithClock(func() time.Time {
		return time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("BRT", -3*60*60))
	})
}

func dataset() *model.Dataset {
	return &model.Dataset{
		Columns: []string{"UF", "OPERADORA", "LATITUDE", "LONGITUDE", "OBSERVAÇÕES"},
		Records: []model.Record{
			{"UF": model.Str("SP"), "OPERADORA": model.Str("CLARO"), "LATITUDE": model.Str("-23,5"), "LONGITUDE": model.Str("-46,6"), "OBSERVAÇÕES": model.Str(`Painel "duplo"`)},
			{"UF": model.Str("RJ"), "OPERADORA": model.Str("VIVO"), "LATITUDE": model.Str("-22,9"), "LONGITUDE": model.Str("-43,1"), "OBSERVAÇÕES": nil},
			{"UF": model.Str("SP"), "OPERADORA": model.Str("TIM"), "LATITUDE": model.Str("x"), "LONGITUDE": model.Str("-46,6"), "OBSERVAÇÕES": nil},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "csv": FormatCSV, "xlsx": FormatXLSX, "shp": FormatSHP} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestExport_CSV(t *testing.T) {
	e := New(dataset(), fixedClock())

	f, err := e.Export(model.NewSelection(), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "mapa_dados_2024-03-06.csv", f.Name)
	assert.Equal(t, "text/csv;charset=utf-8", f.ContentType)
	assert.Equal(t, 3, f.Rows)
	assert.Equal(t,
		"UF,OPERADORA,LATITUDE,LONGITUDE,OBSERVAÇÕES\n"+
			`"SP","CLARO","-23,5","-46,6","Painel ""duplo"""`+"\n"+
			`"RJ","VIVO","-22,9","-43,1",""`+"\n"+
			`"SP","TIM","x","-46,6",""`,
		string(f.Data),
	)
}

func TestExport_AppliesFilterWithoutDedup(t *testing.T) {
	ds := dataset()
	// Same spot twice: the map shows one marker, the export keeps both rows.
	ds.Records = append(ds.Records, model.Record{
		"UF": model.Str("RJ"), "OPERADORA": model.Str("VIVO"), "LATITUDE": model.Str("-22,9"), "LONGITUDE": model.Str("-43,1"),
	})
	e := New(ds, fixedClock())

	sel := model.NewSelection()
	sel.Add(model.FacetUF, "RJ")
	f, err := e.Export(sel, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Rows)
}

func TestExport_EmptyResult(t *testing.T) {
	e := New(dataset(), fixedClock())

	sel := model.NewSelection()
	sel.Add(model.FacetOperadora, "NIO")
	for _, format := range []Format{FormatCSV, FormatXLSX, FormatSHP} {
		f, err := e.Export(sel, format)
		require.Error(t, err)
		assert.Nil(t, f)
		assert.True(t, eris.Is(err, ErrEmptyResult), format)
	}

	_, err := New(nil).Export(model.NewSelection(), FormatCSV)
	assert.True(t, eris.Is(err, ErrEmptyResult))
}

func TestExport_HeaderFromFirstRecord(t *testing.T) {
	ds := &model.Dataset{
		Columns: []string{"UF", "CIDADE", "OPERADORA"},
		Records: []model.Record{
			{"OPERADORA": model.Str("OI"), "UF": model.Str("BA"), "EXTRA": model.Str("1")},
			{"UF": model.Str("PE"), "CIDADE": model.Str("Recife"), "OPERADORA": model.Str("TIM")},
		},
	}

	f, err := New(ds, fixedClock()).Export(model.NewSelection(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "UF,OPERADORA,EXTRA\n\"BA\",\"OI\",\"1\"\n\"PE\",\"TIM\",\"\"", string(f.Data))
}

func TestExport_UnknownFormat(t *testing.T) {
	_, err := New(dataset()).Export(model.NewSelection(), Format("pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
