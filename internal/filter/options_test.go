package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ooh-map/internal/model"
)

func TestBuildOptions(t *testing.T) {
	t.Parallel()

	records := append(fixture(),
		rec("SP", "CLARO", "2023/12", "OUTDOOR", "MÓVEL|multi"),
		model.Record{model.FieldUF: model.Str("   ")},
	)

	opts := BuildOptions(records)

	assert.Equal(t, []string{"MG", "RJ", "SP"}, opts.Get(model.FacetUF))
	assert.Equal(t, []string{"CLARO", "OI", "TIM", "VIVO"}, opts.Get(model.FacetOperadora))
	assert.Equal(t, []string{"2023/12", "2024/01", "2024/02", "2024/03"}, opts.Get(model.FacetData))
	assert.Equal(t, []string{"BUSDOOR", "EMPENA", "OUTDOOR"}, opts.Get(model.FacetTipo))
	assert.Equal(t,
		[]string{"APARELHO", "BANDA LARGA", "MULTI", "MÓVEL", "TV", "VIVO TOTAL"},
		opts.Get(model.FacetFoco),
		"byte-wise ascending order",
	)
	assert.Equal(t, 3+4+4+3+6, opts.Total())
}

func TestBuildOptions_Empty(t *testing.T) {
	t.Parallel()

	opts := BuildOptions(nil)
	for _, f := range model.Facets() {
		assert.NotNil(t, opts.Get(f))
		assert.Empty(t, opts.Get(f))
	}
	assert.Equal(t, 0, opts.Total())
}
