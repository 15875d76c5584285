package focus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  *string
		want []string
	}{
		{name: "nil", raw: nil, want: []string{}},
		{name: "blank", raw: ptr("   "), want: []string{}},
		{name: "no match", raw: ptr("institucional"), want: []string{}},
		{name: "single tag", raw: ptr("Banda Larga"), want: []string{LabelBandaLarga}},
		{name: "lowercase with accent", raw: ptr("plano móvel"), want: []string{LabelMovel}},
		{name: "without accent", raw: ptr("MOVEL PRE"), want: []string{LabelMovel}},
		{name: "decomposed accent", raw: ptr("mo\u0301vel"), want: []string{LabelMovel}},
		{
			name: "one tag emits two labels",
			raw:  ptr("BANDA LARGA + TV"),
			want: []string{LabelBandaLarga, LabelTV},
		},
		{
			name: "pipe separated with padding",
			raw:  ptr(" aparelho | Multi |vivo total "),
			want: []string{LabelAparelho, LabelMulti, LabelVivoTotal},
		},
		{
			name: "duplicates collapse",
			raw:  ptr("TV|tv por assinatura|TV"),
			want: []string{LabelTV},
		},
		{
			name: "empty segments skipped",
			raw:  ptr("||banda||"),
			want: []string{LabelBandaLarga},
		},
		{
			name: "repeated label across tags",
			raw:  ptr("VIVO TOTAL|VIVO TOTAL FIBRA"),
			want: []string{LabelVivoTotal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Categorize(tt.raw))
		})
	}
}

func TestCategorize_OutputIsSetOfKnownLabels(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"BANDA|BANDA|banda larga|TV|TV",
		"multi tv móvel movel aparelho vivo total banda",
		"|||",
		"tvtvtv|MULTIMULTI",
		"ÿ|\x00|🙂",
	}

	for _, in := range inputs {
		got := CategorizeString(in)
		seen := map[string]bool{}
		for _, l := range got {
			assert.True(t, IsLabel(l), "label %q from %q", l, in)
			assert.False(t, seen[l], "duplicate label %q from %q", l, in)
			seen[l] = true
		}
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"BANDA LARGA", "APARELHO", "MÓVEL", "MULTI", "VIVO TOTAL", "TV"},
		Labels(),
	)
	assert.False(t, IsLabel("FIBRA"))
}
