// Package focus maps raw FOCO_COMUNICAÇÃO tag strings to canonical focus labels.
package focus

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Canonical focus labels.
const (
	LabelBandaLarga = "BANDA LARGA"
	LabelAparelho   = "APARELHO"
	LabelMovel      = "MÓVEL"
	LabelMulti      = "MULTI"
	LabelVivoTotal  = "VIVO TOTAL"
	LabelTV         = "TV"
)

// Delimiter separates tags inside a raw focus string.
const Delimiter = "|"

// rule emits label when a tag contains any of its substrings.
type rule struct {
	label string
	any   []string
}

// rules are evaluated independently; one tag may emit several labels.
var rules = []rule{
	{label: LabelBandaLarga, any: []string{"BANDA"}},
	{label: LabelAparelho, any: []string{"APARELHO"}},
	{label: LabelMovel, any: []string{"MÓVEL", "MOVEL"}},
	{label: LabelMulti, any: []string{"MULTI"}},
	{label: LabelVivoTotal, any: []string{"VIVO TOTAL"}},
	{label: LabelTV, any: []string{"TV"}},
}

// Labels returns the canonical labels in rule order.
func Labels() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.label
	}
	return out
}

// IsLabel reports whether s is a canonical focus label.
func IsLabel(s string) bool {
	for _, r := range rules {
		if r.label == s {
			return true
		}
	}
	return false
}

// Categorize splits raw on the tag delimiter and returns the distinct labels
// matched by any tag, in rule order. nil or blank input yields an empty slice.
func Categorize(raw *string) []string {
	if raw == nil {
		return []string{}
	}
	return CategorizeString(*raw)
}

// CategorizeString is Categorize for a plain string.
func CategorizeString(raw string) []string {
	out := []string{}
	if strings.TrimSpace(raw) == "" {
		return out
	}

	// Casers are stateful, so one per call. NFC so a decomposed "MÓVEL" still contains "MÓVEL".
	value := norm.NFC.String(cases.Upper(language.BrazilianPortuguese).String(raw))

	hit := make([]bool, len(rules))
	for _, tag := range strings.Split(value, Delimiter) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		for i, r := range rules {
			if hit[i] {
				continue
			}
			for _, sub := range r.any {
				if strings.Contains(tag, sub) {
					hit[i] = true
					break
				}
			}
		}
	}

	for i, r := range rules {
		if hit[i] {
			out = append(out, r.label)
		}
	}
	return out
}
