// Package edgecase classifies literal test inputs into edge-case
// categories and scores coverage. Thresholds are applied by rules.
package edgecase

import (
	"strings"

	"github.com/mmocchi/pytestee/pkg/models"
)

// Category groups edge cases by input type.
type Category string

const (
	CategoryNumeric    Category = "numeric"
	CategoryCollection Category = "collection"
	CategoryString     Category = "string"
)

// Case is a specific edge-case signature.
type Case string

const (
	NumericZero     Case = "numeric_zero"
	NumericNegative Case = "numeric_negative"
	NumericLarge    Case = "numeric_large"

	CollectionEmpty  Case = "collection_empty"
	CollectionSingle Case = "collection_single"
	CollectionLarge  Case = "collection_large"

	StringEmpty    Case = "string_empty" // includes None
	StringLong     Case = "string_long"
	StringNonASCII Case = "string_non_ascii"
)

// Classification boundaries.
const (
	largeNumber    = 1_000_000
	largeSize      = 1000
	longStringSize = 1000
)

// categoryCases maps each category to its recognizable cases.
var categoryCases = map[Category][]Case{
	CategoryNumeric:    {NumericZero, NumericNegative, NumericLarge},
	CategoryCollection: {CollectionEmpty, CollectionSingle, CollectionLarge},
	CategoryString:     {StringEmpty, StringLong, StringNonASCII},
}

// Profile summarizes the edge-case signatures observed in one function.
type Profile struct {
	Cases    map[Case]int      `json:"cases"`
	Normal   int               `json:"normal"`
	Edge     int               `json:"edge"`
	Relevant map[Category]bool `json:"relevant"`
}

// Analyze classifies every literal input observed in the function.
func Analyze(fn *models.TestFunction) Profile {
	p := Profile{
		Cases:    make(map[Case]int),
		Relevant: make(map[Category]bool),
	}

	for _, lit := range fn.Literals {
		switch lit.Kind {
		case models.LiteralNumber:
			p.Relevant[CategoryNumeric] = true
			p.record(classifyNumber(lit.Num))
		case models.LiteralCollection:
			p.Relevant[CategoryCollection] = true
			p.record(classifyCollection(lit.Size))
		case models.LiteralString:
			p.Relevant[CategoryString] = true
			p.record(classifyString(lit.Str))
		case models.LiteralNone:
			p.Relevant[CategoryString] = true
			p.record(StringEmpty, true)
		}
	}

	return p
}

func (p *Profile) record(c Case, edge bool) {
	if edge {
		p.Cases[c]++
		p.Edge++
	} else {
		p.Normal++
	}
}

func classifyNumber(v float64) (Case, bool) {
	// Magnitude before sign: large negatives classify as large.
	switch {
	case v > largeNumber || v < -largeNumber:
		return NumericLarge, true
	case v == 0:
		return NumericZero, true
	case v < 0:
		return NumericNegative, true
	default:
		return "", false
	}
}

func classifyCollection(size int) (Case, bool) {
	switch {
	case size == 0:
		return CollectionEmpty, true
	case size == 1:
		return CollectionSingle, true
	case size > largeSize:
		return CollectionLarge, true
	default:
		return "", false
	}
}

func classifyString(s string) (Case, bool) {
	switch {
	case s == "":
		return StringEmpty, true
	case len([]rune(s)) > longStringSize:
		return StringLong, true
	case hasNonASCII(s):
		return StringNonASCII, true
	default:
		return "", false
	}
}

// hasNonASCII reports control characters, escape sequences for them, or
// runes outside ASCII. Escapes appear literally because the builder
// does not interpret Python string escapes.
func hasNonASCII(s string) bool {
	for _, esc := range []string{`\n`, `\t`, `\r`} {
		if strings.Contains(s, esc) {
			return true
		}
	}
	for _, r := range s {
		if r > 127 || r == '\n' || r == '\t' || r == '\r' {
			return true
		}
	}
	return false
}

// Ratio returns the fraction of inputs that are edge cases, 0 when the
// function has no classifiable inputs.
func (p Profile) Ratio() float64 {
	total := p.Normal + p.Edge
	if total == 0 {
		return 0
	}
	return float64(p.Edge) / float64(total)
}

// DistinctCases returns how many distinct edge cases of a category were hit.
func (p Profile) DistinctCases(cat Category) int {
	n := 0
	for _, c := range categoryCases[cat] {
		if p.Cases[c] > 0 {
			n++
		}
	}
	return n
}
