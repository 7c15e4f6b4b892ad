// Package normalize maps the brand and category of a plan onto the spellings
// the catalog uses, so "acme " or "COFFEE" still match "Acme" and "Coffee".
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"benefit-recommendation-api/internal/models"
)

// Vocabulary holds the brands and categories of one catalog snapshot, keyed
// by their folded form.
type Vocabulary struct {
	brands     map[string]string
	categories map[string]string
}

// NewVocabulary collects brands and categories from records. When two
// spellings fold to the same key the first one in catalog order wins.
func NewVocabulary(records ...[]models.BenefitRecord) *Vocabulary {
	v := &Vocabulary{
		brands:     make(map[string]string),
		categories: make(map[string]string),
	}
	for _, rs := range records {
		for _, r := range rs {
			addTerm(v.brands, r.Brand)
			addTerm(v.categories, r.Category)
		}
	}
	return v
}

func addTerm(m map[string]string, term string) {
	if term == "" {
		return
	}
	if k := fold(term); k != "" {
		if _, ok := m[k]; !ok {
			m[k] = term
		}
	}
}

// Len returns the number of distinct brands and categories.
func (v *Vocabulary) Len() (brands, categories int) {
	return len(v.brands), len(v.categories)
}

// Result is a normalized plan and what was done to it.
type Result struct {
	Plan    models.Plan
	Changed bool
	Swapped bool
}

// Normalize returns plan with brand and category replaced by their catalog
// spelling. A brand and category given the wrong way round are swapped
// back. Values the catalog does not know are left as they are.
func (v *Vocabulary) Normalize(plan models.Plan) Result {
	res := Result{Plan: plan}

	brand, brandOK := lookup(v.brands, plan.Brand)
	category, categoryOK := lookup(v.categories, plan.Category)

	if !brandOK && !categoryOK {
		swappedBrand, ok1 := lookup(v.brands, plan.Category)
		swappedCategory, ok2 := lookup(v.categories, plan.Brand)
		if ok1 && ok2 {
			res.Plan.Brand, res.Plan.Category = swappedBrand, swappedCategory
			res.Changed, res.Swapped = true, true
			return res
		}
	}

	if brandOK {
		res.Plan.Brand = brand
	}
	if categoryOK {
		res.Plan.Category = category
	}
	res.Changed = res.Plan.Brand != plan.Brand || res.Plan.Category != plan.Category
	return res
}

func lookup(m map[string]string, term string) (string, bool) {
	if term == "" {
		return "", false
	}
	s, ok := m[fold(term)]
	return s, ok
}

// fold drops all whitespace and case so "Mega Box" and "megabox" compare
// equal. NFKC first turns full-width letters into their ASCII forms. A Caser
// keeps state, so each call gets its own.
func fold(s string) string {
	s = norm.NFKC.String(s)
	return cases.Fold().String(strings.Join(strings.Fields(s), ""))
}
