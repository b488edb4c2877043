package score

import "sort"

// TaxonomyEntry maps a keyword to the category codes and agency focus areas
// it implies.
type TaxonomyEntry struct {
	Codes    []string
	Agencies []string
}

// Taxonomy is the fixed keyword -> classification lookup used to infer
// categories from a query description. It stands in for the external
// taxonomy table collaborator; deployments load their own.
type Taxonomy map[string]TaxonomyEntry

// Inference is the classification implied by a query's terms.
// Slices are sorted and de-duplicated for deterministic scoring.
type Inference struct {
	Codes    []string
	Agencies []string
}

// Infer looks every query term up in the taxonomy and merges the results.
func (t Taxonomy) Infer(terms []string) Inference {
	codes := make(map[string]bool)
	agencies := make(map[string]bool)

	for _, term := range terms {
		entry, ok := t[term]
		if !ok {
			continue
		}
		for _, c := range entry.Codes {
			codes[c] = true
		}
		for _, a := range entry.Agencies {
			agencies[a] = true
		}
	}

	return Inference{
		Codes:    sortedKeys(codes),
		Agencies: sortedKeys(agencies),
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultTaxonomy returns the built-in keyword taxonomy. It covers the
// domains the demo corpus spans; production deployments replace it via
// WithTaxonomy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		"satellite":    {Codes: []string{"earth-observation"}, Agencies: []string{"NASA", "NOAA"}},
		"imagery":      {Codes: []string{"earth-observation"}, Agencies: []string{"NASA", "NOAA", "NGA"}},
		"geospatial":   {Codes: []string{"earth-observation", "geospatial-services"}, Agencies: []string{"NGA", "USGS"}},
		"remote":       {Codes: []string{"earth-observation"}, Agencies: []string{"NASA", "NOAA"}},
		"weather":      {Codes: []string{"atmospheric-science"}, Agencies: []string{"NOAA"}},
		"climate":      {Codes: []string{"atmospheric-science"}, Agencies: []string{"NOAA", "EPA"}},
		"flood":        {Codes: []string{"disaster-response"}, Agencies: []string{"FEMA", "NOAA", "USACE"}},
		"wildfire":     {Codes: []string{"disaster-response"}, Agencies: []string{"FEMA", "USDA"}},
		"disaster":     {Codes: []string{"disaster-response"}, Agencies: []string{"FEMA"}},
		"emergency":    {Codes: []string{"disaster-response"}, Agencies: []string{"FEMA", "DHS"}},
		"cybersecurity": {Codes: []string{"cybersecurity"}, Agencies: []string{"CISA", "DHS"}},
		"cyber":        {Codes: []string{"cybersecurity"}, Agencies: []string{"CISA", "DHS", "DOD"}},
		"encryption":   {Codes: []string{"cybersecurity"}, Agencies: []string{"NSA", "NIST"}},
		"health":       {Codes: []string{"health-it"}, Agencies: []string{"HHS", "VA"}},
		"clinical":     {Codes: []string{"health-it"}, Agencies: []string{"HHS", "NIH"}},
		"telehealth":   {Codes: []string{"health-it"}, Agencies: []string{"HHS", "VA"}},
		"drone":        {Codes: []string{"uncrewed-systems"}, Agencies: []string{"FAA", "DOD"}},
		"uas":          {Codes: []string{"uncrewed-systems"}, Agencies: []string{"FAA", "DOD"}},
		"autonomous":   {Codes: []string{"uncrewed-systems"}, Agencies: []string{"DOD", "DOT"}},
		"broadband":    {Codes: []string{"telecommunications"}, Agencies: []string{"FCC", "USDA", "NTIA"}},
		"spectrum":     {Codes: []string{"telecommunications"}, Agencies: []string{"FCC", "NTIA"}},
		"solar":        {Codes: []string{"clean-energy"}, Agencies: []string{"DOE"}},
		"grid":         {Codes: []string{"clean-energy"}, Agencies: []string{"DOE"}},
		"battery":      {Codes: []string{"clean-energy"}, Agencies: []string{"DOE", "DOD"}},
		"logistics":    {Codes: []string{"supply-chain"}, Agencies: []string{"DOD", "GSA", "DLA"}},
		"translation":  {Codes: []string{"language-services"}, Agencies: []string{"DOS", "DOJ"}},
		"water":        {Codes: []string{"environmental-services"}, Agencies: []string{"EPA", "USACE"}},
		"agriculture":  {Codes: []string{"agricultural-technology"}, Agencies: []string{"USDA"}},
		"training":     {Codes: []string{"workforce-development"}, Agencies: []string{"DOL", "DOD"}},
	}
}
