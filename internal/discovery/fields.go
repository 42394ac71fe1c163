package discovery

import "strings"

// conceptIDs maps canonical field-of-study names to OpenAlex root concept
// identifiers. Fields in this map are filtered server-side via
// concepts.id; anything else falls back to a free-text query.
var conceptIDs = map[string]string{
	"Computer Science":      "C41008148",
	"Physics":               "C121332964",
	"Mathematics":           "C33923547",
	"Biology":               "C86803240",
	"Medicine":              "C71924100",
	"Engineering":           "C127413603",
	"Chemistry":             "C185592680",
	"Psychology":            "C15744967",
	"Economics":             "C162324750",
	"Environmental Science": "C39432304",
	"Materials Science":     "C192562407",
	"Geology":               "C127313418",
	"Sociology":             "C144024400",
	"Political Science":     "C17744445",
	"Philosophy":            "C138885662",
	"History":               "C95457728",
	"Art":                   "C142362112",
	"Business":              "C144133560",
	"Geography":             "C205649164",
}

// fieldAliases maps informal field names onto canonical ones.
var fieldAliases = map[string]string{
	"AI":                      "Computer Science",
	"Artificial Intelligence": "Computer Science",
	"Machine Learning":        "Computer Science",
	"CS":                      "Computer Science",
	"Math":                    "Mathematics",
	"Bio":                     "Biology",
	"Econ":                    "Economics",
}

// fieldQueries provides free-text search queries for fields that cannot be
// expressed as a concept filter.
var fieldQueries = map[string]string{
	"Computer Science":      "computer science OR machine learning OR artificial intelligence",
	"Physics":               "physics OR quantum mechanics OR astrophysics",
	"Mathematics":           "mathematics OR algebra OR topology",
	"Biology":               "biology OR genetics OR molecular biology",
	"Medicine":              "medicine OR clinical trial OR therapeutics",
	"Engineering":           "engineering OR mechanical OR electrical",
	"Chemistry":             "chemistry OR organic chemistry OR biochemistry",
	"Psychology":            "psychology OR cognitive OR behavioral",
	"Economics":             "economics OR econometrics OR finance",
	"Environmental Science": "environmental science OR climate OR sustainability",
}

// canonicalField resolves aliases and case-insensitive matches to a
// canonical field name. Returns the input unchanged when unknown.
func canonicalField(field string) string {
	field = strings.TrimSpace(field)
	if field == "" {
		return ""
	}

	if canonical, ok := fieldAliases[field]; ok {
		return canonical
	}
	if _, ok := conceptIDs[field]; ok {
		return field
	}

	// Case-insensitive pass over both maps.
	for name := range conceptIDs {
		if strings.EqualFold(name, field) {
			return name
		}
	}
	for alias, canonical := range fieldAliases {
		if strings.EqualFold(alias, field) {
			return canonical
		}
	}

	return field
}

// resolveField translates a human field name into search parameters for the
// primary provider: a concept ID when the field is known, otherwise a
// free-text query. An empty field means match-all.
func resolveField(field string) (conceptID, query string) {
	canonical := canonicalField(field)
	if canonical == "" {
		return "", "*"
	}

	if id, ok := conceptIDs[canonical]; ok {
		return id, "*"
	}
	if q, ok := fieldQueries[canonical]; ok {
		return "", q
	}

	// Unknown field: search it as free text.
	return "", canonical
}
