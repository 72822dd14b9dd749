package norms

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Seeded tables carry their criteria only inside free-text display names.
// The classifiers below read those names with ordered keyword rules; the
// first rule whose keyword occurs wins. Keywords match whole words; a
// trailing "*" lets the last word continue ("conductor*" matches
// "conductores").

// Normalize lowercases s and strips diacritics so "Educación Básica" and
// "educacion basica" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ContainsKeyword reports whether keyword k occurs in the normalized text n
// on word boundaries.
func ContainsKeyword(n, k string) bool {
	stem := strings.HasSuffix(k, "*")
	k = strings.TrimSuffix(k, "*")
	if k == "" {
		return false
	}
	for i := 0; i < len(n); {
		j := strings.Index(n[i:], k)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(k)
		if wordBoundary(n[:start], true) && (stem || wordBoundary(n[end:], false)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(n[start:])
		i = start + size
	}
	return false
}

// ContainsAnyKeyword is ContainsKeyword over a list.
func ContainsAnyKeyword(n string, keywords []string) bool {
	for _, k := range keywords {
		if ContainsKeyword(n, k) {
			return true
		}
	}
	return false
}

func wordBoundary(side string, before bool) bool {
	var r rune
	if before {
		r, _ = utf8.DecodeLastRuneInString(side)
	} else {
		r, _ = utf8.DecodeRuneInString(side)
	}
	if r == utf8.RuneError {
		return true
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

type keywordRule[T any] struct {
	keywords []string
	tag      T
}

func classify[T any](text string, rules []keywordRule[T]) (T, bool) {
	n := Normalize(text)
	for _, r := range rules {
		if ContainsAnyKeyword(n, r.keywords) {
			return r.tag, true
		}
	}
	var zero T
	return zero, false
}

// Education tiers.
type Education string

const (
	EducationFundamental Education = "fundamental"
	EducationMedium      Education = "medium"
	EducationSuperior    Education = "superior"
)

var educationRules = []keywordRule[Education]{
	{[]string{"superior", "universit*", "higher education", "tercer nivel"}, EducationSuperior},
	{[]string{"fundamental", "basica", "basico", "primaria", "elementary", "primary", "basic education"}, EducationFundamental},
	{[]string{"media", "medio", "bachiller*", "secundaria", "secondary", "high school", "medium"}, EducationMedium},
}

// EducationOf classifies free text (a table name or a profile value).
func EducationOf(text string) (Education, bool) { return classify(text, educationRules) }

// EducationKey is the comparison key for an education value: its tier when
// one is recognized, the normalized text otherwise.
func EducationKey(text string) string {
	if e, ok := EducationOf(text); ok {
		return string(e)
	}
	return Normalize(text)
}

// Transit sub-contexts.
type Transit string

const (
	TransitFirstLicense   Transit = "first_license"
	TransitRenewal        Transit = "renewal"
	TransitCategoryChange Transit = "category_change"
	TransitProfessional   Transit = "professional"
)

var transitRules = []keywordRule[Transit]{
	{[]string{"cambio de categoria", "category change", "recategorizacion", "adicion de categoria", "category addition"}, TransitCategoryChange},
	{[]string{"primera licencia", "first license", "first licence", "nuevo conductor"}, TransitFirstLicense},
	{[]string{"renovacion", "renewal", "revalidacion"}, TransitRenewal},
	{[]string{"profesional*", "professional*"}, TransitProfessional},
}

// TransitOf classifies a transit sub-context keyword.
func TransitOf(text string) (Transit, bool) {
	switch Transit(Normalize(text)) {
	case TransitFirstLicense, TransitRenewal, TransitCategoryChange, TransitProfessional:
		return Transit(Normalize(text)), true
	}
	return classify(text, transitRules)
}

// TransitTags returns every transit sub-context mentioned in text, in rule order.
func TransitTags(text string) []Transit {
	n := Normalize(text)
	var out []Transit
	for _, r := range transitRules {
		if ContainsAnyKeyword(n, r.keywords) {
			out = append(out, r.tag)
		}
	}
	return out
}

var transitContextWords = []string{"transito", "transit", "conductor*", "driver*", "licencia*", "license*", "licence*", "vial"}

// IsTransit reports whether text describes a transit-context table. A
// professional mention alone is not enough: "profesionales" also names
// university-educated samples.
func IsTransit(text string) bool {
	for _, tag := range TransitTags(text) {
		if tag != TransitProfessional {
			return true
		}
	}
	return ContainsAnyKeyword(Normalize(text), transitContextWords)
}

var generalWords = []string{"poblacion general", "general population", "baremo general", "norma general", "generic*"}

// IsGeneralPopulation reports whether text names a general-population table.
func IsGeneralPopulation(text string) bool {
	n := Normalize(text)
	return ContainsAnyKeyword(n, generalWords) || n == "general"
}

// AgeRange is a closed age interval parsed from a table name.
type AgeRange struct {
	Min, Max int
}

func (r AgeRange) Contains(age int) bool { return age >= r.Min && age <= r.Max }

var (
	ageSpanRe  = regexp.MustCompile(`\b(\d{1,2})\s*(?:-|–|a|al|to|y)\s*(\d{1,2})\s*(?:anos|years|yrs)?\b`)
	agePlusRe  = regexp.MustCompile(`\b(\d{1,2})\s*(?:\+|o mas|or more|anos o mas|years and over)`)
	ageOverRe  = regexp.MustCompile(`(?:mayores de|over|above)\s*(\d{1,2})\b`)
	maxAgeBand = 120
)

// AgeRangeOf extracts the first age interval embedded in text.
func AgeRangeOf(text string) (AgeRange, bool) {
	n := Normalize(text)
	if m := ageSpanRe.FindStringSubmatch(n); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo <= hi {
			return AgeRange{Min: lo, Max: hi}, true
		}
	}
	if m := agePlusRe.FindStringSubmatch(n); m != nil {
		lo, _ := strconv.Atoi(m[1])
		return AgeRange{Min: lo, Max: maxAgeBand}, true
	}
	if m := ageOverRe.FindStringSubmatch(n); m != nil {
		lo, _ := strconv.Atoi(m[1])
		return AgeRange{Min: lo + 1, Max: maxAgeBand}, true
	}
	return AgeRange{}, false
}

// Evaluation sub-types scope general-intelligence rows.
const (
	SubtypeTransit     = "transit"
	SubtypePersonnel   = "personnel_selection"
	SubtypeClinical    = "clinical"
	SubtypeEducational = "educational"
	SubtypeGeneral     = "general"
)

var subtypeRules = []keywordRule[string]{
	{[]string{"transito", "conductor*", "licencia*", "driver*", "transit"}, SubtypeTransit},
	{[]string{"seleccion", "personal", "laboral", "personnel", "recruit*"}, SubtypePersonnel},
	{[]string{"clinic*"}, SubtypeClinical},
	{[]string{"escolar*", "estudiant*", "educativ*", "school*", "student*"}, SubtypeEducational},
}

// SubtypeOf derives the evaluation sub-type from a table name.
func SubtypeOf(tableName string) string {
	if t, ok := classify(tableName, subtypeRules); ok {
		return t
	}
	return SubtypeGeneral
}

// MentionsRegion reports whether text names region (diacritics ignored).
func MentionsRegion(text, region string) bool {
	r := Normalize(region)
	return r != "" && strings.Contains(Normalize(text), r)
}
