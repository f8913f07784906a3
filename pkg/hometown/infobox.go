package hometown

import (
	"regexp"
	"strings"
)

var usStates = map[string]bool{
	"Alabama": true, "Alaska": true, "Arizona": true, "Arkansas": true,
	"California": true, "Colorado": true, "Connecticut": true, "Delaware": true,
	"Florida": true, "Georgia": true, "Hawaii": true, "Idaho": true,
	"Illinois": true, "Indiana": true, "Iowa": true, "Kansas": true,
	"Kentucky": true, "Louisiana": true, "Maine": true, "Maryland": true,
	"Massachusetts": true, "Michigan": true, "Minnesota": true, "Mississippi": true,
	"Missouri": true, "Montana": true, "Nebraska": true, "Nevada": true,
	"New Hampshire": true, "New Jersey": true, "New Mexico": true, "New York": true,
	"North Carolina": true, "North Dakota": true, "Ohio": true, "Oklahoma": true,
	"Oregon": true, "Pennsylvania": true, "Rhode Island": true, "South Carolina": true,
	"South Dakota": true, "Tennessee": true, "Texas": true, "Utah": true,
	"Vermont": true, "Virginia": true, "Washington": true, "West Virginia": true,
	"Wisconsin": true, "Wyoming": true, "District of Columbia": true, "D.C.": true,
}

var stateAbbrevs = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
}

var (
	birthPlaceRe = regexp.MustCompile(`(?s)\|\s*birth_place\s*=\s*(.+?)(?:\n\||\n\}\})`)
	collegeRe    = regexp.MustCompile(`(?s)\|\s*college\s*=\s*(.+?)(?:\n\||\n\}\})`)
	linkPipeRe   = regexp.MustCompile(`\[\[([^\]|]+)\|([^\]]+)\]\]`)
	linkRe       = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	templateRe   = regexp.MustCompile(`\{\{[^}]+\}\}`)
	suffixRe     = regexp.MustCompile(`(?i)\s+(Ii|Iii|Iv|Jr\.?|Sr\.?)$`)
)

// Infobox holds the fields extracted from a player article's infobox.
type Infobox struct {
	City    string
	State   string
	College string
}

// Found reports whether the infobox carried anything usable.
func (i Infobox) Found() bool {
	return i.State != "" || i.College != ""
}

// ParseInfobox pulls birth_place and college out of raw wikitext. Only US
// birthplaces count as hometowns; foreign-born players keep a nil hometown.
func ParseInfobox(wikitext string) Infobox {
	var box Infobox
	if wikitext == "" {
		return box
	}

	if m := birthPlaceRe.FindStringSubmatch(wikitext); m != nil {
		birth := stripMarkup(m[1])
		birth = strings.TrimRight(strings.TrimSpace(
			strings.ReplaceAll(strings.ReplaceAll(birth, "U.S.", ""), "USA", "")), ",")

		var parts []string
		for _, p := range strings.Split(birth, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}

		if len(parts) >= 2 {
			city, state := parts[0], parts[1]
			if usStates[state] {
				box.City, box.State = city, state
			} else if full, ok := stateAbbrevs[state]; ok {
				box.City, box.State = city, full
			}
		}
	}

	if m := collegeRe.FindStringSubmatch(wikitext); m != nil {
		college := strings.TrimSpace(stripMarkup(m[1]))
		if len(college) > 2 {
			box.College = college
		}
	}

	return box
}

// stripMarkup reduces wiki links to their display text and drops templates.
func stripMarkup(s string) string {
	s = linkPipeRe.ReplaceAllString(s, "$2")
	s = linkRe.ReplaceAllString(s, "$1")
	s = templateRe.ReplaceAllString(s, "")
	return s
}

// CleanName turns the league API's rendering of a name ("SHEAD, Jamal" and
// similar) into the form Wikipedia titles use. Generational suffixes are
// dropped because article titles rarely carry them.
func CleanName(name string) string {
	if i := strings.Index(name, ", "); i >= 0 {
		name = name[i+2:] + " " + name[:i]
	}
	name = titleCase(name)
	name = suffixRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
