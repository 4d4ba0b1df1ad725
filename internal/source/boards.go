package source

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GreenhouseBoards maps company key to Greenhouse board ID.
var GreenhouseBoards = map[string]string{
	"phonepe":       "phonepe",
	"razorpay":      "razorpaysoftwareprivatelimited",
	"flipkart":      "flipkart",
	"myntra":        "myntra",
	"groww":         "groww",
	"zerodha":       "zerodha",
	"curefit":       "caborneoadvisors",
	"urban_company": "urbancompany",
	"lenskart":      "laborx",
	"nykaa":         "nykaa",
}

// LeverBoards maps company key to Lever posting ID.
var LeverBoards = map[string]string{
	"cred":      "cred",
	"meesho":    "meesho",
	"zepto":     "zepto",
	"jupiter":   "jupiter-money",
	"slice":     "slicepay",
	"khatabook": "khatabook",
	"unacademy": "unacademy",
	"sharechat": "sharechatapp",
}

// companySlugToName overrides display names that title-casing would mangle.
var companySlugToName = map[string]string{
	"phonepe":                        "PhonePe",
	"razorpaysoftwareprivatelimited": "Razorpay",
	"cred":                           "CRED",
	"meesho":                         "Meesho",
}

// companyNameFromSlug returns the display name for a board slug, falling
// back to a title-cased form of the slug.
func companyNameFromSlug(slug string) string {
	if name, ok := companySlugToName[strings.ToLower(slug)]; ok {
		return name
	}
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(slug))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// sortedValues returns the map values in a stable order so board crawls
// are deterministic.
func sortedValues(m map[string]string) []string {
	values := make([]string, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// stripHTML extracts visible text from board posting content.
func stripHTML(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var parts []string
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		parts = append(parts, sel.Text())
	})
	text := strings.Join(parts, " ")
	return strings.Join(strings.Fields(text), " ")
}
