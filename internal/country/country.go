// Package country canonicalizes the country identifiers that arrive on
// quote lines. Upstream mixes ISO codes, local variants and full names.
package country

import "strings"

var aliases = map[string]string{
	"UK/GB":          "GB",
	"UK":             "GB",
	"UNITED KINGDOM": "GB",
	"USA":            "US",
	"UNITED STATES":  "US",
	"UAE":            "AE",
	"AUSTRALIA":      "AU",
	"NEW ZEALAND":    "NZ",
	"IRELAND":        "IE",
	"CANADA":         "CA",
	"SINGAPORE":      "SG",
}

// Normalize trims, upper-cases and resolves known aliases. Unmapped codes
// pass through case-normalized; the function never fails.
func Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))

	if canonical, ok := aliases[code]; ok {
		return canonical
	}

	return code
}
