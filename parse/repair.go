package parse

import (
	"regexp"
	"strings"
)

// repairRule is one ordered, pure text transformation applied before
// structural decoding. Order matters: escape fixes must run before the
// unicode pass, bracket closing before whitespace collapsing.
type repairRule struct {
	name  string
	apply func(string) string
}

var (
	controlChars    = regexp.MustCompile(`[\x00-\x19]+`)
	fullwidthDouble = regexp.MustCompile("[“”]")
	fullwidthSingle = regexp.MustCompile("[‘’]")
	trailingComma   = regexp.MustCompile(`,(\s*[}\]])`)
	duplicateComma  = regexp.MustCompile(`,\s*,`)
	badEscape       = regexp.MustCompile(`\\([^"\\/bfnrtu])`)
	openArray       = regexp.MustCompile(`\[([^\]]*)$`)
	openObject      = regexp.MustCompile(`\{([^}]*)$`)
	unicodeEscape   = regexp.MustCompile(`\\u([0-9a-fA-F]{0,4})`)
	newlineTab      = regexp.MustCompile(`[\n\r\t]`)
	paddedString    = regexp.MustCompile(`"\s+([^"]*)\s+"`)
)

var repairRules = []repairRule{
	{"strip-bom", func(s string) string {
		return strings.TrimPrefix(s, "\uFEFF")
	}},
	{"control-chars", func(s string) string {
		return controlChars.ReplaceAllString(s, " ")
	}},
	{"typographic-quotes", func(s string) string {
		s = fullwidthDouble.ReplaceAllString(s, `"`)
		return fullwidthSingle.ReplaceAllString(s, `'`)
	}},
	{"trailing-comma", func(s string) string {
		return trailingComma.ReplaceAllString(s, "${1}")
	}},
	{"duplicate-comma", func(s string) string {
		return duplicateComma.ReplaceAllString(s, ",")
	}},
	{"bad-escape", func(s string) string {
		return badEscape.ReplaceAllString(s, `\\${1}`)
	}},
	{"close-open-array", func(s string) string {
		return openArray.ReplaceAllString(s, "[${1}]")
	}},
	{"close-open-object", func(s string) string {
		return openObject.ReplaceAllString(s, "{${1}}")
	}},
	{"truncated-unicode", func(s string) string {
		return unicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
			digits := m[2:]
			if len(digits) == 4 {
				return m
			}
			return `\\u` + digits
		})
	}},
	{"newline-tab", func(s string) string {
		return newlineTab.ReplaceAllString(s, " ")
	}},
	{"padded-string", func(s string) string {
		return paddedString.ReplaceAllString(s, `"${1}"`)
	}},
}

// Repair runs the full repair pipeline over a candidate JSON string. Each
// rule is best effort; the result is still only a candidate until decoding
// succeeds.
func Repair(s string) string {
	for _, rule := range repairRules {
		s = rule.apply(s)
	}
	return strings.TrimSpace(s)
}
