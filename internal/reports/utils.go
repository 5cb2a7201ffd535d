package reports

import (
	"html"
	"strconv"
	"strings"
	"unicode"
)

// ToTitleCase converts a string to title case (first letter of each word capitalized)
func ToTitleCase(s string) string {
	if s == "" {
		return s
	}

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			runes := []rune(word)
			runes[0] = unicode.ToUpper(runes[0])
			for j := 1; j < len(runes); j++ {
				runes[j] = unicode.ToLower(runes[j])
			}
			words[i] = string(runes)
		}
	}
	return strings.Join(words, " ")
}

// FieldLabel turns a configuration field name into a form label:
// "max_data_points" becomes "Max Data Points"
func FieldLabel(field string) string {
	return ToTitleCase(strings.ReplaceAll(field, "_", " "))
}

// markdownCell makes s safe to place inside a GFM table cell
func markdownCell(s string) string {
	s = html.EscapeString(s)
	s = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return s
}

func formatStat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
