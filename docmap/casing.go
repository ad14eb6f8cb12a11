package docmap

import (
	"strings"
	"unicode"
)

// ApplyCasing renders a member name under the casing convention.
func ApplyCasing(c Casing, name string) string {
	switch c {
	case CasingCamel:
		return camelCase(name)
	case CasingSnake:
		return snakeCase(name)
	default:
		return name
	}
}

// camelCase lower-cases the leading run of upper-case letters, keeping the
// last one when it starts the next word: "ID" -> "id", "URLPath" -> "urlPath".
func camelCase(s string) string {
	runes := []rune(s)
	for i := range runes {
		if !unicode.IsUpper(runes[i]) {
			break
		}
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// snakeCase joins camel-case tokens with underscores: "OrderID" -> "order_id",
// "XMLParser" -> "xml_parser".
func snakeCase(s string) string {
	tokens := tokenizeCamelCase(s)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return strings.Join(tokens, "_")
}

// tokenizeCamelCase splits a CamelCase or camelCase string into tokens.
//   - "OrderID" -> ["Order", "ID"]
//   - "getHTTPResponse" -> ["get", "HTTP", "Response"]
//   - "address_city" -> ["address", "city"]
func tokenizeCamelCase(s string) []string {
	var tokens []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			continue
		}
		if i > 0 && startsToken(runes, i) && current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func startsToken(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
		return true
	}
	// end of an acronym: "XMLParser" splits before 'P'
	return unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
