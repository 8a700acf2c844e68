package utils

import "strings"

// Render substitutes {name} placeholders in content with values from the
// variable bag. Only string values are substituted; placeholders without
// a string value are left verbatim.
func Render(content string, vars map[string]interface{}) string {
	for key, value := range vars {
		s, ok := value.(string)
		if !ok {
			continue
		}
		content = strings.ReplaceAll(content, "{"+key+"}", s)
	}
	return content
}
