package kirby

import (
	"regexp"
	"strings"
)

var (
	fieldSeparator = regexp.MustCompile(`(?m)^-{4,}\s*$`)
	fieldName      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
)

// ParseFields decodes a content file: "Name: value" entries separated by
// lines of four or more dashes. Names are lowercased; values keep inner
// newlines with the surrounding whitespace trimmed. Blocks that do not
// start with a field name are dropped.
func ParseFields(data []byte) map[string]string {
	fields := make(map[string]string)
	for _, block := range fieldSeparator.Split(string(data), -1) {
		name, value, ok := strings.Cut(block, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if !fieldName.MatchString(name) {
			continue
		}
		fields[strings.ToLower(name)] = strings.TrimSpace(value)
	}
	return fields
}
