package policy

import (
	"strconv"
	"strings"
)

// resolve walks an RFC 6901 JSON Pointer (e.g. "/detection/fields/0/name")
// against a generic decoded document (maps/slices/scalars, the shape
// gopkg.in/yaml.v3 produces for `any`). The empty pointer "" refers to the
// whole document. Returns the resolved value and whether the path exists.
func resolve(doc any, pointer string) (any, bool) {
	if pointer == "" {
		return doc, true
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, false
	}

	tokens := strings.Split(pointer[1:], "/")
	current := doc
	for _, raw := range tokens {
		token := unescapeToken(raw)

		switch node := current.(type) {
		case map[string]any:
			v, ok := node[token]
			if !ok {
				return nil, false
			}
			current = v
		case map[any]any:
			v, ok := node[token]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func unescapeToken(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	token = strings.ReplaceAll(token, "~0", "~")
	return token
}
