package payload

import (
	"encoding/json"
	"fmt"
	"strings"
)

// urlKeys are searched in this order inside objects.
var urlKeys = []string{"output", "url", "image", "result", "prediction"}

// ExtractURL finds the URL in a generation-style response: the first
// non-empty string under output, url, image, result or prediction, taking
// the first element of any array on the way. A bare string or array body
// works too.
func ExtractURL(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoURL, err)
	}
	if s, ok := findURL(v, 0); ok {
		return s, nil
	}
	return "", ErrNoURL
}

func findURL(v any, depth int) (string, bool) {
	if depth > maxDepth*2 {
		return "", false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case []any:
		if len(t) == 0 {
			return "", false
		}
		return findURL(t[0], depth+1)
	case map[string]any:
		for _, k := range urlKeys {
			if inner, ok := t[k]; ok {
				if s, found := findURL(inner, depth+1); found {
					return s, true
				}
			}
		}
	}
	return "", false
}
