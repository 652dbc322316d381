package transform

import (
	"strconv"
	"strings"
)

// TokenizePath splits a dotted path with bracketed indices into segments.
// "a.b[0].c" yields ["a", "b", "0", "c"]. Empty segments are dropped and
// brackets that do not enclose digits are ignored.
func TokenizePath(path string) []string {
	if path == "" {
		return nil
	}

	var tokens []string
	for _, segment := range strings.Split(path, ".") {
		tokens = appendSegmentTokens(tokens, segment)
	}
	return tokens
}

func appendSegmentTokens(tokens []string, segment string) []string {
	i := 0
	for i < len(segment) {
		switch segment[i] {
		case '[':
			if end := strings.IndexByte(segment[i:], ']'); end > 1 && isNumericKey(segment[i+1:i+end]) {
				tokens = append(tokens, segment[i+1:i+end])
				i += end + 1
				continue
			}
			i++
		case ']':
			i++
		default:
			end := strings.IndexAny(segment[i:], "[]")
			if end < 0 {
				end = len(segment) - i
			}
			tokens = append(tokens, segment[i:i+end])
			i += end
		}
	}
	return tokens
}

// isNumericKey reports whether key consists only of ASCII digits.
func isNumericKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	return true
}

// GetPath returns the value at path. The boolean is false when any hop is
// missing: a map without the key, a list without the index, or a scalar in
// the middle of the path. A present null value is returned as (nil, true).
func GetPath(value interface{}, path string) (interface{}, bool) {
	tokens := TokenizePath(path)
	if len(tokens) == 0 {
		return nil, false
	}

	current := value
	for _, key := range tokens {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, ok := listIndex(key)
			if !ok || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func listIndex(key string) (int, bool) {
	if !isNumericKey(key) {
		return 0, false
	}
	idx, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// SetPath writes value at path inside target and returns the updated
// target. Missing or scalar intermediates are replaced by a new container:
// a list when the following segment is numeric, a map otherwise. Numeric
// segments index lists, extending them with nulls as needed, but are plain
// keys on maps. Non-numeric segments addressed to a list are dropped.
// A target that is not a container is replaced by a map.
func SetPath(target interface{}, path string, value interface{}) interface{} {
	tokens := TokenizePath(path)
	if len(tokens) == 0 {
		return target
	}

	switch target.(type) {
	case map[string]interface{}, []interface{}:
	default:
		target = make(map[string]interface{})
	}
	return setTokens(target, tokens, value)
}

func setTokens(container interface{}, tokens []string, value interface{}) interface{} {
	key := tokens[0]
	last := len(tokens) == 1

	switch node := container.(type) {
	case map[string]interface{}:
		if last {
			node[key] = value
			return node
		}
		node[key] = setTokens(childContainer(node[key], tokens[1]), tokens[1:], value)
		return node

	case []interface{}:
		idx, ok := listIndex(key)
		if !ok {
			return node
		}
		for len(node) <= idx {
			node = append(node, nil)
		}
		if last {
			node[idx] = value
			return node
		}
		node[idx] = setTokens(childContainer(node[idx], tokens[1]), tokens[1:], value)
		return node
	}
	return container
}

// childContainer keeps an existing map or list, otherwise creates the
// container type implied by the next segment.
func childContainer(existing interface{}, nextKey string) interface{} {
	switch existing.(type) {
	case map[string]interface{}, []interface{}:
		return existing
	}
	if isNumericKey(nextKey) {
		return []interface{}{}
	}
	return make(map[string]interface{})
}
