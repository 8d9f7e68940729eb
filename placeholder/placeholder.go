// Package placeholder implements the two-syntax marker scanner used to
// rewrite user-turn content before it is sent to a model: `{{key}}` for
// context-store lookups and `{name}` for stage-parameter lookups.
package placeholder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kairos-run/orchestrator/contextstore"
)

const outputMarker = ":output"

// span is one recognized marker found by scan.
type span struct {
	start, end int // [start, end) in the source string, end exclusive
	key        string
	double     bool // true for {{key}}, false for {name}
}

// scan performs the single left-to-right pass pinned by the grammar: at
// every '{' it greedily checks for a second consecutive '{' to commit to a
// {{…}} span closed by the first "}}"; failing that it looks for a {…}
// span closed by the first single "}". An unclosed '{' is literal text.
func scan(content string) []span {
	var spans []span
	for i := 0; i < len(content); {
		if content[i] != '{' {
			i++
			continue
		}
		if i+1 < len(content) && content[i+1] == '{' {
			// The closing "}}" is the FIRST one in the remainder, so several
			// {{…}} markers in one string stay separate; on {{{a}}} the key is
			// "{a" and one literal "}" follows (see placeholder_test.go).
			rest := content[i+2:]
			if close := strings.Index(rest, "}}"); close >= 0 {
				key := rest[:close]
				end := i + 2 + close + 2
				spans = append(spans, span{start: i, end: end, key: key, double: true})
				i = end
				continue
			}
			// no closing "}}" anywhere ahead; '{' is literal.
			i++
			continue
		}
		rest := content[i+1:]
		if close := strings.IndexByte(rest, '}'); close >= 0 {
			key := rest[:close]
			if isParamName(key) {
				end := i + 1 + close + 1
				spans = append(spans, span{start: i, end: end, key: key, double: false})
				i = end
				continue
			}
			// not a recognizable parameter name (e.g. JSON-ish content like
			// "x:1") — the brace is literal text, not a marker.
			i++
			continue
		}
		i++
	}
	return spans
}

// isParamName reports whether s is a valid {name} stage-parameter
// identifier: a non-empty run of letters, digits, underscores, and dots,
// starting with a letter or underscore. This keeps JSON-ish literal braces
// in user-turn content (e.g. "give JSON {x:1}") from being mistaken for
// unresolved parameter markers.
func isParamName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '.':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Resolve rewrites every marker in content, using sessionID as the special
// "sessionId" context key, stageParams for {name} lookups, and store for
// {{key}} context lookups. {{…}} markers always resolve, falling back to
// empty string when their key is absent; {name} markers are left
// unresolved in the output when stageParams has no entry for name, so
// HasUnresolved can flag them afterward.
func Resolve(ctx context.Context, sessionID string, content string, stageParams map[string]any, store contextstore.ItemStore) (string, error) {
	spans := scan(content)
	if len(spans) == 0 {
		return content, nil
	}

	var b strings.Builder
	cursor := 0
	for _, s := range spans {
		b.WriteString(content[cursor:s.start])
		if s.double {
			resolved, err := resolveContextKey(ctx, sessionID, s.key, store)
			if err != nil {
				return "", err
			}
			b.WriteString(resolved)
		} else {
			resolved, ok, err := resolveParam(ctx, sessionID, s.key, stageParams, store)
			if err != nil {
				return "", err
			}
			if ok {
				b.WriteString(resolved)
			} else {
				b.WriteString(content[s.start:s.end])
			}
		}
		cursor = s.end
	}
	b.WriteString(content[cursor:])
	return b.String(), nil
}

// HasUnresolved reports whether content still contains a recognizable
// {{…}}/{…} marker. PlaceholderValidationMiddleware calls this after
// Resolve; a true result fails the stage with orcherr.UnresolvedPlaceholder.
func HasUnresolved(content string) bool {
	return len(scan(content)) > 0
}

func resolveParam(ctx context.Context, sessionID, name string, stageParams map[string]any, store contextstore.ItemStore) (string, bool, error) {
	raw, ok := stageParams[name]
	if !ok {
		return "", false, nil
	}
	if s, isString := raw.(string); isString {
		if inner, isDouble := asDoubleBraceLiteral(s); isDouble {
			resolved, err := resolveContextKey(ctx, sessionID, inner, store)
			if err != nil {
				return "", false, err
			}
			return resolved, true, nil
		}
		return s, true, nil
	}
	return toString(raw), true, nil
}

// asDoubleBraceLiteral reports whether s is, in its entirety, a {{key}}
// marker, returning key if so.
func asDoubleBraceLiteral(s string) (string, bool) {
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") || len(s) < 4 {
		return "", false
	}
	return s[2 : len(s)-2], true
}

func resolveContextKey(ctx context.Context, sessionID, key string, store contextstore.ItemStore) (string, error) {
	if key == "sessionId" {
		return sessionID, nil
	}
	if strings.Contains(key, outputMarker) {
		return resolveOutputPath(ctx, sessionID, key, store)
	}
	raw, ok, err := store.LoadItemString(ctx, sessionID, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return raw, nil
}

// resolveOutputPath implements rule 1 of §4.8: split at the first ':'
// after ':output' into record key and JSON path, load the record under
// "stage:{recordKey}", and navigate it.
func resolveOutputPath(ctx context.Context, sessionID, key string, store contextstore.ItemStore) (string, error) {
	markerEnd := strings.Index(key, outputMarker) + len(outputMarker)
	recordKey := key
	path := ""
	if splitAt := strings.IndexByte(key[markerEnd:], ':'); splitAt >= 0 {
		recordKey = key[:markerEnd+splitAt]
		path = key[markerEnd+splitAt+1:]
	}

	raw, ok, err := store.LoadItemString(ctx, sessionID, "stage:"+recordKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	if path == "" {
		return raw, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw, nil
	}
	node, found := navigate(decoded, strings.Split(path, ":"))
	if !found {
		return "{}", nil
	}
	encoded, err := json.Marshal(node)
	if err != nil {
		return raw, nil
	}
	return string(encoded), nil
}

func navigate(node any, segments []string) (any, bool) {
	for _, seg := range segments {
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := node.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			node = arr[idx]
			continue
		}
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
