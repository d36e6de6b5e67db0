package docstore

import "strings"

// Tree es un documento sin esquema (config.json). Se accede por paths con puntos: "report.channelId".
type Tree map[string]any

func splitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Tree:
		return m, true
	}
	return nil, false
}

// Lookup: path vacío devuelve el árbol completo.
func (t Tree) Lookup(path string) (any, bool) {
	keys := splitPath(path)
	if len(keys) == 0 {
		return map[string]any(t), true
	}
	var cur any = map[string]any(t)
	for _, k := range keys {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// With devuelve un árbol nuevo con el subárbol de path reemplazado; t no se modifica.
func (t Tree) With(path string, v any) Tree {
	keys := splitPath(path)
	if len(keys) == 0 {
		if m, ok := asMap(v); ok {
			return Tree(m)
		}
		return t
	}
	return Tree(setIn(t, keys, v))
}

func setIn(m map[string]any, keys []string, v any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, val := range m {
		out[k] = val
	}
	if len(keys) == 1 {
		out[keys[0]] = v
		return out
	}
	child, _ := asMap(m[keys[0]])
	out[keys[0]] = setIn(child, keys[1:], v)
	return out
}

// String devuelve el valor en path si es string.
func (t Tree) String(path string) string {
	v, ok := t.Lookup(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
