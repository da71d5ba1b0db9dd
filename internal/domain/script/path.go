package script

// Get walks tree along path and returns the value found, or nil when any
// segment is missing or a non-object is encountered mid-path. It never
// panics.
func Get(tree map[string]interface{}, path ...string) interface{} {
	var cur interface{} = tree
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = m[key]
		if !ok {
			return nil
		}
	}
	return cur
}

// GetString returns the string at path, or "" when the value is absent or
// not a string.
func GetString(tree map[string]interface{}, path ...string) string {
	s, _ := Get(tree, path...).(string)
	return s
}

// Set returns a new tree with the value placed at path. Nodes along the path
// are shallow-copied so the original tree is never mutated; subtrees off the
// path are shared by reference. Missing intermediate containers are created,
// and a non-object value found mid-path is overwritten with an empty object
// (last write wins, structure over data).
func Set(tree map[string]interface{}, path []string, value interface{}) map[string]interface{} {
	if len(path) == 0 {
		return tree
	}
	root := copyNode(tree)
	node := root
	for _, key := range path[:len(path)-1] {
		child, _ := node[key].(map[string]interface{})
		next := copyNode(child)
		node[key] = next
		node = next
	}
	node[path[len(path)-1]] = value
	return root
}

// copyNode shallow-copies a map node; nil yields a fresh empty node.
func copyNode(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
