package content

import (
	"fmt"
	"strconv"
	"strings"
)

// PathError reports a path segment that does not exist in a tree.
type PathError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("content path %q: segment %q %s", e.Path, e.Segment, e.Reason)
}

// JoinPath appends segments to a dot-delimited path.
func JoinPath(parent string, segment string) string {
	if parent == "" {
		return segment
	}
	return parent + "." + segment
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// GetAtPath returns the value addressed by path. The empty path addresses the root.
func GetAtPath(tree any, path string) (any, bool) {
	current := tree
	for _, segment := range splitPath(path) {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func child(node any, segment string) (any, bool) {
	switch v := node.(type) {
	case map[string]any:
		value, ok := v[segment]
		return value, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil, false
		}
		return v[idx], true
	default:
		return nil, false
	}
}

// SetAtPath returns a deep copy of tree with the node at path replaced by value.
// The input tree is never modified and shares no nodes with the result.
//
// Paths come from classifying the same tree, so a missing intermediate segment
// is a programming error and panics with a *PathError. Use TrySetAtPath for
// paths that arrive from outside.
func SetAtPath(tree any, path string, value any) any {
	updated, err := TrySetAtPath(tree, path, value)
	if err != nil {
		panic(err)
	}
	return updated
}

// TrySetAtPath is SetAtPath returning the path error instead of panicking.
// A missing final key on an object is created; every other missing segment fails.
func TrySetAtPath(tree any, path string, value any) (any, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return Clone(value), nil
	}

	root := Clone(tree)
	parent := root
	for i, segment := range segments {
		last := i == len(segments)-1

		switch node := parent.(type) {
		case map[string]any:
			if last {
				node[segment] = Clone(value)
				return root, nil
			}
			next, ok := node[segment]
			if !ok {
				return nil, &PathError{Path: path, Segment: segment, Reason: "does not exist"}
			}
			parent = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil {
				return nil, &PathError{Path: path, Segment: segment, Reason: "is not a list index"}
			}
			if idx < 0 || idx >= len(node) {
				return nil, &PathError{Path: path, Segment: segment, Reason: "is out of range"}
			}
			if last {
				node[idx] = Clone(value)
				return root, nil
			}
			parent = node[idx]
		default:
			return nil, &PathError{Path: path, Segment: segment, Reason: "has no parent container"}
		}
	}

	return root, nil
}

// Clone deep-copies objects and arrays; scalars are returned as is.
func Clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Clone(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Clone(item)
		}
		return out
	default:
		return value
	}
}
