package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeyOrder records the document order of object keys, keyed by object path
// ("" is the root). Go maps forget the order the backend sent, and editors
// expect fields in that order.
type KeyOrder map[string][]string

// Keys returns the keys of obj ordered by the recorded document order, with
// keys the order does not know about appended alphabetically.
func (o KeyOrder) Keys(path string, obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	seen := make(map[string]struct{}, len(obj))

	for _, key := range o[path] {
		if _, ok := obj[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	rest := make([]string, 0, len(obj)-len(keys))
	for key := range obj {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	return append(keys, rest...)
}

// Decode parses raw JSON into a tree and records its key order.
func Decode(raw []byte) (any, KeyOrder, error) {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, nil, fmt.Errorf("decode content: %w", err)
	}

	order := KeyOrder{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := recordOrder(dec, "", order); err != nil {
		return nil, nil, fmt.Errorf("decode content order: %w", err)
	}

	return tree, order, nil
}

func recordOrder(dec *json.Decoder, path string, order KeyOrder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		if s, isString := tok.(string); isString {
			recordEncodedOrder(s, path, order)
		}
		return nil
	}

	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)
			order[path] = append(order[path], key)
			if err := recordOrder(dec, JoinPath(path, key), order); err != nil {
				return err
			}
		}
	case '[':
		for i := 0; dec.More(); i++ {
			if err := recordOrder(dec, JoinPath(path, strconv.Itoa(i)), order); err != nil {
				return err
			}
		}
	}

	// closing delimiter
	_, err = dec.Token()
	return err
}

// recordEncodedOrder records the key order of a string holding an encoded
// object or array under the string's own path, matching where Unbox puts
// the decoded value.
func recordEncodedOrder(s, path string, order KeyOrder) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') || !json.Valid([]byte(trimmed)) {
		return
	}
	_ = recordOrder(json.NewDecoder(strings.NewReader(trimmed)), path, order)
}
