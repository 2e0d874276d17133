package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

func isSection(name string) bool {
	return name == SectionCode || name == SectionFile
}

// appendEntry keeps the first position of a rule name and the last value,
// the same way a JSON object with a duplicated key is usually read.
func appendEntry(entries []namedEntry, e namedEntry) []namedEntry {
	for i := range entries {
		if entries[i].name == e.name {
			entries[i].entry = e.entry
			return entries
		}
	}
	return append(entries, e)
}

// decodeJSON walks the token stream so the declaration order of the rules survives.
func decodeJSON(data []byte) (map[string][]namedEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	out := map[string][]namedEntry{}
	for dec.More() {
		section, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if !isSection(section) {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("section %s: %w", section, err)
			}
			continue
		}

		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("section %s: %w", section, err)
		}
		entries := out[section]
		for dec.More() {
			name, err := readKey(dec)
			if err != nil {
				return nil, fmt.Errorf("section %s: %w", section, err)
			}
			var e entry
			if err := dec.Decode(&e); err != nil {
				return nil, fmt.Errorf("rule %s/%s: %w", section, name, err)
			}
			entries = appendEntry(entries, namedEntry{name: name, entry: e})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, fmt.Errorf("section %s: %w", section, err)
		}
		if entries == nil {
			entries = []namedEntry{}
		}
		out[section] = entries
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode rule file: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("decode rule file: expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("decode rule file: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("decode rule file: expected object key, got %v", tok)
	}
	return key, nil
}

// decodeYAML reads mapping nodes directly; decoding into a map would lose the order.
func decodeYAML(data []byte) (map[string][]namedEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rule file: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return map[string][]namedEntry{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode rule file: line %d: expected a mapping", root.Line)
	}

	out := map[string][]namedEntry{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		section, body := root.Content[i].Value, root.Content[i+1]
		if !isSection(section) {
			continue
		}
		if body.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("section %s: line %d: expected a mapping", section, body.Line)
		}

		entries := []namedEntry{}
		for j := 0; j+1 < len(body.Content); j += 2 {
			name := body.Content[j].Value
			var e entry
			if err := body.Content[j+1].Decode(&e); err != nil {
				return nil, fmt.Errorf("rule %s/%s: %w", section, name, err)
			}
			entries = appendEntry(entries, namedEntry{name: name, entry: e})
		}
		out[section] = entries
	}
	return out, nil
}
