package dictionary

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// requiredKeyword is the YAML scalar marking a field required-only.
const requiredKeyword = "required"

// ParseYAML reads a YAML rule source: a mapping from field name to either a
// list of allowed values or a required-only marker (null, "", "required", or
// the sentinel). Document order is preserved. A document wrapped in a single
// top-level "fields" key is unwrapped.
//
// Read failures wrap ErrRuleSourceUnreadable; YAML syntax errors wrap
// ErrMalformedRuleSource. A document that is not a mapping yields an empty
// dictionary.
func ParseYAML(r io.Reader, opts ...Option) (*Dictionary, error) {
	o := newOptions(opts)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuleSourceUnreadable, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRuleSource, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return New(), nil
	}
	if len(root.Content) == 2 && root.Content[0].Value == "fields" && root.Content[1].Kind == yaml.MappingNode {
		root = root.Content[1]
	}

	b := newBuilder()
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		field := UnescapeFieldName(strings.TrimSpace(key.Value))
		if field == "" {
			continue
		}
		b.start(field)

		switch val.Kind {
		case yaml.SequenceNode:
			for _, item := range val.Content {
				if item.Kind != yaml.ScalarNode {
					continue
				}
				v := strings.TrimSpace(item.Value)
				switch v {
				case "":
				case o.sentinel:
					b.reset(field)
				default:
					b.add(field, v)
				}
			}
		case yaml.ScalarNode:
			v := strings.TrimSpace(val.Value)
			if val.Tag == "!!null" || v == "" || strings.EqualFold(v, requiredKeyword) || v == o.sentinel {
				continue
			}
			b.add(field, v)
		}
	}

	return b.build(), nil
}
