package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineSize bounds a single rule source line.
const maxLineSize = 1 << 20

// builder collects fields in first-seen order while a source is parsed.
type builder struct {
	fields []string
	values map[string][]string
}

func newBuilder() *builder {
	return &builder{values: make(map[string][]string)}
}

// start (re)opens a field with an empty enumeration.
func (b *builder) start(field string) {
	if _, exists := b.values[field]; !exists {
		b.fields = append(b.fields, field)
	}
	b.values[field] = []string{}
}

// reset marks the field required-only, dropping values collected so far.
func (b *builder) reset(field string) {
	b.values[field] = []string{}
}

func (b *builder) add(field, value string) {
	b.values[field] = append(b.values[field], value)
}

func (b *builder) build() *Dictionary {
	entries := make([]Entry, 0, len(b.fields))
	for _, f := range b.fields {
		entries = append(entries, Entry{Field: f, Allowed: Enumerated(b.values[f]...)})
	}
	return New(entries...)
}

// Parse reads a markdown outline rule source.
//
// A line starting with "##" opens a field section; a line starting with "-"
// inside a section adds an allowed value. Every other line is ignored, so a
// malformed source yields a best-effort dictionary rather than an error. The
// only error returned is a read failure, wrapped with ErrRuleSourceUnreadable.
func Parse(r io.Reader, opts ...Option) (*Dictionary, error) {
	o := newOptions(opts)
	b := newBuilder()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	current := ""
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "##"):
			field := parseHeading(line)
			if field == "" {
				continue
			}
			current = field
			b.start(current)

		case strings.HasPrefix(line, "-") && current != "":
			if isThematicBreak(line) {
				continue
			}
			item := strings.TrimSpace(line[1:])
			if item == "" {
				continue
			}
			if item == o.sentinel {
				b.reset(current)
				continue
			}
			b.add(current, item)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuleSourceUnreadable, err)
	}

	return b.build(), nil
}

// parseHeading extracts the field name from a "## name" line.
func parseHeading(line string) string {
	name := strings.TrimLeft(line, "#")
	name = strings.TrimSpace(name)
	return UnescapeFieldName(name)
}

// isThematicBreak reports whether line is a markdown rule such as "---".
func isThematicBreak(line string) bool {
	if len(line) < 3 {
		return false
	}
	return strings.Trim(line, "-") == ""
}
