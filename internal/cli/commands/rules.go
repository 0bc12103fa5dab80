package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/pkg/dictionary"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Verbose bool   // List every allowed value
	Format  string // Output format
}

// RuleJSON is one dictionary field in JSON output.
type RuleJSON struct {
	Field  string   `json:"field"`
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// RulesJSONOutput is the JSON output of the rules command.
type RulesJSONOutput struct {
	Source string     `json:"source"`
	Rules  []RuleJSON `json:"rules"`
	Count  struct {
		Enumerated    int `json:"enumerated"`
		Unconstrained int `json:"unconstrained"`
		Total         int `json:"total"`
	} `json:"count"`
}

// previewValues is the number of values listed per field without --verbose.
const previewValues = 5

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [field]",
		Short: "Show the rule dictionary",
		Long: `Show the governed fields of the rule dictionary and their allowed values.

A field without values is required but accepts any non-empty value.
Field names containing line breaks may be given with a literal \n.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all fields
  leapcheck rules

  # Show one field with every allowed value
  leapcheck rules '设备子类型\n（必选）'

  # Use another rule file
  leapcheck rules --rules rules/字典.md

  # Output as JSON
  leapcheck rules --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showField(cmd, args[0], opts)
			}
			return listFields(cmd, opts)
		},
	}

	cmd.Flags().String("rules", "", "Rule dictionary file (markdown or yaml)")
	cmd.Flags().String("sentinel", "", "List item marking a field as required without fixed values")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "List every allowed value")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

func loadRules(cmd *cobra.Command, opts *RulesOptions) (*CommandContext, *dictionary.Dictionary, error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.UseFormat(cmd, opts.Format)

	dict, err := cmdCtx.LoadDictionary()
	if err != nil {
		return nil, nil, err
	}
	return cmdCtx, dict, nil
}

func listFields(cmd *cobra.Command, opts *RulesOptions) error {
	cmdCtx, dict, err := loadRules(cmd, opts)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	entries := dict.Entries()

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return listFieldsJSON(r, cmdCtx.Cfg.Rules, entries)
	case output.ModeMarkdown:
		listFieldsMarkdown(r, entries, opts.Verbose)
	default:
		listFieldsText(r, entries, opts.Verbose)
	}
	return nil
}

func showField(cmd *cobra.Command, name string, opts *RulesOptions) error {
	cmdCtx, dict, err := loadRules(cmd, opts)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	entry, ok := findEntry(dict, name)
	if !ok {
		return fmt.Errorf("field %q not found in %s", name, cmdCtx.Cfg.Rules)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(ruleJSON(entry))
	case output.ModeMarkdown:
		listFieldsMarkdown(r, []dictionary.Entry{entry}, true)
	default:
		listFieldsText(r, []dictionary.Entry{entry}, true)
	}
	return nil
}

// findEntry matches a field by exact name, escaped name or flattened label.
func findEntry(dict *dictionary.Dictionary, name string) (dictionary.Entry, bool) {
	unescaped := dictionary.UnescapeFieldName(name)
	for _, e := range dict.Entries() {
		if e.Field == name || e.Field == unescaped || output.FieldLabel(e.Field) == output.FieldLabel(name) {
			return e, true
		}
	}
	return dictionary.Entry{}, false
}

func ruleJSON(e dictionary.Entry) RuleJSON {
	values := e.Allowed.Values()
	if values == nil {
		values = []string{}
	}
	return RuleJSON{Field: e.Field, Label: output.FieldLabel(e.Field), Values: values}
}

func listFieldsJSON(r *output.Renderer, path string, entries []dictionary.Entry) error {
	out := RulesJSONOutput{Source: path, Rules: make([]RuleJSON, 0, len(entries))}
	for _, e := range entries {
		out.Rules = append(out.Rules, ruleJSON(e))
		if e.Allowed.IsUnconstrained() {
			out.Count.Unconstrained++
		} else {
			out.Count.Enumerated++
		}
	}
	out.Count.Total = len(entries)
	return r.JSON(out)
}

// listFieldsText outputs fields in styled text format.
func listFieldsText(r *output.Renderer, entries []dictionary.Entry, verbose bool) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Rule Dictionary (%d fields)", len(entries))))
	r.Println("")

	for _, e := range entries {
		label := styles.Field.Render(output.FieldLabel(e.Field))
		if e.Allowed.IsUnconstrained() {
			r.Printf("  %s  %s\n", label, styles.Muted.Render("required, any value"))
			continue
		}
		r.Printf("  %s  %s\n", label, styles.Muted.Render(fmt.Sprintf("%d values", e.Allowed.Len())))
		r.Println("    " + styles.Value.Render(valueList(e.Allowed.Values(), verbose)))
	}

	if !verbose && len(entries) > 1 {
		r.Println("")
		r.Println(styles.Muted.Render("Use 'leapcheck rules <field>' or -V to see every value"))
	}
	r.Println("")
}

// listFieldsMarkdown outputs fields in markdown format.
func listFieldsMarkdown(r *output.Renderer, entries []dictionary.Entry, verbose bool) {
	r.Println("# Rule Dictionary")
	r.Println("")

	for _, e := range entries {
		r.Println(output.FormatHeader(2, output.FieldLabel(e.Field)))
		r.Println("")
		if e.Allowed.IsUnconstrained() {
			r.Println("_Required, any value._")
			r.Println("")
			continue
		}

		values := e.Allowed.Values()
		shown := values
		if !verbose && len(values) > previewValues {
			shown = values[:previewValues]
		}
		for _, v := range shown {
			r.Println("- " + v)
		}
		if len(shown) < len(values) {
			r.Printf("- _... %d more_\n", len(values)-len(shown))
		}
		r.Println("")
	}
}

// valueList joins values, truncating to previewValues unless verbose.
func valueList(values []string, verbose bool) string {
	if verbose || len(values) <= previewValues {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s, ... (%d more)", strings.Join(values[:previewValues], ", "), len(values)-previewValues)
}
