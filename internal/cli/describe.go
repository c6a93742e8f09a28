package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/configured/internal/compiler"
	"github.com/roach88/configured/internal/definition"
	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/schema"
)

// EntrySummary is one line of the catalog listing.
type EntrySummary struct {
	Ref     string `json:"ref"`
	Kind    string `json:"kind"`
	Variant string `json:"variant"`
	Name    string `json:"name,omitempty"`
	Of      string `json:"of,omitempty"`
	Layers  int    `json:"layers"`
}

// DescribeResult is the detail view of one entry.
type DescribeResult struct {
	Ref         string    `json:"ref"`
	Fingerprint string    `json:"fingerprint"`
	Definition  ir.Object `json:"definition"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <catalog-dir> [ref]",
		Short: "Show catalog entries and the config they accept",
		Long: `Without a ref, list every catalog entry.

With a ref ("configured.dev_s3", or a bare key when unambiguous), show the
config field the entry accepts and every layer of its configured chain.

Example:
  configured describe ./catalog
  configured describe ./catalog configured.dev_s3 --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 2 {
				ref = args[1]
			}
			return runDescribe(rootOpts, args[0], ref, cmd)
		},
	}

	return cmd
}

func runDescribe(opts *RootOptions, dir, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cat, err := loadValidCatalog(formatter, dir)
	if err != nil {
		return err
	}

	if ref == "" {
		return outputEntryList(formatter, cat)
	}

	entry, ok := cat.Lookup(ref)
	if !ok {
		return outputValidateError(formatter, ErrCodeUnknownRef, fmt.Sprintf("no catalog entry %q (or the key is ambiguous)", ref), nil)
	}

	fingerprint, err := definition.Fingerprint(entry.Def)
	if err != nil {
		return WrapExitError(ExitCommandError, "fingerprint definition", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(DescribeResult{
			Ref:         entry.Ref,
			Fingerprint: fingerprint,
			Definition:  definition.Describe(entry.Def),
		})
	}

	writeEntryDetail(formatter.Writer, entry, fingerprint)
	return nil
}

// loadValidCatalog loads dir and reports load or compile errors through
// formatter.
func loadValidCatalog(formatter *OutputFormatter, dir string) (*compiler.Catalog, error) {
	result, err := LoadCatalog(dir)
	if err != nil {
		if loadErr, ok := err.(*LoadError); ok {
			return nil, outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return nil, outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	if len(result.Errors) > 0 {
		return nil, outputValidationErrors(formatter, result.Errors)
	}
	return result.Catalog, nil
}

func summarize(e *compiler.Entry) EntrySummary {
	s := EntrySummary{
		Ref:     e.Ref,
		Kind:    string(e.Kind),
		Variant: e.Def.Variant().String(),
		Of:      e.Of,
		Layers:  len(definition.Layers(e.Def)),
	}
	if e.Def.Variant() == definition.Named {
		s.Name = e.Def.Name()
	}
	return s
}

func outputEntryList(formatter *OutputFormatter, cat *compiler.Catalog) error {
	entries := cat.Entries()
	summaries := make([]EntrySummary, len(entries))
	for i, e := range entries {
		summaries[i] = summarize(e)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REF\tKIND\tNAME\tLAYERS\tOF")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.Ref, s.Kind, dash(s.Name), s.Layers, dash(s.Of))
	}
	return tw.Flush()
}

func writeEntryDetail(w io.Writer, e *compiler.Entry, fingerprint string) {
	fmt.Fprintf(w, "%s  %s\n", e.Ref, definition.Label(e.Def))
	if d := e.Def.Description(); d != "" {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintf(w, "fingerprint: %s\n", fingerprint)

	fmt.Fprintln(w, "\nconfig:")
	if !e.Def.HasConfigField() {
		fmt.Fprintln(w, "  (none accepted)")
	} else {
		writeField(w, "", e.Def.ConfigField(), 1)
	}

	layers := definition.Layers(e.Def)
	if len(layers) > 1 {
		fmt.Fprintln(w, "\nlayers:")
		for i, layer := range layers {
			fmt.Fprintf(w, "  %d. %s%s\n", i, definition.Label(layer), layerMapping(layer))
		}
	}
}

// layerMapping describes how a layer produces config for the one below.
func layerMapping(c definition.Configurable) string {
	cs, ok := c.ConfigSchema().(*definition.ConfiguredSchema)
	if !ok {
		return ""
	}
	m := cs.Mapping()
	if v, fixed := m.Fixed(); fixed {
		data, err := ir.MarshalCanonical(v)
		if err != nil {
			return "  fixed value"
		}
		return "  fixed value " + string(data)
	}
	if m.Ident() != "" {
		return "  mapped by " + m.Ident()
	}
	return "  mapped by function"
}

// writeField renders a field descriptor as an indented tree.
func writeField(w io.Writer, name string, f *schema.Field, depth int) {
	indent := strings.Repeat("  ", depth)
	if name != "" {
		var attrs []string
		attrs = append(attrs, f.Kind)
		if f.Required {
			attrs = append(attrs, "required")
		}
		if f.Default != nil {
			if data, err := ir.MarshalCanonical(f.Default); err == nil {
				attrs = append(attrs, "default "+string(data))
			}
		}
		if f.Constraint != "" {
			attrs = append(attrs, f.Constraint)
		}
		fmt.Fprintf(w, "%s%s: %s", indent, name, strings.Join(attrs, ", "))
		if f.Description != "" {
			fmt.Fprintf(w, "  // %s", f.Description)
		}
		fmt.Fprintln(w)
		depth++
		indent = strings.Repeat("  ", depth)
	} else if f.Kind != schema.KindStruct {
		fmt.Fprintf(w, "%s%s\n", indent, f.Kind)
	}

	for i := range f.Fields {
		writeField(w, f.Fields[i].Name, &f.Fields[i].Field, depth)
	}
	if f.Elem != nil {
		writeField(w, "[*]", f.Elem, depth)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
