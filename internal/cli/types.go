package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reggie/internal/app"
	"reggie/internal/registry"
)

type typeInfo struct {
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the registered message types and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", format)
			}
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			log := zerolog.New(cmd.ErrOrStderr()).Level(zerolog.WarnLevel)
			reg, err := app.LoadRegistry(cfg.Registry, log)
			if err != nil {
				return err
			}
			return writeTypes(cmd.OutOrStdout(), reg, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (json|text)")
	return cmd
}

func writeTypes(w io.Writer, reg *registry.Registry, format string) error {
	var types []typeInfo
	for _, name := range reg.Names() {
		e, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		types = append(types, typeInfo{Name: name, Fields: e.Fields()})
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(types)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range types {
		fmt.Fprintln(tw, t.Name)
		fields := make([]string, 0, len(t.Fields))
		for f := range t.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(tw, "  %s\t%s\n", f, t.Fields[f])
		}
	}
	return tw.Flush()
}
