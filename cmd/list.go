package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eamonnfaherty/codebundle/pkg/bundle"
	"github.com/eamonnfaherty/codebundle/pkg/ignore"
	"github.com/eamonnfaherty/codebundle/pkg/logging"
)

var (
	listFlags selectionFlags
	listRules bool
)

var listCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "Show which files would be bundled, without writing an archive",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := listFlags.options(cmd, args, cfg)
		if err != nil {
			return err
		}

		tally := map[string]int{}
		svc := bundle.New(opts, logging.Logger, bundle.WithTelemetry(bundle.TelemetryFunc(func(count int, ext string) {
			tally[ext] = count
		})))
		root, err := svc.Root()
		if err != nil {
			return err
		}
		trav, err := svc.Scan(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if listRules {
			printRules(out, svc.Filter())
		}
		fmt.Fprint(out, bundle.RenderTree(filepath.Base(root), trav.Files))
		fmt.Fprintf(out, "\n%d files, %s\n", len(trav.Files), humanize.Bytes(uint64(trav.TotalBytes)))

		if len(tally) > 0 {
			exts := make([]string, 0, len(tally))
			for ext := range tally {
				exts = append(exts, ext)
			}
			sort.Strings(exts)
			fmt.Fprintln(out, "skipped by extension:")
			for _, ext := range exts {
				label := ext
				if label == "" {
					label = "(none)"
				}
				fmt.Fprintf(out, "  %-12s %d\n", label, tally[ext])
			}
		}
		return nil
	},
}

// printRules writes the active allow-list and ignore patterns.
func printRules(out io.Writer, filter *bundle.Filter) {
	fmt.Fprintf(out, "allowed extensions: %s\n", strings.Join(filter.Allowed().Sorted(), " "))
	fmt.Fprintln(out, "ignore patterns:")
	for _, p := range filter.Patterns().Patterns() {
		if p.Origin == ignore.OriginIgnoreFile {
			fmt.Fprintf(out, "  %-12s %s (line %d)\n", p.Origin, p.Line, p.LineNo)
			continue
		}
		fmt.Fprintf(out, "  %-12s %s\n", p.Origin, p.Line)
	}
	fmt.Fprintln(out)
}

func init() {
	listFlags.register(listCmd.Flags())
	listCmd.Flags().BoolVar(&listRules, "rules", false, "Also print the extension allow-list and ignore patterns in effect")
	RootCmd.AddCommand(listCmd)
}
