package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docrag/internal/app"
)

type sniffResult struct {
	Path  string `json:"path"`
	Type  string `json:"type,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewSniffCmd creates the sniff command
func NewSniffCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "sniff <file>...",
		Short: "Classify files by content",
		Long: `Classify files by their content, ignoring the extension.

Prints one of doc, xls, pdf, htm or txt per file, or the reason the file
could not be classified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := app.NewPipeline(g.cfg)
			if err != nil {
				return err
			}

			results := make([]sniffResult, 0, len(args))
			for _, path := range args {
				res := sniffResult{Path: path}
				if ft, err := pipeline.Sniffer.Sniff(path); err != nil {
					res.Error = err.Error()
				} else {
					res.Type = string(ft)
				}
				results = append(results, res)
			}

			return g.print(cmd.OutOrStdout(), results, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				for _, r := range results {
					if r.Error != "" {
						fmt.Fprintf(tw, "%s\t-\t%s\n", r.Path, r.Error)
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\n", r.Path, r.Type)
				}
				tw.Flush()
			})
		},
	}
}
