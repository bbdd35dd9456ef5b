package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"docrag/internal/app"
	"docrag/internal/services"
)

// NewExtractCmd creates the extract command
func NewExtractCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract text into the staging tree",
		Long: `Without arguments, extract every file under INPUT_DIR into one sentence
per line under TEXT_DIR and move the sources to PROCESSED_DIR.

With a file argument, print that file's sentences and touch nothing.
Neither form needs the store or the embedding model.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := app.NewPipeline(g.cfg)
			if err != nil {
				return err
			}
			extractor := pipeline.Extractor(g.cfg)

			if len(args) == 1 {
				extracted, err := extractor.ExtractFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return g.print(cmd.OutOrStdout(), extracted, func(w io.Writer) {
					fmt.Fprintln(w, strings.Join(extracted.Sentences, "\n"))
				})
			}

			report, err := extractor.ExtractDir(cmd.Context())
			if err != nil {
				return err
			}
			return g.printReport(cmd.OutOrStdout(), report)
		},
	}
}

// NewEmbedCmd creates the embed command
func NewEmbedCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "embed",
		Short: "Embed staged text files into the store",
		Long: `Chunk and embed every file under TEXT_DIR, replacing each document's
chunks in the store, and move the files to TEXT_PROCESSED_DIR.

A store or model failure stops the batch; run it again to resume.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, release, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			report, err := a.Ingest.EmbedDir(cmd.Context())
			if perr := g.printReport(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			return err
		},
	}
}

// NewIngestCmd creates the ingest command
func NewIngestCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Extract and embed in one batch",
		Long:  `Run extract and then embed over the staging trees.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, release, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			report, err := a.Ingest.Run(cmd.Context())
			if perr := g.printReport(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			return err
		},
	}
}

func (g *globals) printReport(w io.Writer, report *services.BatchReport) error {
	if report == nil {
		return nil
	}
	return g.print(w, report, func(w io.Writer) {
		for _, name := range report.Extracted {
			fmt.Fprintf(w, "extracted  %s\n", name)
		}
		for _, s := range report.Skipped {
			fmt.Fprintf(w, "skipped    %s: %s\n", s.Path, s.Reason)
		}
		for _, e := range report.Embedded {
			fmt.Fprintf(w, "embedded   %s (%d chunks)\n", e.Name, e.Chunks)
		}
		fmt.Fprintf(w, "%d extracted, %d skipped, %d embedded\n",
			len(report.Extracted), len(report.Skipped), len(report.Embedded))
	})
}
