package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docrag/internal/app"
	"docrag/internal/config"
)

// globals holds the persistent flags and the config they resolve to.
type globals struct {
	filtersFile string
	storeDriver string
	format      string
	verbose     bool

	cfg *config.Config
}

// NewRootCmd builds the docrag command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "docrag",
		Short: "Ingest documents and answer questions from them",
		Long: `docrag turns a folder of Word, Excel, PDF, CSV, HTML and text files into
sentence chunks with embeddings, and answers questions from the closest chunks.

Configuration comes from the environment (and a .env file). The staging
trees are INPUT_DIR, PROCESSED_DIR, TEXT_DIR and TEXT_PROCESSED_DIR.

Examples:
  docrag ingest
  docrag retrieve "how does atlas track lineage"
  docrag ask --mode both "how does atlas track lineage"
  docrag sniff ./docs_input/README`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&g.filtersFile, "filters", "", "YAML file overriding the text filters")
	root.PersistentFlags().StringVar(&g.storeDriver, "store", "", "Store driver (postgres or memory); overrides STORE_DRIVER")
	root.PersistentFlags().StringVar(&g.format, "format", "text", "Output format (text or json)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	root.AddCommand(
		NewSniffCmd(g),
		NewExtractCmd(g),
		NewEmbedCmd(g),
		NewIngestCmd(g),
		NewRetrieveCmd(g),
		NewAskCmd(g),
	)
	return root
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running batch.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func (g *globals) load(stderr io.Writer) error {
	if g.format != "text" && g.format != "json" {
		return fmt.Errorf("format must be text or json, got %q", g.format)
	}
	if g.verbose {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(errorLines{w: stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if g.filtersFile != "" {
		filters, err := config.LoadFilters(g.filtersFile)
		if err != nil {
			return err
		}
		cfg.Filters = filters
	}
	if g.storeDriver != "" {
		cfg.StoreDriver = g.storeDriver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg
	return nil
}

// openApp builds the full system and returns a release function that
// also flushes traces.
func (g *globals) openApp(ctx context.Context) (*app.App, func(), error) {
	shutdownTracing := app.InitTracing(g.cfg)

	a, err := app.New(ctx, g.cfg)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		_ = shutdownTracing(context.Background())
	}, nil
}

// print writes v as indented JSON, or calls text when the format is text.
func (g *globals) print(w io.Writer, v any, text func(io.Writer)) error {
	if g.format == "json" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	text(w)
	return nil
}

// errorLines passes through only ❌ log lines, so failures such as a rolled
// back store statement still reach stderr without -v.
type errorLines struct {
	w io.Writer
}

func (e errorLines) Write(p []byte) (int, error) {
	if !bytes.Contains(p, []byte("❌")) {
		return len(p), nil
	}
	if _, err := e.w.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
