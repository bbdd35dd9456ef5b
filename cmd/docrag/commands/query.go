package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/services"
)

// NewRetrieveCmd creates the retrieve command
func NewRetrieveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Print the context assembled for a query",
		Long: `Embed the query, fetch the MAX_SIMILAR_CHUNKS nearest chunks and print their
lines without repeats, up to CHUNK_MAX_TOKENS x MAX_SIMILAR_CHUNKS words.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			a, release, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			retrieved, err := a.RAG.Retrieve(cmd.Context(), query)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), map[string]string{"query": query, "context": retrieved}, func(w io.Writer) {
				fmt.Fprintln(w, retrieved)
			})
		},
	}
}

// NewAskCmd creates the ask command
func NewAskCmd(g *globals) *cobra.Command {
	var (
		mode        string
		temperature int
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the stored documents",
		Long: `Ask the answer model the bare question, the question with retrieved
context, or both so the two answers can be compared.

Examples:
  docrag ask "how does atlas track lineage"
  docrag ask --mode context "how does atlas track lineage"
  docrag ask --temperature 3 "what does ranger manage"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			askMode := services.ParseAskMode(mode)
			if string(askMode) != strings.ToLower(strings.TrimSpace(mode)) {
				return fmt.Errorf("mode must be answer, context or both, got %q", mode)
			}
			if temperature < 1 || temperature > 9 {
				return fmt.Errorf("temperature must be 1-9, got %d", temperature)
			}

			a, release, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			answer, err := a.RAG.Ask(cmd.Context(), strings.Join(args, " "), askMode, temperature)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), answer, func(w io.Writer) {
				printReply(w, "Answer", answer.Answer)
				if answer.Context != "" {
					fmt.Fprintf(w, "Context:\n%s\n\n", answer.Context)
				}
				printReply(w, "Answer with context", answer.ContextAnswer)
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(services.AskModeBoth), "answer (question only), context (with retrieved context) or both")
	cmd.Flags().IntVar(&temperature, "temperature", 7, "Sampling temperature 1-9 (sent as a tenth)")
	return cmd
}

func printReply(w io.Writer, title string, reply *services.Reply) {
	if reply == nil {
		return
	}
	fmt.Fprintf(w, "%s (%s):\n%s\n\n", title, time.Duration(reply.ElapsedMS)*time.Millisecond, reply.Text)
}
