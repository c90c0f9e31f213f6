package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/pipeline"
)

var (
	evalSource  string
	evalURL     string
	evalJSON    bool
	evalFetch   string
	evalTimeout time.Duration
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <text>",
	Short: "Score a single news claim",
	Long: `Evaluate scores one claim:
- Well-known statements are answered from the fact table without any network call
- Otherwise every configured signal is queried concurrently
- Signals that fail or are not configured fall back to a neutral 0.5
- Confidence is anchored on the AI judge and damped by signal disagreement

Example:
  verity evaluate "The earth is flat."
  verity evaluate "RBI raises repo rate" --source "The Hindu" --json
  verity evaluate "..." --llm-provider openai --llm-model gpt-4o-mini
  verity evaluate --fetch https://www.thehindu.com/news/some-story`,
	Args: func(cmd *cobra.Command, args []string) error {
		if evalFetch == "" && len(args) == 0 {
			return fmt.Errorf("provide claim text or --fetch <url>")
		}
		if evalFetch != "" && len(args) > 0 {
			return fmt.Errorf("claim text and --fetch are mutually exclusive")
		}
		return nil
	},
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalSource, "source", "", "publisher name of the claim")
	evaluateCmd.Flags().StringVar(&evalURL, "url", "", "URL the claim was published at")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "print the verdict as JSON")
	evaluateCmd.Flags().StringVar(&evalFetch, "fetch", "", "fetch an article page and score its headline and lead")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 30*time.Second, "overall evaluation timeout")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), evalTimeout)
	defer cancel()

	p, err := pipeline.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	var verdict model.Verdict
	if evalFetch != "" {
		verdict, err = p.EvaluateURL(ctx, evalFetch)
	} else {
		claim := model.Claim{Text: strings.Join(args, " "), Source: evalSource, URL: evalURL}
		verdict, err = p.Evaluate(ctx, claim)
	}
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	if evalJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	}
	renderVerdict(cmd.OutOrStdout(), verdict)
	return nil
}

// renderVerdict prints a human-readable verdict
func renderVerdict(w io.Writer, v model.Verdict) {
	label := "LIKELY FAKE"
	if v.IsReal {
		label = "LIKELY REAL"
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  %s\n", label)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	if v.Claim.Source != "" {
		fmt.Fprintf(w, "  Source:      %s\n", v.Claim.Source)
	}
	fmt.Fprintf(w, "  Score:       %.3f\n", v.FinalScore)
	fmt.Fprintf(w, "  Confidence:  %.3f\n", v.Confidence)

	if v.Breakdown.IsBasicFact {
		fmt.Fprintln(w, "  Basis:       well-known statement")
		return
	}

	kinds := make([]string, 0, len(v.Breakdown.Results))
	for kind := range v.Breakdown.Results {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	fmt.Fprintln(w)
	for _, k := range kinds {
		r := v.Breakdown.Results[model.SignalKind(k)]
		status := "ok"
		if !r.Available {
			status = string(r.ErrorKind)
		}
		fmt.Fprintf(w, "  %-20s %.3f  (%s)\n", k, r.Value, status)
	}
	if v.Breakdown.ClaimsFound > 0 {
		fmt.Fprintf(w, "\n  Published fact-checks: %d\n", v.Breakdown.ClaimsFound)
	}
}
