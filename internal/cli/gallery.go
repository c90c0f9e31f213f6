package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/pipeline"
)

var (
	galleryPage    int
	galleryPerPage int
	galleryJSON    bool
)

// galleryCmd represents the gallery command
var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Fetch, score and print the news gallery once",
	Long: `Gallery runs one refresh cycle in the foreground:
- Fetch every configured source group concurrently
- Drop malformed items and duplicate titles
- Score and classify each item
- Rank by priority, then recency, and print the requested page

Example:
  verity gallery
  verity gallery --page 2 --per-page 5
  verity gallery --json`,
	Args: cobra.NoArgs,
	RunE: runGallery,
}

func init() {
	rootCmd.AddCommand(galleryCmd)

	galleryCmd.Flags().IntVar(&galleryPage, "page", 1, "page number (1-based)")
	galleryCmd.Flags().IntVar(&galleryPerPage, "per-page", 0, "items per page (default from config)")
	galleryCmd.Flags().BoolVar(&galleryJSON, "json", false, "print the page as JSON")
}

func runGallery(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Gallery.RefreshTimeout+10*time.Second)
	defer cancel()

	p, err := pipeline.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Refreshing %d source groups...\n", len(cfg.Sources.Groups))
	}

	if err := p.Gallery().Refresh(ctx); err != nil {
		return fmt.Errorf("refresh gallery: %w", err)
	}

	page := p.Gallery().GetPage(galleryPage, galleryPerPage)
	if galleryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}
	renderPage(cmd.OutOrStdout(), page)
	return nil
}

// renderPage prints a gallery page as a ranked list
func renderPage(w io.Writer, page model.Page) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  News Gallery  page %d/%d  (%d items, %s)\n", page.Page, page.TotalPages, page.TotalItems, page.Status)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")

	if len(page.Items) == 0 {
		fmt.Fprintln(w, "  No items on this page")
		return
	}

	for i, it := range page.Items {
		marker := " "
		if it.IsAlert {
			marker = "!"
		}
		verdict := "fake"
		if it.IsReal {
			verdict = "real"
		}
		fmt.Fprintf(w, "%s %2d. %s\n", marker, (page.Page-1)*page.PageSize+i+1, it.Title)
		fmt.Fprintf(w, "      %s | %s | %s %.2f (conf %.2f) | priority %d\n",
			it.Source, it.Category, verdict, it.FinalScore, it.Confidence, it.PriorityScore)
	}
}
