package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf <file.pdf>",
	Short: "Convert a PDF to Markdown",
	Long: `Render each page of a PDF, send it to the vision model and assemble
the responses into Markdown. With --output-dir the per-page files and
(unless --separate) a combined.md are written there; without it the
result is printed to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runPDF,
}

func init() {
	pdfCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for markdown output")
	addRenderFlags(pdfCmd)
	addAnnotateFlags(pdfCmd)
	rootCmd.AddCommand(pdfCmd)
}

func runPDF(cmd *cobra.Command, args []string) error {
	client, err := buildClient()
	if err != nil {
		return err
	}

	opts := buildOptions()
	opts.Progress = pageProgress("annotating pages")

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " rendering and annotating " + filepath.Base(args[0]) + "..."
	if !verbose {
		sp.Start()
	}

	result, err := client.ConvertPDF(context.Background(), args[0], opts)
	sp.Stop()
	if err != nil {
		return err
	}

	if result.Skipped > 0 {
		fmt.Printf("Warning: %d page(s) missing from the rasterized set were skipped\n", result.Skipped)
	}
	if result.Failed > 0 {
		fmt.Printf("Warning: %d page(s) failed annotation and were replaced by placeholders\n", result.Failed)
	}

	if outputDir == "" {
		if opts.Combined {
			fmt.Println(result.Combined)
		} else {
			for _, fragment := range result.Fragments {
				fmt.Println(fragment.Text)
				fmt.Println()
			}
		}
		return nil
	}

	abs, _ := filepath.Abs(outputDir)
	success("Successfully converted %d page(s) to markdown", len(result.Fragments))
	success("Markdown files saved to: %s", abs)
	return nil
}
