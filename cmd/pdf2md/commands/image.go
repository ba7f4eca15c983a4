package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var imageCmd = &cobra.Command{
	Use:   "image <file...>",
	Short: "Convert image files to Markdown",
	Long: `Rescale one or more image files (PNG, JPEG or WebP), send each to
the vision model and assemble the responses into Markdown. Unreadable
files are skipped with a warning.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImage,
}

func init() {
	imageCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for markdown output")
	addRenderFlags(imageCmd)
	addAnnotateFlags(imageCmd)
	rootCmd.AddCommand(imageCmd)
}

func runImage(cmd *cobra.Command, args []string) error {
	client, err := buildClient()
	if err != nil {
		return err
	}

	opts := buildOptions()
	opts.Progress = pageProgress("annotating images")

	result, err := client.ConvertImages(context.Background(), args, opts)
	if err != nil {
		return err
	}

	if result.Skipped > 0 {
		fmt.Printf("Warning: %d image file(s) were skipped\n", result.Skipped)
	}

	if outputDir == "" {
		if opts.Combined {
			fmt.Println(result.Combined)
		} else {
			for i, fragment := range result.Fragments {
				fmt.Printf("\n--- Image %d ---\n\n", i+1)
				fmt.Println(fragment.Text)
			}
		}
		return nil
	}

	abs, _ := filepath.Abs(outputDir)
	success("Successfully converted %d image(s) to markdown", len(result.Fragments))
	success("Markdown files saved to: %s", abs)
	return nil
}
