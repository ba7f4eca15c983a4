package commands

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf2md/pkg/converter"
)

var renderCmd = &cobra.Command{
	Use:   "render <file.pdf>",
	Short: "Render a PDF to page images without annotating",
	Long: `Rasterize each page of a PDF to an image file under the output
directory. No model calls are made.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "output_images", "directory for page images")
	addRenderFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	log := newLogger()
	opts := buildOptions()

	paths, err := converter.RenderPDF(context.Background(), args[0], opts, &log)
	if err != nil {
		return err
	}

	abs, _ := filepath.Abs(outputDir)
	success("Successfully converted PDF to %d image(s)", len(paths))
	success("Images saved to: %s", abs)
	return nil
}
