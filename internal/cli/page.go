package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgecomet/seoeditor/internal/common/htmlprocessor"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Print the SEO metadata of a page as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Audit a page and print the score and issues as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Print the catalog score of a page",
	Long:  `Prints the lightweight 0-100 score shown in the page listing.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scoreCmd)
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	document, err := readDocument(args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, htmlprocessor.Extract(document))
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	document, err := readDocument(args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, htmlprocessor.Analyze(document))
}

func runScore(cmd *cobra.Command, args []string) error {
	document, err := readDocument(args[0])
	if err != nil {
		return err
	}
	cmd.Println(htmlprocessor.CatalogScore(document))
	return nil
}
