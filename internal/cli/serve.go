package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/logger"
	"github.com/edgecomet/seoeditor/internal/editor/app"
)

// DefaultConfigPath is used when -c is not given
const DefaultConfigPath = "configs/seo-editor.yaml"

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editor API server",
	Long:  `Serves the editor JSON API until interrupted. Same as the seo-editor binary.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", DefaultConfigPath, "path to the editor configuration file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	initialLogger, err := logger.NewDefaultLogger()
	if err != nil {
		return err
	}

	initialLogger.Info("Starting SEO editor", zap.String("config_path", serveConfigPath))
	return app.Run(serveConfigPath, initialLogger.Logger)
}
