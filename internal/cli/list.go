package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgecomet/seoeditor/internal/common/config"
	"github.com/edgecomet/seoeditor/internal/common/configtypes"
	"github.com/edgecomet/seoeditor/internal/editor/catalog"
	"github.com/edgecomet/seoeditor/internal/editor/site"
)

var (
	listRoot        string
	listContentDirs []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the pages of a site with their catalog scores",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listRoot, "root", "r", ".", "site root directory")
	listCmd.Flags().StringSliceVar(&listContentDirs, "content-dir", config.DefaultContentDirs, "content directories below the root")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	log := commandLogger()

	store, err := site.NewStore(configtypes.SiteConfig{Root: listRoot, ContentDirs: listContentDirs}, configtypes.BackupConfig{}, log)
	if err != nil {
		return err
	}

	entries, err := catalog.New(store, log).List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}
	return printJSON(cmd, entries)
}
