package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/edgecomet/seoeditor/internal/common/configtypes"
	"github.com/edgecomet/seoeditor/internal/editor/site"
)

var restorePrint bool

var restoreCmd = &cobra.Command{
	Use:   "restore [file]",
	Short: "Put back the content kept in a page backup",
	Long: `Replaces a page with the content of its backup (<file>.bak, .bak.snappy or
.bak.lz4) as written by the last save. The backup itself is left in place.`,
	Example: `  seoctl restore site/index.html
  seoctl restore site/index.html --print`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restorePrint, "print", false, "print the backup content instead of restoring it")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	// restoring must not overwrite the backup with the content being replaced
	disabled := false
	store, err := site.NewStore(
		configtypes.SiteConfig{Root: filepath.Dir(abs)},
		configtypes.BackupConfig{Enabled: &disabled},
		commandLogger(),
	)
	if err != nil {
		return err
	}
	rel := filepath.Base(abs)

	content, err := store.ReadBackup(rel)
	if err != nil {
		return err
	}

	if restorePrint {
		cmd.Print(content)
		return nil
	}

	if _, err := store.Save(rel, content); err != nil {
		return err
	}
	cmd.Printf("Restored %s\n", args[0])
	return nil
}
