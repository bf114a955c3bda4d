package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgecomet/seoeditor/internal/common/configtypes"
	"github.com/edgecomet/seoeditor/internal/common/htmlprocessor"
	"github.com/edgecomet/seoeditor/internal/editor/site"
	"github.com/edgecomet/seoeditor/pkg/types"
)

var (
	applySets        []string
	applyHost        string
	applyDryRun      bool
	applyNoBackup    bool
	applyCompression string
)

var applyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Rewrite the SEO metadata of a page",
	Long: `Extracts the current metadata of a page, overrides the fields given with
--set, and rewrites the page head. The previous content is kept in <file>.bak
unless --no-backup is given.

Field names: ` + strings.Join(types.RecordFields, ", ") + `.`,
	Example: `  seoctl apply site/index.html --set title="Handmade oak furniture" \
      --set ogTitle="Oak furniture" --host www.example.org`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringArrayVarP(&applySets, "set", "s", nil, "field=value to set, repeatable")
	applyCmd.Flags().StringVar(&applyHost, "host", "", "public host used for og:url")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "print the rewritten page instead of saving it")
	applyCmd.Flags().BoolVar(&applyNoBackup, "no-backup", false, "do not keep the previous content")
	applyCmd.Flags().StringVar(&applyCompression, "compression", types.CompressionNone, "backup compression: none, snappy or lz4")
	rootCmd.AddCommand(applyCmd)
}

// parseSets applies field=value pairs to record
func parseSets(record *types.MetadataRecord, sets []string) error {
	for _, set := range sets {
		name, value, ok := strings.Cut(set, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q: expected field=value", set)
		}
		field := record.Field(strings.TrimSpace(name))
		if field == nil {
			return fmt.Errorf("unknown field %q", name)
		}
		*field = value
	}
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	if len(applySets) == 0 {
		return errors.New("nothing to apply: use --set field=value")
	}

	abs, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	enabled := !applyNoBackup
	store, err := site.NewStore(
		configtypes.SiteConfig{Root: filepath.Dir(abs)},
		configtypes.BackupConfig{Enabled: &enabled, Compression: applyCompression},
		commandLogger(),
	)
	if err != nil {
		return err
	}
	rel := filepath.Base(abs)

	content, _, err := store.Read(rel)
	if err != nil {
		return err
	}

	record := htmlprocessor.Extract(content)
	if err := parseSets(&record, applySets); err != nil {
		return err
	}

	updated := htmlprocessor.Mutate(content, record, htmlprocessor.RequestContext{
		Host:       applyHost,
		RequestURI: "/" + rel,
	})

	if applyDryRun {
		cmd.Print(updated)
		return nil
	}

	backup, err := store.Save(rel, updated)
	if err != nil {
		return err
	}

	if backup != "" {
		cmd.Printf("Saved %s (backup: %s)\n", args[0], filepath.Join(filepath.Dir(args[0]), backup))
	} else {
		cmd.Printf("Saved %s\n", args[0])
	}
	return nil
}
