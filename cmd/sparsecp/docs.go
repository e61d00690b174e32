package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/bamsammich/sparsecp/internal/config"
	"github.com/bamsammich/sparsecp/internal/sparse"
)

var docsCmd = &cobra.Command{
	Use:    "gen-docs",
	Short:  "Generate man pages, markdown, or an example config file",
	Hidden: true,
	RunE:   runGenDocs,
}

func init() {
	docsCmd.Flags().String("dir", "docs", "output directory")
	docsCmd.Flags().String("format", "man", "output format (man, markdown or config)")
}

func runGenDocs(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")       //nolint:errcheck // flag name is hardcoded
	format, _ := cmd.Flags().GetString("format") //nolint:errcheck // flag name is hardcoded

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	root := cmd.Root()
	root.DisableAutoGenTag = true

	switch format {
	case "man":
		header := &doc.GenManHeader{
			Title:   strings.ToUpper(root.Name()),
			Section: "1",
			Source:  "sparsecp " + version,
			Manual:  "Sparse file copy",
		}
		return doc.GenManTree(root, header, dir)
	case "markdown":
		return doc.GenMarkdownTree(root, dir)
	case "config":
		return writeExampleConfig(filepath.Join(dir, "config.toml"))
	default:
		return fmt.Errorf("unknown format %q (use man, markdown or config)", format)
	}
}

// writeExampleConfig writes a config file holding the built-in flag defaults.
func writeExampleConfig(path string) error {
	no := false
	workers := 1
	page := sparse.DefaultPageSize
	buf := fmt.Sprintf("%dK", sparse.DefaultBufferSize/1024)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	err = config.WriteExample(f, config.DefaultsConfig{
		Force:      &no,
		Verify:     &no,
		Plain:      &no,
		Workers:    &workers,
		PageSize:   &page,
		BufferSize: &buf,
	})
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
