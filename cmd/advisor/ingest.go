package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/cli"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/config"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/retrieval"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Add knowledge documents to the retrieval index",
		Long: `Chunk and embed text documents into the persistent retrieval index.

Each file is split into sentence-aligned chunks and stored under its base
name; ingesting a file again replaces its chunks with the same ids. Once
the index holds chunks, analyses retrieve from it instead of the built-in
documents.

Examples:
  advisor ingest guides/*.txt
  advisor ingest --index ./index.db handbook.md --chunk-size 300`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("index", "", "Index file (overrides retrieval.index_path)")
	cmd.Flags().Int("chunk-size", retrieval.DefaultChunkSize, "Maximum chunk length in characters")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	indexPath, _ := cmd.Flags().GetString("index")
	if indexPath == "" {
		indexPath = viper.GetString("retrieval.index_path")
	}
	indexPath = config.ExpandPath(indexPath)
	if indexPath == "" {
		return common.NewUserError("no index path configured", common.ErrMissingConfig)
	}
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")

	store, counts, err := chunkFiles(args, chunkSize)
	if err != nil {
		return err
	}

	index, err := retrieval.OpenBoltIndex(indexPath)
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	if err := index.Save(store); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	total, err := index.Load()
	if err != nil {
		return fmt.Errorf("failed to reload index: %w", err)
	}

	return printIngestSummary(cmd.OutOrStdout(), args, counts, total.Len(), indexPath)
}

// chunkFiles embeds every file into a fresh store and returns the chunk
// count per file.
func chunkFiles(paths []string, chunkSize int) (*retrieval.VectorStore, []int, error) {
	store := retrieval.NewVectorStore()
	counts := make([]int, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- user-supplied document path
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		counts[i] = retrieval.AddDocument(store, filepath.Base(path), text, chunkSize, retrieval.DefaultDims)
	}
	return store, counts, nil
}

func printIngestSummary(w io.Writer, paths []string, counts []int, total int, indexPath string) error {
	var b strings.Builder
	for i, path := range paths {
		fmt.Fprintf(&b, "%-40s %d chunks\n", filepath.Base(path), counts[i])
	}
	fmt.Fprintf(&b, "\nIndex %s now holds %d chunks.", indexPath, total)
	_, err := fmt.Fprintln(w, cli.RenderBox("Ingested", b.String()))
	return err
}
