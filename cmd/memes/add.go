package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/memes"
	"github.com/sagarc03/memes/config"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <file1> [file2] ...",
	Short: "Upload meme files",
	Long: `Upload local files as memes.

Each file is stored under its base name with the content type implied by its
extension, and goes through the same checks as an HTTP upload. Files that
fail the checks are reported and skipped; the command exits with an error if
any were skipped.

Examples:
  # Add a single meme
  memes add ./cat.png

  # Add several with the same description
  memes add -m "monday mood" ./cat.png ./dog.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addDescription string
	addQuiet       bool
)

func init() {
	addCmd.Flags().StringVarP(&addDescription, "description", "m", "", "description stored with each meme")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	added, rejected, err := addFiles(ctx, rt.service, args, addDescription, addQuiet)
	slog.Info("add complete", "added", added, "rejected", rejected)
	if err != nil {
		return err
	}
	if rejected > 0 {
		return fmt.Errorf("%d of %d files rejected", rejected, len(args))
	}
	return nil
}

// addFiles creates a meme per path. Validation failures are counted and
// skipped; any other failure stops the run.
func addFiles(ctx context.Context, service *memes.MemeService, paths []string, description string, quiet bool) (added, rejected int, err error) {
	for _, path := range paths {
		m, addErr := addFile(ctx, service, path, description)

		var verr *memes.ValidationError
		if errors.As(addErr, &verr) {
			rejected++
			slog.Warn("rejected", "path", path, "fields", verr.Fields)
			continue
		}
		if addErr != nil {
			return added, rejected, fmt.Errorf("add %s: %w", path, addErr)
		}

		added++
		if !quiet {
			slog.Info("added", "id", m.ID, "name", m.Name)
		}
	}

	return added, rejected, nil
}

func addFile(ctx context.Context, service *memes.MemeService, path, description string) (memes.Meme, error) {
	f, err := os.Open(path)
	if err != nil {
		return memes.Meme{}, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return memes.Meme{}, err
	}
	if info.IsDir() {
		return memes.Meme{}, fmt.Errorf("%s is a directory", path)
	}

	return service.Create(ctx, memes.Upload{
		Name:        filepath.Base(path),
		ContentType: detectContentType(path),
		Size:        info.Size(),
		Content:     f,
	}, description)
}

// detectContentType determines the MIME type from a file's extension.
func detectContentType(path string) string {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
