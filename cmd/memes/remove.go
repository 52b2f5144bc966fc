package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sagarc03/memes"
	"github.com/sagarc03/memes/config"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <id1> [id2] ...",
	Short: "Delete memes by id",
	Long: `Delete memes by id. The record and its stored file are both removed.

Ids that do not exist are reported and skipped; the command exits with an
error if any were missing.

Examples:
  # Remove a single meme
  memes remove 42

  # Remove several quietly
  memes remove -q 1 2 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var removeQuiet bool

func init() {
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-meme output")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	removed, notFound, err := removeMemes(ctx, rt.service, ids, removeQuiet)
	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	if err != nil {
		return err
	}
	if notFound > 0 {
		return fmt.Errorf("%d of %d memes not found", notFound, len(ids))
	}
	return nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid meme id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// removeMemes deletes each id. Missing ids are counted and skipped; any other
// failure stops the run.
func removeMemes(ctx context.Context, service *memes.MemeService, ids []int64, quiet bool) (removed, notFound int, err error) {
	for _, id := range ids {
		deleteErr := service.Delete(ctx, id)
		if errors.Is(deleteErr, memes.ErrNotFound) {
			notFound++
			if !quiet {
				slog.Warn("not found", "id", id)
			}
			continue
		}
		if deleteErr != nil {
			return removed, notFound, fmt.Errorf("remove %d: %w", id, deleteErr)
		}

		removed++
		if !quiet {
			slog.Info("removed", "id", id)
		}
	}

	return removed, notFound, nil
}
