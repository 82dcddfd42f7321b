package main

import (
	"context"
	"fmt"

	"github.com/NomadCrew/nomad-budget-backend/internal/app"
	"github.com/NomadCrew/nomad-budget-backend/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func newCoversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covers",
		Short: "Manage trip cover images in the bucket",
	}

	var (
		dryRun      bool
		concurrency int
	)
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete cover objects no trip refers to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Storage.Enabled() {
				return fmt.Errorf("cover storage is not configured")
			}

			pool, err := app.NewDatabasePool(ctx, &cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			images, err := tripImages(ctx, pool)
			if err != nil {
				return err
			}
			client, err := storage.NewS3Client(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			covers := storage.NewCoverStorageWithClient(client, cfg.Storage)
			referenced := referencedKeys(images, covers.KeyFromURL)

			result, err := storage.NewPruner(client, cfg.Storage.Bucket, concurrency).Prune(ctx, referenced, dryRun)
			if err != nil {
				return err
			}
			printPruneResult(cmd, result, dryRun)
			return nil
		},
	}
	prune.Flags().BoolVar(&dryRun, "dry-run", false, "list orphaned covers without deleting them")
	prune.Flags().IntVar(&concurrency, "concurrency", 4, "number of parallel deletes")

	cmd.AddCommand(prune)
	return cmd
}

func tripImages(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	rows, err := pool.Query(ctx, `SELECT image FROM trips WHERE image <> ''`)
	if err != nil {
		return nil, fmt.Errorf("querying trip images: %w", err)
	}
	defer rows.Close()

	var images []string
	for rows.Next() {
		var image string
		if err := rows.Scan(&image); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

// referencedKeys maps image URLs to bucket keys. URLs that point elsewhere,
// such as Pexels fallbacks, are ignored.
func referencedKeys(images []string, keyFromURL func(string) (string, bool)) map[string]struct{} {
	keys := make(map[string]struct{}, len(images))
	for _, image := range images {
		if key, ok := keyFromURL(image); ok {
			keys[key] = struct{}{}
		}
	}
	return keys
}

func printPruneResult(cmd *cobra.Command, result *storage.PruneResult, dryRun bool) {
	out := cmd.OutOrStdout()
	if dryRun {
		for _, key := range result.OrphanKeys {
			fmt.Fprintf(out, "[dry-run] would delete %s\n", key)
		}
	}
	fmt.Fprintln(out, "--- Cover Prune Summary ---")
	fmt.Fprintf(out, "Scanned: %d\n", result.Scanned)
	fmt.Fprintf(out, "Orphans: %d\n", result.Orphans)
	fmt.Fprintf(out, "Deleted: %d\n", result.Deleted)
	fmt.Fprintf(out, "Errors:  %d\n", result.Errors)
}
