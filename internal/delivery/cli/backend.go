package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/app"
	config "github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/organizer"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/closer"
	"github.com/spf13/cobra"
)

const closeTimeout = 10 * time.Second

// withDeps загружает конфигурацию сервиса из окружения и освобождает ресурсы после fn.
func withDeps(opts *options, fn func(deps *app.Deps, cfg *config.Config) error) error {
	cfg, err := config.Load(opts.logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cl := closer.NewCloser()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := cl.Close(ctx); err != nil {
			opts.logger.Warnf("close resources: %v", err)
		}
	}()

	return fn(app.NewDeps(cfg, opts.logger, cl), cfg)
}

func newImportCmd(opts *options) *cobra.Command {
	var (
		src       string
		csvPath   string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert product records into PostgreSQL",
		Long: `Upsert categories and products from JSON records (--src) or styles.csv (--csv).
Each batch is written in its own transaction. Connection settings come from POSTGRES_* variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (src == "") == (csvPath == "") {
				return errors.New("exactly one of --src or --csv is required")
			}

			org := opts.organizer("Reading")

			var (
				records []*organizer.Record
				report  *organizer.Report
				err     error
			)
			if src != "" {
				records, report, err = org.LoadJSONRecords(cmd.Context(), src)
			} else {
				records, report, err = org.LoadCSVRecords(csvPath)
			}
			if err != nil {
				return fmt.Errorf("read records: %w", err)
			}

			return withDeps(opts, func(deps *app.Deps, _ *config.Config) error {
				productUC, err := deps.ProductUC(cmd.Context())
				if err != nil {
					return err
				}
				if productUC == nil {
					return errors.New("PostgreSQL is not configured: set POSTGRES_USER, POSTGRES_PASSWORD and POSTGRES_DB")
				}

				res, err := org.Import(cmd.Context(), productUC, records, batchSize, report)
				report.Print(opts.out)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}

				fmt.Fprintf(opts.out, "Inserted:  %d\nUnchanged: %d\nRejected:  %d\n", res.Inserted, res.Unchanged, res.Failed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&src, "src", "", "directory with JSON records")
	cmd.Flags().StringVar(&csvPath, "csv", "", "path to styles.csv")
	cmd.Flags().IntVar(&batchSize, "batch", 500, "records per transaction")
	return cmd
}

func newCatalogCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the embedding catalog in MinIO and Qdrant",
	}
	cmd.AddCommand(newCatalogPublishCmd(opts), newCatalogSyncCmd(opts))
	return cmd
}

func newCatalogPublishCmd(opts *options) *cobra.Command {
	var dir, prefix string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the features table and filenames list to MinIO",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(opts, func(deps *app.Deps, cfg *config.Config) error {
				shutdownCtx, cancel := context.WithCancel(context.Background())
				defer cancel()

				catalogUC, infra, err := deps.CatalogUC(cmd.Context(), shutdownCtx)
				if err != nil {
					return err
				}

				if prefix == "" {
					prefix = cfg.Catalog.Dir
				}
				err = catalogUC.Publish(cmd.Context(), &usecase.PublishCatalogReq{
					FeaturesPath:  filepath.Join(dir, cfg.Catalog.FeaturesFile),
					FilenamesPath: filepath.Join(dir, cfg.Catalog.FilenamesFile),
					Prefix:        prefix,
				})

				if infra != nil {
					waitCtx, waitCancel := context.WithTimeout(context.Background(), closeTimeout)
					defer waitCancel()
					if werr := infra.WaitForCleanup(waitCtx); werr != nil {
						opts.logger.Warnf("cleanup did not finish: %v", werr)
					}
				}
				if err != nil {
					return fmt.Errorf("publish catalog: %w", err)
				}

				fmt.Fprintf(opts.out, "Catalog published to %s/%s\n", cfg.Minio.BucketName, prefix)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "ML", "local directory with the catalog files")
	cmd.Flags().StringVar(&prefix, "prefix", "", "object key prefix (default CATALOG_DIR)")
	return cmd
}

func newCatalogSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Load the catalog and upsert it into Qdrant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(opts, func(deps *app.Deps, _ *config.Config) error {
				catalogUC, _, err := deps.CatalogUC(cmd.Context(), cmd.Context())
				if err != nil {
					return err
				}

				n, err := catalogUC.SyncVectorStore(cmd.Context())
				if err != nil {
					return fmt.Errorf("sync catalog: %w", err)
				}

				fmt.Fprintf(opts.out, "Synced %d vectors\n", n)
				return nil
			})
		},
	}
}
