// Package cli — командная строка организатора датасета.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/DRSN-tech/visual-recommender/internal/organizer"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// options — общие флаги всех команд.
type options struct {
	rulesFile string
	workers   int
	logLevel  string
	quiet     bool

	logger logger.Logger
	rules  *organizer.Rules
	out    io.Writer
}

// NewRootCmd собирает дерево команд организатора.
func NewRootCmd() *cobra.Command {
	opts := &options{out: os.Stdout}

	root := &cobra.Command{
		Use:   "organizer",
		Short: "Prepare the product dataset for the visual recommender",
		Long: `organizer sorts product records and images into category folders,
imports product metadata into PostgreSQL and publishes the embedding catalog.

Examples:
  organizer organize json --src ./Dataset/Latest --dst ./organized_products
  organizer organize csv --csv styles.csv --images ./images --dst ./by_gender --by gender
  organizer split-accessories --dir "./Dataset/Latest Collections"
  organizer import --csv styles.csv
  organizer catalog publish --dir ./ML`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.out = cmd.OutOrStdout()
			opts.logger = logger.NewSlogLoggerWithWriter(cmd.ErrOrStderr(), logger.ParseLevel(opts.logLevel))

			rules, err := organizer.LoadRules(opts.rulesFile)
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			opts.rules = rules
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.rulesFile, "rules", "rules.yaml", "classification rules file (built-in rules when missing)")
	root.PersistentFlags().IntVar(&opts.workers, "workers", 4, "number of files processed concurrently")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "disable the progress bar")

	root.AddCommand(
		newOrganizeCmd(opts),
		newSplitAccessoriesCmd(opts),
		newImportCmd(opts),
		newCatalogCmd(opts),
	)

	return root
}

// Execute запускает CLI с контекстом, который отменяется по сигналу.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *options) organizer(description string) *organizer.Organizer {
	org := organizer.New(o.rules, o.logger).WithWorkers(o.workers)
	if o.quiet {
		return org
	}
	return org.WithProgress(newProgress(o.out, description))
}

// newProgress создает полосу прогресса при первом вызове, когда известно общее число файлов.
func newProgress(out io.Writer, description string) organizer.ProgressFunc {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)

	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(out),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription(description),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(out)
				}),
			)
		}
		_ = bar.Set(done)
	}
}
