package cli

import (
	"fmt"

	"github.com/DRSN-tech/visual-recommender/internal/organizer"
	"github.com/spf13/cobra"
)

func newOrganizeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Copy records or images into category folders",
	}
	cmd.AddCommand(newOrganizeJSONCmd(opts), newOrganizeCSVCmd(opts))
	return cmd
}

func newOrganizeJSONCmd(opts *options) *cobra.Command {
	var src, dst string

	cmd := &cobra.Command{
		Use:   "json",
		Short: "Sort JSON product records by clothing type",
		Long: `Sort JSON product records by clothing type.
Each record is copied to <dst>/<bucket>/. Records matching no keyword go to <dst>/others/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := opts.organizer("Organizing").OrganizeJSON(cmd.Context(), src, dst)
			if report != nil {
				report.Print(opts.out)
			}
			if err != nil {
				return fmt.Errorf("organize json: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&src, "src", ".", "directory with JSON records")
	cmd.Flags().StringVar(&dst, "dst", "organized_products", "output directory")
	return cmd
}

func newOrganizeCSVCmd(opts *options) *cobra.Command {
	var (
		req organizer.CSVRequest
		by  string
	)

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Sort images or records listed in styles.csv",
		Long: `Sort images (<images>/<id>.<ext>) or JSON records (<records>/<id>.json)
listed in styles.csv by one dimension: clothing, gender, season or formality.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dim, err := organizer.ParseDimension(by)
			if err != nil {
				return err
			}
			req.By = dim

			report, err := opts.organizer("Organizing").OrganizeCSV(cmd.Context(), req)
			if report != nil {
				report.Print(opts.out)
			}
			if err != nil {
				return fmt.Errorf("organize csv: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.CSVPath, "csv", "styles.csv", "path to styles.csv")
	cmd.Flags().StringVar(&req.ImagesDir, "images", "", "directory with <id>.<ext> images")
	cmd.Flags().StringVar(&req.RecordsDir, "records", "", "directory with <id>.json records, copied next to the images")
	cmd.Flags().StringVar(&req.Dst, "dst", "organized_products", "output directory")
	cmd.Flags().StringVar(&by, "by", string(organizer.DimClothing), "dimension: clothing|gender|season|formality")
	return cmd
}

func newSplitAccessoriesCmd(opts *options) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "split-accessories",
		Short: "Move accessory records into " + organizer.AccessoriesDir,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := opts.organizer("Scanning").SplitAccessories(cmd.Context(), dir)
			if report != nil {
				report.Print(opts.out)
			}
			if err != nil {
				return fmt.Errorf("split accessories: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory with JSON records")
	return cmd
}
