package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapflow/arcquery/pkg/arcgis"
	"github.com/mapflow/arcquery/pkg/client"
	"github.com/mapflow/arcquery/pkg/dataset"
	"github.com/mapflow/arcquery/pkg/logging"
	"github.com/mapflow/arcquery/pkg/pagination"
)

var version = "dev"

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		concurrent  bool
		where       string
		outFields   string
		outSR       string
		geojsonPath string
		csvPath     string
		schemaPath  string
		dedupe      bool
		timeout     time.Duration
		logLevel    string
		pretty      bool
	)

	cmd := &cobra.Command{
		Use:     "arcquery <layer-url>",
		Short:   "Fetch a complete dataset from an ArcGIS Map Service layer",
		Long:    "Fetches every record of a Map Service layer, transparently paging past the server's per-request record limit, and exports the result as GeoJSON, CSV (WKT geometry), or a schema JSON file.",
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(logging.Config{
				Level:  logging.LogLevel(logLevel),
				Pretty: pretty,
				Output: cmd.ErrOrStderr(),
			})

			cfg := client.DefaultConfig()
			cfg.Timeout = timeout
			cfg.Dispatch.Mode = pagination.Sequential
			if concurrent {
				cfg.Dispatch.Mode = pagination.Concurrent
			}
			if dedupe {
				cfg.Dedupe = dataset.DedupeByID
			}

			c, err := client.New(cfg)
			if err != nil {
				return err
			}

			spec, err := arcgis.SpecFromMap(map[string]string{
				"where":     where,
				"outFields": outFields,
				"outSR":     outSR,
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			layer, err := c.OpenLayer(ctx, args[0], spec)
			if err != nil {
				return err
			}

			ds, err := layer.Fetch(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if geojsonPath != "" {
				path := ensureExt(geojsonPath, ".geojson")
				if err := ds.WriteGeoJSON(path); err != nil {
					return err
				}
				fmt.Fprintf(out, "GeoJSON saved at %s\n", path)
			}

			if csvPath != "" {
				path := ensureExt(csvPath, ".csv")
				if err := ds.WriteCSV(path); err != nil {
					return err
				}
				fmt.Fprintf(out, "CSV saved at %s\n", path)
			}

			if schemaPath != "" {
				path := ensureExt(schemaPath, ".json")
				if err := ds.WriteSchema(path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Schema saved at %s\n", path)
			}

			fmt.Fprintln(out, "Processing complete.")
			fmt.Fprintf(out, "Retrieved %d records.\n", ds.Len())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolVarP(&concurrent, "concurrent", "c", false, "Fetch partitions concurrently")
	cmd.Flags().StringVarP(&where, "where", "w", arcgis.DefaultWhere, "Row filter")
	cmd.Flags().StringVarP(&outFields, "out-fields", "f", arcgis.DefaultOutFields, "Field projection")
	cmd.Flags().StringVar(&outSR, "out-sr", "", "Output spatial reference (EPSG code)")
	cmd.Flags().StringVar(&geojsonPath, "geojson", "", "Write GeoJSON to this path")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write CSV with a WKT geometry column to this path")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "Write the layer schema as JSON to this path")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "Drop duplicate records returned on partition boundaries")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Human-readable log output")

	return cmd
}

// ensureExt appends ext when path does not already end with it.
func ensureExt(path, ext string) string {
	if strings.HasSuffix(strings.ToLower(path), ext) {
		return path
	}
	return path + ext
}
