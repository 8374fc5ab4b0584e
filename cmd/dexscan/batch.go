package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/colorfulnotion/dexverify/common"
	"github.com/colorfulnotion/dexverify/verify"
	"github.com/spf13/cobra"
)

func readManifest(path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return entries, nil
}

func newBatchCmd(c *cli) *cobra.Command {
	cfg := verify.DefaultConfig()
	var (
		cacheDir string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "batch MANIFEST.json",
		Short: "Pre-analyze every method listed in a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readManifest(args[0])
			if err != nil {
				return err
			}

			store, err := openStore(cacheDir)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			cfg.ApplyGlobals()
			a := &analyzer{cfg: cfg, store: store}
			reports, err := a.run(cmd.Context(), entries)
			if err != nil {
				return err
			}
			report := newReport(reports)

			if jsonOut {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				for _, rep := range reports {
					writeText(c.out, rep)
				}
				fmt.Fprintf(c.out, "%s%d methods%s: %d accepted, %d rejected\n",
					common.ColorBrightWhite, len(reports), common.ColorReset, report.Accepted, report.Rejected)
			}
			if report.Rejected > 0 {
				return errRejected
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of concurrent workers")
	cmd.Flags().BoolVar(&cfg.GenerateGcPoints, "gc-points", cfg.GenerateGcPoints, "Mark GC points")
	cmd.Flags().BoolVar(&cfg.Optimizing, "optimizing", false, "Suppress class resolution reports")
	cmd.Flags().StringVar(&cacheDir, "cache", "", "Verdict cache directory")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}
