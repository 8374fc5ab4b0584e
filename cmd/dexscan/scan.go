package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/colorfulnotion/dexverify/storage"
	"github.com/colorfulnotion/dexverify/verify"
	"github.com/spf13/cobra"
)

// openStore opens the verdict cache, or returns nil when dir is empty.
func openStore(dir string) (*storage.VerdictStore, error) {
	if dir == "" {
		return nil, nil
	}
	return storage.NewVerdictStore(dir)
}

func newScanCmd(c *cli) *cobra.Command {
	var (
		hexCode   string
		file      string
		class     string
		method    string
		proto     string
		jsonOut   bool
		tree      bool
		gcPoints  bool
		cacheDir  string
		optimized bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Pre-analyze a single code_item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (hexCode == "") == (file == "") {
				return fmt.Errorf("exactly one of --hex or --file is required")
			}
			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				hexCode = hex.EncodeToString(raw)
			}

			store, err := openStore(cacheDir)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			cfg := verify.DefaultConfig()
			cfg.GenerateGcPoints = gcPoints
			cfg.Optimizing = optimized
			cfg.Workers = 1
			cfg.ApplyGlobals()

			a := &analyzer{cfg: cfg, store: store, detail: jsonOut || tree}
			reports, err := a.run(cmd.Context(), []ManifestEntry{{Class: class, Method: method, Proto: proto, Code: hexCode}})
			if err != nil {
				return err
			}
			rep := reports[0]

			switch {
			case jsonOut:
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			case tree:
				fmt.Fprintln(c.out, buildTree(rep).String())
			default:
				writeText(c.out, rep)
			}
			if !rep.Accepted {
				return errRejected
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hexCode, "hex", "", "Hex-encoded code_item")
	cmd.Flags().StringVar(&file, "file", "", "File holding a raw code_item")
	cmd.Flags().StringVar(&class, "class", "LUnknown;", "Class descriptor of the method")
	cmd.Flags().StringVar(&method, "method", "unknown", "Method name")
	cmd.Flags().StringVar(&proto, "proto", "()V", "Method prototype")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full report as JSON")
	cmd.Flags().BoolVar(&tree, "tree", false, "Print the instruction layout as a tree")
	cmd.Flags().BoolVar(&gcPoints, "gc-points", true, "Mark GC points")
	cmd.Flags().StringVar(&cacheDir, "cache", "", "Verdict cache directory")
	cmd.Flags().BoolVar(&optimized, "optimizing", false, "Suppress class resolution reports")
	return cmd
}
