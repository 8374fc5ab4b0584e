package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/colorfulnotion/dexverify/common"
	"github.com/colorfulnotion/dexverify/log"
	"github.com/spf13/cobra"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

func newDiffCmd(c *cli) *cobra.Command {
	var color bool

	cmd := &cobra.Command{
		Use:   "diff A.json B.json",
		Short: "Compare two batch reports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			left, leftReport, err := loadReport(args[0])
			if err != nil {
				return err
			}
			right, rightReport, err := loadReport(args[1])
			if err != nil {
				return err
			}

			out, differs, err := diffReports(left, right, color)
			if err != nil {
				return err
			}
			if !differs {
				fmt.Fprintf(c.out, "%sreports match%s\n", common.ColorGreen, common.ColorReset)
				return nil
			}
			log.Debug(log.CLIMonitoring, "reports differ", "left", args[0], "right", args[1])
			fmt.Fprint(c.out, out)
			fmt.Fprintf(c.out, "accepted %d -> %d, rejected %d -> %d\n",
				leftReport.Accepted, rightReport.Accepted, leftReport.Rejected, rightReport.Rejected)
			return errDiffers
		},
	}
	cmd.Flags().BoolVar(&color, "color", true, "Colorize the diff")
	return cmd
}

// loadReport reads a batch report, returning its raw bytes for diffing.
func loadReport(path string) ([]byte, *Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, nil, fmt.Errorf("%s is not a batch report: %w", path, err)
	}
	return data, &r, nil
}

// diffReports renders the differences between two JSON documents in ASCII
// form. differs is false when they are structurally equal.
func diffReports(left, right []byte, color bool) (string, bool, error) {
	differ := gojsondiff.New()
	delta, err := differ.Compare(left, right)
	if err != nil {
		return "", false, fmt.Errorf("failed to compare reports: %w", err)
	}
	if !delta.Modified() {
		return "", false, nil
	}

	var leftObj interface{}
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return "", true, err
	}
	cfg := formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       color,
	}
	out, err := formatter.NewAsciiFormatter(leftObj, cfg).Format(delta)
	if err != nil {
		return "", true, fmt.Errorf("failed to format diff: %w", err)
	}
	return out, true, nil
}
