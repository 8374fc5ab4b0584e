// dexscan - control-flow pre-analysis for Dalvik code items
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/colorfulnotion/dexverify/log"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

var (
	errRejected = errors.New("one or more methods rejected")
	errDiffers  = errors.New("reports differ")
)

// cli carries the global flags and the output of one invocation.
type cli struct {
	out io.Writer

	logLevel     string
	logFormat    string
	debug        string
	otlpEndpoint string

	shutdown func(context.Context) error
}

func main() {
	c := &cli{out: os.Stdout}
	err := newRootCmd(c).Execute()
	c.close()
	if err != nil {
		if !errors.Is(err, errRejected) && !errors.Is(err, errDiffers) {
			fmt.Fprintf(os.Stderr, "dexscan: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:           "dexscan",
		Short:         "Dalvik bytecode control-flow pre-analysis",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.InitLogger(c.logLevel, c.logFormat); err != nil {
				return err
			}
			log.EnableModules(c.debug)

			shutdown, err := setupTracing(cmd.Context(), c.otlpEndpoint)
			if err != nil {
				return err
			}
			c.shutdown = shutdown
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(c.out)

	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&c.logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&c.debug, "debug", "", "Debug modules to enable (vfy_mod,scan_mod,cache_mod,cli_mod or all)")
	rootCmd.PersistentFlags().StringVar(&c.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP trace collector (e.g., localhost:4318)")

	rootCmd.AddCommand(newScanCmd(c), newBatchCmd(c), newDiffCmd(c))
	return rootCmd
}

// close flushes pending spans. Runs even when the command failed.
func (c *cli) close() {
	if c.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.shutdown(ctx); err != nil {
		log.Warn(log.CLIMonitoring, "trace shutdown failed", "err", err)
	}
	c.shutdown = nil
}
