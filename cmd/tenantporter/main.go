// Package main provides the entry point for the tenantporter CLI tool.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nvinuesa/tenantporter/internal/ops"
)

// Version information set at build time.
var (
	Version   = "0.1.0-edge"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err != nil {
		report(os.Stderr, cmd, err)
		os.Exit(1)
	}
}

// report prints the error that ended a command, with a hint for usage errors
// and partial failures.
func report(w io.Writer, cmd *cobra.Command, err error) {
	fmt.Fprintln(w, "Error:", err)
	switch {
	case ops.IsUsage(err) && cmd != nil:
		fmt.Fprintf(w, "Run '%s --help' for usage.\n", cmd.CommandPath())
	case ops.IsPartialFailure(err):
		fmt.Fprintln(w, "The other items were processed; see the messages above for each failure.")
	}
}
