package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"captionburn/internal/exporterr"
)

func main() {
	// Ctrl+C and SIGTERM cancel the running export
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand(newCommandContext())
	err := cmd.ExecuteContext(ctx)
	cancel()
	if err == nil {
		return
	}

	if exporterr.IsCancelled(err) {
		fmt.Fprintln(os.Stderr, "Export cancelled")
		os.Exit(130) // Standard exit code for SIGINT
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCode(err))
}

// exitCode maps the error taxonomy to distinct process exit codes.
func exitCode(err error) int {
	kind, ok := exporterr.KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case exporterr.KindConfiguration:
		return 2
	case exporterr.KindDecode:
		return 3
	case exporterr.KindEncode:
		return 4
	case exporterr.KindValidation:
		return 5
	}
	return 1
}
