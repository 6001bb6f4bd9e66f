// pdbadapt reads pdb and mmcif files and writes the first model, or a
// selection from it, as a pdb file.
//
// Usage:
//
//	pdbadapt write [flags] file_or_dir ...
//	pdbadapt info [flags] file_or_dir ...
//	pdbadapt fetch [flags] code ...
//
// Flags can also come from a config file, pdbadapt.yaml in the current
// directory or ~/.config/pdbadapt, or from the environment, like
// PDBADAPT_WORKERS=8 or PDBADAPT_WRITE_SUFFIX=_clean.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

// execute runs one command line and returns the exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	defer a.closeLog()
	root := a.rootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return exitFailure
	}
	return exitSuccess
}

func mymain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func main() {
	os.Exit(mymain())
}
