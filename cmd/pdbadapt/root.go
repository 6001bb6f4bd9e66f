package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const nWorkerDflt = 4

// app is what the commands share. Each command line gets its own, so
// tests do not see each other's settings.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	lgr    *log.Logger
	logFP  *os.File // only set if logging goes to a file
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{v: viper.New(), out: stdout, errOut: stderr}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pdbadapt",
		Short: "Read pdb and mmcif files, write the first model as pdb",
		Long: `pdbadapt reads protein structures in pdb or mmcif format, gzipped or not.
Only the first model is kept. The write command puts it, or a selection from
it, in a pdb file next to the input. Files which are already there are not
written again unless --force is given.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(cmd); err != nil {
				return err
			}
			return a.initLogger()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default: ./pdbadapt.yaml or ~/.config/pdbadapt/pdbadapt.yaml)")
	pf.BoolP("verbose", "v", false, "debug logging")
	pf.String("log", "", `log destination: stderr if empty, "stdout", "none" or a file name`)
	pf.StringP("format", "f", "auto", "input format: auto, pdb, mmcif or cif")
	pf.IntP("workers", "j", nWorkerDflt, "number of files to work on at once")
	a.bind("", pf, "verbose", "log", "format", "workers")

	root.AddCommand(a.writeCmd(), a.infoCmd(), a.fetchCmd())
	return root
}

// bind ties flags to config keys. Subcommand keys get the command name
// in front, so --suffix on write is write.suffix, or PDBADAPT_WRITE_SUFFIX.
func (a *app) bind(prefix string, fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if err := a.v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

func (a *app) initConfig(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("pdbadapt")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "pdbadapt"))
		}
	}
	a.v.SetEnvPrefix("PDBADAPT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// newLogger makes a logger with short timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logWhere decides where to send log output.
func (a *app) logWhere(dest string) (io.Writer, error) {
	switch dest {
	case "", "stderr":
		return a.errOut, nil
	case "stdout":
		return a.out, nil
	case "none":
		return io.Discard, nil
	}
	fp, err := os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	a.logFP = fp
	return fp, nil
}

func (a *app) initLogger() error {
	w, err := a.logWhere(a.v.GetString("log"))
	if err != nil {
		return err
	}
	level := log.InfoLevel
	if a.v.GetBool("verbose") {
		level = log.DebugLevel
	}
	a.lgr = newLogger(w, level)
	if f := a.v.ConfigFileUsed(); f != "" {
		a.lgr.Debug("using config", "file", f)
	}
	return nil
}

func (a *app) closeLog() {
	if a.logFP != nil {
		a.logFP.Close()
		a.logFP = nil
	}
}
