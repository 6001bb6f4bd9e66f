package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/andrew-torda/pdbadapt/pdb"
	"github.com/andrew-torda/pdbadapt/pdb/pdbio"
)

// addSelectFlags gives a command the flags which say which atoms to use.
func (a *app) addSelectFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSlice("chains", nil, "only these chains, like A,B")
	f.Bool("no-water", false, "leave out water")
	f.Bool("no-hetero", false, "leave out all HETATM residues")
	f.Bool("first-altloc", false, "only the first alternate location of each atom")
	a.bind(cmd.Name(), f, "chains", "no-water", "no-hetero", "first-altloc")
}

// selection builds a Selector from the selection flags of a command.
// nil means everything.
func (a *app) selection(cmdName string) pdbio.Selector {
	var sl []pdbio.Selector
	if chains := a.v.GetStringSlice(cmdName + ".chains"); len(chains) > 0 {
		sl = append(sl, pdbio.Chains(chains...))
	}
	if a.v.GetBool(cmdName + ".no-water") {
		sl = append(sl, pdbio.NoWater)
	}
	if a.v.GetBool(cmdName + ".no-hetero") {
		sl = append(sl, pdbio.NoHetero)
	}
	if a.v.GetBool(cmdName + ".first-altloc") {
		sl = append(sl, pdbio.FirstAltLoc)
	}
	if len(sl) == 0 {
		return nil
	}
	return pdbio.All(sl...)
}

// openAdapter reads a file. A format of "auto" means guess.
func openAdapter(fname, format string, lgr *log.Logger) (*pdb.Adapter, error) {
	if format == "" || strings.EqualFold(format, "auto") {
		f, err := pdb.GuessFormat(fname)
		if err != nil {
			return nil, err
		}
		return pdb.NewAdapterFormat(fname, f, lgr)
	}
	return pdb.NewAdapter(fname, format, lgr)
}

func (a *app) writeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write [flags] file_or_dir ...",
		Short: "Write the first model of each file as pdb",
		Long: `write reads each file and writes its first model in pdb format. Output goes
next to the input, or to --outdir, with _new added to the name unless told
otherwise. Directories are searched for structure files.

Each output name is printed after its input. A "-" means the structure has
something, like a two letter chain name, which does not fit in a pdb file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runWrite,
	}
	f := cmd.Flags()
	f.String("name", "", "output base name, only for a single input file")
	f.String("suffix", "", "added to the output base name (default _new)")
	f.String("outdir", "", "output directory (default: that of the input)")
	f.Bool("force", false, "write even if the output file is there")
	a.bind("write", f, "name", "suffix", "outdir", "force")
	a.addSelectFlags(cmd)
	return cmd
}

func (a *app) runWrite(cmd *cobra.Command, args []string) error {
	opts := pdb.WriteOptions{
		CustomName: a.v.GetString("write.name"),
		OutSuffix:  a.v.GetString("write.suffix"),
		OutDir:     a.v.GetString("write.outdir"),
		ForceRerun: a.v.GetBool("write.force"),
		Selection:  a.selection("write"),
	}
	outName := func(in string) string { return pdb.OutputPath(in, opts) }
	files, err := expandArgs(args, outName, a.lgr)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no structure files found")
	}
	if opts.CustomName != "" && len(files) > 1 {
		return fmt.Errorf("--name given with %d input files, they would all write the same file", len(files))
	}

	format := a.v.GetString("format")
	res := runPool(a.v.GetInt("workers"), files, func(fname string) (string, error) {
		ad, err := openAdapter(fname, format, a.lgr)
		if err != nil {
			return "", err
		}
		return ad.WritePDB(opts)
	})
	nFail := 0
	for _, r := range res {
		switch {
		case r.err != nil:
			a.lgr.Error("failed", "file", r.name, "err", r.err)
			nFail++
		case r.val == "":
			fmt.Fprintf(a.out, "%s\t-\n", r.name)
		default:
			fmt.Fprintf(a.out, "%s\t%s\n", r.name, r.val)
		}
	}
	if nFail > 0 {
		return fmt.Errorf("%d of %d files failed", nFail, len(files))
	}
	return nil
}
