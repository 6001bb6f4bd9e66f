package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/andrew-torda/pdbadapt/pdb"
	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
	"github.com/andrew-torda/pdbadapt/pdb/geom"
)

type fileInfo struct {
	format pdb.Format
	has    bool
	sum    geom.Summary
}

// modelDoc and infoDoc are the --yaml output.
type modelDoc struct {
	Chains   []string   `yaml:"chains,flow"`
	Residues int        `yaml:"residues"`
	Atoms    int        `yaml:"atoms"`
	Hetero   int        `yaml:"hetero"`
	Water    int        `yaml:"water"`
	Centroid [3]float32 `yaml:"centroid,flow"`
	RadGyr   float32    `yaml:"radius_of_gyration"`
	Min      [3]float32 `yaml:"min,flow"`
	Max      [3]float32 `yaml:"max,flow"`
}

type infoDoc struct {
	File   string    `yaml:"file"`
	Format string    `yaml:"format,omitempty"`
	Model  *modelDoc `yaml:"model,omitempty"`
	Error  string    `yaml:"error,omitempty"`
}

func xyz3(x cmmn.Xyz) [3]float32 { return [3]float32{x.X, x.Y, x.Z} }

func toDoc(r result[fileInfo]) infoDoc {
	d := infoDoc{File: r.name}
	if r.err != nil {
		d.Error = r.err.Error()
		return d
	}
	d.Format = r.val.format.String()
	if r.val.has {
		s := r.val.sum
		d.Model = &modelDoc{
			Chains: s.ChainIDs, Residues: s.NResidue, Atoms: s.NAtom,
			Hetero: s.NHetero, Water: s.NWater,
			Centroid: xyz3(s.Centroid), RadGyr: s.RadGyr,
			Min: xyz3(s.Min), Max: xyz3(s.Max),
		}
	}
	return d
}

// writeYAML prints one document with a list of files.
func (a *app) writeYAML(res []result[fileInfo]) error {
	docs := make([]infoDoc, len(res))
	for i, r := range res {
		docs[i] = toDoc(r)
	}
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(docs); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) infoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [flags] file_or_dir ...",
		Short: "Summarise the first model of each file",
		Long: `info reads each file and prints what is in its first model, after any
selection: chains, residues, atoms, hetero groups, waters and the radius of
gyration. Nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runInfo,
	}
	cmd.Flags().Bool("yaml", false, "print yaml instead of a table")
	a.bind("info", cmd.Flags(), "yaml")
	a.addSelectFlags(cmd)
	return cmd
}

func (a *app) runInfo(cmd *cobra.Command, args []string) error {
	files, err := expandArgs(args, nil, a.lgr)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no structure files found")
	}
	format := a.v.GetString("format")
	sel := a.selection("info")
	res := runPool(a.v.GetInt("workers"), files, func(fname string) (fileInfo, error) {
		ad, err := openAdapter(fname, format, a.lgr)
		if err != nil {
			return fileInfo{}, err
		}
		fi := fileInfo{format: ad.Format(), has: ad.HasStructure()}
		if fi.has {
			fi.sum = geom.Summarise(ad.Structure(), sel)
		}
		return fi, nil
	})

	nFail := 0
	for _, r := range res {
		if r.err != nil {
			a.lgr.Error("failed", "file", r.name, "err", r.err)
			nFail++
		}
	}
	if a.v.GetBool("info.yaml") {
		if err := a.writeYAML(res); err != nil {
			return err
		}
	} else if err := a.writeTable(res); err != nil {
		return err
	}
	if nFail > 0 {
		return fmt.Errorf("%d of %d files failed", nFail, len(files))
	}
	return nil
}

func (a *app) writeTable(res []result[fileInfo]) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "file\tformat\tchains\tresidues\tatoms\thetero\twater\trgyr")
	for _, r := range res {
		switch {
		case r.err != nil:
			continue
		case !r.val.has:
			fmt.Fprintf(tw, "%s\t%s\tno model\n", r.name, r.val.format)
		default:
			s := r.val.sum
			chains := strings.Join(s.ChainIDs, ",")
			if chains == "" {
				chains = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%.2f\n", r.name, r.val.format,
				chains, s.NResidue, s.NAtom, s.NHetero, s.NWater, s.RadGyr)
		}
	}
	return tw.Flush()
}
