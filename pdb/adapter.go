// Package pdb is the upper level for reading structure files and
// writing them back out. An Adapter reads a pdb or mmcif file, keeps the
// first model and can write it, or a selection from it, as a pdb file.
//
// Multi-model files, usually from NMR, are cut down to their first
// model. A file without any models leaves the Adapter with nothing to
// write, which is not an error until somebody tries to write.
package pdb

import (
	"errors"

	"github.com/charmbracelet/log"

	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
	"github.com/andrew-torda/pdbadapt/pdb/outfile"
	"github.com/andrew-torda/pdbadapt/pdb/pdbio"
)

// DefaultSuffix goes on the output name if nothing else was said.
const DefaultSuffix = "_new"

// State says if an Adapter has a model.
type State byte

const (
	NoRepresentative State = iota
	Holding
)

func (s State) String() string {
	if s == Holding {
		return "holding"
	}
	return "no representative"
}

// Adapter holds the first model of a structure file.
// It is not changed by writing, so it can be written many times.
type Adapter struct {
	fname  string
	format Format
	model  *cmmn.Model
	lgr    *log.Logger
	save   func(path string, m *cmmn.Model, sel pdbio.Selector) error
}

// NewAdapter reads fname, in the format named by ftype ("pdb",
// "mmcif" or "cif"). Errors come from an unknown format or from the
// reader. A file with no models gives an Adapter with nothing in it
// and no error. A nil lgr means the default logger.
func NewAdapter(fname, ftype string, lgr *log.Logger) (*Adapter, error) {
	if lgr == nil {
		lgr = log.Default()
	}
	f, err := ParseFormat(ftype)
	if err != nil {
		lgr.Error("unknown file type", "file", fname, "type", ftype)
		return nil, err
	}
	return newAdapter(fname, f, lgr)
}

// NewAdapterFormat is NewAdapter for callers who already have a Format,
// perhaps from GuessFormat.
func NewAdapterFormat(fname string, f Format, lgr *log.Logger) (*Adapter, error) {
	if lgr == nil {
		lgr = log.Default()
	}
	return newAdapter(fname, f, lgr)
}

func newAdapter(fname string, f Format, lgr *log.Logger) (*Adapter, error) {
	read, id, err := parserFor(f)
	if err != nil {
		lgr.Error("unknown file type", "file", fname, "format", f)
		return nil, err
	}
	s, err := read(id, fname)
	if err != nil {
		return nil, err
	}
	a := &Adapter{fname: fname, format: f, lgr: lgr, save: pdbio.Save}
	switch n := s.NModel(); {
	case n == 0:
		lgr.Error("no models in structure", "file", fname)
	case n > 1:
		lgr.Debug("using first model", "file", fname, "models", n)
		a.model = s.Models[0]
	default:
		a.model = s.Models[0]
	}
	return a, nil
}

// Source is the file we read.
func (a *Adapter) Source() string { return a.fname }

// Format is the format the file was read as.
func (a *Adapter) Format() Format { return a.format }

// Structure returns the model we are holding, or nil.
func (a *Adapter) Structure() *cmmn.Model { return a.model }

// FirstModel is the same as Structure.
func (a *Adapter) FirstModel() *cmmn.Model { return a.model }

// HasStructure says if there is a model to write.
func (a *Adapter) HasStructure() bool { return a.model != nil }

func (a *Adapter) State() State {
	if a.model == nil {
		return NoRepresentative
	}
	return Holding
}

// WriteOptions control WritePDB. Everything may be left empty.
type WriteOptions struct {
	CustomName string         // output base name, without extension
	OutSuffix  string         // appended to the base name
	OutDir     string         // default is the directory of the input
	Selection  pdbio.Selector // nil writes everything
	ForceRerun bool           // write even if the output is already there
}

// OutputPath is the file WritePDB would write for src.
func OutputPath(src string, opts WriteOptions) string {
	suffix := opts.OutSuffix
	if (opts.OutDir == "" || opts.CustomName == "") && suffix == "" {
		suffix = DefaultSuffix
	}
	return outfile.Make(src, opts.CustomName, suffix, opts.OutDir, ".pdb")
}

// WritePDB writes the model as a pdb file and returns its name.
// If the file is already there and not empty, it is left alone unless
// ForceRerun is set.
// If the model has something which cannot be put in pdb columns, like a
// long chain name, we log it and return "" with no error. Nothing is
// written in that case.
func (a *Adapter) WritePDB(opts WriteOptions) (string, error) {
	sel := opts.Selection
	if sel == nil {
		sel = pdbio.AcceptAll{}
	}
	path := OutputPath(a.fname, opts)
	if a.model == nil {
		a.lgr.Error("nothing to write", "file", a.fname)
		return "", ErrNoStructure
	}
	if !outfile.ForceRerun(opts.ForceRerun, path) {
		a.lgr.Debug("output exists, not rewriting", "file", path)
		return path, nil
	}
	if err := a.save(path, a.model, sel); err != nil {
		var fe *pdbio.FieldError
		if errors.As(err, &fe) {
			a.lgr.Error("unable to save structure in PDB file format",
				"file", a.fname, "field", fe.Field, "value", fe.Value, "residue", fe.Residue)
			return "", nil
		}
		return "", err
	}
	a.lgr.Debug("wrote", "file", path)
	return path, nil
}
