package pdb

import (
	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
	"github.com/andrew-torda/pdbadapt/pdb/pdbio"
)

// SetSave replaces the function which writes the file.
func (a *Adapter) SetSave(f func(path string, m *cmmn.Model, sel pdbio.Selector) error) {
	a.save = f
}
