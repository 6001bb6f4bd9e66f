// Package cmmn has the common definitions for structures read from
// pdb or mmcif files. The hierarchy is structure, model, chain,
// residue, atom. The readers build it and the writer walks it.
package cmmn

// Xyz is one set of coordinates
type Xyz struct{ X, Y, Z float32 }
type XyzSl []Xyz

// BrokenResNum is for a residue which came without a number.
var BrokenResNum int = -9999

// Het flags for residues. A blank is a standard residue.
const (
	HetNone  byte = ' '
	HetGroup byte = 'H'
	HetWater byte = 'W'
)

// Level says where in the hierarchy a record sits.
type Level byte

const (
	ChainLevel Level = iota
	ResidueLevel
	AtomLevel
)

// Record is anything a selection can accept or reject.
// Chains, residues and atoms are records.
type Record interface {
	Level() Level
}

// Atom is one line of coordinates.
type Atom struct {
	Name      string // stripped, like "CA"
	FullName  string // as in the file, maybe padded, like " CA "
	AltLoc    string // "" if there is none. mmcif allows more than one character
	Coord     Xyz
	Occupancy float32
	BFactor   float32
	Element   string
	Charge    string
	Serial    int // Serial number from the input file
}

func (*Atom) Level() Level { return AtomLevel }

// Residue holds atoms. HetFlag, SeqNum and ICode together identify a
// residue in a chain.
type Residue struct {
	Name    string // three letter code like "ALA" or "HOH"
	HetFlag byte
	SeqNum  int
	ICode   string // insertion code, "" if none
	Segid   string
	Atoms   []*Atom
}

func (*Residue) Level() Level { return ResidueLevel }

// Chain is a list of residues
type Chain struct {
	ID       string // Name, like "A" or "B"
	Residues []*Residue
}

func (*Chain) Level() Level { return ChainLevel }

// Model is one conformation.
type Model struct {
	Serial int // Model number from the file
	Chains []*Chain
}

// Structure is what a reader returns. Models are in the order we met
// them in the file.
type Structure struct {
	ID     string
	Models []*Model
}

// NModel says how many models we have.
func (s *Structure) NModel() int {
	if s == nil {
		return 0
	}
	return len(s.Models)
}

// Chain returns the chain with the given name or nil
func (m *Model) Chain(id string) *Chain {
	for _, c := range m.Chains {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ChainNames returns a slice with the names of the chains.
func (m *Model) ChainNames() []string {
	ret := make([]string, 0, len(m.Chains))
	for _, c := range m.Chains {
		ret = append(ret, c.ID)
	}
	return ret
}

// NAtom counts atoms in a model, all chains.
func (m *Model) NAtom() (n int) {
	for _, c := range m.Chains {
		for _, r := range c.Residues {
			n += len(r.Atoms)
		}
	}
	return n
}

// IsWater is true for the usual water names.
func IsWater(resname string) bool {
	switch resname {
	case "HOH", "WAT", "H2O", "DOD":
		return true
	}
	return false
}
