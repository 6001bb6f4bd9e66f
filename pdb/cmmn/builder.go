package cmmn

// resKey identifies a residue within a chain.
type resKey struct {
	het    byte
	seqNum int
	iCode  string
}

// Builder is fed atoms in file order by the readers and assembles
// the hierarchy. A chain or residue that turns up again later in the
// same model (waters after ligands, for example) is extended, not
// duplicated.
type Builder struct {
	s       *Structure
	model   *Model
	chains  map[string]*Chain
	resdues map[*Chain]map[resKey]*Residue
	lastRes *Residue
	lastKey resKey
	lastChn *Chain
}

// NewBuilder starts an empty structure with the given identifier.
func NewBuilder(id string) *Builder {
	return &Builder{s: &Structure{ID: id, Models: make([]*Model, 0, 1)}}
}

// Model starts a new model. Atoms added before any call to Model go
// into model 1.
func (b *Builder) Model(serial int) {
	b.model = &Model{Serial: serial}
	b.s.Models = append(b.s.Models, b.model)
	b.chains = make(map[string]*Chain)
	b.resdues = make(map[*Chain]map[resKey]*Residue)
	b.lastRes, b.lastChn = nil, nil
}

// CurrentModel returns the serial of the model being filled, and
// false if there is not one yet.
func (b *Builder) CurrentModel() (int, bool) {
	if b.model == nil {
		return 0, false
	}
	return b.model.Serial, true
}

// ResInfo is what we need to place an atom in a residue.
type ResInfo struct {
	ChainID string
	Name    string
	HetFlag byte
	SeqNum  int
	ICode   string
	Segid   string
}

// AddAtom puts an atom in the right chain and residue.
func (b *Builder) AddAtom(ri ResInfo, a *Atom) {
	if b.model == nil {
		b.Model(1)
	}
	key := resKey{het: ri.HetFlag, seqNum: ri.SeqNum, iCode: ri.ICode}
	if b.lastRes != nil && b.lastChn.ID == ri.ChainID && b.lastKey == key {
		b.lastRes.Atoms = append(b.lastRes.Atoms, a)
		return
	}
	chn, ok := b.chains[ri.ChainID]
	if !ok {
		chn = &Chain{ID: ri.ChainID}
		b.chains[ri.ChainID] = chn
		b.resdues[chn] = make(map[resKey]*Residue)
		b.model.Chains = append(b.model.Chains, chn)
	}
	res, ok := b.resdues[chn][key]
	if !ok {
		res = &Residue{
			Name:    ri.Name,
			HetFlag: ri.HetFlag,
			SeqNum:  ri.SeqNum,
			ICode:   ri.ICode,
			Segid:   ri.Segid,
		}
		b.resdues[chn][key] = res
		chn.Residues = append(chn.Residues, res)
	}
	res.Atoms = append(res.Atoms, a)
	b.lastRes, b.lastChn, b.lastKey = res, chn, key
}

// Structure returns what has been built. Models without atoms are
// dropped, since an empty MODEL/ENDMDL pair is not a conformation.
func (b *Builder) Structure() *Structure {
	kept := b.s.Models[:0]
	for _, m := range b.s.Models {
		if len(m.Chains) > 0 {
			kept = append(kept, m)
		}
	}
	b.s.Models = kept
	return b.s
}
