// This file is for parsing atom_site lines and putting the atoms
// into the structure.
package mmcif

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
)

// cifCol is one column of the atom_site table. If there is an altName,
// like label_asym_id for auth_asym_id, we fall back to it when the
// first column is missing or has a dot or question mark.
type cifCol struct {
	cifName string
	altName string
	n       int // -1 if the column is not there
	alt     int
}

// acn has the atom_site columns we look at.
type acn struct {
	groupPDB,
	id,
	typeSymbol,
	altID,
	insCode,
	cartnX,
	cartnY,
	cartnZ,
	occupancy,
	bIso,
	formalCharge,
	seqID,
	compID,
	asymID,
	atomID,
	modelNum cifCol
	maxN int // largest column index we need
}

func newAcn() *acn {
	return &acn{
		groupPDB:     cifCol{cifName: "group_PDB"},
		id:           cifCol{cifName: "id"},
		typeSymbol:   cifCol{cifName: "type_symbol"},
		altID:        cifCol{cifName: "label_alt_id"},
		insCode:      cifCol{cifName: "pdbx_PDB_ins_code"},
		cartnX:       cifCol{cifName: "Cartn_x"},
		cartnY:       cifCol{cifName: "Cartn_y"},
		cartnZ:       cifCol{cifName: "Cartn_z"},
		occupancy:    cifCol{cifName: "occupancy"},
		bIso:         cifCol{cifName: "B_iso_or_equiv"},
		formalCharge: cifCol{cifName: "pdbx_formal_charge"},
		seqID:        cifCol{cifName: "auth_seq_id", altName: "label_seq_id"},
		compID:       cifCol{cifName: "auth_comp_id", altName: "label_comp_id"},
		asymID:       cifCol{cifName: "auth_asym_id", altName: "label_asym_id"},
		atomID:       cifCol{cifName: "auth_atom_id", altName: "label_atom_id"},
		modelNum:     cifCol{cifName: "pdbx_PDB_model_num"},
	}
}

// getColPos looks for the column in the table headings. If a required
// column is in neither place, we set the error that was given to us.
// After the first error, calls are no-ops.
func (cf *cifCol) getColPos(pos map[string]int, required bool, maxN *int, err *error) {
	if *err != nil {
		return
	}
	cf.n, cf.alt = -1, -1
	if i, ok := pos[cf.cifName]; ok {
		cf.n = i
	}
	if i, ok := pos[cf.altName]; ok && cf.altName != "" {
		cf.alt = i
	}
	if cf.n < 0 { // promote the alternative
		cf.n, cf.alt = cf.alt, -1
	}
	if cf.n < 0 && required {
		*err = errors.New("Could not find atomsite column: " + cf.cifName)
		return
	}
	if cf.n > *maxN {
		*maxN = cf.n
	}
	if cf.alt > *maxN {
		*maxN = cf.alt
	}
}

// findCols works out where the columns are from the loop headers.
func findCols(headers []bSlice) (*acn, error) {
	const prefix = "_atom_site."
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		pos[strings.TrimPrefix(string(h), prefix)] = i
	}
	ac := newAcn()
	var err error
	ac.maxN = -1
	for _, c := range []*cifCol{&ac.cartnX, &ac.cartnY, &ac.cartnZ,
		&ac.seqID, &ac.compID, &ac.asymID, &ac.atomID} {
		c.getColPos(pos, true, &ac.maxN, &err)
	}
	for _, c := range []*cifCol{&ac.groupPDB, &ac.id, &ac.typeSymbol, &ac.altID,
		&ac.insCode, &ac.occupancy, &ac.bIso, &ac.formalCharge, &ac.modelNum} {
		c.getColPos(pos, false, &ac.maxN, &err)
	}
	return ac, err
}

// isDotOrQ returns true if the string is a dot or question mark
func isDotOrQ(s bSlice) bool {
	return len(s) == 1 && (s[0] == '.' || s[0] == '?')
}

// get returns the value from a column, falling back to the alternative.
// nil means nothing useful is there.
func (cf *cifCol) get(cmpnt []bSlice) bSlice {
	if cf.n >= 0 && !isDotOrQ(cmpnt[cf.n]) {
		return cmpnt[cf.n]
	}
	if cf.alt >= 0 && !isDotOrQ(cmpnt[cf.alt]) {
		return cmpnt[cf.alt]
	}
	return nil
}


// getF32 converts a column to a float. A missing value gives dflt.
func getF32(cmpnt []bSlice, cf *cifCol, dflt float32) (float32, error) {
	s := cf.get(cmpnt)
	if s == nil {
		return dflt, nil
	}
	x, err := strconv.ParseFloat(string(s), 32)
	if err != nil {
		return dflt, fmt.Errorf("%s: %w", cf.cifName, err)
	}
	return float32(x), nil
}

// pdbCharge turns "2" or "-1" into the pdb "2+" or "1-".
func pdbCharge(s bSlice) string {
	q, err := strconv.Atoi(string(s))
	switch {
	case s == nil, err != nil, q == 0:
		return ""
	case q > 0:
		return strconv.Itoa(q) + "+"
	default:
		return strconv.Itoa(-q) + "-"
	}
}

// getMdlNum returns the model number. No column means model 1.
func getMdlNum(cmpnt []bSlice, ac *acn) (int, error) {
	s := ac.modelNum.get(cmpnt)
	if s == nil {
		return 1, nil
	}
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return 0, errors.New(err.Error() + ". Looked for model num")
	}
	return n, nil
}

// addLine turns one line of the atom_site table into an atom.
func (ac *acn) addLine(ln bSlice, scrtch []bSlice, bld *cmmn.Builder) error {
	cmpnt := fields(ln, scrtch)
	if len(cmpnt) <= ac.maxN {
		return fmt.Errorf("Too few components (%d) on line %s", len(cmpnt), ln)
	}
	for i := range cmpnt { // "C5'" comes with quotes around it
		cmpnt[i] = unquote(cmpnt[i])
	}
	mdlNum, err := getMdlNum(cmpnt, ac)
	if err != nil {
		return err
	}
	if cur, ok := bld.CurrentModel(); !ok || cur != mdlNum {
		bld.Model(mdlNum)
	}

	var ri cmmn.ResInfo
	seq := ac.seqID.get(cmpnt)
	if seq == nil {
		ri.SeqNum = cmmn.BrokenResNum
	} else if ri.SeqNum, err = strconv.Atoi(string(seq)); err != nil {
		return fmt.Errorf("%s: Converting residue number %s", err.Error(), seq)
	}
	ri.ICode = string(ac.insCode.get(cmpnt))
	ri.Name = string(ac.compID.get(cmpnt))
	ri.ChainID = string(ac.asymID.get(cmpnt))
	ri.HetFlag = cmmn.HetNone
	if g := ac.groupPDB.get(cmpnt); string(g) == "HETATM" {
		ri.HetFlag = cmmn.HetGroup
		if cmmn.IsWater(ri.Name) {
			ri.HetFlag = cmmn.HetWater
		}
	}

	a := &cmmn.Atom{}
	a.Name = string(ac.atomID.get(cmpnt))
	a.FullName = a.Name
	a.AltLoc = string(ac.altID.get(cmpnt))
	if a.Coord.X, err = getF32(cmpnt, &ac.cartnX, 0); err != nil {
		return err
	}
	if a.Coord.Y, err = getF32(cmpnt, &ac.cartnY, 0); err != nil {
		return err
	}
	if a.Coord.Z, err = getF32(cmpnt, &ac.cartnZ, 0); err != nil {
		return err
	}
	if a.Occupancy, err = getF32(cmpnt, &ac.occupancy, float32(math.NaN())); err != nil {
		return err
	}
	if a.BFactor, err = getF32(cmpnt, &ac.bIso, 0); err != nil {
		return err
	}
	a.Element = strings.ToUpper(string(ac.typeSymbol.get(cmpnt)))
	a.Charge = pdbCharge(ac.formalCharge.get(cmpnt))
	if s := ac.id.get(cmpnt); s != nil {
		a.Serial, _ = strconv.Atoi(string(s))
	}
	bld.AddAtom(ri, a)
	return nil
}

const (
	lineSiz  = 96 // A line from the PDB is usually less than 90 bytes
	slSiz    = 50 // lines per batch. This came from benchmarking
	maxCmpnt = 40 // more columns than this are lost
)

// newLineBuf creates a batch of lines, sharing one backing array.
func newLineBuf() interface{} {
	var tmp [slSiz * lineSiz]byte
	x := make([]bSlice, slSiz)
	for i, start := 0, 0; i < slSiz; i, start = i+1, start+lineSiz {
		x[i] = tmp[start : start : start+lineSiz]
	}
	return x
}

// getBuf takes a batch from the pool. A batch may have been put back
// shortened, so restore its length.
func getBuf(pool *sync.Pool) []bSlice {
	b := pool.Get().([]bSlice)
	return b[:cap(b)]
}

// atomSite reads batches of lines from the channel and adds the atoms.
// After an error it keeps emptying the channel, so the sender never
// blocks. The error, or nil, goes back on rChan.
func atomSite(ac *acn, bld *cmmn.Builder, c <-chan []bSlice, rChan chan<- error, bufPool *sync.Pool) {
	var scrtch [maxCmpnt]bSlice
	var err error
	for lines := range c {
		for _, ln := range lines {
			if err != nil {
				break
			}
			err = ac.addLine(ln, scrtch[:], bld)
		}
		bufPool.Put(lines)
	}
	rChan <- err
}

// stateAtomTable is like stateLoopTable, but special because it is the
// biggest, most important and slowest table. We read lines into
// batches and push them down a channel. atomSite() does the
// processing while we continue reading the file.
func stateAtomTable(mr *Reader, _ *Data) stateFn {
	ac, err := findCols(mr.headers)
	mr.headers = mr.headers[:0]
	if err != nil {
		mr.fill(err.Error(), true)
		return nil
	}
	c := make(chan []bSlice, 3) // buffer size 3 came from benchmarking
	rChan := make(chan error, 1)
	bufPool := &sync.Pool{New: newLineBuf}
	go atomSite(ac, mr.bld, c, rChan, bufPool)

	lines := getBuf(bufPool)
	i := 0
	for b := mr.cbytes(); !isSpecial(b); b = mr.cbytes() {
		if len(b) > cap(lines[i]) { // default line length is too small
			lines[i] = make([]byte, len(b))
		}
		lines[i] = lines[i][:len(b)]
		copy(lines[i], b)
		if i++; i == slSiz {
			c <- lines
			lines = getBuf(bufPool)
			i = 0
		}
		if !mr.cscan() {
			break
		}
	}
	if i > 0 { // Push any leftover lines down the channel
		c <- lines[:i]
	}
	close(c)
	if err := <-rChan; err != nil {
		mr.fill(err.Error(), false)
		return nil
	}
	if !mr.Ok {
		return nil
	}
	return stateTop
}
