// Package pdbio writes a model in the old fixed column pdb format.
//
// Atoms are renumbered from 1. Each chain which had something written
// is closed by a TER record, which also takes a serial number, and the
// file ends with END. There are no MODEL records since we only ever
// write one model.
//
// The format has fixed widths. A value which does not fit, like a two
// character chain name from an mmcif file, gives a *FieldError and
// nothing is written.
package pdbio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
)

// ErrIncompatibleField is what every *FieldError unwraps to.
var ErrIncompatibleField = errors.New("value does not fit in pdb columns")

// FieldError says which value could not be written.
type FieldError struct {
	Field   string // like "chain id"
	Value   string
	Residue string // where we were, like "AA/GLY 1"
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q does not fit in pdb columns, residue %s", e.Field, e.Value, e.Residue)
}

func (e *FieldError) Unwrap() error { return ErrIncompatibleField }

const (
	maxSerial = 99999
	minResNum = -999
	maxResNum = 9999
)

// encoder walks the model and fills buf.
type encoder struct {
	buf    bytes.Buffer
	serial int
	chn    *cmmn.Chain
	res    *cmmn.Residue
	sel    Selector
}

func (e *encoder) fieldErr(field, value string) error {
	where := ""
	if e.res != nil {
		where = fmt.Sprintf("%s/%s %d", e.chn.ID, e.res.Name, e.res.SeqNum)
	}
	return &FieldError{Field: field, Value: value, Residue: where}
}

// fixed formats x with prec decimals and fails if it needs more than
// width characters.
func fixed(x float32, width, prec int) (string, bool) {
	if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
		return "", false
	}
	s := strconv.FormatFloat(float64(x), 'f', prec, 32)
	if len(s) > width {
		return "", false
	}
	return strings.Repeat(" ", width-len(s)) + s, true
}

// oneByte turns a chain name, alt loc or insertion code into its
// single column character.
func oneByte(s string) (byte, bool) {
	switch len(s) {
	case 0:
		return ' ', true
	case 1:
		return s[0], true
	}
	return 0, false
}

// atomName pads a name like "CA" to " CA" when the element has one
// letter, so the element lines up in columns 14 and 15.
func atomName(name, element string) string {
	name = strings.TrimSpace(name)
	if len(name) < 4 && len(name) > 0 && unicode.IsLetter(rune(name[0])) && len(element) < 2 {
		return " " + name
	}
	return name
}

// resCols are the columns which are the same for all atoms of a residue.
type resCols struct {
	chainID byte
	iCode   byte
}

// checkRes looks at everything in a residue which is the same for all
// its atoms.
func (e *encoder) checkRes() (rc resCols, err error) {
	var ok bool
	if rc.chainID, ok = oneByte(e.chn.ID); !ok {
		return rc, e.fieldErr("chain id", e.chn.ID)
	}
	r := e.res
	if len(r.Name) > 3 {
		return rc, e.fieldErr("residue name", r.Name)
	}
	if r.SeqNum < minResNum || r.SeqNum > maxResNum {
		return rc, e.fieldErr("residue number", strconv.Itoa(r.SeqNum))
	}
	if rc.iCode, ok = oneByte(r.ICode); !ok {
		return rc, e.fieldErr("insertion code", r.ICode)
	}
	if len(r.Segid) > 4 {
		return rc, e.fieldErr("segment id", r.Segid)
	}
	return rc, nil
}

// atomLine writes one ATOM or HETATM record.
func (e *encoder) atomLine(a *cmmn.Atom, rc resCols) error {
	if e.serial > maxSerial {
		return e.fieldErr("atom serial", strconv.Itoa(e.serial))
	}
	element := strings.ToUpper(strings.TrimSpace(a.Element))
	name := atomName(a.Name, element)
	if len(name) > 4 {
		return e.fieldErr("atom name", a.Name)
	}
	if len(element) > 2 {
		return e.fieldErr("element", a.Element)
	}
	if len(a.Charge) > 2 {
		return e.fieldErr("charge", a.Charge)
	}
	altLoc, ok := oneByte(a.AltLoc)
	if !ok {
		return e.fieldErr("alt loc", a.AltLoc)
	}
	var xyz [3]string
	for i, x := range [3]float32{a.Coord.X, a.Coord.Y, a.Coord.Z} {
		var ok bool
		if xyz[i], ok = fixed(x, 8, 3); !ok {
			return e.fieldErr("coordinate", fmt.Sprint(x))
		}
	}
	occ := "      " // unknown occupancy is left blank
	if !math.IsNaN(float64(a.Occupancy)) {
		var ok bool
		if occ, ok = fixed(a.Occupancy, 6, 2); !ok {
			return e.fieldErr("occupancy", fmt.Sprint(a.Occupancy))
		}
	}
	bfac, ok := fixed(a.BFactor, 6, 2)
	if !ok {
		return e.fieldErr("B-factor", fmt.Sprint(a.BFactor))
	}
	record := "ATOM  "
	if e.res.HetFlag != cmmn.HetNone {
		record = "HETATM"
	}
	fmt.Fprintf(&e.buf, "%s%5d %-4s%c%3s %c%4d%c   %s%s%s%s%s      %-4s%2s%2s\n",
		record, e.serial, name, altLoc, e.res.Name, rc.chainID, e.res.SeqNum, rc.iCode,
		xyz[0], xyz[1], xyz[2], occ, bfac, e.res.Segid, element, a.Charge)
	e.serial++
	return nil
}

// residue writes the accepted atoms and says if there were any.
func (e *encoder) residue(r *cmmn.Residue) (bool, error) {
	e.res = r
	var rc resCols
	written := false
	for _, a := range r.Atoms {
		if !e.sel.Accept(a) {
			continue
		}
		if !written { // only complain about residues we write
			var err error
			if rc, err = e.checkRes(); err != nil {
				return false, err
			}
		}
		if err := e.atomLine(a, rc); err != nil {
			return false, err
		}
		written = true
	}
	return written, nil
}

// chain writes the accepted residues, then TER if anything was written.
func (e *encoder) chain(c *cmmn.Chain) error {
	e.chn = c
	var last *cmmn.Residue
	for _, r := range c.Residues {
		if !e.sel.Accept(r) {
			continue
		}
		written, err := e.residue(r)
		if err != nil {
			return err
		}
		if written {
			last = r
		}
	}
	if last == nil {
		return nil
	}
	if e.serial > maxSerial {
		return e.fieldErr("atom serial", strconv.Itoa(e.serial))
	}
	chainID, _ := oneByte(c.ID)
	iCode, _ := oneByte(last.ICode)
	fmt.Fprintf(&e.buf, "TER   %5d      %3s %c%4d%c\n", e.serial, last.Name, chainID, last.SeqNum, iCode)
	e.serial++
	return nil
}

// Encode returns the pdb text for the parts of the model that sel
// accepts. A nil sel accepts everything. The model is not changed.
func Encode(m *cmmn.Model, sel Selector) ([]byte, error) {
	if sel == nil {
		sel = AcceptAll{}
	}
	e := encoder{serial: 1, sel: sel}
	if m != nil {
		for _, c := range m.Chains {
			if !sel.Accept(c) {
				continue
			}
			if err := e.chain(c); err != nil {
				return nil, err
			}
		}
	}
	e.buf.WriteString("END\n")
	return e.buf.Bytes(), nil
}

// Write encodes the model and writes it to w. Nothing is written if
// encoding fails.
func Write(w io.Writer, m *cmmn.Model, sel Selector) error {
	b, err := Encode(m, sel)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Save writes the model to path. The text goes to a temporary file in
// the same directory which is then renamed, so path is either complete
// or untouched.
func Save(path string, m *cmmn.Model, sel Selector) error {
	b, err := Encode(m, sel)
	if err != nil {
		return err
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".pdbio-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	_, wrErr := tmpFile.Write(b)
	closeErr := tmpFile.Close()
	if wrErr == nil {
		wrErr = closeErr
	}
	if wrErr == nil {
		wrErr = os.Chmod(tmpPath, 0644)
	}
	if wrErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, wrErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
