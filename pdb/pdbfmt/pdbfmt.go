// Package pdbfmt reads coordinates in the old, fixed column pdb format.
// It is permissive. A coordinate line we cannot make sense of is
// skipped, rather than failing the whole file. We only look at MODEL,
// ENDMDL, ATOM, HETATM and END records. Everything else is header
// and of no interest here.
package pdbfmt

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/edsrzf/mmap-go"

	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
	"github.com/andrew-torda/pdbadapt/pdb/zwrap"
)

// Columns, counting from zero, end exclusive.
const (
	minCoordLen = 54 // up to and including z
	maxLineLen  = 80
)

type colRange struct{ start, end int }

var (
	cSerial  = colRange{6, 11}
	cName    = colRange{12, 16}
	cAltLoc  = colRange{16, 17}
	cResName = colRange{17, 20}
	cChain   = colRange{21, 22}
	cResSeq  = colRange{22, 26}
	cICode   = colRange{26, 27}
	cX       = colRange{30, 38}
	cY       = colRange{38, 46}
	cZ       = colRange{46, 54}
	cOcc     = colRange{54, 60}
	cBfac    = colRange{60, 66}
	cSegid   = colRange{72, 76}
	cElement = colRange{76, 78}
	cCharge  = colRange{78, 80}
)

// get returns the columns from a line, which has been padded.
func (c colRange) get(line []byte) string { return string(line[c.start:c.end]) }

// trimmed is get without the spaces
func (c colRange) trimmed(line []byte) string { return strings.TrimSpace(c.get(line)) }

var errIsDir = errors.New("is a directory")

type reader struct {
	bld    *cmmn.Builder
	padded [maxLineLen]byte
	done   bool // seen END
}

// pad copies a line into fixed space, filled out with blanks so we do
// not have to worry about short lines.
func (rd *reader) pad(line []byte) []byte {
	n := copy(rd.padded[:], line)
	for i := n; i < maxLineLen; i++ {
		rd.padded[i] = ' '
	}
	return rd.padded[:]
}

func parseF32(s string) (float32, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(x), err
}

// guessElement is used when columns 77-78 are blank. Names of one
// letter elements start in column 14, so a blank in column 13 means
// the element is the first letter.
func guessElement(fullName string, het byte) string {
	name := strings.TrimLeft(fullName, "0123456789 ")
	if name == "" {
		return ""
	}
	if fullName[0] == ' ' || het == cmmn.HetNone || len(name) < 2 {
		return name[:1]
	}
	second := name[1]
	if second >= 'A' && second <= 'Z' && !strings.HasPrefix(name, "H") {
		return name[:2]
	}
	return name[:1]
}

// atomLine reads ATOM and HETATM records. It returns false if the line
// was broken and skipped. Nobody complains about skipped lines.
func (rd *reader) atomLine(raw []byte, isHet bool) bool {
	if len(raw) < minCoordLen {
		return false
	}
	line := rd.pad(raw)
	var a cmmn.Atom
	var err error
	if a.Coord.X, err = parseF32(cX.get(line)); err != nil {
		return false
	}
	if a.Coord.Y, err = parseF32(cY.get(line)); err != nil {
		return false
	}
	if a.Coord.Z, err = parseF32(cZ.get(line)); err != nil {
		return false
	}
	resSeq, err := strconv.Atoi(cResSeq.trimmed(line))
	if err != nil {
		return false
	}
	a.Occupancy = float32(math.NaN())
	if s := cOcc.trimmed(line); s != "" {
		if a.Occupancy, err = parseF32(s); err != nil {
			a.Occupancy = float32(math.NaN())
		}
	}
	if s := cBfac.trimmed(line); s != "" {
		if a.BFactor, err = parseF32(s); err != nil {
			a.BFactor = 0
		}
	}
	a.Serial, _ = strconv.Atoi(cSerial.trimmed(line))
	a.FullName = cName.get(line)
	a.Name = strings.TrimSpace(a.FullName)
	a.AltLoc = cAltLoc.trimmed(line)
	a.Charge = cCharge.trimmed(line)

	ri := cmmn.ResInfo{
		ChainID: cChain.trimmed(line),
		Name:    cResName.trimmed(line),
		HetFlag: cmmn.HetNone,
		SeqNum:  resSeq,
		ICode:   cICode.trimmed(line),
		Segid:   cSegid.get(line),
	}
	if isHet {
		ri.HetFlag = cmmn.HetGroup
		if cmmn.IsWater(ri.Name) {
			ri.HetFlag = cmmn.HetWater
		}
	}
	if a.Element = strings.ToUpper(cElement.trimmed(line)); a.Element == "" {
		a.Element = guessElement(a.FullName, ri.HetFlag)
	}
	rd.bld.AddAtom(ri, &a)
	return true
}

// modelLine starts a new model. The number should be in columns 11-14,
// but we are generous and take the first word after the keyword.
func (rd *reader) modelLine(line []byte) {
	serial := 0
	if f := bytes.Fields(line[len("MODEL"):]); len(f) > 0 {
		serial, _ = strconv.Atoi(string(f[0]))
	}
	if serial == 0 { // Missing or broken number. Count models ourselves
		if last, ok := rd.bld.CurrentModel(); ok {
			serial = last + 1
		} else {
			serial = 1
		}
	}
	rd.bld.Model(serial)
}

// line looks at one line of input.
func (rd *reader) line(b []byte) {
	b = bytes.TrimRight(b, "\r")
	switch {
	case bytes.HasPrefix(b, []byte("ATOM  ")):
		rd.atomLine(b, false)
	case bytes.HasPrefix(b, []byte("HETATM")):
		rd.atomLine(b, true)
	case bytes.HasPrefix(b, []byte("MODEL")):
		rd.modelLine(b)
	case bytes.HasPrefix(b, []byte("END")) && !bytes.HasPrefix(b, []byte("ENDMDL")):
		rd.done = true
	}
}

// Read reads pdb format from r. The id is stored in the structure and
// is not interpreted.
func Read(id string, r io.Reader) (*cmmn.Structure, error) {
	rd := &reader{bld: cmmn.NewBuilder(id)}
	scnnr := bufio.NewScanner(r)
	scnnr.Buffer(make([]byte, 0, 4096), 1024*1024)
	for !rd.done && scnnr.Scan() {
		rd.line(scnnr.Bytes())
	}
	if err := scnnr.Err(); err != nil {
		return nil, err
	}
	return rd.bld.Structure(), nil
}

// readBytes is Read, but working on a block of memory.
func readBytes(id string, b []byte) *cmmn.Structure {
	rd := &reader{bld: cmmn.NewBuilder(id)}
	for len(b) > 0 && !rd.done {
		var ln []byte
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			ln, b = b[:i], b[i+1:]
		} else {
			ln, b = b, nil
		}
		rd.line(ln)
	}
	return rd.bld.Structure()
}

// ReadFile reads a pdb file. A gzipped file is read through the
// decompressor. Otherwise we map the file into memory, which saves a
// copy on the big files.
func ReadFile(id string, fname string) (*cmmn.Structure, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	fi, err := fp.Stat()
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, &os.PathError{Op: "read", Path: fname, Err: errIsDir}
	}
	if fi.Size() == 0 { // mmap does not like zero length files
		return cmmn.NewBuilder(id).Structure(), nil
	}
	var head [2]byte
	if _, err := fp.ReadAt(head[:], 0); err != nil && err != io.EOF {
		return nil, err
	}
	if zwrap.IsGzip(head[:]) {
		zr, err := zwrap.WrapMaybe(fp)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return Read(id, zr)
	}
	mm, err := mmap.Map(fp, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer mm.Unmap()
	return readBytes(id, mm), nil
}
