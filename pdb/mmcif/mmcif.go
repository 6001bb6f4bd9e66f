// Package mmcif reads an mmcif formatted file. It is a subpackage of pdb.
// Build a Reader, tell it which data items and tables are interesting,
// then call DoFile. Most callers just want the coordinates and call
// Read or ReadFile.
package mmcif

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
	"github.com/andrew-torda/pdbadapt/pdb/zwrap"
)

// A file contains lots of information we are not interested in. We
// keep a list of interesting data items and tables. If something is
// not on this list, it is not saved. The atom_site table is always
// read and goes into the structure.

type stSlice []string

// KeepTable is a loop we were asked to keep.
type KeepTable struct {
	Names []string  // table headings, without the category
	Vals  []stSlice // each entry is a slice of values
}

// Data is what DoFile returns.
type Data struct {
	Items     map[string]string    // Data items to keep
	Tables    map[string]KeepTable // Tables we keep
	Structure *cmmn.Structure
}

// Reader holds the scanner and the instructions on what to keep.
type Reader struct {
	cmmtScanner
	id           string
	dataToKeep   map[string]bool
	tablesToKeep map[string]bool
	headers      []bSlice
	scrtchBytes  [][]byte
	bld          *cmmn.Builder
}

// NewReader returns an object to read mmcif files. The caller has
// decided if r is a file, compressed file or http source.
// id goes into the structure and is not interpreted.
func NewReader(r io.Reader, id string) *Reader {
	if r == nil {
		return nil
	}
	return &Reader{
		cmmtScanner:  newCmmtScanner(r, '#'),
		id:           id,
		dataToKeep:   make(map[string]bool),
		tablesToKeep: make(map[string]bool),
		scrtchBytes:  make([][]byte, 25),
	}
}

// AddItems adds data items, like "_entry.id", which will be saved.
func (mr *Reader) AddItems(s []string) {
	for _, a := range s {
		mr.dataToKeep[a] = true
	}
}

// AddTable says that a loop whose first heading starts with one of
// these categories, like "_entity", will be saved.
func (mr *Reader) AddTable(s []string) {
	for _, a := range s {
		mr.tablesToKeep[a] = true
	}
}

// stateFn is the type of state function. It returns the next
// state function that should act on its input.
type stateFn func(*Reader, *Data) stateFn

// stateData jumps over data_ lines
func stateData(mr *Reader, _ *Data) stateFn {
	if !mr.cscan() {
		return nil
	}
	return stateTop
}

// stateUnknown should be reached if we are confused. It is an error.
func stateUnknown(mr *Reader, _ *Data) stateFn {
	mr.fill("In Unknown state", true)
	return nil
}

// category returns "_atom_site" from "_atom_site.Cartn_x".
func category(hdr []byte) ([]byte, bool) {
	i := bytes.IndexByte(hdr, '.')
	if i < 0 {
		return hdr, false
	}
	return hdr[:i], true
}

// stateLoopHdr collects the headers of a loop and decides whether we
// read the table, skip it or hand it to the atom_site machinery.
func stateLoopHdr(mr *Reader, _ *Data) stateFn {
	if len(mr.headers) != 0 {
		mr.fill("probable bug, headers slice not empty", false)
		return nil
	}
	for ok := true; ok; ok = mr.cscan() {
		b := mr.cbytes()
		if len(b) == 0 || b[0] != '_' {
			break
		}
		s := make([]byte, len(b))
		copy(s, b)
		mr.headers = append(mr.headers, bytes.TrimRight(s, " \t"))
	}
	if !mr.Ok {
		return nil
	}
	if len(mr.headers) < 1 {
		mr.fill("no contents found while reading loop headers", true)
		return nil
	}
	cat, _ := category(mr.headers[0])
	if string(cat) == "_atom_site" {
		return stateAtomTable
	}
	if mr.tablesToKeep[string(cat)] {
		return stateLoopTable
	}
	mr.headers = mr.headers[:0]
	return stateSkipLoopTable
}

// isSpecial returns true if the line is not more of a table. Usually
// this means there is a new directive coming, or end of file.
func isSpecial(inline []byte) bool {
	switch {
	case inline == nil:
		return true
	case inline[0] == '_':
		return true
	case bytes.HasPrefix(inline, []byte("loop_")):
		return true
	case bytes.HasPrefix(inline, []byte("data_")):
		return true
	default:
		return false
	}
}

// stateLoopTable reads a table we want to keep.
func stateLoopTable(mr *Reader, md *Data) stateFn {
	const notSplit string = "Could not split string at dot: "
	ncol := len(mr.headers)
	var table KeepTable
	cat, _ := category(mr.headers[0])
	tblName := string(cat)
	table.Names = make([]string, 0, ncol)
	for _, word := range mr.headers { // given _entity.id, save id
		c, ok := category(word)
		if !ok {
			mr.fill(notSplit+string(word), true)
			return nil
		}
		table.Names = append(table.Names, string(word[len(c)+1:]))
	}
	mr.headers = mr.headers[:0]
	for {
		b, ok := getNpieces(mr, ncol)
		if !ok {
			return nil
		}
		if len(b) != ncol {
			break
		}
		table.Vals = append(table.Vals, b)
	}
	md.Tables[tblName] = table
	return stateTop
}

// stateSkipLoopTable reads lines from a table, but does not save them.
// Most of the tables we meet are like this.
func stateSkipLoopTable(mr *Reader, _ *Data) stateFn {
	foundSomething := false
	for ; !isSpecial(mr.cbytes()); mr.cscan() {
		foundSomething = true
	}
	if !foundSomething {
		mr.fill("empty table", true)
		return nil
	}
	return stateTop
}

// stateLoop just jumps over the loop_ line.
func stateLoop(mr *Reader, _ *Data) stateFn {
	if !mr.cscan() {
		return nil
	}
	if mr.cbytes() == nil {
		mr.fill("loop_ at end of file", true)
		return nil
	}
	return stateLoopHdr
}

// textField collects a ; delimited value. On entry, the current line
// starts with the opening semicolon. On return, the closing line has
// been consumed.
func textField(mr *Reader) (string, bool) {
	var buf bytes.Buffer
	buf.Write(mr.cbytes()[1:])
	for ok := mr.cscan(); ; ok = mr.cscan() {
		x := mr.cbytes()
		if !ok || x == nil {
			mr.fill("unterminated text field", true)
			return "", false
		}
		if x[0] == ';' {
			break
		}
		buf.Write(x)
	}
	return buf.String(), mr.cscan()
}

// stateDItem gets a data item. This is often on one line, but the
// value may be on the next line or in a ; text field.
func stateDItem(mr *Reader, md *Data) stateFn {
	var value string
	t, err := splitCifLine(mr.cbytes(), mr.scrtchBytes)
	if err != nil {
		mr.fill(err.Error(), true)
		return nil
	}
	itemName := string(t[0])
	switch len(t) {
	case 2: // Simplest. We just have a value on the line
		value = string(t[1])
		if !mr.cscan() {
			return nil
		}
	case 1:
		const msg string = "data split on two lines"
		if !mr.cscan() || mr.cbytes() == nil {
			mr.fill(msg, true)
			return nil
		}
		bIn := mr.cbytes()
		if bIn[0] == ';' {
			var ok bool
			if value, ok = textField(mr); !ok {
				return nil
			}
		} else {
			u, err := splitCifLine(bIn, mr.scrtchBytes)
			if err != nil || len(u) != 1 {
				mr.fill(msg, true)
				return nil
			}
			value = string(u[0])
			if !mr.cscan() {
				return nil
			}
		}
	default:
		mr.fill(fmt.Sprintf("%d words for data item %s", len(t), itemName), true)
		return nil
	}

	if mr.dataToKeep[itemName] {
		md.Items[itemName] = value
	}
	return stateTop
}

// stateTop looks at the current line and decides what to do next.
func stateTop(mr *Reader, _ *Data) stateFn {
	b := mr.cbytes() // Does not advance scanner
	if !mr.Ok {
		return nil
	}
	switch {
	case b == nil:
		return nil
	case bytes.HasPrefix(b, []byte("loop_")):
		return stateLoop
	case bytes.HasPrefix(b, []byte("data_")):
		return stateData
	case b[0] == '_':
		return stateDItem
	default:
		return stateUnknown
	}
}

// getNpieces asks the scanner for lines until it has npiece values.
// We make new strings, since calls to scan() reuse the buffer.
// A short result means the table has finished.
func getNpieces(mr *Reader, npiece int) (ret []string, ok bool) {
	for ok = true; len(ret) < npiece; {
		bIn := mr.cbytes()
		if isSpecial(bIn) {
			return ret, true
		}
		if bIn[0] == ';' {
			var s string
			if s, ok = textField(mr); !ok {
				return nil, false
			}
			ret = append(ret, s)
			continue
		}
		var t [][]byte
		if !hasQuote(bIn) {
			t = bytes.Fields(bIn)
		} else {
			var err error
			if t, err = splitCifLine(bIn, mr.scrtchBytes); err != nil {
				mr.fill(err.Error(), true)
				return nil, false
			}
		}
		for _, u := range t {
			ret = append(ret, string(u))
		}
		if !mr.cscan() {
			return nil, false
		}
	}
	return ret, true
}

// DoFile parses the file.
func (mr *Reader) DoFile() (*Data, error) {
	if mr == nil {
		return nil, errors.New("Start of file, nil mmcif Reader")
	}
	if !mr.cscan() {
		return nil, mr.lErr
	}
	md := &Data{
		Items:  make(map[string]string),
		Tables: make(map[string]KeepTable),
	}
	mr.bld = cmmn.NewBuilder(mr.id)
	if mr.n == 0 { // empty file, so no models
		md.Structure = mr.bld.Structure()
		return md, nil
	}
	for state := stateTop; (state != nil) && mr.Ok; {
		state = state(mr, md)
	}
	if !mr.Ok {
		return nil, mr.lErr
	}
	md.Structure = mr.bld.Structure()
	return md, nil
}

// Read parses mmcif from r and returns the coordinates.
func Read(id string, r io.Reader) (*cmmn.Structure, error) {
	md, err := NewReader(r, id).DoFile()
	if err != nil {
		return nil, err
	}
	return md.Structure, nil
}

// ReadFile is Read, but opens the file first. Gzipped files are fine.
func ReadFile(id string, fname string) (*cmmn.Structure, error) {
	rdr, err := zwrap.Open(fname)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	s, err := Read(id, rdr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return s, nil
}
