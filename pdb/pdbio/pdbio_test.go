package pdbio_test

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
	"github.com/andrew-torda/pdbadapt/pdb/pdbfmt"
	. "github.com/andrew-torda/pdbadapt/pdb/pdbio"
)

const testdata = "../testdata"

func firstModel(t *testing.T, fname string) *cmmn.Model {
	t.Helper()
	s, err := pdbfmt.ReadFile("x", filepath.Join(testdata, fname))
	if err != nil {
		t.Fatal(err)
	}
	if s.NModel() == 0 {
		t.Fatal("no models in", fname)
	}
	return s.Models[0]
}

var oneModelOut = []string{
	"ATOM      1  N   GLY A   1       0.000   0.000   0.000  1.00 10.00           N  ",
	"ATOM      2  CA  GLY A   1       1.458   0.000   0.000  1.00 10.00           C  ",
	"ATOM      3  C   GLY A   1       2.009   1.420   0.000  1.00 10.00           C  ",
	"ATOM      4  O   GLY A   1       1.251   2.390   0.000  1.00 10.00           O  ",
	"ATOM      5  N   ALA A   2       3.332   1.536   0.000  1.00 10.00           N  ",
	"ATOM      6  CA  ALA A   2       3.970   2.846   0.000  1.00 10.00           C  ",
	"ATOM      7  CB  ALA A   2       5.480   2.700   0.100  1.00 10.00           C  ",
	"HETATM    8  O   HOH A 101      10.000  10.000  10.000  1.00 20.00           O  ",
	"HETATM    9 FE   HEM A 201      -5.000   4.000   3.000  1.00 15.00          FE  ",
	"TER      10      HEM A 201 ",
	"END",
	"",
}

func TestEncodeOneModel(t *testing.T) {
	b, err := Encode(firstModel(t, "one_model.pdb"), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Split(string(b), "\n")
	if diff := cmp.Diff(oneModelOut, got); diff != "" {
		t.Error("pdb text (-want +got):\n", diff)
	}
}

// Reading what we wrote should give the same atoms back.
func TestRoundTrip(t *testing.T) {
	m := firstModel(t, "altloc.pdb")
	var buf bytes.Buffer
	if err := Write(&buf, m, nil); err != nil {
		t.Fatal(err)
	}
	s, err := pdbfmt.Read("x", &buf)
	if err != nil {
		t.Fatal(err)
	}
	m2 := s.Models[0]
	if m2.NAtom() != m.NAtom() {
		t.Fatal("atoms wanted", m.NAtom(), "got", m2.NAtom())
	}
	for i, r := range m.Chains[0].Residues {
		r2 := m2.Chains[0].Residues[i]
		if r.Name != r2.Name || r.SeqNum != r2.SeqNum || r.ICode != r2.ICode {
			t.Error("residue changed", r.Name, r2.Name)
		}
		for j, a := range r.Atoms {
			a2 := r2.Atoms[j]
			if a.Name != a2.Name || a.AltLoc != a2.AltLoc || a.Coord != a2.Coord {
				t.Error("atom changed", a, a2)
			}
		}
	}
}

// countAtoms counts ATOM and HETATM lines
func countAtoms(b []byte) (n int) {
	for _, ln := range strings.Split(string(b), "\n") {
		if strings.HasPrefix(ln, "ATOM  ") || strings.HasPrefix(ln, "HETATM") {
			n++
		}
	}
	return n
}

func TestSelectors(t *testing.T) {
	rejectAll := SelectFunc(func(cmmn.Record) bool { return false })
	noCB := SelectFunc(func(r cmmn.Record) bool {
		a, ok := r.(*cmmn.Atom)
		return !ok || a.Name != "CB"
	})
	var tests = []struct {
		name  string
		fname string
		sel   Selector
		nAtom int
		nTer  int
	}{
		{"all", "one_model.pdb", AcceptAll{}, 9, 1},
		{"nil", "one_model.pdb", nil, 9, 1},
		{"nowater", "one_model.pdb", NoWater, 8, 1},
		{"nohet", "one_model.pdb", NoHetero, 7, 1},
		{"chainA", "one_model.pdb", Chains("A"), 9, 1},
		{"chainB", "one_model.pdb", Chains("B"), 0, 0},
		{"none", "one_model.pdb", rejectAll, 0, 0},
		{"combined", "one_model.pdb", All(NoHetero, noCB, nil), 6, 1},
		{"altloc", "altloc.pdb", FirstAltLoc, 4, 1},
	}
	for _, tt := range tests {
		b, err := Encode(firstModel(t, tt.fname), tt.sel)
		if err != nil {
			t.Fatal(tt.name, err)
		}
		if n := countAtoms(b); n != tt.nAtom {
			t.Error(tt.name, "atoms wanted", tt.nAtom, "got", n)
		}
		if n := strings.Count(string(b), "TER   "); n != tt.nTer {
			t.Error(tt.name, "TER records wanted", tt.nTer, "got", n)
		}
		if !strings.HasSuffix(string(b), "END\n") {
			t.Error(tt.name, "no END")
		}
	}
}

func TestRejectAllIsJustEnd(t *testing.T) {
	rejectAll := SelectFunc(func(cmmn.Record) bool { return false })
	b, err := Encode(firstModel(t, "one_model.pdb"), rejectAll)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "END\n" {
		t.Errorf("wanted only END, got %q", b)
	}
}

// mdl makes a one chain, one residue model.
func mdl(chainID, resName string, seq int, atoms ...*cmmn.Atom) *cmmn.Model {
	return &cmmn.Model{Serial: 1, Chains: []*cmmn.Chain{{
		ID: chainID,
		Residues: []*cmmn.Residue{{
			Name: resName, HetFlag: cmmn.HetNone, SeqNum: seq, Atoms: atoms,
		}},
	}}}
}

func icode(code string) *cmmn.Model {
	m := mdl("A", "GLY", 1, ca(0))
	m.Chains[0].Residues[0].ICode = code
	return m
}

func ca(x float32) *cmmn.Atom {
	return &cmmn.Atom{Name: "CA", Coord: cmmn.Xyz{X: x}, Occupancy: 1, Element: "C"}
}

func TestFieldErrors(t *testing.T) {
	var tests = []struct {
		name  string
		m     *cmmn.Model
		field string
	}{
		{"chain", mdl("AA", "GLY", 1, ca(0)), "chain id"},
		{"resname", mdl("A", "GLYX", 1, ca(0)), "residue name"},
		{"resnum big", mdl("A", "GLY", 10000, ca(0)), "residue number"},
		{"resnum small", mdl("A", "GLY", -1000, ca(0)), "residue number"},
		{"coord big", mdl("A", "GLY", 1, ca(10000)), "coordinate"},
		{"coord small", mdl("A", "GLY", 1, ca(-1000)), "coordinate"},
		{"coord nan", mdl("A", "GLY", 1, ca(float32(math.NaN()))), "coordinate"},
		{"atom name", mdl("A", "GLY", 1, &cmmn.Atom{Name: "CAXYZ"}), "atom name"},
		{"element", mdl("A", "GLY", 1, &cmmn.Atom{Name: "X", Element: "XYZ"}), "element"},
		{"alt loc", mdl("A", "GLY", 1, &cmmn.Atom{Name: "CA", AltLoc: "AB"}), "alt loc"},
		{"insertion code", icode("AB"), "insertion code"},
	}
	for _, tt := range tests {
		_, err := Encode(tt.m, nil)
		if !errors.Is(err, ErrIncompatibleField) {
			t.Error(tt.name, "wanted ErrIncompatibleField got", err)
			continue
		}
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != tt.field {
			t.Error(tt.name, "wrong field", err)
		}
	}
}

func TestSerialOverflow(t *testing.T) {
	atoms := make([]*cmmn.Atom, 100000)
	for i := range atoms {
		atoms[i] = ca(1)
	}
	_, err := Encode(mdl("A", "GLY", 1, atoms...), nil)
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "atom serial" {
		t.Error("wanted serial error, got", err)
	}
}

// Values which do not fit do not matter if they are not written.
func TestRejectedNotChecked(t *testing.T) {
	m := mdl("AA", "GLY", 1, ca(0))
	m.Chains = append(m.Chains, mdl("A", "ALA", 2, ca(1)).Chains[0])
	b, err := Encode(m, Chains("A"))
	if err != nil {
		t.Fatal(err)
	}
	if countAtoms(b) != 1 {
		t.Error("wanted one atom")
	}
}

func TestBlankOccupancy(t *testing.T) {
	a := ca(1)
	a.Occupancy = float32(math.NaN())
	b, err := Encode(mdl("A", "GLY", 1, a), nil)
	if err != nil {
		t.Fatal(err)
	}
	ln := strings.Split(string(b), "\n")[0]
	if occ := ln[54:60]; occ != "      " {
		t.Errorf("occupancy columns %q", occ)
	}
}

func TestAtomNameColumns(t *testing.T) {
	var tests = []struct {
		name, element, cols string
	}{
		{"CA", "C", " CA "},
		{"FE", "FE", "FE  "},
		{"HG21", "H", "HG21"},
		{"1HB", "H", "1HB "},
		{"C5'", "C", " C5'"},
	}
	for _, tt := range tests {
		a := &cmmn.Atom{Name: tt.name, Element: tt.element}
		b, err := Encode(mdl("A", "DA", 1, a), nil)
		if err != nil {
			t.Fatal(err)
		}
		if got := string(b[12:16]); got != tt.cols {
			t.Errorf("%s: wanted %q got %q", tt.name, tt.cols, got)
		}
	}
}

func TestNotMutated(t *testing.T) {
	m := firstModel(t, "one_model.pdb")
	before := firstModel(t, "one_model.pdb")
	if _, err := Encode(m, NoWater); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, m); diff != "" {
		t.Error("model changed:\n", diff)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	m := firstModel(t, "one_model.pdb")
	path := filepath.Join(dir, "out.pdb")
	if err := Save(path, m, nil); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := Encode(m, nil)
	if !bytes.Equal(got, want) {
		t.Error("saved file differs from encoded text")
	}

	bad := filepath.Join(dir, "bad.pdb")
	if err := Save(bad, mdl("AA", "GLY", 1, ca(0)), nil); !errors.Is(err, ErrIncompatibleField) {
		t.Error("wanted field error, got", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Error("failed save left files behind:", len(entries))
	}
	if err := Save(filepath.Join(dir, "no", "such", "dir.pdb"), m, nil); err == nil {
		t.Error("missing directory should be an error")
	}
}

func TestEach(t *testing.T) {
	m := firstModel(t, "one_model.pdb")
	var names []string
	Each(m, NoHetero, func(c *cmmn.Chain, r *cmmn.Residue, a *cmmn.Atom) {
		if r.Name == "ALA" {
			names = append(names, a.Name)
		}
	})
	if diff := cmp.Diff([]string{"N", "CA", "CB"}, names); diff != "" {
		t.Error("atoms (-want +got):\n", diff)
	}
	n := 0
	Each(nil, nil, func(*cmmn.Chain, *cmmn.Residue, *cmmn.Atom) { n++ })
	if n != 0 {
		t.Error("nil model")
	}
}

// One character codes go in their columns, and on the TER record.
func TestCodeColumns(t *testing.T) {
	m := icode("B")
	m.Chains[0].Residues[0].Atoms[0].AltLoc = "A"
	b, err := Encode(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(b), "\n")
	if alt := lines[0][16]; alt != 'A' {
		t.Errorf("alt loc column %q", alt)
	}
	if ic := lines[0][26]; ic != 'B' {
		t.Errorf("insertion code column %q", ic)
	}
	if lines[1] != "TER       2      GLY A   1B" {
		t.Errorf("TER line %q", lines[1])
	}
}
