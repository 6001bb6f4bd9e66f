package pdbfmt_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/andrew-torda/pdbadapt/brokenio"
	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
	. "github.com/andrew-torda/pdbadapt/pdb/pdbfmt"
)

const testdata = "../testdata"

func tpath(s string) string { return filepath.Join(testdata, s) }

var modelCounts = []struct {
	fname   string
	nModel  int
	nAtom   int // in first model
	nChain  int
	serials []int
}{
	{"one_model.pdb", 1, 9, 1, []int{1}},
	{"three_model.pdb", 3, 7, 1, []int{1, 2, 3}},
	{"three_model.pdb.gz", 3, 7, 1, []int{1, 2, 3}},
	{"altloc.pdb", 1, 5, 1, []int{1}},
	{"no_atoms.pdb", 0, 0, 0, nil},
}

func TestReadFileModels(t *testing.T) {
	for _, mc := range modelCounts {
		s, err := ReadFile("testid", tpath(mc.fname))
		if err != nil {
			t.Fatal(mc.fname, err)
		}
		if s.ID != "testid" {
			t.Error("id not kept", s.ID)
		}
		if s.NModel() != mc.nModel {
			t.Fatal(mc.fname, "wanted", mc.nModel, "models, got", s.NModel())
		}
		var serials []int
		for _, m := range s.Models {
			serials = append(serials, m.Serial)
		}
		if diff := cmp.Diff(mc.serials, serials); diff != "" {
			t.Error(mc.fname, "model serials (-want +got):\n", diff)
		}
		if mc.nModel == 0 {
			continue
		}
		m := s.Models[0]
		if n := m.NAtom(); n != mc.nAtom {
			t.Error(mc.fname, "atoms wanted", mc.nAtom, "got", n)
		}
		if len(m.Chains) != mc.nChain {
			t.Error(mc.fname, "chains wanted", mc.nChain, "got", len(m.Chains))
		}
	}
}

func TestReadFields(t *testing.T) {
	s, err := ReadFile("x", tpath("one_model.pdb"))
	if err != nil {
		t.Fatal(err)
	}
	chn := s.Models[0].Chain("A")
	if chn == nil {
		t.Fatal("no chain A")
	}
	type res struct {
		Name    string
		Het     byte
		SeqNum  int
		NAtom   int
		Element string
	}
	var got []res
	for _, r := range chn.Residues {
		got = append(got, res{r.Name, r.HetFlag, r.SeqNum, len(r.Atoms), r.Atoms[0].Element})
	}
	want := []res{
		{"GLY", cmmn.HetNone, 1, 4, "N"},
		{"ALA", cmmn.HetNone, 2, 3, "N"},
		{"HOH", cmmn.HetWater, 101, 1, "O"},
		{"HEM", cmmn.HetGroup, 201, 1, "FE"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error("residues (-want +got):\n", diff)
	}
	ca := chn.Residues[0].Atoms[1]
	wantCA := cmmn.Atom{
		Name: "CA", FullName: " CA ",
		Coord:     cmmn.Xyz{X: 1.458, Y: 0, Z: 0},
		Occupancy: 1, BFactor: 10, Element: "C", Serial: 2,
	}
	if diff := cmp.Diff(wantCA, *ca); diff != "" {
		t.Error("CA atom (-want +got):\n", diff)
	}
	fe := chn.Residues[3].Atoms[0]
	if fe.FullName != "FE  " || fe.Name != "FE" {
		t.Errorf("iron name %q", fe.FullName)
	}
}

// altloc.pdb has two broken lines which should be skipped, a short
// line without occupancy and residues which differ only by insertion code.
func TestPermissive(t *testing.T) {
	s, err := ReadFile("x", tpath("altloc.pdb"))
	if err != nil {
		t.Fatal(err)
	}
	rr := s.Models[0].Chains[0].Residues
	if len(rr) != 3 {
		t.Fatal("wanted 3 residues got", len(rr))
	}
	if rr[0].Atoms[1].AltLoc != "A" || rr[0].Atoms[2].AltLoc != "B" {
		t.Error("lost alt locations")
	}
	if rr[1].ICode != "A" || rr[2].ICode != "" {
		t.Errorf("insertion codes %q %q", rr[1].ICode, rr[2].ICode)
	}
	o := rr[2].Atoms[0]
	if o.Name != "O" || !math.IsNaN(float64(o.Occupancy)) {
		t.Error("short line: wanted O with no occupancy, got", o.Name, o.Occupancy)
	}
	if o.Element != "O" {
		t.Error("element should be guessed, got", o.Element)
	}
}

func TestReadStopsAtEnd(t *testing.T) {
	in := "ATOM      1  N   GLY A   1       0.000   0.000   0.000  1.00 10.00           N\n" +
		"END\n" +
		"ATOM      2  CA  GLY A   1       1.000   0.000   0.000  1.00 10.00           C\n"
	s, err := Read("x", strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if n := s.Models[0].NAtom(); n != 1 {
		t.Error("should stop reading at END, got atoms:", n)
	}
}

// The mmap and stream readers should agree.
func TestReadMatchesReadFile(t *testing.T) {
	fname := tpath("three_model.pdb")
	fp, err := os.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	s1, err := Read("x", fp)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := ReadFile("x", fname)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s1, s2); diff != "" {
		t.Error("stream and mmap differ:\n", diff)
	}
}

func TestBrokenFile(t *testing.T) {
	for _, s := range []string{"/does/not/exist", t.TempDir()} {
		if st, err := ReadFile("x", s); err == nil || st != nil {
			t.Error("Did not get expected error on", s)
		}
	}
	empty := filepath.Join(t.TempDir(), "empty.pdb")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if st, err := ReadFile("x", empty); err != nil || st.NModel() != 0 {
		t.Error("empty file should give no models and no error", err)
	}
}

// A read failure underneath the scanner must come back as an error.
func TestBrokenReader(t *testing.T) {
	fp, err := os.Open(tpath("three_model.pdb"))
	if err != nil {
		t.Fatal(err)
	}
	br := brokenio.NewReader(fp)
	br.SetFailAfter(0)
	defer br.Close()
	if _, err := Read("x", br); err == nil {
		t.Error("expected error from broken reader")
	}
}
