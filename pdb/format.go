package pdb

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
	"github.com/andrew-torda/pdbadapt/pdb/mmcif"
	"github.com/andrew-torda/pdbadapt/pdb/pdbfmt"
	"github.com/andrew-torda/pdbadapt/pdb/zwrap"
)

// Format is one of the input formats we can read.
type Format byte

const (
	FormatPDB Format = iota + 1
	FormatMmcif
)

func (f Format) String() string {
	switch f {
	case FormatPDB:
		return "pdb"
	case FormatMmcif:
		return "mmcif"
	}
	return fmt.Sprintf("Format(%d)", byte(f))
}

// Identifiers given to the readers. They end up in Structure.ID and
// mean nothing.
const (
	pdbID = "pdbadapt_pdb"
	cifID = "pdbadapt_cif"
)

var (
	// ErrUnrecognizedFormat is for a format name we do not know.
	ErrUnrecognizedFormat = errors.New("unrecognized structure format")
	// ErrNoStructure is for writing when no model was read.
	ErrNoStructure = errors.New("no structure to write")
)

// ParseFormat turns "pdb", "mmcif" or "cif", in any case, into a Format.
func ParseFormat(ftype string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(ftype)) {
	case "pdb":
		return FormatPDB, nil
	case "mmcif", "cif":
		return FormatMmcif, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, ftype)
}

// parser is the contract for the readers. Neither keeps any state
// between calls.
type parser func(id, fname string) (*cmmn.Structure, error)

// parserFor returns the reader and identifier for a format.
func parserFor(f Format) (parser, string, error) {
	switch f {
	case FormatPDB:
		return pdbfmt.ReadFile, pdbID, nil
	case FormatMmcif:
		return mmcif.ReadFile, cifID, nil
	}
	return nil, "", fmt.Errorf("%w: %v", ErrUnrecognizedFormat, f)
}

// lookInFile opens a file and guesses if it is in old PDB format or
// in mmcif from the first words on the lines.
func lookInFile(fname string) (Format, error) {
	pdbWords := []string{"HEADER", "COMPND", "SOURCE", "REMARK", "SEQRES", "HETATM", "ATOM", "MODEL", "CRYST1"}
	mmcifWords := []string{"data_", "_entry.id", "loop_"}
	rdr, err := zwrap.Open(fname)
	if err != nil {
		return 0, err
	}
	defer rdr.Close()

	const maxTestLines = 5000
	scnnr := bufio.NewScanner(rdr)
	scnnr.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; i < maxTestLines && scnnr.Scan(); i++ {
		s := scnnr.Text()
		for _, w := range mmcifWords {
			if strings.HasPrefix(s, w) {
				return FormatMmcif, nil
			}
		}
		for _, w := range pdbWords {
			if strings.HasPrefix(s, w) {
				return FormatPDB, nil
			}
		}
	}
	if err := scnnr.Err(); err != nil {
		return 0, fmt.Errorf("reading %s: %w", fname, err)
	}
	return 0, fmt.Errorf("%s: cannot recognise format: %w", fname, ErrUnrecognizedFormat)
}

// GuessFormat decides what format a file is in. It uses the file name
// if it can and peeks inside if it cannot. filepath.Ext is no use,
// since it gives .gz for a.pdb.gz.
func GuessFormat(fname string) (Format, error) {
	s := filepath.Base(fname)
	if i := strings.IndexByte(s, '.'); i != -1 {
		s = strings.ToLower(s[i+1:]) // change .ent to ent
		switch {
		case strings.Contains(s, "cif"):
			return FormatMmcif, nil
		case strings.Contains(s, "pdb"), strings.Contains(s, "ent"):
			return FormatPDB, nil
		}
	}
	return lookInFile(fname)
}
