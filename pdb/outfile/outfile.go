// Package outfile makes names for output files and decides whether an
// old output file can be kept.
package outfile

import (
	"os"
	"path/filepath"
	"strings"
)

// compressed are extensions removed before the format extension.
var compressed = []string{".gz", ".bz2", ".xz", ".z"}

// splitName breaks a path into directory and base name, without any
// compression extension and without the extension before that.
// "/a/1abc.cif.gz" gives "/a" and "1abc".
func splitName(inname string) (dir, base string) {
	dir, base = filepath.Split(inname)
	for _, c := range compressed {
		if strings.HasSuffix(strings.ToLower(base), c) {
			base = base[:len(base)-len(c)]
			break
		}
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Clean(dir), base
}

// Make builds an output file name. The name is outname, or the base of
// inname if outname is empty. appendToName goes on the end of that,
// followed by outext. The file goes in outdir, or next to inname if
// outdir is empty. Nothing on disk is looked at.
func Make(inname, outname, appendToName, outdir, outext string) string {
	dir, base := splitName(inname)
	if outname == "" {
		outname = base
	}
	if outdir == "" {
		outdir = dir
	}
	return filepath.Join(outdir, outname+appendToName+outext)
}

// ForceRerun says if a file has to be made. This is true if we were
// told to, or if the file is missing or empty.
func ForceRerun(flag bool, outfile string) bool {
	if flag {
		return true
	}
	fi, err := os.Stat(outfile)
	if err != nil {
		return true
	}
	return fi.Size() == 0
}
