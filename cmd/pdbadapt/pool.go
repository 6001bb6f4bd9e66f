package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// result is what happened to one input.
type result[T any] struct {
	name string
	val  T
	err  error
}

// runPool hands names to nWorker goroutines, which call work on each.
// Results come back in the order of names.
func runPool[T any](nWorker int, names []string, work func(name string) (T, error)) []result[T] {
	if nWorker < 1 {
		nWorker = 1
	}
	res := make([]result[T], len(names))
	ch := make(chan int, len(names))
	var wg sync.WaitGroup
	for i := 0; i < nWorker; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range ch {
				v, err := work(names[j])
				res[j] = result[T]{name: names[j], val: v, err: err}
			}
		}()
	}
	for j := range names {
		ch <- j
	}
	close(ch)
	wg.Wait()
	return res
}

// structExts are the pieces of a file name which say it is a structure.
var structExts = []string{".pdb", ".ent", ".cif", ".mmcif"}

func looksLikeStructure(name string) bool {
	name = strings.ToLower(filepath.Base(name))
	for _, e := range structExts {
		if strings.Contains(name, e) {
			return true
		}
	}
	return false
}

// expandArgs turns the command line into a list of files. Files are
// taken as they are. Directories are walked and anything which looks
// like a structure file is taken. If outName is not nil, it gives the
// output name for an input, and a walked file which is the output of
// another walked file is left out.
func expandArgs(args []string, outName func(string) string, lgr *log.Logger) ([]string, error) {
	var files []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, arg)
			continue
		}
		var walked []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && looksLikeStructure(path) {
				walked = append(walked, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		files = append(files, dropOutputs(walked, outName, lgr)...)
	}
	return files, nil
}

// dropOutputs removes files which outName makes from other files
// in the list.
func dropOutputs(walked []string, outName func(string) string, lgr *log.Logger) []string {
	if outName == nil {
		return walked
	}
	outputs := make(map[string]string, len(walked))
	for _, in := range walked {
		outputs[outName(in)] = in
	}
	kept := walked[:0]
	for _, f := range walked {
		if src, ok := outputs[f]; ok && src != f {
			lgr.Debug("not reading our own output", "file", f, "from", src)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
