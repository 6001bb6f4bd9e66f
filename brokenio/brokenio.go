// Package brokenio is a wrapper around an io.ReadCloser which makes
// reads fail. The structure readers are tested with it, so we know a
// disk or network error comes back to the caller as an error and not
// as a short, but apparently valid, structure.
// Typical use:
//
//	br := brokenio.NewReader(fp)
//	br.SetFailAfter(2)
//
// and then read from br instead of fp.
package brokenio

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
)

// ErrBroken is what a failed read returns.
var ErrBroken = errors.New("brokenio: artificial read failure")

// BrknRdrClsr wraps a reader. It can fail deterministically after a
// number of reads, or randomly with a given probability.
type BrknRdrClsr struct {
	rdrOrig      io.ReadCloser
	failAfter    int     // fail once this many reads have succeeded, -1 for never
	probZeroFile float32 // probability of pretending the file is empty
	probFail     float32 // probability of any one read failing
	nCalled      int
	nByte        int
	verbose      bool
}

// NewReader returns a reader which behaves like the original until
// told otherwise.
func NewReader(rIn io.ReadCloser) *BrknRdrClsr {
	return &BrknRdrClsr{rdrOrig: rIn, failAfter: -1}
}

// SetFailAfter makes every read after the n'th fail. Zero means the
// very first read fails.
func (r *BrknRdrClsr) SetFailAfter(n int) { r.failAfter = n }

// SetProbZeroFile sets the rate at which we return 0 bytes on the
// first read. This is what one often sees on a zero length file.
func (r *BrknRdrClsr) SetProbZeroFile(prob float32) { r.probZeroFile = prob }

// SetProbFail sets the probability of a read failing.
// It must be between zero and 1. We do not check.
func (r *BrknRdrClsr) SetProbFail(prob float32) { r.probFail = prob }

// SetVerbose says whether to report the amount of data on Close.
func (r *BrknRdrClsr) SetVerbose(newV bool) { r.verbose = newV }

// NByte is the amount of data which got through.
func (r *BrknRdrClsr) NByte() int { return r.nByte }

// Read wraps the original reader and counts the data that has gone
// through.
func (r *BrknRdrClsr) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.nCalled == 0 && r.probZeroFile > 0 && rand.Float32() < r.probZeroFile {
		return 0, io.EOF
	}
	if r.failAfter >= 0 && r.nCalled >= r.failAfter {
		return 0, ErrBroken
	}
	if r.probFail > 0 && rand.Float32() < r.probFail {
		return 0, ErrBroken
	}
	n, err = r.rdrOrig.Read(p)
	r.nCalled++
	r.nByte += n
	return n, err
}

// Close wraps the original Close method.
func (r *BrknRdrClsr) Close() error {
	if r.verbose {
		fmt.Println("Closing", r.nCalled, "calls and", r.nByte, "bytes")
	}
	return r.rdrOrig.Close()
}
