// Lines and words in cif files.
//
// from https://www.iucr.org/resources/cif/spec/version1.1/cifsyntax
//
//	_ (underscore) identifies data name
//	#              identifies comment
//	'              delimits non-simple data values
//	"              delimits non-simple data values
//	; at beginning of line of text delimits non-simple data values
//	data_          identifies data block header (case-insensitive)
//
// A quote only ends a quoted word if it is followed by white space,
// so 'C5'' is fine and so is "C4"".

package mmcif

import (
	"bufio"
	"errors"
	"io"
	"strconv"
)

const (
	squote byte = '\''
	dquote byte = '"'
)

type bSlice []byte // byte slice

// cmmtScanner is a wrapper around bufio.Scanner which jumps over blank
// lines and lines starting with a comment character. Comment characters
// are only recognised as the first character, since they are
// legitimate elsewhere in the text. It counts lines in n, so we can
// print the line number in error messages.
type cmmtScanner struct {
	*bufio.Scanner           // standard library scanner
	lErr           readError // fill this out as soon as an error happens
	ctoken         []byte    // what cbytes() returns
	n              int       // line number in the mmcif file
	cmmt           byte      // Comment character
	Ok             bool      // Are we OK or have we had an error ?
}

const maxLine = 4 * 1024 * 1024 // some pdbx_seq_one_letter_code lines are long

func newCmmtScanner(r io.Reader, cmmt byte) cmmtScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLine)
	return cmmtScanner{Scanner: s, cmmt: cmmt, Ok: true}
}

// cscan is a wrapper around the library Scan(). On EOF it returns
// true, but cbytes() will be nil. It returns false on a real error.
func (s *cmmtScanner) cscan() (ok bool) {
	if !s.Ok { // We have already had an error, but nobody has noticed.
		s.ctoken = nil
		s.fill("pre-existing error missed. Small bug ?", false)
		return false
	}
	for {
		if !s.Scan() {
			s.ctoken = nil
			if err := s.Err(); err != nil {
				s.fill(err.Error(), true)
				return false
			}
			return true // No error, just EOF
		}
		s.n++
		b := s.Bytes()
		if len(b) == 0 || b[0] == s.cmmt {
			continue
		}
		s.ctoken = b
		return true
	}
}

// cbytes is the current line, nil at end of file.
func (s *cmmtScanner) cbytes() []byte { return s.ctoken }

// readError saves the line number and the line we were trying to read.
type readError struct {
	n      int    // line number
	inline string // The line that provoked the error
	desc   string // Description of error
}

const maxMsgLen = 70

// fill stores the problem we have seen for printing out when it is
// convenient. If there was already an error, both are kept.
func (s *cmmtScanner) fill(desc string, saveLine bool) {
	const multErrStr string = "\nNew error, but there was already an error from line "
	if !s.Ok {
		ln := strconv.Itoa(s.n)
		desc = s.lErr.desc + multErrStr + ln + ":\n" + desc + "\n"
	}
	s.Ok = false
	if saveLine {
		s.lErr.n = s.n
	}
	s.lErr.inline = string(s.cbytes())
	s.lErr.desc = desc
}

func firstPart(s string) string {
	if len(s) > maxMsgLen {
		return s[:maxMsgLen]
	}
	return s
}

// Error gives the line number, description and the start of the line.
func (e readError) Error() string {
	var errmsg string
	if e.n != 0 {
		errmsg = "Line: " + strconv.Itoa(e.n) + " "
	}
	errmsg += e.desc
	if e.n != 0 && e.inline != "" {
		errmsg += "\nLine starting with\n" + firstPart(e.inline)
	}
	return errmsg
}

// iswhite only works for ascii spaces
var asciiSpace = [256]bool{
	'\t': true, '\n': true, '\v': true, '\f': true, '\r': true, ' ': true,
}

func iswhite(b byte) bool { return asciiSpace[b] }

// fields breaks a line into space separated words. Unlike the library
// version, it fills out the slice it is given, so it does not allocate.
// If scrtch is too small, the last words are lost.
// This is called for every atom, so it matters.
func fields(s bSlice, scrtch []bSlice) []bSlice {
	n := 0
	i := 0
	for n < len(scrtch) {
		for i < len(s) && iswhite(s[i]) {
			i++
		}
		if i == len(s) {
			break
		}
		start := i
		for i < len(s) && !iswhite(s[i]) {
			i++
		}
		scrtch[n] = s[start:i]
		n++
	}
	return scrtch[:n]
}

// unquote removes matching quotes from the ends of a word.
func unquote(s bSlice) bSlice {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == dquote || first == squote) && first == last {
		return s[1 : len(s)-1]
	}
	return s
}

// splitter holds the state while splitting a line with quotes.
type splitter struct {
	err     error
	ret     [][]byte
	byteIn  []byte
	nxtIndx int
	qtype   byte
}
type sfn func(i int, c byte, sp *splitter) sfn // state function

func sfnInQuote(i int, c byte, sp *splitter) sfn {
	if c == sp.qtype {
		return sfnExitQuote
	}
	if c == '\n' {
		sp.err = errors.New("unterminated quote line: " + string(sp.byteIn))
		return sfnWhite
	}
	return sfnInQuote
}

// sfnExitQuote: only a quote followed by white really ends a quoted word
func sfnExitQuote(i int, c byte, sp *splitter) sfn {
	switch {
	case iswhite(c):
		sp.ret = append(sp.ret, sp.byteIn[sp.nxtIndx:i-1])
		return sfnWhite
	case c == sp.qtype: // 'C5'' ends at the second quote
		return sfnExitQuote
	}
	return sfnInQuote
}

func sfnInText(i int, c byte, sp *splitter) sfn {
	if iswhite(c) {
		sp.ret = append(sp.ret, sp.byteIn[sp.nxtIndx:i])
		return sfnWhite
	}
	return sfnInText
}

func sfnWhite(i int, c byte, sp *splitter) sfn {
	switch {
	case iswhite(c):
		return sfnWhite
	case c == squote || c == dquote:
		sp.qtype = c
		sp.nxtIndx = i + 1
		return sfnInQuote
	default:
		sp.nxtIndx = i
		return sfnInText
	}
}

// splitCifLine breaks a line into words, separated by spaces and
// matching quotes. The words are appended to retIn[:0].
func splitCifLine(byteIn []byte, retIn [][]byte) ([][]byte, error) {
	if len(byteIn) < 1 {
		return nil, nil
	}
	sp := splitter{ret: retIn[:0], byteIn: byteIn}
	state := sfnWhite
	for i, c := range byteIn {
		state = state(i, c, &sp)
	}
	state(len(byteIn), '\n', &sp) // a final newline catches unterminated quotes
	if sp.err != nil {
		return nil, sp.err
	}
	return sp.ret, nil
}

// hasQuote says if we need splitCifLine or can get away with fields.
func hasQuote(b []byte) bool {
	for _, c := range b {
		if c == dquote || c == squote {
			return true
		}
	}
	return false
}
