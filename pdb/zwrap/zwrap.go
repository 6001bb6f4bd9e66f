// Package zwrap takes a file pointer or http body and, if the contents
// are gzipped, wraps it so reads come from the decompressor. On Close,
// the decompressor is closed, followed by the underlying source.
// We look at the magic bytes rather than the file name, since the pdb
// mirrors are not consistent about names.
package zwrap

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"os"
)

var gzMagic = [2]byte{0x1f, 0x8b}

// FpGzip is what we return.
type FpGzip struct {
	fp   io.Closer
	rdr  io.Reader // buffered view of fp, so we could peek
	zrdr *gzip.Reader
}

// IsGzip says if a byte slice starts with the gzip magic number.
func IsGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == gzMagic[0] && b[1] == gzMagic[1]
}

// Compressed reports if the source is being decompressed.
func (fc *FpGzip) Compressed() bool { return fc.zrdr != nil }

// Close closes the decompressor, then the underlying source.
func (fc *FpGzip) Close() error {
	var e1, e2 error
	if fc.zrdr != nil {
		e1 = fc.zrdr.Close()
	}
	if fc.fp != nil {
		e2 = fc.fp.Close()
	}
	return errors.Join(e1, e2)
}

// Read makes sure we read from the decompressed stream and
// not the underlying file stream.
func (fc *FpGzip) Read(p []byte) (int, error) {
	if fc.zrdr != nil {
		return fc.zrdr.Read(p)
	}
	return fc.rdr.Read(p)
}

// Wrap insists that the source is gzipped.
func Wrap(fp io.ReadCloser) (*FpGzip, error) {
	zrdr, err := gzip.NewReader(fp)
	if err != nil {
		return nil, err
	}
	return &FpGzip{fp: fp, rdr: fp, zrdr: zrdr}, nil
}

// WrapMaybe decides if the underlying stream is compressed and wraps
// it if necessary. It only peeks, so it does not need to seek and it is
// happy with an http body. A source shorter than the magic number is
// passed through as is.
func WrapMaybe(fp io.ReadCloser) (*FpGzip, error) {
	br := bufio.NewReader(fp)
	head, err := br.Peek(len(gzMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}
	fc := &FpGzip{fp: fp, rdr: br}
	if IsGzip(head) {
		if fc.zrdr, err = gzip.NewReader(br); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

// Open opens a file and calls WrapMaybe.
func Open(fname string) (*FpGzip, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	fc, err := WrapMaybe(fp)
	if err != nil {
		fp.Close()
		return nil, errors.New("reading " + fname + " " + err.Error())
	}
	return fc, nil
}
