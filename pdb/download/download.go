// Package download fetches entries from the protein data bank.
// There are three sites for structures, in the US, Europe and Japan.
// pdb europe files are at
// https://www.ebi.ac.uk/pdbe/entry-files/download/5pti.cif
// Some sites send gzipped data, some do not. We decompress whatever
// comes, so the file on disk is plain text.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/andrew-torda/pdbadapt/pdb/outfile"
	"github.com/andrew-torda/pdbadapt/pdb/zwrap"
)

var (
	// ErrBadCode is for an acquisition code which is not four characters.
	ErrBadCode = errors.New("acq code should be four characters")
	// ErrNotFound means a site does not have the entry.
	ErrNotFound = errors.New("entry not found")
)

// Mirror is one site. URL makes the address from a lower case code and
// a format, "cif" or "pdb".
type Mirror struct {
	Name string
	URL  func(code, format string) string
}

// Mirrors are the wwPDB sites in the order we try them.
var Mirrors = []Mirror{
	{"rcsb", func(code, format string) string {
		return "https://files.rcsb.org/download/" + code + "." + format + ".gz"
	}},
	{"pdbe", func(code, format string) string {
		if format == "pdb" {
			return "https://www.ebi.ac.uk/pdbe/entry-files/download/pdb" + code + ".ent"
		}
		return "https://www.ebi.ac.uk/pdbe/entry-files/download/" + code + ".cif"
	}},
	{"pdbj", func(code, format string) string {
		if format == "pdb" {
			return "https://ftp.pdbj.org/pub/pdb/data/structures/all/pdb/pdb" + code + ".ent.gz"
		}
		return "https://ftp.pdbj.org/pub/pdb/data/structures/all/mmCIF/" + code + ".cif.gz"
	}},
}

// Options for Fetch. The zero value gets mmcif from the first site.
type Options struct {
	Format   string        // "cif" (default) or "pdb"
	Site     int           // first mirror to try. Too big wraps around
	Force    bool          // download even if the file is there
	Mirrors  []Mirror      // empty means Mirrors
	Client   *http.Client  // nil means http.DefaultClient
	Attempts int           // per mirror, default 3
	Delay    time.Duration // first wait between attempts, default 1 s
	Logger   *log.Logger   // nil means log.Default()
}

func (o *Options) setDefaults() error {
	switch strings.ToLower(o.Format) {
	case "", "cif", "mmcif":
		o.Format = "cif"
	case "pdb":
		o.Format = "pdb"
	default:
		return fmt.Errorf("download format %q, wanted cif or pdb", o.Format)
	}
	if len(o.Mirrors) == 0 {
		o.Mirrors = Mirrors
	}
	if o.Site < 0 {
		o.Site = 0
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Attempts < 1 {
		o.Attempts = 3
	}
	if o.Delay <= 0 {
		o.Delay = time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return nil
}

// retryableError marks network trouble and 5xx replies.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	return errors.As(err, new(*retryableError))
}

// retry calls fn up to attempts times, doubling the delay each time.
// Only errors marked as retryable are tried again.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// get fetches one url into path.
func get(ctx context.Context, client *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &retryableError{fmt.Errorf("HTTP request: %w", err)}
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode >= 500:
		return &retryableError{fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	rdr, err := zwrap.WrapMaybe(io.NopCloser(resp.Body))
	if err != nil {
		return fmt.Errorf("%s: %w", url, err)
	}
	defer rdr.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	_, copyErr := io.Copy(tmpFile, rdr)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return &retryableError{fmt.Errorf("writing download: %w", copyErr)}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Fetch downloads the entry with the four character code into dir and
// returns the file name, like dir/5pti.cif. If the file is already
// there, it is not fetched again unless opts.Force is set. Sites are
// tried in turn, starting at opts.Site, until one works.
func Fetch(ctx context.Context, code, dir string, opts Options) (string, error) {
	if err := opts.setDefaults(); err != nil {
		return "", err
	}
	if len(code) != 4 {
		return "", fmt.Errorf("%w, not %q", ErrBadCode, code)
	}
	code = strings.ToLower(code)
	path := filepath.Join(dir, code+"."+opts.Format)
	if !outfile.ForceRerun(opts.Force, path) {
		opts.Logger.Debug("already have", "file", path)
		return path, nil
	}

	var errs []error
	nSite := len(opts.Mirrors)
	for i := 0; i < nSite; i++ {
		m := opts.Mirrors[(opts.Site+i)%nSite]
		url := m.URL(code, opts.Format)
		opts.Logger.Debug("fetching", "code", code, "site", m.Name, "url", url)
		err := retry(ctx, opts.Attempts, opts.Delay, func() error {
			return get(ctx, opts.Client, url, path)
		})
		if err == nil {
			return path, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		opts.Logger.Warn("download failed", "code", code, "site", m.Name, "err", err)
		errs = append(errs, err)
	}
	return "", fmt.Errorf("fetching %s: %w", code, errors.Join(errs...))
}
