package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrew-torda/pdbadapt/pdb/download"
)

func (a *app) fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [flags] code ...",
		Short: "Download entries from the protein data bank",
		Long: `fetch downloads each four character entry code from one of the wwPDB sites
(rcsb, pdbe, pdbj), decompresses it and prints the file name. Files which are
already there are not fetched again unless --force is given.

--mirror replaces the sites by one of your own. {code} and {format} in it are
replaced, so http://localhost/pdb/{code}.{format}.gz is fine.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runFetch,
	}
	f := cmd.Flags()
	f.String("dir", ".", "directory for the files")
	f.Bool("pdb", false, "get the old pdb format instead of mmcif")
	f.Int("site", 0, "site to try first, 0 is rcsb, 1 pdbe, 2 pdbj")
	f.Bool("force", false, "download even if the file is there")
	f.Int("attempts", 3, "tries per site")
	f.String("mirror", "", "url template of a site to use instead of the wwPDB ones")
	a.bind("fetch", f, "dir", "pdb", "site", "force", "attempts", "mirror")
	return cmd
}

// templateMirror makes a Mirror from a url with {code} and {format} in it.
func templateMirror(tmpl string) download.Mirror {
	return download.Mirror{Name: "custom", URL: func(code, format string) string {
		return strings.NewReplacer("{code}", code, "{format}", format).Replace(tmpl)
	}}
}

func (a *app) runFetch(cmd *cobra.Command, codes []string) error {
	opts := download.Options{
		Site:     a.v.GetInt("fetch.site"),
		Force:    a.v.GetBool("fetch.force"),
		Attempts: a.v.GetInt("fetch.attempts"),
		Logger:   a.lgr,
	}
	if a.v.GetBool("fetch.pdb") {
		opts.Format = "pdb"
	}
	if tmpl := a.v.GetString("fetch.mirror"); tmpl != "" {
		opts.Mirrors = []download.Mirror{templateMirror(tmpl)}
	}
	dir := a.v.GetString("fetch.dir")
	ctx := cmd.Context()
	res := runPool(a.v.GetInt("workers"), codes, func(code string) (string, error) {
		return download.Fetch(ctx, code, dir, opts)
	})
	nFail := 0
	for _, r := range res {
		if r.err != nil {
			a.lgr.Error("fetch failed", "code", r.name, "err", r.err)
			nFail++
			continue
		}
		fmt.Fprintf(a.out, "%s\t%s\n", r.name, r.val)
	}
	if nFail > 0 {
		return fmt.Errorf("%d of %d entries failed", nFail, len(codes))
	}
	return nil
}
