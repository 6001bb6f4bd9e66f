package pdbio

import (
	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
)

// Selector decides which chains, residues and atoms are written.
// Accept is asked about each chain, then each residue of an accepted
// chain, then each atom of an accepted residue. Rejecting a record
// drops everything below it.
type Selector interface {
	Accept(r cmmn.Record) bool
}

// AcceptAll writes everything. It is the default.
type AcceptAll struct{}

func (AcceptAll) Accept(cmmn.Record) bool { return true }

// SelectFunc lets an ordinary function be a Selector.
type SelectFunc func(cmmn.Record) bool

func (f SelectFunc) Accept(r cmmn.Record) bool { return f(r) }

// NoWater drops water residues.
var NoWater Selector = SelectFunc(func(r cmmn.Record) bool {
	res, ok := r.(*cmmn.Residue)
	return !ok || res.HetFlag != cmmn.HetWater
})

// NoHetero drops all HETATM residues, waters included.
var NoHetero Selector = SelectFunc(func(r cmmn.Record) bool {
	res, ok := r.(*cmmn.Residue)
	return !ok || res.HetFlag == cmmn.HetNone
})

// FirstAltLoc keeps atoms without an alternate location and those
// of the first one, marked A or 1.
var FirstAltLoc Selector = SelectFunc(func(r cmmn.Record) bool {
	a, ok := r.(*cmmn.Atom)
	if !ok {
		return true
	}
	switch a.AltLoc {
	case "", "A", "1":
		return true
	}
	return false
})

// chainSet accepts chains whose names are in the set.
type chainSet map[string]bool

func (cs chainSet) Accept(r cmmn.Record) bool {
	c, ok := r.(*cmmn.Chain)
	return !ok || cs[c.ID]
}

// Chains returns a Selector which keeps only the named chains.
func Chains(ids ...string) Selector {
	cs := make(chainSet, len(ids))
	for _, id := range ids {
		cs[id] = true
	}
	return cs
}

type allOf []Selector

func (sl allOf) Accept(r cmmn.Record) bool {
	for _, s := range sl {
		if !s.Accept(r) {
			return false
		}
	}
	return true
}

// All combines selectors. A record is written if every one of them
// accepts it. Nil selectors are ignored.
func All(sels ...Selector) Selector {
	var sl allOf
	for _, s := range sels {
		if s != nil {
			sl = append(sl, s)
		}
	}
	return sl
}

// Each calls fn for every atom sel accepts, in file order, applying sel
// the same way the writer does. A nil sel accepts everything.
func Each(m *cmmn.Model, sel Selector, fn func(c *cmmn.Chain, r *cmmn.Residue, a *cmmn.Atom)) {
	if m == nil {
		return
	}
	if sel == nil {
		sel = AcceptAll{}
	}
	for _, c := range m.Chains {
		if !sel.Accept(c) {
			continue
		}
		for _, r := range c.Residues {
			if !sel.Accept(r) {
				continue
			}
			for _, a := range r.Atoms {
				if sel.Accept(a) {
					fn(c, r, a)
				}
			}
		}
	}
}
