// Package geom calculates some geometry for a model. Nothing here
// changes coordinates.
package geom

import (
	"math"

	"github.com/andrew-torda/matrix"

	"github.com/andrew-torda/pdbadapt/pdb/cmmn"
	"github.com/andrew-torda/pdbadapt/pdb/pdbio"
)

// xyzDiff gets the difference of two vectors
func xyzDiff(start, end cmmn.Xyz) (diff cmmn.Xyz) {
	diff.X = end.X - start.X
	diff.Y = end.Y - start.Y
	diff.Z = end.Z - start.Z
	return diff
}

// xyzLen2 gives us the length squared
func xyzLen2(v cmmn.Xyz) float32 { return (v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// XyzDist is the distance between two points.
func XyzDist(x1, x2 cmmn.Xyz) float32 {
	return float32(math.Sqrt(float64(xyzLen2(xyzDiff(x1, x2)))))
}

// CoordMatrix puts the coordinates of the selected atoms in an n x 3
// matrix, one row per atom. A nil sel takes everything.
func CoordMatrix(m *cmmn.Model, sel pdbio.Selector) *matrix.FMatrix2d {
	var xyz cmmn.XyzSl
	pdbio.Each(m, sel, func(_ *cmmn.Chain, _ *cmmn.Residue, a *cmmn.Atom) {
		xyz = append(xyz, a.Coord)
	})
	mat := matrix.NewFMatrix2d(len(xyz), 3)
	for i, x := range xyz {
		mat.Mat[i][0], mat.Mat[i][1], mat.Mat[i][2] = x.X, x.Y, x.Z
	}
	return mat
}

// Summary describes the selected part of a model.
type Summary struct {
	ChainIDs []string
	NResidue int
	NAtom    int
	NHetero  int // hetero groups, not counting water
	NWater   int
	Centroid cmmn.Xyz
	RadGyr   float32  // radius of gyration, all atoms weighted equally
	Min, Max cmmn.Xyz // bounding box
}

// Summarise counts what is in a model and works out where it is.
// Chains and residues are only counted if they have a selected atom.
func Summarise(m *cmmn.Model, sel pdbio.Selector) Summary {
	var s Summary
	var lastChn *cmmn.Chain
	var lastRes *cmmn.Residue
	pdbio.Each(m, sel, func(c *cmmn.Chain, r *cmmn.Residue, _ *cmmn.Atom) {
		if c != lastChn {
			s.ChainIDs = append(s.ChainIDs, c.ID)
			lastChn = c
		}
		if r != lastRes {
			s.NResidue++
			switch r.HetFlag {
			case cmmn.HetWater:
				s.NWater++
			case cmmn.HetGroup:
				s.NHetero++
			}
			lastRes = r
		}
	})
	mat := CoordMatrix(m, sel)
	n, _ := mat.Size()
	s.NAtom = n
	if n == 0 {
		return s
	}
	var sum [3]float64
	lo := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, row := range mat.Mat {
		for j, x := range row {
			sum[j] += float64(x)
			lo[j] = min(lo[j], x)
			hi[j] = max(hi[j], x)
		}
	}
	s.Centroid = cmmn.Xyz{X: float32(sum[0] / float64(n)), Y: float32(sum[1] / float64(n)), Z: float32(sum[2] / float64(n))}
	s.Min = cmmn.Xyz{X: lo[0], Y: lo[1], Z: lo[2]}
	s.Max = cmmn.Xyz{X: hi[0], Y: hi[1], Z: hi[2]}
	var r2 float64
	for _, row := range mat.Mat {
		r2 += float64(xyzLen2(xyzDiff(s.Centroid, cmmn.Xyz{X: row[0], Y: row[1], Z: row[2]})))
	}
	s.RadGyr = float32(math.Sqrt(r2 / float64(n)))
	return s
}
