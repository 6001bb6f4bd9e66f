// Package mmcif reads a file in mmcif/cif format.
// Reading mmcif files is interesting because they are so big,
// but we do not want much information from them.
// If one looks at the format there are some features that make it
// simpler.
//  1. The first character on the line is decisive. If it is a data item
//     it has to be a "_". A loop starts with loop_.
//  2. The pdb promises that they will restrict themselves to a certain
//     style. In the atom_site table, every row is on one line.
//
// We treat multi-line fields as we should. According to
// https://www.iucr.org/resources/cif/spec/version1.1/cifsyntax,
// these lines
//
//	;a
//	  b
//	;
//
// should be read, keeping the newline and space before the b.
//
// Overall structure
// There is a lot of information that will never be of interest to us
// (solvents, crystallisation details, ..). We jump over everything
// that is not in our list of interesting data items and tables.
// The atom_site table is always read. Its rows go through a channel
// to a goroutine which builds the model, chain, residue, atom tree
// while we carry on reading the file.
//
// Notes about the mmcif format...
// A question mark, ?, means a missing value.
// A dot, ., means not appropriate or deliberately left out.
// There are entities and chains. There is a mapping back to old pdb
// chains, according to
// http://mmcif.wwpdb.org/docs/pdb_to_pdbx_correspondences.html,
// that is called _atom_site.auth_asym_id. We prefer the auth_ columns
// and fall back to the label_ columns when they are missing.
package mmcif
