package mmcif

// Export some internal functions for testing

func (s *cmmtScanner) Cbytes() []byte   { return s.cbytes() }
func (s *cmmtScanner) Cscan() (ok bool) { return s.cscan() }

var NewCmmtScanner = newCmmtScanner
var SplitCifLine = splitCifLine
var Fields = fields
var Unquote = unquote
var PdbCharge = pdbCharge

type BSlice = bSlice
