// Package textutil provides the text helpers that character matching and row
// import depend on.
//
// NormalizeName is the comparison key for character names and tag candidates:
// it is lower-cased, decomposed to NFD, stripped of combining marks and of all
// whitespace. It is never used for display.
package textutil
