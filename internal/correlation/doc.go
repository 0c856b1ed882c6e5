// Package correlation computes template correlation maps and walks them for
// match candidates.
//
// NCC produces a map of normalized correlation coefficients between a
// grayscale haystack and needle. Search then hands out candidates from that
// map in non-increasing score order, suppressing each visited cell and its
// neighbourhood so that repeated calls always make progress and stop after
// at most one call per cell.
package correlation
