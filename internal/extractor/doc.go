// Package extractor samples frames from an uploaded video and retains
// the ones likely to show in-focus, distinct genital papillae.
//
// A frame survives four gates in order: the candidate gate (contour
// detection on a contrast-enhanced grayscale), the focus gate (variance
// of the Laplacian), the spacing gate (minimum frame distance since the
// last capture), and the novelty gate (structural similarity against
// every previously retained frame, computed on a 160x120 grayscale
// copy).
package extractor
