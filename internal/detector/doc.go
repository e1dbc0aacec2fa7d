// Package detector turns trained weights into sex verdicts.
//
// The engine resolves weights lazily on first use, preferring the newest
// experiment's best checkpoint over the configured pretrained file.
// Inference itself runs in the external detector via a JSON-line runner
// subprocess; this package filters its detections by confidence and
// aggregates per-class counts into a verdict.
package detector
