// Package annotations owns the {image, optional label} pairing for every
// dataset folder.
//
// A dataset folder is a directory under <data_root>/datasets containing
// images/ and labels/ subdirectories. Label files are plain-text sidecars
// sharing the image's stem. The repository is the only writer of these
// directories and guarantees that a label file never exists without its
// image (the reverse is allowed: images without labels are simply not
// yet annotated).
package annotations
