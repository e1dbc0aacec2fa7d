// Package classes defines the fixed detection class vocabulary shared by
// annotation, dataset, and inference code.
//
// The vocabulary is ordered and stable: label files and the dataset
// descriptor both reference classes by their integer id.
package classes

// Class ids in vocabulary order.
const (
	MalePapilla = iota
	FemalePapilla
	Madreporite
	Anus
)

// Names lists the detector class names in id order.
var Names = []string{"male_papillae", "female_papillae", "madreporite", "anus"}

// Count is the size of the vocabulary.
const Count = 4

// Known reports whether id is part of the vocabulary.
func Known(id int) bool {
	return id >= 0 && id < Count
}

// Name returns the class name for id, or an empty string for unknown ids.
func Name(id int) string {
	if !Known(id) {
		return ""
	}
	return Names[id]
}

// ID returns the class id for name, or -1 when the name is not in the
// vocabulary.
func ID(name string) int {
	for i, n := range Names {
		if n == name {
			return i
		}
	}
	return -1
}
