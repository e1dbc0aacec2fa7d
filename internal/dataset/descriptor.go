package dataset

import (
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"urchin/internal/api"
	"urchin/internal/classes"
	"urchin/internal/fileutil"
)

// Descriptor mirrors the data.yaml consumed by the training binary.
type Descriptor struct {
	Path  string
	Train string
	Val   string
	Names []string
}

// writeDescriptor emits data.yaml at the target root. The names section
// is an explicit id-to-name mapping in vocabulary order.
func writeDescriptor(targetRoot string) (string, error) {
	d := Descriptor{
		Path:  targetRoot,
		Train: "images/train",
		Val:   "images/val",
		Names: classes.Names,
	}

	data, err := yaml.Marshal(descriptorNode(d))
	if err != nil {
		return "", api.Wrap(api.KindIOError, err, "encode descriptor")
	}

	path := filepath.Join(targetRoot, "data.yaml")
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", api.Wrap(api.KindIOError, err, "write descriptor")
	}
	return path, nil
}

// descriptorNode builds the document by hand so the names mapping keeps
// its integer keys in id order.
func descriptorNode(d Descriptor) *yaml.Node {
	scalar := func(value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	}

	names := &yaml.Node{Kind: yaml.MappingNode}
	for id, name := range d.Names {
		names.Content = append(names.Content, scalar(strconv.Itoa(id)), scalar(name))
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content,
		scalar("path"), scalar(d.Path),
		scalar("train"), scalar(d.Train),
		scalar("val"), scalar(d.Val),
		scalar("names"), names,
	)
	return root
}

// ReadDescriptor parses an existing data.yaml, used by status reporting
// and tests.
func ReadDescriptor(data []byte) (Descriptor, error) {
	var raw struct {
		Path  string         `yaml:"path"`
		Train string         `yaml:"train"`
		Val   string         `yaml:"val"`
		Names map[int]string `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Descriptor{}, api.Wrap(api.KindInvalidInput, err, "parse descriptor")
	}

	names := make([]string, len(raw.Names))
	for id, name := range raw.Names {
		if id >= 0 && id < len(names) {
			names[id] = name
		}
	}
	return Descriptor{Path: raw.Path, Train: raw.Train, Val: raw.Val, Names: names}, nil
}
