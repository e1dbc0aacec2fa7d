package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"urchin/internal/annotations"
	"urchin/internal/api"
	"urchin/internal/classes"
	"urchin/internal/logging"
	"urchin/internal/metadata"
	"urchin/internal/testsupport"
)

type fixture struct {
	repo    *annotations.Repository
	builder *Builder
}

func newFixture(t *testing.T, seed int64) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithSeed(seed))
	meta := metadata.NewStore(cfg.MetadataPath(), logging.NewNop())
	repo, err := annotations.NewRepository(cfg.DatasetsDir(), meta, logging.NewNop())
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	return fixture{
		repo:    repo,
		builder: NewBuilder(repo, cfg.BuiltDatasetDir(), seed, logging.NewNop()),
	}
}

func (f fixture) addPairs(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("pair%02d.jpg", i)
		id, _, err := f.repo.AddImage(annotations.DefaultFolder, name, bytes.NewReader([]byte(name)))
		if err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		if _, err := f.repo.SaveLabel(annotations.DefaultFolder, id, "0 0.5 0.5 0.2 0.3\n"); err != nil {
			t.Fatalf("label %s: %v", name, err)
		}
	}
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestBuildSplitsByFloor(t *testing.T) {
	f := newFixture(t, 7)
	f.addPairs(t, 12)

	summary, err := f.builder.Build(context.Background(), nil, 0.75)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if summary.TrainCount != 9 || summary.ValCount != 3 || summary.Total != 12 {
		t.Fatalf("unexpected split: %+v", summary)
	}
	if len(summary.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", summary.Warnings)
	}

	trainImages := listNames(t, filepath.Join(f.builder.TargetRoot(), "images", "train"))
	trainLabels := listNames(t, filepath.Join(f.builder.TargetRoot(), "labels", "train"))
	if len(trainImages) != 9 || len(trainLabels) != 9 {
		t.Fatalf("materialized train split mismatch: %d images, %d labels", len(trainImages), len(trainLabels))
	}
	valImages := listNames(t, filepath.Join(f.builder.TargetRoot(), "images", "val"))
	if len(valImages) != 3 {
		t.Fatalf("expected 3 val images, got %d", len(valImages))
	}
}

func TestBuildSinglePairDuplicates(t *testing.T) {
	f := newFixture(t, 7)
	f.addPairs(t, 1)

	summary, err := f.builder.Build(context.Background(), nil, 0.8)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if summary.TrainCount != 1 || summary.ValCount != 1 {
		t.Fatalf("expected the pair in both splits: %+v", summary)
	}
	if len(summary.Warnings) != 1 {
		t.Fatalf("expected a duplication warning, got %v", summary.Warnings)
	}

	trainImages := listNames(t, filepath.Join(f.builder.TargetRoot(), "images", "train"))
	valImages := listNames(t, filepath.Join(f.builder.TargetRoot(), "images", "val"))
	if len(trainImages) != 1 || len(valImages) != 1 || trainImages[0] != valImages[0] {
		t.Fatalf("expected the same file in both splits: %v vs %v", trainImages, valImages)
	}
}

func TestBuildWithoutPairs(t *testing.T) {
	f := newFixture(t, 7)
	_, err := f.builder.Build(context.Background(), nil, 0.8)
	if api.KindOf(err) != api.KindNoTrainingData {
		t.Fatalf("expected no_training_data, got %v", err)
	}
}

func TestBuildRejectsInvalidRatio(t *testing.T) {
	f := newFixture(t, 7)
	for _, ratio := range []float64{0, 1, -0.5, 1.5} {
		if _, err := f.builder.Build(context.Background(), nil, ratio); api.KindOf(err) != api.KindInvalidInput {
			t.Fatalf("ratio %v: expected invalid_input, got %v", ratio, err)
		}
	}
}

func TestBuildPurgesPreviousOutput(t *testing.T) {
	f := newFixture(t, 7)
	f.addPairs(t, 4)

	staleDir := filepath.Join(f.builder.TargetRoot(), "images", "train")
	if err := os.MkdirAll(staleDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := filepath.Join(staleDir, "stale.jpg")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	if _, err := f.builder.Build(context.Background(), nil, 0.75); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale file survived rebuild")
	}
}

func TestBuildDeterministicWithSeed(t *testing.T) {
	f := newFixture(t, 42)
	f.addPairs(t, 10)

	if _, err := f.builder.Build(context.Background(), nil, 0.8); err != nil {
		t.Fatalf("first build: %v", err)
	}
	first := listNames(t, filepath.Join(f.builder.TargetRoot(), "images", "train"))

	if _, err := f.builder.Build(context.Background(), nil, 0.8); err != nil {
		t.Fatalf("second build: %v", err)
	}
	second := listNames(t, filepath.Join(f.builder.TargetRoot(), "images", "train"))

	if len(first) != len(second) {
		t.Fatalf("split sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("split differs at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestBuildWritesDescriptor(t *testing.T) {
	f := newFixture(t, 7)
	f.addPairs(t, 2)

	summary, err := f.builder.Build(context.Background(), nil, 0.5)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if summary.DescriptorPath != f.builder.DescriptorPath() {
		t.Fatalf("descriptor written to %q, expected %q", summary.DescriptorPath, f.builder.DescriptorPath())
	}
	data, err := os.ReadFile(summary.DescriptorPath)
	if err != nil {
		t.Fatalf("read descriptor: %v", err)
	}
	descriptor, err := ReadDescriptor(data)
	if err != nil {
		t.Fatalf("parse descriptor: %v", err)
	}
	if descriptor.Path != f.builder.TargetRoot() {
		t.Fatalf("descriptor path %q != %q", descriptor.Path, f.builder.TargetRoot())
	}
	if descriptor.Train != "images/train" || descriptor.Val != "images/val" {
		t.Fatalf("unexpected subset paths: %+v", descriptor)
	}
	if len(descriptor.Names) != classes.Count {
		t.Fatalf("expected %d class names, got %d", classes.Count, len(descriptor.Names))
	}
	for id, name := range classes.Names {
		if descriptor.Names[id] != name {
			t.Fatalf("class %d: %q != %q", id, descriptor.Names[id], name)
		}
	}
}
