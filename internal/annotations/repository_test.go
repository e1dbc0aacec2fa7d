package annotations

import (
	"bytes"
	"os"
	"testing"

	"urchin/internal/api"
	"urchin/internal/logging"
	"urchin/internal/metadata"
	"urchin/internal/testsupport"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	meta := metadata.NewStore(cfg.MetadataPath(), logging.NewNop())
	repo, err := NewRepository(cfg.DatasetsDir(), meta, logging.NewNop())
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	return repo
}

func TestAddImageStoresBytesAndMetadata(t *testing.T) {
	repo := newTestRepository(t)
	content := testsupport.JPEGBytes(t, 16, 16)

	id, rec, err := repo.AddImage(DefaultFolder, "shot one.jpg", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("add image: %v", err)
	}
	if rec.OriginalName != "shot one.jpg" {
		t.Fatalf("unexpected original name %q", rec.OriginalName)
	}

	stored, err := os.ReadFile(repo.imagePath(DefaultFolder, id))
	if err != nil {
		t.Fatalf("read stored image: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Fatal("stored bytes differ from upload")
	}

	infos, err := repo.List(DefaultFolder)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != id {
		t.Fatalf("unexpected listing: %+v", infos)
	}
	if infos[0].Record.Annotated() {
		t.Fatal("fresh image must not be annotated")
	}
}

func TestAddImageDisambiguatesCollisions(t *testing.T) {
	repo := newTestRepository(t)
	content := []byte("img")

	first, _, err := repo.AddImage(DefaultFolder, "same.jpg", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	second, _, err := repo.AddImage(DefaultFolder, "same.jpg", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct storage names, got %q twice", first)
	}
}

func TestAddImageRejectsUnsupportedExtension(t *testing.T) {
	repo := newTestRepository(t)
	if _, _, err := repo.AddImage(DefaultFolder, "notes.txt", bytes.NewReader([]byte("x"))); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestSaveLabelRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	id, _, err := repo.AddImage(DefaultFolder, "a.jpg", bytes.NewReader([]byte("img")))
	if err != nil {
		t.Fatalf("add image: %v", err)
	}

	text := "0 0.5 0.5 0.2 0.3\n1 0.1 0.1 0.05 0.05\n"
	count, err := repo.SaveLabel(DefaultFolder, id, text)
	if err != nil {
		t.Fatalf("save label: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 annotations, got %d", count)
	}

	got, err := repo.Label(DefaultFolder, id)
	if err != nil {
		t.Fatalf("read label: %v", err)
	}
	if got != text {
		t.Fatalf("label bytes changed: %q != %q", got, text)
	}

	infos, err := repo.List(DefaultFolder)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	rec := infos[0].Record
	if !rec.Annotated() || rec.AnnotationCount != 2 || rec.AnnotationTime == nil {
		t.Fatalf("metadata not updated: %+v", rec)
	}
	if rec.Classes["male_papillae"] != 1 || rec.Classes["female_papillae"] != 1 {
		t.Fatalf("unexpected class counts: %v", rec.Classes)
	}
}

func TestSaveLabelRejectsInvalidGeometry(t *testing.T) {
	repo := newTestRepository(t)
	id, _, err := repo.AddImage(DefaultFolder, "a.jpg", bytes.NewReader([]byte("img")))
	if err != nil {
		t.Fatalf("add image: %v", err)
	}

	_, err = repo.SaveLabel(DefaultFolder, id, "0 1.5 0.5 0.2 0.3\n")
	if api.KindOf(err) != api.KindInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}

	// The rejected write must not leave a label behind.
	got, err := repo.Label(DefaultFolder, id)
	if err != nil {
		t.Fatalf("read label: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no label, got %q", got)
	}
}

func TestSaveLabelMissingImage(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.SaveLabel(DefaultFolder, "nope.jpg", "0 0.5 0.5 0.2 0.3\n")
	if api.KindOf(err) != api.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestSaveLabelEmptyMeansNoObjects(t *testing.T) {
	repo := newTestRepository(t)
	id, _, err := repo.AddImage(DefaultFolder, "a.jpg", bytes.NewReader([]byte("img")))
	if err != nil {
		t.Fatalf("add image: %v", err)
	}
	count, err := repo.SaveLabel(DefaultFolder, id, "")
	if err != nil {
		t.Fatalf("save empty label: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 annotations, got %d", count)
	}

	pairs, err := repo.Pairs([]string{DefaultFolder})
	if err != nil {
		t.Fatalf("pairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("zero-byte label must still pair, got %d pairs", len(pairs))
	}
}

func TestPairsExcludeUnlabeledImages(t *testing.T) {
	repo := newTestRepository(t)
	labeled, _, err := repo.AddImage(DefaultFolder, "labeled.jpg", bytes.NewReader([]byte("a")))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := repo.AddImage(DefaultFolder, "bare.jpg", bytes.NewReader([]byte("b"))); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := repo.SaveLabel(DefaultFolder, labeled, "0 0.5 0.5 0.2 0.3\n"); err != nil {
		t.Fatalf("save label: %v", err)
	}

	pairs, err := repo.Pairs([]string{DefaultFolder})
	if err != nil {
		t.Fatalf("pairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].ImagePath != repo.imagePath(DefaultFolder, labeled) {
		t.Fatalf("unexpected pair image %q", pairs[0].ImagePath)
	}
}

func TestDeleteImagesRemovesLabelAndMetadata(t *testing.T) {
	repo := newTestRepository(t)
	id, _, err := repo.AddImage(DefaultFolder, "a.jpg", bytes.NewReader([]byte("img")))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := repo.SaveLabel(DefaultFolder, id, "0 0.5 0.5 0.2 0.3\n"); err != nil {
		t.Fatalf("save label: %v", err)
	}

	result, err := repo.DeleteImages(DefaultFolder, []string{id, "ghost.jpg"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(result.Done) != 1 || result.Done[0] != id {
		t.Fatalf("unexpected done list: %v", result.Done)
	}
	if _, ok := result.Errors["ghost.jpg"]; !ok {
		t.Fatal("missing image must be reported in errors")
	}

	if _, err := os.Stat(repo.labelPath(DefaultFolder, id)); !os.IsNotExist(err) {
		t.Fatal("label file survived delete")
	}
	infos, err := repo.List(DefaultFolder)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected empty folder, got %d entries", len(infos))
	}
}

func TestMoveImagesKeepsPairing(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.CreateFolder("batch2"); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	id, _, err := repo.AddImage(DefaultFolder, "a.jpg", bytes.NewReader([]byte("img")))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := repo.SaveLabel(DefaultFolder, id, "1 0.5 0.5 0.2 0.3\n"); err != nil {
		t.Fatalf("save label: %v", err)
	}

	result, err := repo.MoveImages(DefaultFolder, "batch2", []string{id})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(result.Done) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, err := os.Stat(repo.imagePath("batch2", id)); err != nil {
		t.Fatal("image missing in target folder")
	}
	if _, err := os.Stat(repo.labelPath("batch2", id)); err != nil {
		t.Fatal("label missing in target folder")
	}
	if _, err := os.Stat(repo.imagePath(DefaultFolder, id)); !os.IsNotExist(err) {
		t.Fatal("image still present in source folder")
	}
}

func TestFolderLifecycle(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.CreateFolder("batch1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateFolder("batch1"); api.KindOf(err) != api.KindConflict {
		t.Fatalf("duplicate create: expected conflict, got %v", err)
	}
	if err := repo.CreateFolder("../escape"); api.KindOf(err) != api.KindInvalidInput {
		t.Fatalf("unsafe name: expected invalid_input, got %v", err)
	}

	if err := repo.RenameFolder("batch1", "batch2"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := repo.RenameFolder(DefaultFolder, "other"); api.KindOf(err) != api.KindConflict {
		t.Fatalf("renaming default: expected conflict, got %v", err)
	}

	if _, _, err := repo.AddImage("batch2", "a.jpg", bytes.NewReader([]byte("img"))); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := repo.DeleteFolder("batch2", false); api.KindOf(err) != api.KindConflict {
		t.Fatalf("non-empty delete without force: expected conflict, got %v", err)
	}
	if err := repo.DeleteFolder("batch2", true); err != nil {
		t.Fatalf("forced delete: %v", err)
	}
	if err := repo.DeleteFolder(DefaultFolder, true); api.KindOf(err) != api.KindConflict {
		t.Fatalf("deleting default: expected conflict, got %v", err)
	}
}

func TestThumbnailGeneratedOnFirstUse(t *testing.T) {
	repo := newTestRepository(t)
	id, _, err := repo.AddImage(DefaultFolder, "big.jpg", bytes.NewReader(testsupport.JPEGBytes(t, 640, 480)))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	path, err := repo.Thumbnail(DefaultFolder, id)
	if err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("thumbnail not written: %v", err)
	}

	again, err := repo.Thumbnail(DefaultFolder, id)
	if err != nil || again != path {
		t.Fatalf("cached thumbnail lookup failed: %q %v", again, err)
	}
}
