package annotations

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"urchin/internal/api"
	"urchin/internal/fileutil"
	"urchin/internal/logging"
	"urchin/internal/metadata"
	"urchin/internal/storagename"
)

// DefaultFolder always exists and cannot be renamed or deleted.
const DefaultFolder = "default"

// Repository manages annotation dataset folders under a common root.
type Repository struct {
	root   string
	meta   *metadata.Store
	logger *slog.Logger
}

// ImageInfo is one listing entry, merging filesystem and metadata facts.
type ImageInfo struct {
	ID     string
	Record metadata.Record
}

// Pair couples an image with its label file.
type Pair struct {
	Stem      string
	ImagePath string
	LabelPath string
}

// OpResult reports per-item outcomes for batch operations.
type OpResult struct {
	Done   []string
	Errors map[string]string
}

// NewRepository opens the repository rooted at root and guarantees the
// default folder exists.
func NewRepository(root string, meta *metadata.Store, logger *slog.Logger) (*Repository, error) {
	repo := &Repository{
		root:   root,
		meta:   meta,
		logger: logging.NewComponentLogger(logger, "annotations"),
	}
	if err := repo.ensureFolder(DefaultFolder); err != nil {
		return nil, err
	}
	return repo, nil
}

// Root returns the repository root directory.
func (r *Repository) Root() string { return r.root }

// ImagesDir returns the images directory for a folder.
func (r *Repository) ImagesDir(folder string) string {
	return filepath.Join(r.root, folder, "images")
}

// LabelsDir returns the labels directory for a folder.
func (r *Repository) LabelsDir(folder string) string {
	return filepath.Join(r.root, folder, "labels")
}

func (r *Repository) imagePath(folder, id string) string {
	return filepath.Join(r.ImagesDir(folder), id)
}

func (r *Repository) labelPath(folder, id string) string {
	return filepath.Join(r.LabelsDir(folder), storagename.Stem(id)+".txt")
}

func (r *Repository) ensureFolder(folder string) error {
	for _, dir := range []string{r.ImagesDir(folder), r.LabelsDir(folder)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return api.Wrap(api.KindIOError, err, "create folder directories")
		}
	}
	return nil
}

// resolveFolder validates a caller-supplied folder name and checks the
// folder exists on disk.
func (r *Repository) resolveFolder(folder string) (string, error) {
	sanitized := storagename.Sanitize(folder)
	if sanitized == "" || sanitized != folder {
		return "", api.E(api.KindInvalidInput, "unsafe folder name %q", folder)
	}
	info, err := os.Stat(filepath.Join(r.root, sanitized))
	if err != nil || !info.IsDir() {
		return "", api.E(api.KindNotFound, "folder %q does not exist", folder)
	}
	return sanitized, nil
}

// AddImage stores an uploaded image in folder under a collision-free
// storage name and creates its metadata record with zero annotations.
func (r *Repository) AddImage(folder, originalName string, content io.Reader) (string, metadata.Record, error) {
	folder, err := r.resolveFolder(folder)
	if err != nil {
		return "", metadata.Record{}, err
	}

	now := time.Now()
	id, err := storagename.ForUpload(originalName, now, storagename.ImageExtensions)
	if err != nil {
		return "", metadata.Record{}, api.Wrap(api.KindInvalidInput, err, "invalid filename")
	}

	// Same second, same name: disambiguate with a numeric suffix.
	id = r.uniqueName(folder, id)

	if _, err := fileutil.WriteStreamAtomic(r.imagePath(folder, id), content, 0o644); err != nil {
		return "", metadata.Record{}, api.Wrap(api.KindIOError, err, "write image")
	}

	rec := metadata.Record{
		OriginalName: filepath.Base(originalName),
		UploadTime:   now.UTC(),
	}
	if err := r.meta.Put(id, rec); err != nil {
		r.logger.Warn("image stored but metadata write failed",
			logging.Error(err),
			logging.String("image", id),
			logging.String(logging.FieldEventType, "metadata_write_failed"))
	}

	r.logger.Info("image added",
		logging.String(logging.FieldFolder, folder),
		logging.String("image", id))
	return id, rec, nil
}

func (r *Repository) uniqueName(folder, id string) string {
	candidate := id
	ext := filepath.Ext(id)
	stem := strings.TrimSuffix(id, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(r.imagePath(folder, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
}

// SaveLabel overwrites the label file for an image and recomputes its
// annotation statistics. Empty text leaves a zero-byte label file, which
// means "annotated as containing no objects".
func (r *Repository) SaveLabel(folder, id, text string) (int, error) {
	folder, err := r.resolveFolder(folder)
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(r.imagePath(folder, id)); err != nil {
		return 0, api.E(api.KindNotFound, "image %q not found in folder %q", id, folder)
	}
	if err := ValidateLabelText(text); err != nil {
		return 0, err
	}

	if err := fileutil.WriteFileAtomic(r.labelPath(folder, id), []byte(text), 0o644); err != nil {
		return 0, api.Wrap(api.KindIOError, err, "write label")
	}

	count, byClass := CountClasses(text)
	now := time.Now().UTC()
	if err := r.meta.Update(id, func(rec *metadata.Record) {
		rec.AnnotationCount = count
		rec.Classes = byClass
		rec.AnnotationTime = &now
	}); err != nil {
		r.logger.Warn("label stored but metadata write failed",
			logging.Error(err),
			logging.String("image", id),
			logging.String(logging.FieldEventType, "metadata_write_failed"))
	}
	return count, nil
}

// Label returns the label text for an image, or an empty string when the
// image has no label file yet.
func (r *Repository) Label(folder, id string) (string, error) {
	folder, err := r.resolveFolder(folder)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(r.imagePath(folder, id)); err != nil {
		return "", api.E(api.KindNotFound, "image %q not found in folder %q", id, folder)
	}
	data, err := os.ReadFile(r.labelPath(folder, id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", api.Wrap(api.KindIOError, err, "read label")
	}
	return string(data), nil
}

// DeleteImages removes each image together with its label, thumbnail,
// and metadata entry. Missing files are reported but not fatal.
func (r *Repository) DeleteImages(folder string, ids []string) (OpResult, error) {
	folder, err := r.resolveFolder(folder)
	if err != nil {
		return OpResult{}, err
	}

	result := OpResult{Errors: make(map[string]string)}
	for _, id := range ids {
		if err := os.Remove(r.imagePath(folder, id)); err != nil {
			if os.IsNotExist(err) {
				result.Errors[id] = "image file not found"
			} else {
				result.Errors[id] = err.Error()
				continue
			}
		}
		if err := os.Remove(r.labelPath(folder, id)); err != nil && !os.IsNotExist(err) {
			result.Errors[id] = "label: " + err.Error()
		}
		r.removeThumbnail(folder, id)
		if err := r.meta.Delete(id); err != nil {
			r.logger.Warn("metadata delete failed",
				logging.Error(err),
				logging.String("image", id))
		}
		if _, failed := result.Errors[id]; !failed {
			result.Done = append(result.Done, id)
		}
	}
	r.logger.Info("images deleted",
		logging.String(logging.FieldFolder, folder),
		logging.Int("deleted", len(result.Done)),
		logging.Int("errors", len(result.Errors)))
	return result, nil
}

// MoveImages relocates images and their labels to another folder,
// preserving stems. Failures are per-item; the rest proceed.
func (r *Repository) MoveImages(source, target string, ids []string) (OpResult, error) {
	source, err := r.resolveFolder(source)
	if err != nil {
		return OpResult{}, err
	}
	target, err = r.resolveFolder(target)
	if err != nil {
		return OpResult{}, err
	}
	if source == target {
		return OpResult{}, api.E(api.KindInvalidInput, "source and target folder are the same")
	}

	result := OpResult{Errors: make(map[string]string)}
	for _, id := range ids {
		src := r.imagePath(source, id)
		if _, err := os.Stat(src); err != nil {
			result.Errors[id] = "image file not found"
			continue
		}
		if err := os.Rename(src, r.imagePath(target, id)); err != nil {
			result.Errors[id] = err.Error()
			continue
		}
		if err := os.Rename(r.labelPath(source, id), r.labelPath(target, id)); err != nil && !os.IsNotExist(err) {
			// Image moved but label did not; move it back to keep the
			// pairing invariant.
			_ = os.Rename(r.imagePath(target, id), src)
			result.Errors[id] = "label: " + err.Error()
			continue
		}
		r.removeThumbnail(source, id)
		result.Done = append(result.Done, id)
	}
	return result, nil
}

// List returns the images of a folder, newest upload first.
func (r *Repository) List(folder string) ([]ImageInfo, error) {
	folder, err := r.resolveFolder(folder)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.ImagesDir(folder))
	if err != nil {
		return nil, api.Wrap(api.KindIOError, err, "read images directory")
	}

	infos := make([]ImageInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !storagename.IsImage(entry.Name()) {
			continue
		}
		rec, ok := r.meta.Get(entry.Name())
		if !ok {
			// Image placed out of band; derive what we can from the
			// label file so listings stay truthful.
			rec = metadata.Record{OriginalName: entry.Name()}
			if text, err := os.ReadFile(r.labelPath(folder, entry.Name())); err == nil {
				rec.AnnotationCount, rec.Classes = CountClasses(string(text))
			}
		}
		infos = append(infos, ImageInfo{ID: entry.Name(), Record: rec})
	}

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].Record.UploadTime.Equal(infos[j].Record.UploadTime) {
			return infos[i].Record.UploadTime.After(infos[j].Record.UploadTime)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// Pairs enumerates {image, label} pairs across folders, including only
// images whose label file exists.
func (r *Repository) Pairs(folders []string) ([]Pair, error) {
	var pairs []Pair
	for _, folder := range folders {
		resolved, err := r.resolveFolder(folder)
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(r.ImagesDir(resolved))
		if err != nil {
			return nil, api.Wrap(api.KindIOError, err, "read images directory")
		}
		for _, entry := range entries {
			if entry.IsDir() || !storagename.IsImage(entry.Name()) {
				continue
			}
			labelPath := r.labelPath(resolved, entry.Name())
			if _, err := os.Stat(labelPath); err != nil {
				continue
			}
			pairs = append(pairs, Pair{
				Stem:      storagename.Stem(entry.Name()),
				ImagePath: r.imagePath(resolved, entry.Name()),
				LabelPath: labelPath,
			})
		}
	}
	return pairs, nil
}
