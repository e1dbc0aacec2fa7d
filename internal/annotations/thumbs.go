package annotations

import (
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"urchin/internal/api"
)

const thumbWidth = 320

func (r *Repository) thumbsDir(folder string) string {
	return filepath.Join(r.root, folder, ".thumbs")
}

func (r *Repository) thumbPath(folder, id string) string {
	return filepath.Join(r.thumbsDir(folder), id+".jpg")
}

// Thumbnail returns the path to a 320px-wide JPEG preview of an image,
// generating it on first use.
func (r *Repository) Thumbnail(folder, id string) (string, error) {
	folder, err := r.resolveFolder(folder)
	if err != nil {
		return "", err
	}

	path := r.thumbPath(folder, id)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	src := r.imagePath(folder, id)
	if _, err := os.Stat(src); err != nil {
		return "", api.E(api.KindNotFound, "image %q not found in folder %q", id, folder)
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", api.Wrap(api.KindIOError, err, "decode image")
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)

	if err := os.MkdirAll(r.thumbsDir(folder), 0o755); err != nil {
		return "", api.Wrap(api.KindIOError, err, "create thumbnail directory")
	}
	if err := imaging.Save(thumb, path, imaging.JPEGQuality(80)); err != nil {
		return "", api.Wrap(api.KindIOError, err, "write thumbnail")
	}
	return path, nil
}

func (r *Repository) removeThumbnail(folder, id string) {
	_ = os.Remove(r.thumbPath(folder, id))
}
