package annotations

import (
	"os"
	"path/filepath"

	"urchin/internal/api"
	"urchin/internal/storagename"
)

// FolderInfo summarizes one dataset folder.
type FolderInfo struct {
	Name       string
	ImageCount int
	Annotated  int
}

// Folders lists all dataset folders with their image counts.
func (r *Repository) Folders() ([]FolderInfo, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, api.Wrap(api.KindIOError, err, "read datasets root")
	}

	var infos []FolderInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info := FolderInfo{Name: entry.Name()}
		images, err := os.ReadDir(r.ImagesDir(entry.Name()))
		if err != nil {
			continue
		}
		for _, image := range images {
			if image.IsDir() || !storagename.IsImage(image.Name()) {
				continue
			}
			info.ImageCount++
			if _, err := os.Stat(r.labelPath(entry.Name(), image.Name())); err == nil {
				info.Annotated++
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CreateFolder creates a new empty dataset folder.
func (r *Repository) CreateFolder(name string) error {
	sanitized := storagename.Sanitize(name)
	if sanitized == "" || sanitized != name {
		return api.E(api.KindInvalidInput, "unsafe folder name %q", name)
	}
	if _, err := os.Stat(filepath.Join(r.root, sanitized)); err == nil {
		return api.E(api.KindConflict, "folder %q already exists", name)
	}
	return r.ensureFolder(sanitized)
}

// RenameFolder renames a dataset folder. The default folder is protected.
func (r *Repository) RenameFolder(oldName, newName string) error {
	oldName, err := r.resolveFolder(oldName)
	if err != nil {
		return err
	}
	if oldName == DefaultFolder {
		return api.E(api.KindConflict, "the default folder cannot be renamed")
	}
	sanitized := storagename.Sanitize(newName)
	if sanitized == "" || sanitized != newName {
		return api.E(api.KindInvalidInput, "unsafe folder name %q", newName)
	}
	if _, err := os.Stat(filepath.Join(r.root, sanitized)); err == nil {
		return api.E(api.KindConflict, "folder %q already exists", newName)
	}
	if err := os.Rename(filepath.Join(r.root, oldName), filepath.Join(r.root, sanitized)); err != nil {
		return api.Wrap(api.KindIOError, err, "rename folder")
	}
	return nil
}

// DeleteFolder removes a dataset folder. Non-empty folders require
// force; the default folder is protected.
func (r *Repository) DeleteFolder(name string, force bool) error {
	name, err := r.resolveFolder(name)
	if err != nil {
		return err
	}
	if name == DefaultFolder {
		return api.E(api.KindConflict, "the default folder cannot be deleted")
	}

	if !force {
		images, err := os.ReadDir(r.ImagesDir(name))
		if err == nil && len(images) > 0 {
			return api.E(api.KindConflict, "folder %q contains %d images; pass force to delete", name, len(images))
		}
	}

	// Drop metadata for the folder's images before unlinking them.
	if images, err := os.ReadDir(r.ImagesDir(name)); err == nil {
		for _, image := range images {
			if !image.IsDir() {
				_ = r.meta.Delete(image.Name())
			}
		}
	}

	if err := os.RemoveAll(filepath.Join(r.root, name)); err != nil {
		return api.Wrap(api.KindIOError, err, "delete folder")
	}
	return nil
}
