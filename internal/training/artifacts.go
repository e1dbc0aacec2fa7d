package training

import (
	"os"
	"path/filepath"

	"urchin/internal/api"
)

// LatestExperiment returns the most recently modified experiment
// directory under root.
func LatestExperiment(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", api.Wrap(api.KindNotFound, err, "read experiment root")
	}

	var newest string
	var newestMod int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = entry.Name()
			newestMod = mod
		}
	}
	if newest == "" {
		return "", api.E(api.KindNotFound, "no experiment directories under %s", root)
	}
	return filepath.Join(root, newest), nil
}

// Artifacts maps well-known result files present in an experiment
// directory to their absolute paths.
func Artifacts(experimentDir string) map[string]string {
	candidates := map[string]string{
		"results":          "results.png",
		"confusion_matrix": "confusion_matrix.png",
		"pr_curve":         "PR_curve.png",
		"best_weights":     filepath.Join("weights", "best.pt"),
	}

	found := make(map[string]string)
	for key, rel := range candidates {
		path := filepath.Join(experimentDir, rel)
		if _, err := os.Stat(path); err == nil {
			found[key] = path
		}
	}
	if len(found) == 0 {
		return nil
	}
	return found
}

// BestWeights returns the newest experiment's best.pt, if present.
func BestWeights(root string) (string, error) {
	dir, err := LatestExperiment(root)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "weights", "best.pt")
	if _, err := os.Stat(path); err != nil {
		return "", api.E(api.KindNotFound, "no trained weights under %s", dir)
	}
	return path, nil
}
