package dataset

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"urchin/internal/annotations"
	"urchin/internal/api"
	"urchin/internal/fileutil"
	"urchin/internal/logging"
	"urchin/internal/storagename"
)

// Summary reports the outcome of a build.
type Summary struct {
	TrainCount     int
	ValCount       int
	Total          int
	DescriptorPath string
	Warnings       []string
}

// Builder produces built datasets under a fixed target root.
type Builder struct {
	repo       *annotations.Repository
	targetRoot string
	seed       int64
	logger     *slog.Logger
}

// NewBuilder constructs a builder. A non-zero seed makes splits
// reproducible.
func NewBuilder(repo *annotations.Repository, targetRoot string, seed int64, logger *slog.Logger) *Builder {
	return &Builder{
		repo:       repo,
		targetRoot: targetRoot,
		seed:       seed,
		logger:     logging.NewComponentLogger(logger, "dataset"),
	}
}

// TargetRoot returns the built dataset root directory.
func (b *Builder) TargetRoot() string { return b.targetRoot }

// DescriptorPath returns the path of the dataset descriptor.
func (b *Builder) DescriptorPath() string {
	return filepath.Join(b.targetRoot, "data.yaml")
}

func (b *Builder) subdirs() map[string]string {
	return map[string]string{
		"imagesTrain": filepath.Join(b.targetRoot, "images", "train"),
		"imagesVal":   filepath.Join(b.targetRoot, "images", "val"),
		"labelsTrain": filepath.Join(b.targetRoot, "labels", "train"),
		"labelsVal":   filepath.Join(b.targetRoot, "labels", "val"),
	}
}

// Build materializes the train/val split from the given source folders.
func (b *Builder) Build(ctx context.Context, sourceFolders []string, trainRatio float64) (Summary, error) {
	if trainRatio <= 0 || trainRatio >= 1 {
		return Summary{}, api.E(api.KindInvalidInput, "train ratio must be in (0, 1), got %v", trainRatio)
	}
	if len(sourceFolders) == 0 {
		sourceFolders = []string{annotations.DefaultFolder}
	}

	dirs := b.subdirs()
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Summary{}, api.Wrap(api.KindIOError, err, "create dataset directory")
		}
		if err := fileutil.RemoveDirFiles(dir); err != nil {
			return Summary{}, api.Wrap(api.KindIOError, err, "purge dataset directory")
		}
	}

	pairs, err := b.repo.Pairs(sourceFolders)
	if err != nil {
		return Summary{}, err
	}
	if len(pairs) == 0 {
		return Summary{}, api.E(api.KindNoTrainingData, "no annotated image pairs found in %v", sourceFolders)
	}

	rng := rand.New(rand.NewSource(b.splitSeed()))
	rng.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})

	train, val, warnings := split(pairs, trainRatio)

	summary := Summary{Total: len(pairs), Warnings: warnings}
	for _, pair := range train {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if b.copyPair(pair, dirs["imagesTrain"], dirs["labelsTrain"]) {
			summary.TrainCount++
		}
	}
	for _, pair := range val {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if b.copyPair(pair, dirs["imagesVal"], dirs["labelsVal"]) {
			summary.ValCount++
		}
	}

	if summary.TrainCount == 0 {
		return Summary{}, api.E(api.KindEmptyTrainingSplit, "no pairs could be copied into the training split")
	}

	descriptorPath, err := writeDescriptor(b.targetRoot)
	if err != nil {
		return Summary{}, err
	}
	summary.DescriptorPath = descriptorPath

	b.logger.Info("dataset built",
		logging.Int("train", summary.TrainCount),
		logging.Int("val", summary.ValCount),
		logging.Int("total", summary.Total))
	return summary, nil
}

func (b *Builder) splitSeed() int64 {
	if b.seed != 0 {
		return b.seed
	}
	return time.Now().UnixNano()
}

func (b *Builder) copyPair(pair annotations.Pair, imagesDir, labelsDir string) bool {
	imageDst := filepath.Join(imagesDir, filepath.Base(pair.ImagePath))
	if err := fileutil.CopyFile(pair.ImagePath, imageDst); err != nil {
		b.logger.Warn("skipping pair: image copy failed",
			logging.Error(err),
			logging.String("image", pair.ImagePath),
			logging.String(logging.FieldEventType, "dataset_copy_failed"))
		return false
	}
	labelDst := filepath.Join(labelsDir, storagename.Stem(pair.ImagePath)+".txt")
	if err := fileutil.CopyFile(pair.LabelPath, labelDst); err != nil {
		b.logger.Warn("skipping pair: label copy failed",
			logging.Error(err),
			logging.String("label", pair.LabelPath),
			logging.String(logging.FieldEventType, "dataset_copy_failed"))
		_ = os.Remove(imageDst)
		return false
	}
	return true
}

// split applies the size-dependent policies: a single pair is duplicated
// into both subsets, tiny sets always keep at least one validation pair,
// and larger sets use a plain floor split.
func split(pairs []annotations.Pair, ratio float64) (train, val []annotations.Pair, warnings []string) {
	n := len(pairs)
	switch {
	case n == 1:
		warnings = append(warnings, "single-pair duplication: the only pair is used for both training and validation")
		return pairs, pairs, warnings

	case n <= 3:
		idx := int(math.Floor(float64(n) * ratio))
		if idx < 1 {
			idx = 1
		}
		if idx >= n {
			// Ratio would leave validation empty; duplicate one
			// training pair instead of shrinking the training set.
			warnings = append(warnings, "duplicated one training pair into validation")
			return pairs, pairs[n-1:], warnings
		}
		return pairs[:idx], pairs[idx:], warnings

	default:
		idx := int(math.Floor(float64(n) * ratio))
		if idx < 1 {
			idx = 1
		}
		return pairs[:idx], pairs[idx:], warnings
	}
}
