package config

import "strings"

// normalize expands and absolutizes all path-valued fields.
func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.DataRoot,
		&c.Paths.LogDir,
		&c.Detector.InstallDir,
		&c.Detector.ExperimentRoot,
		&c.Tasks.JournalPath,
	}
	for _, field := range pathFields {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	// Pretrained weights may be a bare filename resolved inside the
	// detector install dir, so only expand explicit paths.
	if strings.ContainsAny(c.Detector.PretrainedWeights, "/~") {
		expanded, err := expandPath(c.Detector.PretrainedWeights)
		if err != nil {
			return err
		}
		c.Detector.PretrainedWeights = expanded
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
