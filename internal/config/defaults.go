package config

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		Paths: Paths{
			DataRoot: "~/.local/share/urchin",
			LogDir:   "~/.local/share/urchin/logs",
			APIBind:  "127.0.0.1:8750",
		},
		Detector: Detector{
			InstallDir:        "~/yolov5",
			PythonBin:         "python3",
			PretrainedWeights: "yolov5s.pt",
			ExperimentRoot:    "",
			Confidence:        0.25,
			Epochs:            100,
			BatchSize:         16,
			ImageSize:         640,
			Workers:           4,
			Device:            "",
		},
		Camera: Camera{
			Index:      0,
			Width:      1280,
			Height:     720,
			FPS:        30,
			BufferSize: 1,
		},
		Extractor: Extractor{
			FrameInterval:           15,
			MinFramesBetweenCapture: 30,
			FocusThreshold:          100.0,
			SimilarityThreshold:     0.85,
			MinContourArea:          500,
			MaxImages:               50,
		},
		Dataset: Dataset{
			TrainRatio: 0.8,
			Seed:       0,
		},
		Tasks: Tasks{
			QueueSize:      64,
			JournalEnabled: true,
			JournalPath:    "",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
