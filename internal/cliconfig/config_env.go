package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (VOLUMETRIZE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("tool", os.Getenv("VOLUMETRIZE_TOOL"), &cfg.Tool)
	s.setString("frame-prefix", os.Getenv("VOLUMETRIZE_FRAME_PREFIX"), &cfg.FramePrefix)
	s.setString("direction", os.Getenv("VOLUMETRIZE_DIRECTION"), &cfg.Direction)
	s.setString("colmap-exe", os.Getenv("VOLUMETRIZE_COLMAP_EXE"), &cfg.ColmapExe)
	s.setString("rs-exe", os.Getenv("VOLUMETRIZE_RS_EXE"), &cfg.RealityScanExe)
	s.setString("postshot-exe", os.Getenv("VOLUMETRIZE_POSTSHOT_EXE"), &cfg.PostshotExe)
	s.setString("rs-export-dir", os.Getenv("VOLUMETRIZE_RS_EXPORT_DIR"), &cfg.RealityScanExportDir)
	s.setString("rs-profile", os.Getenv("VOLUMETRIZE_RS_PROFILE"), &cfg.RealityScanProfile)
	s.setString("output", os.Getenv("VOLUMETRIZE_OUTPUT"), &cfg.OutputDir)
	s.setString("tool-config", os.Getenv("VOLUMETRIZE_TOOL_CONFIG"), &cfg.ToolConfig)
	s.setString("state-dir", os.Getenv("VOLUMETRIZE_STATE_DIR"), &cfg.StateDir)
	s.setString("export-bucket", os.Getenv("VOLUMETRIZE_EXPORT_BUCKET"), &cfg.ExportBucket)
	s.setString("export-prefix", os.Getenv("VOLUMETRIZE_EXPORT_PREFIX"), &cfg.ExportPrefix)
	s.setString("log-level", os.Getenv("VOLUMETRIZE_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("VOLUMETRIZE_LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setIntFromString("start", os.Getenv("VOLUMETRIZE_START"), &cfg.Start); err != nil {
		return err
	}
	if err := s.setIntFromString("count", os.Getenv("VOLUMETRIZE_COUNT"), &cfg.Count); err != nil {
		return err
	}

	s.setBoolFromString("yes", os.Getenv("VOLUMETRIZE_YES"), &cfg.Yes)
	s.setBoolFromString("resume", os.Getenv("VOLUMETRIZE_RESUME"), &cfg.Resume)
	s.setBoolFromString("clean", os.Getenv("VOLUMETRIZE_CLEAN"), &cfg.Clean)

	return nil
}
