package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownloads()
	c.normalizeSubtitles()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDownloads() {
	if c.Downloads.MaxConcurrent <= 0 {
		c.Downloads.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Downloads.MaxRetries < 0 {
		c.Downloads.MaxRetries = defaultMaxRetries
	}
	c.Downloads.YtdlpBinary = strings.TrimSpace(c.Downloads.YtdlpBinary)
	if c.Downloads.YtdlpBinary == "" {
		c.Downloads.YtdlpBinary = defaultYtdlpBinary
	}
	if c.Downloads.ResolveTimeoutSeconds <= 0 {
		c.Downloads.ResolveTimeoutSeconds = defaultResolveTimeout
	}
	if c.Downloads.FetchTimeoutSeconds <= 0 {
		c.Downloads.FetchTimeoutSeconds = defaultFetchTimeout
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.PrimaryLanguage = strings.TrimSpace(c.Subtitles.PrimaryLanguage)
	if c.Subtitles.PrimaryLanguage == "" {
		c.Subtitles.PrimaryLanguage = defaultPrimaryLanguage
	}
	c.Subtitles.SecondaryLanguage = strings.TrimSpace(c.Subtitles.SecondaryLanguage)
	if c.Subtitles.SecondaryLanguage == "" {
		c.Subtitles.SecondaryLanguage = defaultSecondaryLanguage
	}
	if c.Subtitles.SyncTolerance <= 0 {
		c.Subtitles.SyncTolerance = defaultSyncTolerance
	}
	c.Subtitles.FFmpegBinary = strings.TrimSpace(c.Subtitles.FFmpegBinary)
	if c.Subtitles.FFmpegBinary == "" {
		c.Subtitles.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
