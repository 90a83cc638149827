package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAPIBind           = "127.0.0.1:7878"
	defaultMaxConcurrent     = 3
	defaultMaxRetries        = 3
	defaultYtdlpBinary       = "yt-dlp"
	defaultFFmpegBinary      = "ffmpeg"
	defaultResolveTimeout    = 60
	defaultFetchTimeout      = 3600
	defaultPrimaryLanguage   = "zh-CN"
	defaultSecondaryLanguage = "en"
	defaultSyncTolerance     = 0.1
)

// Default returns the repository default configuration.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: "~/videos/dualsub",
			StagingDir: "~/.cache/dualsub/staging",
			LogDir:     "~/.local/share/dualsub/logs",
			APIBind:    defaultAPIBind,
		},
		Downloads: Downloads{
			MaxConcurrent:         defaultMaxConcurrent,
			MaxRetries:            defaultMaxRetries,
			YtdlpBinary:           defaultYtdlpBinary,
			ResolveTimeoutSeconds: defaultResolveTimeout,
			FetchTimeoutSeconds:   defaultFetchTimeout,
		},
		Subtitles: Subtitles{
			PrimaryLanguage:   defaultPrimaryLanguage,
			SecondaryLanguage: defaultSecondaryLanguage,
			SyncTolerance:     defaultSyncTolerance,
			Embed:             true,
			FFmpegBinary:      defaultFFmpegBinary,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
