package browser

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-rod/rod/lib/launcher"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

// Downloader resolves the browser binary: an explicit path, then a system
// Chrome, then a Chromium build downloaded into binDir.
type Downloader struct {
	binDir       string
	explicit     string
	autoDownload bool

	mu      sync.Mutex
	binPath string // Cached once resolved
}

// NewDownloader creates a new binary resolver
func NewDownloader(binDir, explicit string, autoDownload bool) *Downloader {
	return &Downloader{
		binDir:       binDir,
		explicit:     explicit,
		autoDownload: autoDownload,
	}
}

// EnsureBrowser returns a usable binary path. Safe to call concurrently.
func (d *Downloader) EnsureBrowser() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.binPath != "" {
		if _, err := os.Stat(d.binPath); err == nil {
			return d.binPath, nil
		}
		d.binPath = ""
	}

	if d.explicit != "" {
		if _, err := os.Stat(d.explicit); err != nil {
			return "", fmt.Errorf("configured browserPath %s: %w", d.explicit, err)
		}
		d.binPath = d.explicit
		return d.binPath, nil
	}

	if path, ok := launcher.LookPath(); ok {
		L_debug("browser: using system browser", "path", path)
		d.binPath = path
		return path, nil
	}

	if !d.autoDownload {
		return "", fmt.Errorf("no Chrome/Chromium found and autoDownload is disabled")
	}

	if err := os.MkdirAll(d.binDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create browser bin directory: %w", err)
	}

	L_info("browser: downloading Chromium", "binDir", d.binDir)
	b := launcher.NewBrowser()
	b.RootDir = d.binDir
	binPath, err := b.Get()
	if err != nil {
		return "", fmt.Errorf("failed to download browser: %w", err)
	}

	d.binPath = binPath
	L_info("browser: ready", "path", binPath)
	return binPath, nil
}
