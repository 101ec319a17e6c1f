// Package diag captures page snapshots for failed or empty postal codes.
// Snapshots are write-only diagnostics; nothing in the pipeline reads them.
package diag

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Screenshoter renders the current page as a PNG. Implemented by the
// browser session.
type Screenshoter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Capturer writes one PNG per key under its directory. A later capture for
// the same key overwrites the earlier one.
type Capturer struct {
	dir  string
	page Screenshoter
}

// NewCapturer creates the snapshot directory eagerly so an unwritable
// location fails before the run starts.
func NewCapturer(dir string, page Screenshoter) (*Capturer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "diag: create snapshot dir %s", dir)
	}
	return &Capturer{dir: dir, page: page}, nil
}

// Capture saves the current page as <dir>/<key>.png.
func (c *Capturer) Capture(ctx context.Context, key string) error {
	png, err := c.page.Screenshot(ctx)
	if err != nil {
		return eris.Wrapf(err, "diag: screenshot %s", key)
	}

	path := filepath.Join(c.dir, key+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return eris.Wrapf(err, "diag: write %s", path)
	}

	zap.L().Debug("snapshot captured", zap.String("path", path))
	return nil
}
