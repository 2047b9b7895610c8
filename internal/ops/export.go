package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/thermap/internal/catalog"
	"github.com/hpungsan/thermap/internal/errors"
)

// SnapshotInput contains parameters for the Snapshot operation.
type SnapshotInput struct {
	Database int    // 1-based index, required
	Path     string // optional, default: <exports>/<name>-<timestamp>.txt
}

// SnapshotOutput contains the result of the Snapshot operation.
type SnapshotOutput struct {
	Path       string `json:"path"`
	Database   string `json:"database"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Snapshot writes the species table of a database to a file. The file is
// written to a temp name and renamed into place, so an existing file is
// kept on failure.
func Snapshot(ctx context.Context, src *Sources, input SnapshotInput) (*SnapshotOutput, error) {
	now := time.Now()

	sess, err := src.Open(input.Database)
	if err != nil {
		return nil, err
	}
	desc, _ := sess.Database()
	species := sess.Species()

	exportPath := input.Path
	if exportPath == "" {
		if src.ExportsDir == "" {
			return nil, errors.NewInvalidRequest("path is required")
		}
		name := fmt.Sprintf("%s-%s.txt", SanitizeForFilename(strings.ToLower(desc.Name)), now.Format("2006-01-02T150405"))
		exportPath = filepath.Join(src.ExportsDir, name)
	}

	if err := ValidatePath(exportPath, src.ExportsDir, src.Config.AllowedPaths); err != nil {
		return nil, err
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := catalog.WriteSnapshot(file, species); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink destination
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows os.Rename fails if the destination exists; the existing file is kept.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &SnapshotOutput{
		Path:       exportPath,
		Database:   desc.Name,
		Count:      len(species),
		ExportedAt: now.Unix(),
	}, nil
}
