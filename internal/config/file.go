package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/paths"
)

// DefaultBackupCount is the number of backup versions Save keeps.
const DefaultBackupCount = 3

// Save writes cfg as TOML, rotating the previous file into .bak copies.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = "  "
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := createBackup(path, DefaultBackupCount); err != nil {
			logging.L_warn("config: backup failed, continuing with save", "error", err)
		}
	}

	if err := paths.AtomicWrite(path, buf.Bytes(), 0600); err != nil {
		return err
	}
	logging.L_debug("config: saved", "path", path)
	return nil
}

// Init writes the built-in defaults to path, or to the data dir's
// chatpilot.toml when path is empty, and returns the path written. An
// existing file is only replaced when force is set; it is backed up first.
func Init(path string, force bool) (string, error) {
	if path == "" {
		p, err := paths.DataPath(paths.ConfigFile)
		if err != nil {
			return "", err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil && !force {
		return path, apperr.New(apperr.KindInvalidConfig, "config init", "%s already exists", path).
			WithRemedy("Pass --force to replace it; the current file is kept as .bak.")
	}
	if err := Save(path, Default()); err != nil {
		return path, err
	}
	return path, nil
}

// createBackup rotates existing backups and copies the current file to .bak
func createBackup(path string, maxBackups int) error {
	RotateBackups(path, maxBackups)

	backupPath := path + ".bak"
	if err := copyFile(path, backupPath); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	logging.L_trace("config: created backup", "path", backupPath)
	return nil
}

// RotateBackups shifts .bak -> .bak.1 -> ... and drops the oldest.
func RotateBackups(path string, maxBackups int) {
	if maxBackups <= 1 {
		return
	}
	backupBase := path + ".bak"
	maxIndex := maxBackups - 1

	oldest := fmt.Sprintf("%s.%d", backupBase, maxIndex)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		logging.L_trace("config: failed to remove oldest backup", "path", oldest, "error", err)
	}

	for i := maxIndex - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", backupBase, i)
		dst := fmt.Sprintf("%s.%d", backupBase, i+1)
		if err := os.Rename(src, dst); err != nil && !os.IsNotExist(err) {
			logging.L_trace("config: failed to rotate backup", "src", src, "dst", dst, "error", err)
		}
	}

	if err := os.Rename(backupBase, backupBase+".1"); err != nil && !os.IsNotExist(err) {
		logging.L_trace("config: failed to rotate .bak to .bak.1", "error", err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
