// Package provision sets up a host to run the bot under systemd: it verifies
// the Slack webhook, injects it into the JSON config, installs the service
// unit, and retires any tmux session left over from manual operation.
package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// BackupSuffix is appended to the config path for the pre-patch backup.
const BackupSuffix = ".backup"

// PatchConfig injects the webhook URL into the JSON config at path. Before
// the first mutation it writes <path>.backup with the original content; an
// existing backup is never overwritten, so it always reflects the state
// before provisioning first touched the file.
func PatchConfig(path, webhookURL string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("config %s is not valid JSON", path)
	}

	backup := path + BackupSuffix
	if _, err := os.Stat(backup); os.IsNotExist(err) {
		if err := os.WriteFile(backup, raw, 0o600); err != nil {
			return fmt.Errorf("write backup %s: %w", backup, err)
		}
	} else if err != nil {
		return fmt.Errorf("stat backup %s: %w", backup, err)
	}

	patched, err := sjson.SetBytes(raw, "slack_webhook_url", webhookURL)
	if err != nil {
		return fmt.Errorf("patch config: %w", err)
	}

	return writeAtomic(path, patched)
}

// writeAtomic replaces path via a temp file and rename, so a crash mid-write
// never leaves a truncated config behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
