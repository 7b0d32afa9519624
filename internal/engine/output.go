package engine

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteOutputs materializes a Result's modified files into outputDir,
// following the backup/restore convention: every file about to be
// overwritten is first copied into a ".work" subdirectory with a ".bak"
// suffix, and each backup is removed once every file has been written
// successfully. If any write fails, the remaining backups are left in
// place so the caller can restore from them by hand.
func WriteOutputs(outputDir string, result *Result) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("engine: creating output dir: %w", err)
	}
	workDir := filepath.Join(outputDir, ".work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("engine: creating work dir: %w", err)
	}

	var backups []string
	for path := range result.Files {
		dest := filepath.Join(outputDir, filepath.Base(path))
		backup, err := backupFile(workDir, dest)
		if err != nil {
			return fmt.Errorf("engine: backing up %s: %w", dest, err)
		}
		if backup != "" {
			backups = append(backups, backup)
		}
	}

	for path, content := range result.Files {
		dest := filepath.Join(outputDir, filepath.Base(path))
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return fmt.Errorf("engine: writing %s: %w", dest, err)
		}
	}

	for _, b := range backups {
		os.Remove(b)
	}

	manifestPath := filepath.Join(outputDir, "xmr-eliminate-manifest.json")
	if err := os.WriteFile(manifestPath, ManifestJSON(result), 0o644); err != nil {
		return fmt.Errorf("engine: writing manifest: %w", err)
	}
	return nil
}

// backupFile copies an existing dest into workDir with a ".bak" suffix,
// returning the backup path, or "" if dest did not previously exist.
func backupFile(workDir, dest string) (string, error) {
	data, err := os.ReadFile(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	backup := filepath.Join(workDir, filepath.Base(dest)+".bak")
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", err
	}
	return backup, nil
}

// MarkerStream renders every file in a Result as one concatenated text
// stream, each file delimited by //BEGIN:<path> and //END:<path> comment
// markers, so a caller can split the stream back into per-file artifacts
// without touching the filesystem (§6.2).
func MarkerStream(result *Result) []byte {
	var out []byte
	for path, content := range result.Files {
		out = append(out, []byte(fmt.Sprintf("//BEGIN:%s\n", path))...)
		out = append(out, content...)
		if len(content) == 0 || content[len(content)-1] != '\n' {
			out = append(out, '\n')
		}
		out = append(out, []byte(fmt.Sprintf("//END:%s\n", path))...)
	}
	return out
}
