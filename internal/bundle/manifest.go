package bundle

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManifestEntry describes one file in the bundle.
type ManifestEntry struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Size   int    `json:"size"`
	Key    string `json:"key"`
}

// Manifest lists the bundled files and the ones held back for later
// download, both by output path. It depends only on the build outputs, so
// an unchanged project always yields the same manifest.
type Manifest struct {
	Title    string          `json:"title,omitempty"`
	Platform string          `json:"platform,omitempty"`
	Files    []ManifestEntry `json:"files"`
	Excluded []ManifestEntry `json:"excluded"`
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("bundle: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("bundle: write %s: %w", path, err)
	}
	return nil
}
