package site

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Manifest records every published file with its sha256 digest. Two builds
// over identical inputs produce identical manifests, which is how rebuild
// idempotence is verified and recorded.
type Manifest struct {
	Files map[string]string `json:"files"` // root-relative slash path -> hex sha256
}

// NewManifest hashes every regular file under root.
func NewManifest(root string) (*Manifest, error) {
	m := &Manifest{Files: make(map[string]string)}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		sum, err := hashFile(p)
		if err != nil {
			return err
		}
		m.Files[filepath.ToSlash(rel)] = sum
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", root, err)
	}
	return m, nil
}

// Fingerprint computes a single deterministic hash over the manifest.
// Equal fingerprints mean byte-identical trees.
func (m *Manifest) Fingerprint() string {
	// json.Marshal sorts map keys, giving a canonical byte form.
	data, err := json.Marshal(m.Files)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ToJSON serializes the manifest for persisting alongside the build report.
func (m *Manifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
