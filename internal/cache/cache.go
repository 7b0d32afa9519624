// Package cache hashes engine inputs so repeated runs over unchanged
// files and configuration can be detected cheaply — the same
// sha256-over-a-stable-JSON-encoding convention the indexer's policy
// cache uses to invalidate itself.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Key is a stable fingerprint of one engine run's inputs: the sorted file
// paths plus their content hashes, and the configuration that was used.
type Key struct {
	FilesHash  string `json:"filesHash"`
	ConfigHash string `json:"configHash"`
}

// String renders the combined key as a single comparable string.
func (k Key) String() string { return k.FilesHash + ":" + k.ConfigHash }

// HashFiles fingerprints a set of (path, content) pairs order-independently.
func HashFiles(contents map[string][]byte) string {
	paths := make([]string, 0, len(contents))
	for p := range contents {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s\x00", p)
		h.Write(contents[p])
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashConfig fingerprints any JSON-marshalable configuration value.
func HashConfig(cfg interface{}) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("cache: marshaling config: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// BuildKey computes the full Key for one run's inputs.
func BuildKey(contents map[string][]byte, cfg interface{}) (Key, error) {
	configHash, err := HashConfig(cfg)
	if err != nil {
		return Key{}, err
	}
	return Key{FilesHash: HashFiles(contents), ConfigHash: configHash}, nil
}
