package core

import (
	"path"
	"strings"
)

// RepoConfig represents the structure of the .diffwarden.yml file.
type RepoConfig struct {
	// Custom instructions appended to the review prompt.
	CustomInstructions []string `yaml:"custom_instructions"`

	// Directories skipped entirely, matched against any path segment.
	// Example: ["dist", "vendor"]
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// The leading dot is optional. Example: [".md", "lock"]
	ExcludeExts []string `yaml:"exclude_exts"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		CustomInstructions: []string{},
		ExcludeDirs:        []string{},
		ExcludeExts:        []string{},
	}
}

// Excludes reports whether a slash-separated repository path is filtered out
// by ExcludeDirs or ExcludeExts.
func (c *RepoConfig) Excludes(filePath string) bool {
	if c == nil {
		return false
	}

	dir := path.Dir(filePath)
	if dir != "." {
		for _, segment := range strings.Split(dir, "/") {
			for _, excluded := range c.ExcludeDirs {
				if segment == strings.Trim(excluded, "/") {
					return true
				}
			}
		}
	}

	ext := strings.TrimPrefix(path.Ext(filePath), ".")
	base := path.Base(filePath)
	for _, excluded := range c.ExcludeExts {
		excluded = strings.TrimPrefix(excluded, ".")
		if excluded == "" {
			continue
		}
		if strings.EqualFold(ext, excluded) || strings.HasSuffix(base, "."+excluded) {
			return true
		}
	}
	return false
}
