package protect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Detector checks whether a repository path falls in a protected area.
// Three strategies are applied in order: glob patterns, path keywords,
// and file extensions. The first hit wins.
type Detector struct {
	patterns  []string
	keywords  []string
	fileTypes []string
	mu        sync.RWMutex
}

// projectConfig is the protected_areas section of a .steward.yaml file.
type projectConfig struct {
	ProtectedAreas struct {
		Patterns  []string `yaml:"patterns"`
		Keywords  []string `yaml:"keywords"`
		FileTypes []string `yaml:"file_types"`
	} `yaml:"protected_areas"`
}

// New creates a Detector seeded with the default rule set.
func New() *Detector {
	return &Detector{
		patterns:  append([]string{}, DefaultPatterns...),
		keywords:  append([]string{}, DefaultKeywords...),
		fileTypes: append([]string{}, DefaultFileTypes...),
	}
}

// Protected reports whether path matches any protected-area rule.
func (d *Detector) Protected(path string) (bool, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	normalized := filepath.ToSlash(path)
	lower := strings.ToLower(normalized)

	for _, pattern := range d.patterns {
		if matchGlobPattern(normalized, pattern) {
			return true, "path matches protected pattern " + pattern
		}
	}

	for _, keyword := range d.keywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true, "path contains protected keyword " + keyword
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, protectedExt := range d.fileTypes {
		if ext == strings.ToLower(protectedExt) {
			return true, "protected file type " + protectedExt
		}
	}

	return false, ""
}

// AddPattern appends a glob pattern to the rule set.
func (d *Detector) AddPattern(pattern string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.patterns = append(d.patterns, pattern)
}

// AddKeyword appends a path keyword to the rule set.
func (d *Detector) AddKeyword(keyword string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keywords = append(d.keywords, keyword)
}

// AddFileType appends a file extension to the rule set.
func (d *Detector) AddFileType(ext string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fileTypes = append(d.fileTypes, ext)
}

// LoadConfig merges the protected_areas section of a .steward.yaml file
// into the rule set. Rules are additive over the defaults.
func (d *Detector) LoadConfig(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read protected areas config: %w", err)
	}

	var cfg projectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse protected areas config: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.patterns = append(d.patterns, cfg.ProtectedAreas.Patterns...)
	d.keywords = append(d.keywords, cfg.ProtectedAreas.Keywords...)
	d.fileTypes = append(d.fileTypes, cfg.ProtectedAreas.FileTypes...)
	return nil
}
