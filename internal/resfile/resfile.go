// Package resfile handles the on-disk form of installable resources:
// markdown files with optional YAML frontmatter.
package resfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tangentlab/switchyard/pkg/types"
)

// Metadata is the subset of frontmatter fields the engine cares about.
// Unknown fields are ignored.
type Metadata struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Category     string `yaml:"category"`
	AllowedTools string `yaml:"allowed-tools"`
}

// Hash returns the sha256 hex digest of content. Stored alongside every
// resource row and compared against live files during drift detection.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ParseFrontmatter extracts YAML frontmatter delimited by "---" lines at the
// top of content, returning the metadata and the body that follows. Content
// without frontmatter returns empty metadata and the full content as body.
// Frontmatter that is delimited but not valid YAML falls back to a line scan
// for the description field rather than failing the install.
func ParseFrontmatter(content []byte) (Metadata, []byte) {
	text := string(content)
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return Metadata{}, content
	}
	rest := text[strings.Index(text, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return Metadata{}, content
	}
	front := rest[:end]
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\r")
	body = strings.TrimPrefix(body, "\n")

	var meta Metadata
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		meta = scanFrontmatter(front)
	}
	return meta, []byte(body)
}

// scanFrontmatter is the tolerant fallback for frontmatter that YAML rejects
// (unquoted colons in values are common in the wild). It reads simple
// "key: value" lines only.
func scanFrontmatter(front string) Metadata {
	var meta Metadata
	for _, line := range strings.Split(front, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		switch strings.TrimSpace(key) {
		case "name":
			meta.Name = value
		case "description":
			meta.Description = value
		case "category":
			meta.Category = value
		case "allowed-tools":
			meta.AllowedTools = value
		}
	}
	return meta
}

// Describe returns the best human description for a resource file: the
// frontmatter description when present, otherwise the first heading line of
// the body.
func Describe(content []byte) string {
	meta, body := ParseFrontmatter(content)
	if meta.Description != "" {
		return meta.Description
	}
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
		if line != "" {
			return line
		}
	}
	return ""
}

// BuildResource assembles an installable resource from raw file content.
func BuildResource(id types.Identity, content []byte) *types.Resource {
	return &types.Resource{
		Identity:    id,
		Description: Describe(content),
		Content:     content,
		FileHash:    Hash(content),
	}
}

// ValidateID checks that a namespace-qualified resource ID is usable as a
// relative file path.
func ValidateID(id types.Identity) error {
	if id.Filename == "" {
		return fmt.Errorf("%w: resource filename required", types.ErrValidation)
	}
	for _, part := range []string{id.Namespace, id.Filename} {
		if strings.Contains(part, "..") {
			return fmt.Errorf("%w: resource id must not contain %q", types.ErrValidation, "..")
		}
	}
	return nil
}
