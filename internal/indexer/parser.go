package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterFence marks the start/end of a YAML frontmatter block.
var frontmatterFence = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n?`)

// filenameDate extracts a YYYY-MM-DD date from a filename when frontmatter
// doesn't supply one.
var filenameDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// DocumentParser reads raw markdown bytes into a Document, extracting
// frontmatter metadata and deriving vault/category/title/date when absent.
type DocumentParser struct{}

// NewDocumentParser creates a Parser.
func NewDocumentParser() *DocumentParser {
	return &DocumentParser{}
}

// Parse builds a Document from raw file bytes. vaultRoot is the configured
// root path for vault, used to compute the category (first path segment
// relative to the root).
func (p *DocumentParser) Parse(raw []byte, filePath, vault, vaultRoot string) Document {
	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	body, fm := splitFrontmatter(string(raw))

	doc := Document{
		FilePath: filePath,
		Vault:    vault,
		Content:  body,
		Hash:     hash,
		Meta:     map[string]string{},
	}

	doc.Category = category(filePath, vaultRoot)
	doc.Title = stringField(fm, "title")
	if doc.Title == "" {
		base := filepath.Base(filePath)
		doc.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	doc.Date = stringField(fm, "date")
	if doc.Date == "" {
		doc.Date = filenameDate.FindString(filepath.Base(filePath))
	}

	doc.People = listField(fm, "people")
	doc.Projects = listField(fm, "projects")

	for k, v := range fm {
		switch k {
		case "title", "date", "people", "projects":
			continue
		}
		if s, ok := v.(string); ok {
			doc.Meta[k] = s
		}
	}

	return doc
}

// splitFrontmatter separates a leading "---\n...\n---" YAML block from the
// rest of the document. A malformed or absent block degrades to an empty
// frontmatter map rather than failing the parse (MalformedInput, not fatal).
func splitFrontmatter(raw string) (body string, fm map[string]interface{}) {
	fm = map[string]interface{}{}

	match := frontmatterFence.FindStringSubmatch(raw)
	if match == nil {
		return raw, fm
	}

	if err := yaml.Unmarshal([]byte(match[1]), &fm); err != nil {
		return raw, map[string]interface{}{}
	}

	return raw[len(match[0]):], fm
}

// category returns the first path segment of filePath relative to vaultRoot,
// or "other" when the file sits directly at the vault root.
func category(filePath, vaultRoot string) string {
	rel, err := filepath.Rel(vaultRoot, filePath)
	if err != nil {
		return "other"
	}
	rel = filepath.ToSlash(rel)
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) < 2 {
		return "other"
	}
	return parts[0]
}

func stringField(fm map[string]interface{}, key string) string {
	v, ok := fm[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return ""
	}
}

// listField reads a frontmatter value that may be a YAML list or a
// comma-separated string, normalizing either shape to a string slice.
func listField(fm map[string]interface{}, key string) []string {
	v, ok := fm[key]
	if !ok {
		return nil
	}

	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
