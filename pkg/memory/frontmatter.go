package memory

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

var frontmatterDelim = []byte("---")

// stripFrontmatter splits content into its optional YAML front matter and
// the remaining body. content with no leading "---" delimiter is returned
// unchanged as the body with a nil front matter map.
func stripFrontmatter(content []byte) (map[string]interface{}, []byte, error) {
	trimmed := bytes.TrimLeft(content, "\n")
	if !bytes.HasPrefix(trimmed, frontmatterDelim) {
		return nil, content, nil
	}

	rest := trimmed[len(frontmatterDelim):]
	rest = bytes.TrimPrefix(rest, []byte("\n"))

	end := bytes.Index(rest, []byte("\n---"))
	if end == -1 {
		return nil, content, nil
	}

	yamlBlock := rest[:end]
	body := rest[end+len("\n---"):]
	body = bytes.TrimPrefix(body, []byte("\n"))

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, nil, fmt.Errorf("parse front matter: %w", err)
	}
	return fm, body, nil
}
