// Package frontmatter splits and composes the YAML metadata block that
// leads every content document. Documents are read-only to pagefold: Split
// never has to preserve the original formatting, and Compose only writes
// fresh starter documents.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrUnclosed indicates a document opened a frontmatter block and never
// closed it.
var ErrUnclosed = errors.New("frontmatter opened but never closed")

// Split separates the --- delimited YAML frontmatter from the markdown body.
// A document not starting with a delimiter line has no frontmatter: had is
// false and body is the whole input. LF and CRLF documents both split.
func Split(content []byte) (meta, body []byte, had bool, err error) {
	nl := "\n"
	switch {
	case bytes.HasPrefix(content, []byte("---\r\n")):
		nl = "\r\n"
	case bytes.HasPrefix(content, []byte("---\n")):
	default:
		return nil, content, false, nil
	}
	open := []byte("---" + nl)
	rest := content[len(open):]

	// Empty block: the closing delimiter follows immediately.
	if bytes.HasPrefix(rest, open) {
		return nil, rest[len(open):], true, nil
	}

	closing := []byte(nl + "---" + nl)
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		// A file may end on the closing delimiter with no trailing newline.
		if tail := []byte(nl + "---"); bytes.HasSuffix(rest, tail) {
			return rest[:len(rest)-3], nil, true, nil
		}
		return nil, nil, false, ErrUnclosed
	}
	return rest[:idx+len(nl)], rest[idx+len(closing):], true, nil
}

// Compose renders a complete document: frontmatter between --- delimiters,
// a blank separator line, then the body. Map keys serialize sorted so the
// same metadata always produces the same bytes.
func Compose(meta map[string]any, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	if len(meta) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(meta); err != nil {
			_ = enc.Close()
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	}
	buf.WriteString("---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}
