// Package export writes formatted transcripts to files on disk.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caadev/tutortrainer/internal/domain"
)

// Format is a supported export file format.
type Format string

const (
	FormatWordDoc Format = "Word Doc"
	FormatPDF     Format = "PDF"
	FormatText    Format = "Text"
)

var extensions = map[Format]string{
	FormatWordDoc: ".docx",
	FormatPDF:     ".pdf",
	FormatText:    ".txt",
}

// Exporter writes transcript exports into a target directory.
type Exporter struct {
	dir string
}

// New creates an exporter rooted at dir, creating it if needed.
func New(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// Filename builds the export filename for a user's conversation.
func Filename(username, conversationName string, format Format) (string, error) {
	ext, ok := extensions[format]
	if !ok {
		return "", fmt.Errorf("unknown export format %q: %w", format, domain.ErrValidation)
	}
	return sanitize(username) + " - " + sanitize(conversationName) + ext, nil
}

// Export writes the transcript to "{username} - {conversation_name}.{ext}"
// and returns the full path of the written file.
func (e *Exporter) Export(username, conversationName string, format Format, transcript string) (string, error) {
	name, err := Filename(username, conversationName, format)
	if err != nil {
		return "", err
	}
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// sanitize strips path separators so user-supplied names cannot escape the
// export directory.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, string(filepath.Separator), "_")
	return strings.TrimSpace(s)
}
