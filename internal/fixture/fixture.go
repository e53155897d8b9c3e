package fixture

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Fixture is a local test document loaded fully into memory, ready to be
// uploaded to the platform.
type Fixture struct {
	Name     string
	MimeType string
	Data     []byte
}

// Size returns the document size in bytes.
func (f Fixture) Size() int {
	return len(f.Data)
}

// Load reads the file at path and resolves its MIME type from the
// extension, falling back to content sniffing. PDF fixtures are parsed up
// front so a corrupt file fails here instead of mid-scenario.
func Load(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("reading fixture: %w", err)
	}
	if len(data) == 0 {
		return Fixture{}, fmt.Errorf("fixture %s is empty", path)
	}

	mimeType := detectMimeType(path, data)
	if mimeType == "application/pdf" {
		if err := validatePDF(data); err != nil {
			return Fixture{}, fmt.Errorf("fixture %s: %w", path, err)
		}
	}

	return Fixture{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Data:     data,
	}, nil
}

func detectMimeType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return http.DetectContentType(data)
	}
}

func validatePDF(data []byte) error {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("parsing PDF: %w", err)
	}
	if r.NumPage() == 0 {
		return fmt.Errorf("PDF has no pages")
	}
	return nil
}
