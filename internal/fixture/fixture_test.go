package fixture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Text(t *testing.T) {
	path := writeFixture(t, "test-contract.txt", "This agreement is made between the parties.")

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if f.Name != "test-contract.txt" {
		t.Errorf("Name = %q, want test-contract.txt", f.Name)
	}
	if f.MimeType != "text/plain" {
		t.Errorf("MimeType = %q, want text/plain", f.MimeType)
	}
	if f.Size() != 43 {
		t.Errorf("Size() = %d, want 43", f.Size())
	}
}

func TestLoad_Markdown(t *testing.T) {
	path := writeFixture(t, "notes.md", "# Heading\n\nbody\n")

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.MimeType != "text/markdown" {
		t.Errorf("MimeType = %q, want text/markdown", f.MimeType)
	}
}

func TestLoad_UnknownExtensionSniffs(t *testing.T) {
	path := writeFixture(t, "payload.bin", "plain text content inside")

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasPrefix(f.MimeType, "text/plain") {
		t.Errorf("MimeType = %q, want sniffed text/plain", f.MimeType)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_Empty(t *testing.T) {
	path := writeFixture(t, "empty.txt", "")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("error = %v, want it to mention empty", err)
	}
}

func TestLoad_CorruptPDF(t *testing.T) {
	path := writeFixture(t, "broken.pdf", "this is not a pdf at all")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for corrupt PDF")
	}
	if !strings.Contains(err.Error(), "broken.pdf") {
		t.Errorf("error = %v, want it to name the file", err)
	}
}
