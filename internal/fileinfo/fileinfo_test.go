package fileinfo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		want Kind
		ok   bool
	}{
		{"report.pdf", KindPDF, true},
		{"Report.PDF", KindPDF, true},
		{"notes.docx", KindDOCX, true},
		{"readme.txt", KindTXT, true},
		{"legacy.doc", "", false},
		{"image.png", "", false},
		{"noext", "", false},
	}
	for _, tc := range tests {
		got, ok := KindOf(tc.name)
		if got != tc.want || ok != tc.ok {
			t.Errorf("KindOf(%q) = %q,%v want %q,%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAccepted(t *testing.T) {
	tests := []struct {
		name, contentType string
		want              bool
	}{
		{"a.pdf", "application/pdf", true},
		{"a.pdf", "", true},
		{"a.pdf", "application/octet-stream", true},
		{"a.txt", "text/plain; charset=utf-8", true},
		{"a.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"a.pdf", "text/plain", false},
		{"a.exe", "application/pdf", false},
		{"a.png", "image/png", false},
	}
	for _, tc := range tests {
		if got := Accepted(tc.name, tc.contentType); got != tc.want {
			t.Errorf("Accepted(%q, %q) = %v, want %v", tc.name, tc.contentType, got, tc.want)
		}
	}
}

func TestInspect_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "original.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o600); err != nil {
		t.Fatal(err)
	}

	info, err := NewInspector().Inspect(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Kind != KindTXT || info.Size != 11 || info.Pages != 0 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestInspect_BrokenPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "original.pdf")
	if err := os.WriteFile(path, []byte("not really a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}

	info, err := NewInspector().Inspect(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if info.Kind != KindPDF || info.Pages != 0 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestInspect_Missing(t *testing.T) {
	if _, err := NewInspector().Inspect(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Fatal("expected error")
	}
}
