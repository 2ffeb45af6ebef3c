package fileinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Kind is an accepted upload format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindTXT  Kind = "txt"
)

var extKinds = map[string]Kind{
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".txt":  KindTXT,
}

var mimeKinds = map[string]Kind{
	"application/pdf": KindPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": KindDOCX,
	"text/plain": KindTXT,
}

// KindOf returns the format implied by a filename's extension.
func KindOf(filename string) (Kind, bool) {
	k, ok := extKinds[strings.ToLower(filepath.Ext(filename))]
	return k, ok
}

// Accepted reports whether an upload is one of the supported formats.
// The extension decides; a declared content type must agree unless it is generic.
func Accepted(filename, contentType string) bool {
	kind, ok := KindOf(filename)
	if !ok {
		return false
	}

	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case "", "application/octet-stream":
		return true
	}
	return mimeKinds[ct] == kind
}

// Info is metadata extracted from a stored file.
type Info struct {
	Kind  Kind
	Size  int64
	Pages int
}

// Inspector reads file metadata. PDF page counting runs in relaxed validation mode.
type Inspector struct {
	conf *model.Configuration
}

// NewInspector creates an Inspector.
func NewInspector() *Inspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: conf}
}

// Inspect stats the file and counts pages for PDFs.
// A PDF that cannot be parsed still yields Info with zero pages and the parse error.
func (i *Inspector) Inspect(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", path, err)
	}

	kind, _ := KindOf(path)
	info := Info{Kind: kind, Size: st.Size()}
	if kind != KindPDF {
		return info, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return info, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	pages, err := api.PageCount(f, i.conf)
	if err != nil {
		return info, fmt.Errorf("count pages %s: %w", path, err)
	}
	info.Pages = pages
	return info, nil
}
