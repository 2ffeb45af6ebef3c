package chi

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/absola/internal/fileinfo"
	"github.com/kailas-cloud/absola/internal/logger"
)

// multipartOverhead leaves room for boundaries and part headers around the file.
const multipartOverhead = 64 << 10

const uploadField = "file"

var errFileTooLarge = errors.New("file too large")

// UploadDocument handles POST /api/v1/document/upload.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeNoFile, "multipart form with a file is required", false)
		return
	}

	var part *multipart.Part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if isTooLarge(err) {
				writeError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, "file too large", false)
				return
			}
			writeError(w, http.StatusBadRequest, CodeNoFile, "malformed multipart body", false)
			return
		}
		if p.FormName() == uploadField && p.FileName() != "" {
			part = p
			break
		}
	}
	if part == nil {
		writeError(w, http.StatusBadRequest, CodeNoFile, "no file uploaded", false)
		return
	}
	defer part.Close()

	name := filepath.Base(part.FileName())
	if !fileinfo.Accepted(name, part.Header.Get("Content-Type")) {
		writeError(w, http.StatusBadRequest, CodeInvalidFileType, "only pdf, docx and txt files are accepted", false)
		return
	}

	tmpPath, err := s.spool(part)
	if tmpPath != "" {
		// Create moves the file away; whatever is left here is abandoned.
		defer func() { _ = os.Remove(tmpPath) }()
	}
	if err != nil {
		if errors.Is(err, errFileTooLarge) || isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, "file too large", false)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to spool upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeStorageError, "storage error", false)
		return
	}

	doc, err := s.documents.Create(r.Context(), name, tmpPath)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, uploadResponse{DocumentID: doc.ID()})
}

// spool writes the upload to a temp file in the uploads directory.
func (s *Server) spool(src io.Reader) (string, error) {
	f, err := os.CreateTemp(s.opts.UploadsDir, "upload-*")
	if err != nil {
		return "", err
	}
	path := f.Name()

	n, err := io.Copy(f, io.LimitReader(src, s.opts.MaxUploadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return path, err
	}
	if n > s.opts.MaxUploadBytes {
		return path, errFileTooLarge
	}
	return path, nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// ListDocuments handles GET /api/v1/document.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]documentListItem, len(docs))
	for i := range docs {
		items[i] = documentToListItem(&docs[i])
	}
	writeData(w, http.StatusOK, documentListResponse{Documents: items})
}

// GetDocument handles GET /api/v1/document/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, documentToResponse(&doc))
}

// GetSummary handles GET /api/v1/document/{id}/summary.
func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.documents.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summaryResponse{Summary: summary})
}

// QueryDocument handles POST /api/v1/document/{id}/query.
func (s *Server) QueryDocument(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, "invalid request body", false)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, "query is required", false)
		return
	}

	ans, err := s.documents.Query(r.Context(), chi.URLParam(r, "id"), req.Query, req.UserPrompt)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	sources := ans.Sources
	if sources == nil {
		sources = []string{}
	}
	writeData(w, http.StatusOK, queryResponse{Answer: ans.Answer, Sources: sources})
}

// ExplainTerm handles GET /api/v1/document/{id}/context?term=.
func (s *Server) ExplainTerm(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidTerm, "term is required", false)
		return
	}

	te, err := s.documents.Context(r.Context(), chi.URLParam(r, "id"), term)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, contextResponse{
		Term:        te.Term,
		Explanation: te.Explanation,
		Provider:    te.Provider,
	})
}

// GetConversation handles GET /api/v1/document/{id}/conversation.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.documents.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = messageToResponse(m)
	}
	writeData(w, http.StatusOK, conversationResponse{Messages: out})
}

// DeleteDocument handles DELETE /api/v1/document/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.documents.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, CodeNotFound, "document not found", false)
		return
	}
	writeData(w, http.StatusOK, deleteResponse{Deleted: true})
}
