package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/absola/internal/domain"
	"github.com/kailas-cloud/absola/internal/domain/conversation"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
	healthuc "github.com/kailas-cloud/absola/internal/usecase/health"
)

// --- Mocks ---

type fakeDocs struct {
	mu       sync.Mutex
	docs     map[string]domdoc.Document
	uploaded map[string][]byte
	seq      int

	createErr error
	queryErr  error
	answer    domain.Answer
	history   []conversation.Message

	createCalls  int
	summaryCalls int
	queryCalls   int
	contextCalls int
	lastPrompt   string
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		docs:     make(map[string]domdoc.Document),
		uploaded: make(map[string][]byte),
		answer:   domain.Answer{Answer: "42", Sources: []string{"page 1"}},
	}
}

func (f *fakeDocs) Create(_ context.Context, name, tempPath string) (domdoc.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return domdoc.Document{}, f.createErr
	}
	data, err := os.ReadFile(tempPath)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("read upload: %w", domain.ErrStorage)
	}
	f.seq++
	id := fmt.Sprintf("doc-%d", f.seq)
	doc, err := domdoc.New(id, name, "/docs/"+id+"/original.pdf", 1_700_000_000_000+int64(f.seq))
	if err != nil {
		return domdoc.Document{}, err
	}
	f.docs[id] = doc
	f.uploaded[id] = data
	return doc, nil
}

func (f *fakeDocs) put(id string, status domdoc.Status, indexRef string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = domdoc.Reconstruct(id, id+".pdf", "/docs/"+id+"/original.pdf",
		status, indexRef, "", 3, 1_700_000_000_000, 1_700_000_000_000)
}

func (f *fakeDocs) get(id string) (domdoc.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeDocs) Get(_ context.Context, id string) (domdoc.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeDocs) List(_ context.Context) ([]domdoc.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domdoc.Document, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDocs) Summary(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	doc, err := f.get(id)
	if err != nil {
		return "", err
	}
	if !doc.IsReady() {
		return "", domain.ErrNotReady
	}
	return "short summary", nil
}

func (f *fakeDocs) Query(_ context.Context, id, _, prompt string) (domain.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	f.lastPrompt = prompt
	doc, err := f.get(id)
	if err != nil {
		return domain.Answer{}, err
	}
	if !doc.Queryable() {
		return domain.Answer{}, domain.ErrNotIndexed
	}
	return f.answer, f.queryErr
}

func (f *fakeDocs) Context(_ context.Context, id, term string) (domain.TermExplanation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contextCalls++
	if _, err := f.get(id); err != nil {
		return domain.TermExplanation{}, err
	}
	return domain.TermExplanation{Term: term, Explanation: "a definition", Provider: "wikipedia"}, nil
}

func (f *fakeDocs) History(_ context.Context, id string) ([]conversation.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.get(id); err != nil {
		return nil, err
	}
	return f.history, nil
}

func (f *fakeDocs) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return false, nil
	}
	delete(f.docs, id)
	return true, nil
}

type fakeHealth struct {
	report healthuc.Report
}

func (f *fakeHealth) Check(_ context.Context) healthuc.Report { return f.report }

func healthyReport() healthuc.Report {
	return healthuc.Report{
		Service:            "absola",
		Status:             healthuc.Healthy,
		Database:           healthuc.CheckOK,
		AIServiceReachable: true,
		Uptime:             42 * time.Second,
		Version:            "test",
	}
}

// --- Fixtures ---

type testAPI struct {
	docs    *fakeDocs
	health  *fakeHealth
	handler http.Handler
	uploads string
}

func newTestAPI(t *testing.T, mutate ...func(*Options)) *testAPI {
	t.Helper()
	api := &testAPI{
		docs:    newFakeDocs(),
		health:  &fakeHealth{report: healthyReport()},
		uploads: t.TempDir(),
	}
	opts := Options{UploadsDir: api.uploads, MaxUploadBytes: 1024, QueriesPerMinute: 30}
	for _, m := range mutate {
		m(&opts)
	}
	api.handler = NewServer(api.docs, api.health, opts, nil).Router()
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = http.NoBody
	}
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) upload(t *testing.T, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, contentType, content)
	return a.do(t, http.MethodPost, "/api/v1/document/upload", body, http.Header{"Content-Type": {ct}})
}

func (a *testAPI) postJSON(t *testing.T, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return a.do(t, http.MethodPost, path, bytes.NewReader(b), http.Header{"Content-Type": {"application/json"}})
}

func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// decodeEnvelope decodes the response envelope, unmarshalling data into out when non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	var raw struct {
		OK    bool            `json:"ok"`
		Data  json.RawMessage `json:"data"`
		Error *apiError       `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode envelope %q: %v", rr.Body.String(), err)
	}
	if out != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return envelope{OK: raw.OK, Error: raw.Error}
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	env := decodeEnvelope(t, rr, nil)
	if env.OK || env.Error == nil || env.Error.Code != code {
		t.Fatalf("error: got %+v, want code %s", env.Error, code)
	}
	return env
}

// domainErr wraps sentinel with a cause message; a nil sentinel yields a plain error.
func domainErr(msg string, sentinel error) error {
	if sentinel == nil {
		return errors.New(msg)
	}
	return fmt.Errorf("%s: %w", msg, sentinel)
}

func newRecorder() *httptest.ResponseRecorder { return httptest.NewRecorder() }

func newRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/", http.NoBody)
}
