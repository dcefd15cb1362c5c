package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gurukul-labs/gurukul/internal/log"
	"github.com/gurukul-labs/gurukul/internal/retrieval"
)

// fakeContent implements ContentService with canned responses.
type fakeContent struct {
	ingestID      string
	ingestErr     error
	gotChunk      retrieval.ChunkInput
	report        retrieval.Report
	reportErr     error
	gotDoc        retrieval.DocumentInput
	searchResults []retrieval.SearchResult
	searchErr     error
	gotQuery      string
	gotK          int
	answerText    string
	answerErr     error
}

func (f *fakeContent) Ingest(_ context.Context, input retrieval.ChunkInput) (string, error) {
	f.gotChunk = input
	return f.ingestID, f.ingestErr
}

func (f *fakeContent) IngestDocument(_ context.Context, doc retrieval.DocumentInput) (retrieval.Report, error) {
	f.gotDoc = doc
	return f.report, f.reportErr
}

func (f *fakeContent) Search(_ context.Context, query string, _ int, _ string, k int) ([]retrieval.SearchResult, error) {
	f.gotQuery = query
	f.gotK = k
	return f.searchResults, f.searchErr
}

func (f *fakeContent) Answer(_ context.Context, query string, _ int, _ string) (string, error) {
	f.gotQuery = query
	return f.answerText, f.answerErr
}

func newTestServer(t *testing.T, content ContentService) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{Logger: log.NewNop(), Content: content})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIngestChunk(t *testing.T) {
	fake := &fakeContent{ingestID: "abc123"}
	srv := newTestServer(t, fake)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/chunks",
		`{"subject":"Physics","class_no":9,"chapter":"Gravitation","text":"Gravity pulls objects down.","page":3}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ingestChunkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID != "abc123" {
		t.Errorf("id = %s", resp.ID)
	}
	if fake.gotChunk.Subject != "Physics" || fake.gotChunk.ClassNo != 9 {
		t.Errorf("service received %+v", fake.gotChunk)
	}
	if fake.gotChunk.Page == nil || *fake.gotChunk.Page != 3 {
		t.Errorf("page not forwarded: %v", fake.gotChunk.Page)
	}
}

func TestIngestChunk_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing subject", `{"class_no":9,"chapter":"Heat","text":"some text"}`},
		{"missing chapter", `{"subject":"Physics","class_no":9,"text":"some text"}`},
		{"blank text", `{"subject":"Physics","class_no":9,"chapter":"Heat","text":"  "}`},
		{"malformed json", `{"subject":`},
		{"unknown field", `{"subject":"Physics","chapter":"Heat","text":"x","bogus":1}`},
		{"trailing garbage", `{"subject":"Physics","chapter":"Heat","text":"x"}{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeContent{})
			rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/chunks", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestIngestChunk_ServiceError(t *testing.T) {
	srv := newTestServer(t, &fakeContent{ingestErr: errors.New("store down")})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/chunks",
		`{"subject":"Physics","class_no":9,"chapter":"Heat","text":"Heat flows."}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "store down") {
		t.Error("internal error detail leaked to client")
	}
}

func TestIngestDocument(t *testing.T) {
	fake := &fakeContent{report: retrieval.Report{Chunks: 5, Failed: 0}}
	srv := newTestServer(t, fake)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/documents",
		`{"subject":"Physics","class_no":9,"chapter":"Motion","source_pdf":"iesc109.pdf","pages":[{"number":1,"text":"Motion is relative."}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ingestDocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Chunks != 5 || resp.Failed != 0 {
		t.Errorf("response = %+v", resp)
	}
	if len(fake.gotDoc.Pages) != 1 || fake.gotDoc.Pages[0].Number != 1 {
		t.Errorf("pages not forwarded: %+v", fake.gotDoc.Pages)
	}
}

func TestIngestDocument_PartialFailureStillOK(t *testing.T) {
	fake := &fakeContent{
		report:    retrieval.Report{Chunks: 3, Failed: 2},
		reportErr: errors.New("2 chunks failed"),
	}
	srv := newTestServer(t, fake)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/documents",
		`{"subject":"Physics","class_no":9,"chapter":"Motion","pages":[{"number":1,"text":"t"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("partial success should be 200, got %d", rec.Code)
	}
	var resp ingestDocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Chunks != 3 || resp.Failed != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestIngestDocument_TotalFailure(t *testing.T) {
	fake := &fakeContent{
		report:    retrieval.Report{Chunks: 0, Failed: 4},
		reportErr: errors.New("embedding provider down"),
	}
	srv := newTestServer(t, fake)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/documents",
		`{"subject":"Physics","class_no":9,"chapter":"Motion","pages":[{"number":1,"text":"t"}]}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("total failure should be 500, got %d", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	fake := &fakeContent{searchResults: []retrieval.SearchResult{
		{Text: "Inertia resists change.", Chapter: "Motion", Subject: "Physics", ClassNo: 9},
	}}
	srv := newTestServer(t, fake)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/search",
		`{"query":"what is inertia","class_no":9,"subject":"Physics","k":2}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Text != "Inertia resists change." {
		t.Errorf("results = %+v", resp.Results)
	}
	if fake.gotK != 2 {
		t.Errorf("k = %d, want 2", fake.gotK)
	}
}

func TestSearch_EmptyResultsIsEmptyList(t *testing.T) {
	srv := newTestServer(t, &fakeContent{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/search",
		`{"query":"nothing matches","class_no":9,"subject":"Physics"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Errorf("empty results should serialize as [], got: %s", rec.Body.String())
	}
}

func TestAnswer(t *testing.T) {
	fake := &fakeContent{answerText: "Inertia is the resistance to change in motion [1]."}
	srv := newTestServer(t, fake)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/answer",
		`{"query":"what is inertia","class_no":9,"subject":"Physics"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp answerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Answer != fake.answerText {
		t.Errorf("answer = %q", resp.Answer)
	}
}

func TestAnswer_ServiceError(t *testing.T) {
	srv := newTestServer(t, &fakeContent{answerErr: errors.New("provider down")})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/answer",
		`{"query":"q","class_no":9,"subject":"Physics"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}
