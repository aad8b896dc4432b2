package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"outreach_backend/internal/leads/transport"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	ingested []transport.IngestRequest
	ingest   transport.IngestResponse
	resetTo  []int
	err      error
}

func (f *fakeService) Ingest(_ context.Context, req transport.IngestRequest) (transport.IngestResponse, error) {
	f.ingested = append(f.ingested, req)
	return f.ingest, f.err
}

func (f *fakeService) Get(_ context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	return transport.LeadResponse{ID: id}, f.err
}

func (f *fakeService) List(context.Context) (transport.LeadListResponse, error) {
	return transport.LeadListResponse{Items: []transport.LeadResponse{}}, f.err
}

func (f *fakeService) Reset(_ context.Context, id uuid.UUID, stage int) (transport.LeadResponse, error) {
	f.resetTo = append(f.resetTo, stage)
	return transport.LeadResponse{ID: id, SequenceStage: stage}, f.err
}

func (f *fakeService) GenerateDraft(context.Context, uuid.UUID) (transport.DraftResponse, error) {
	return transport.DraftResponse{DraftID: "draft-1", Stage: 1}, f.err
}

func (f *fakeService) AnalyzeIntent(context.Context, uuid.UUID) (transport.Intent, error) {
	return transport.Intent{Score: 70}, f.err
}

func serve(t *testing.T, svc *fakeService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := New(svc, validator.New())
	engine := gin.New()
	h.RegisterPublicRoutes(engine.Group("/api/v1/leads"))
	h.RegisterAdminRoutes(engine.Group("/api/v1/admin/leads"))

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestIngestCreated(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{ingest: transport.IngestResponse{Status: transport.IngestCreated, LeadID: &id}}

	rec := serve(t, svc, http.MethodPost, "/api/v1/leads", `{"email":"ada@example.com","name":"Ada"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.ingested) != 1 || svc.ingested[0].Email != "ada@example.com" {
		t.Fatalf("expected one ingest call, got %+v", svc.ingested)
	}
}

func TestIngestDuplicateIsOK(t *testing.T) {
	svc := &fakeService{ingest: transport.IngestResponse{Status: transport.IngestDuplicate}}

	rec := serve(t, svc, http.MethodPost, "/api/v1/leads", `{"email":"ada@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "duplicate" {
		t.Fatalf("expected duplicate status, got %v", body)
	}
}

func TestIngestRejectsInvalidEmail(t *testing.T) {
	svc := &fakeService{}

	rec := serve(t, svc, http.MethodPost, "/api/v1/leads", `{"email":"not-an-email"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.ingested) != 0 {
		t.Fatalf("invalid request must not reach the service")
	}
}

func TestResetRequiresStage(t *testing.T) {
	svc := &fakeService{}
	path := "/api/v1/admin/leads/" + uuid.NewString() + "/reset"

	if rec := serve(t, svc, http.MethodPost, path, `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing stage: expected 400, got %d", rec.Code)
	}
	if rec := serve(t, svc, http.MethodPost, path, `{"stage":7}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("stage 7: expected 400, got %d", rec.Code)
	}
	if rec := serve(t, svc, http.MethodPost, path, `{"stage":0}`); rec.Code != http.StatusOK {
		t.Fatalf("stage 0: expected 200, got %d", rec.Code)
	}
	if len(svc.resetTo) != 1 || svc.resetTo[0] != 0 {
		t.Fatalf("expected one reset to 0, got %v", svc.resetTo)
	}
}

func TestAdminRejectsMalformedID(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodPost, "/api/v1/admin/leads/nope/draft", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.NotFound("lead not found"), http.StatusNotFound},
		{apperr.Conflict("lead has received every cadence stage"), http.StatusConflict},
		{apperr.External("mail", context.DeadlineExceeded), http.StatusBadGateway},
	}
	for _, tc := range cases {
		svc := &fakeService{err: tc.err}
		rec := serve(t, svc, http.MethodPost, "/api/v1/admin/leads/"+uuid.NewString()+"/draft", "")
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}
