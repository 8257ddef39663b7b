package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/finance-insights/internal/api/handlers"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/jobs/inmemory"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/workspace"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngester struct {
	IngestFunc func(ctx context.Context, src pipeline.Source) ([]domain.Transaction, error)
}

func (s *stubIngester) Ingest(ctx context.Context, src pipeline.Source) ([]domain.Transaction, error) {
	return s.IngestFunc(ctx, src)
}

type stubAdviser struct {
	AdviseFunc func(ctx context.Context, req domain.AdviceContext) (domain.Advice, error)
}

func (s *stubAdviser) Advise(ctx context.Context, req domain.AdviceContext) (domain.Advice, error) {
	return s.AdviseFunc(ctx, req)
}

type testServer struct {
	handler http.Handler
	ws      *workspace.Workspace
}

func newTestServer(t *testing.T, ing *stubIngester, adv *stubAdviser) *testServer {
	t.Helper()
	if ing == nil {
		ing = &stubIngester{IngestFunc: func(ctx context.Context, src pipeline.Source) ([]domain.Transaction, error) {
			return nil, nil
		}}
	}
	if adv == nil {
		adv = &stubAdviser{AdviseFunc: func(ctx context.Context, req domain.AdviceContext) (domain.Advice, error) {
			return domain.Advice{Advice: "ok", SuggestedCuts: []domain.SuggestedCut{}}, nil
		}}
	}

	log := zerolog.Nop()
	ws := workspace.New(ing, adv, nil, log, workspace.Options{ProgressInterval: time.Millisecond})
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(4, store, log)
	validate := handlers.NewValidator()
	statements := handlers.NewStatementsHandler(ws, queue, store, validate, 1<<20, log)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queue.Start(ctx, statements.Process))
	t.Cleanup(func() {
		cancel()
		_ = queue.Close()
	})

	return &testServer{
		handler: NewRouter(Handlers{
			Transactions: handlers.NewTransactionsHandler(ws, validate, log),
			Statements:   statements,
			Jobs:         handlers.NewJobsHandler(store, log),
			Insights:     handlers.NewInsightsHandler(ws, validate, log),
		}, log),
		ws: ws,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) waitForJob(t *testing.T, id string, want jobs.JobStatus) jobs.ParseStatementJob {
	t.Helper()
	var job jobs.ParseStatementJob
	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/api/jobs/"+id, "")
		if rec.Code != http.StatusOK {
			return false
		}
		job = decode[jobs.ParseStatementJob](t, rec)
		return job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil, nil)

	assert.Equal(t, http.StatusMethodNotAllowed, s.do(t, http.MethodDelete, "/api/transactions", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, s.do(t, http.MethodGet, "/api/reset", "").Code)
}

func TestManualEntry(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := s.do(t, http.MethodPost, "/api/transactions/manual",
		`{"date":"2024-01-05","amount":-40,"description":"Market","type":"expense"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tx := decode[domain.Transaction](t, rec)
	assert.Equal(t, 40.0, tx.Amount)
	assert.Equal(t, domain.CategoryOther, tx.Category)
	assert.True(t, tx.IsManualEntry)

	list := decode[struct {
		Transactions []domain.Transaction `json:"transactions"`
		Count        int                  `json:"count"`
	}](t, s.do(t, http.MethodGet, "/api/transactions", ""))
	assert.Equal(t, 1, list.Count)

	summary := decode[struct {
		Stats domain.Stats `json:"stats"`
	}](t, s.do(t, http.MethodGet, "/api/summary", ""))
	assert.Equal(t, 40.0, summary.Stats.TotalExpense)
	assert.Equal(t, -40.0, summary.Stats.Savings)
}

func TestManualEntry_Validation(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := s.do(t, http.MethodPost, "/api/transactions/manual", `{"date":"05/01/2024","amount":0,"type":"transfer"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[struct {
		Details []handlers.FieldError `json:"details"`
	}](t, rec)
	fields := make([]string, 0, len(body.Details))
	for _, d := range body.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"date", "amount", "type"}, fields)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/transactions/manual", `{not json`).Code)
	assert.Equal(t, 0, s.ws.Status().TransactionCount)
}

func TestUploadStatement_RunsJob(t *testing.T) {
	var gotName, gotMIME string
	ing := &stubIngester{IngestFunc: func(ctx context.Context, src pipeline.Source) ([]domain.Transaction, error) {
		gotName, gotMIME = src.Document.Name, src.Document.MIMEType
		return []domain.Transaction{
			{Date: "2024-01-05", Description: "Rent", Amount: 900, Type: domain.TypeExpense, Category: domain.CategoryUtilities},
			{Date: "2024-01-25", Description: "Salary", Amount: 3000, Type: domain.TypeIncome, Category: domain.CategorySalary},
		}, nil
	}}
	s := newTestServer(t, ing, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/statements?filename=../jan.pdf", strings.NewReader("%PDF-1.4 statement"))
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	accepted := decode[jobs.ParseStatementJob](t, rec)
	require.NotEmpty(t, accepted.JobID)
	assert.Equal(t, "jan.pdf", accepted.Filename)

	job := s.waitForJob(t, accepted.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 2, job.TransactionCount)
	assert.Equal(t, "jan.pdf", gotName)
	assert.Equal(t, "application/pdf", gotMIME)
	assert.Equal(t, 2, s.ws.Status().TransactionCount)
}

func TestUploadStatement_RejectsWhileBusy(t *testing.T) {
	release := make(chan struct{})
	ing := &stubIngester{IngestFunc: func(ctx context.Context, src pipeline.Source) ([]domain.Transaction, error) {
		<-release
		return nil, nil
	}}
	s := newTestServer(t, ing, nil)

	first := s.do(t, http.MethodPost, "/api/statements?filename=a.csv", "date,amount\n")
	require.Equal(t, http.StatusAccepted, first.Code)

	second := s.do(t, http.MethodPost, "/api/statements/gcs", `{"gcs_uri":"gs://bucket/b.pdf"}`)
	assert.Equal(t, http.StatusConflict, second.Code)

	close(release)
	s.waitForJob(t, decode[jobs.ParseStatementJob](t, first).JobID, jobs.JobStatusCompleted)

	third := s.do(t, http.MethodPost, "/api/statements/gcs", `{"gcs_uri":"gs://bucket/b.pdf"}`)
	assert.Equal(t, http.StatusAccepted, third.Code)
}

func TestUploadStatement_ConcurrentUploadsAdmitOne(t *testing.T) {
	release := make(chan struct{})
	ing := &stubIngester{IngestFunc: func(ctx context.Context, src pipeline.Source) ([]domain.Transaction, error) {
		<-release
		return nil, nil
	}}
	s := newTestServer(t, ing, nil)
	t.Cleanup(func() { close(release) })

	const uploads = 8
	codes := make(chan int, uploads)
	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- s.do(t, http.MethodPost, "/api/statements/gcs", `{"gcs_uri":"gs://bucket/jan.pdf"}`).Code
		}()
	}
	wg.Wait()
	close(codes)

	accepted, conflicts := 0, 0
	for code := range codes {
		switch code {
		case http.StatusAccepted:
			accepted++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, uploads-1, conflicts)
}

func TestUploadStatement_FailedParseMarksJobFailed(t *testing.T) {
	ing := &stubIngester{IngestFunc: func(ctx context.Context, src pipeline.Source) ([]domain.Transaction, error) {
		return nil, errors.New("unreadable statement")
	}}
	s := newTestServer(t, ing, nil)

	rec := s.do(t, http.MethodPost, "/api/statements/gcs", `{"gcs_uri":"gs://bucket/jan.pdf"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	job := s.waitForJob(t, decode[jobs.ParseStatementJob](t, rec).JobID, jobs.JobStatusFailed)
	assert.Contains(t, job.Error, "unreadable statement")
	assert.Equal(t, 0, s.ws.Status().TransactionCount)
}

func TestUploadStatement_BadInput(t *testing.T) {
	s := newTestServer(t, nil, nil)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/statements", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/statements/gcs", `{"gcs_uri":"s3://bucket/a.pdf"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/statements/gcs", `{"gcs_uri":"gs://bucket-only"}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/jobs/missing", "").Code)
}

func TestFilters(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := s.do(t, http.MethodPut, "/api/filters",
		`{"range":"custom","start":"2024-01-01","end":"2024-01-31","categories":["food & dining","Transfer"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[map[string]interface{}](t, s.do(t, http.MethodGet, "/api/filters", ""))
	assert.Equal(t, "CUSTOM", got["range"])
	assert.Equal(t, "2024-01-01", got["start"])
	assert.Equal(t, []interface{}{"Food & Dining", "Transfer"}, got["categories"])

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/filters", `{"categories":["Crypto"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/filters", `{"range":"NEXT_YEAR"}`).Code)
}

func TestAlerts(t *testing.T) {
	s := newTestServer(t, nil, nil)

	for _, date := range []string{"2024-01-05", "2024-01-20"} {
		rec := s.do(t, http.MethodPost, "/api/transactions/manual", `{"date":"`+date+`","amount":2500,"description":"Zelle Transfer"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	list := decode[struct {
		Alerts []domain.Transaction `json:"alerts"`
		Count  int                  `json:"count"`
	}](t, s.do(t, http.MethodGet, "/api/alerts", ""))
	require.Equal(t, 2, list.Count)
	assert.True(t, list.Alerts[0].IsFlaggedSuspicious)

	ack := decode[map[string]int](t, s.do(t, http.MethodPost, "/api/alerts/ack", ""))
	assert.Equal(t, 2, ack["acknowledged"])

	after := decode[map[string]interface{}](t, s.do(t, http.MethodGet, "/api/alerts", ""))
	assert.Equal(t, float64(0), after["count"])
}

func TestSavingsTargetAndAdvice(t *testing.T) {
	var gotReq domain.AdviceContext
	adv := &stubAdviser{AdviseFunc: func(ctx context.Context, req domain.AdviceContext) (domain.Advice, error) {
		gotReq = req
		return domain.Advice{
			Advice:        "Cook at home.",
			SuggestedCuts: []domain.SuggestedCut{{Category: "Food & Dining", SuggestedReduction: 50, Reason: "frequent"}},
		}, nil
	}}
	s := newTestServer(t, nil, adv)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/advice", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/advice", "").Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/savings-target", `{"amount":-1,"frequency":"WEEKLY"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/savings-target", `{"amount":100,"frequency":"DAILY"}`).Code)

	rec := s.do(t, http.MethodPut, "/api/savings-target", `{"amount":100,"frequency":"weekly"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	target := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "WEEKLY", target["frequency"])
	assert.Equal(t, 400.0, target["monthlyEquivalent"])

	rec = s.do(t, http.MethodPost, "/api/advice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 400.0, gotReq.TargetSavingsMonthly)

	got := decode[domain.Advice](t, s.do(t, http.MethodGet, "/api/advice", ""))
	assert.Equal(t, "Cook at home.", got.Advice)
	require.Len(t, got.SuggestedCuts, 1)
}

func TestAdviceFailureKeepsPrevious(t *testing.T) {
	fail := false
	adv := &stubAdviser{AdviseFunc: func(ctx context.Context, req domain.AdviceContext) (domain.Advice, error) {
		if fail {
			return domain.Advice{}, errors.New("model unavailable")
		}
		return domain.Advice{Advice: "first", SuggestedCuts: []domain.SuggestedCut{}}, nil
	}}
	s := newTestServer(t, nil, adv)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/savings-target", `{"amount":300,"frequency":"MONTHLY"}`).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/advice", "").Code)

	fail = true
	assert.Equal(t, http.StatusBadGateway, s.do(t, http.MethodPost, "/api/advice", "").Code)

	got := decode[domain.Advice](t, s.do(t, http.MethodGet, "/api/advice", ""))
	assert.Equal(t, "first", got.Advice)
}

func TestReset(t *testing.T) {
	s := newTestServer(t, nil, nil)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/transactions/manual", `{"date":"2024-01-05","amount":10}`).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/filters", `{"range":"THIS_MONTH"}`).Code)

	rec := s.do(t, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[workspace.Status](t, rec)
	assert.Equal(t, 0, status.TransactionCount)

	filters := decode[map[string]interface{}](t, s.do(t, http.MethodGet, "/api/filters", ""))
	assert.Equal(t, "ALL", filters["range"])
}
