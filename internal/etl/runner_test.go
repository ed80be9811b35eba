package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage/memory"
)

type stubService struct {
	BaseService
	raws     []Raw
	fetchErr error
	started  []string
	results  []*Result
}

func newStubService(raws []Raw) *stubService {
	return &stubService{
		BaseService: NewBaseService(memory.NewPoliticianStore(), memory.NewDisclosureStore(), nil),
		raws:        raws,
	}
}

func (s *stubService) SourceID() string   { return "stub" }
func (s *stubService) SourceName() string { return "Stub Feed" }

func (s *stubService) FetchDisclosures(ctx context.Context, params map[string]string) ([]Raw, error) {
	return s.raws, s.fetchErr
}

func (s *stubService) ParseDisclosure(raw Raw) (*domain.NormalizedDisclosure, error) {
	if raw["bad"] == true {
		return nil, errors.New("malformed row")
	}
	asset, _ := raw["asset"].(string)
	return &domain.NormalizedDisclosure{
		CleanedDisclosure: domain.CleanedDisclosure{
			PoliticianName:  "Jane Doe",
			TransactionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			DisclosureDate:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			AssetName:       asset,
			TransactionType: "purchase",
			Source:          "stub",
		},
		PoliticianFirstName: "Jane",
		PoliticianLastName:  "Doe",
		PoliticianRole:      domain.RoleSenator,
	}, nil
}

func (s *stubService) OnStart(ctx context.Context, jobID string) error {
	s.started = append(s.started, jobID)
	return nil
}

func (s *stubService) OnComplete(ctx context.Context, jobID string, result *Result) {
	s.results = append(s.results, result)
}

func TestRunner_FullLifecycle(t *testing.T) {
	svc := newStubService([]Raw{
		{"asset": "Apple Inc"},
		{"asset": "Microsoft Corp"},
		{"bad": true},
		{"asset": ""}, // fails default validation, skipped
	})
	r := NewRunner(nil, nil)

	result, err := r.Run(context.Background(), svc, "job-1", 0, false, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.RecordsProcessed != 4 {
		t.Errorf("RecordsProcessed = %d, want 4", result.RecordsProcessed)
	}
	if result.RecordsInserted != 2 {
		t.Errorf("RecordsInserted = %d, want 2", result.RecordsInserted)
	}
	if result.RecordsSkipped != 1 {
		t.Errorf("RecordsSkipped = %d, want 1", result.RecordsSkipped)
	}
	if result.RecordsFailed != 1 {
		t.Errorf("RecordsFailed = %d, want 1", result.RecordsFailed)
	}
	if want := 0.75; result.SuccessRate() != want {
		t.Errorf("SuccessRate = %v, want %v", result.SuccessRate(), want)
	}
	if result.IsSuccess() {
		t.Error("IsSuccess = true with a recorded error")
	}

	if len(svc.started) != 1 || svc.started[0] != "job-1" {
		t.Errorf("OnStart calls = %v", svc.started)
	}
	if len(svc.results) != 1 {
		t.Fatalf("OnComplete calls = %d", len(svc.results))
	}

	status, ok := r.Tracker().Get("job-1")
	if !ok || status.Status != JobStateCompleted {
		t.Errorf("status = %+v", status)
	}
}

func TestRunner_EmptyFetchCompletesWithWarning(t *testing.T) {
	svc := newStubService(nil)
	r := NewRunner(nil, nil)

	result, err := r.Run(context.Background(), svc, "job-2", 0, false, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Warnings = %v", result.Warnings)
	}
	if !result.IsSuccess() {
		t.Error("empty fetch must still succeed")
	}
	if status, _ := r.Tracker().Get("job-2"); status.Status != JobStateCompleted {
		t.Errorf("status = %+v", status)
	}
}

func TestRunner_FetchErrorFailsRun(t *testing.T) {
	svc := newStubService(nil)
	svc.fetchErr = errors.New("upstream 500")
	r := NewRunner(nil, nil)

	_, err := r.Run(context.Background(), svc, "job-3", 0, false, nil)
	if err == nil {
		t.Fatal("want error")
	}
	if status, _ := r.Tracker().Get("job-3"); status.Status != JobStateFailed {
		t.Errorf("status = %+v", status)
	}
	if len(svc.results) != 1 {
		t.Errorf("OnComplete must still fire on failure")
	}
}

func TestRunner_LimitTruncates(t *testing.T) {
	svc := newStubService([]Raw{
		{"asset": "A Corp"}, {"asset": "B Corp"}, {"asset": "C Corp"},
	})
	r := NewRunner(nil, nil)

	result, err := r.Run(context.Background(), svc, "job-4", 2, false, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.RecordsProcessed != 2 {
		t.Errorf("RecordsProcessed = %d, want 2", result.RecordsProcessed)
	}
}

func TestRunner_UpdateModeRewrites(t *testing.T) {
	svc := newStubService([]Raw{{"asset": "Apple Inc"}})
	r := NewRunner(nil, nil)
	ctx := context.Background()

	if _, err := r.Run(ctx, svc, "job-5", 0, false, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	result, err := r.Run(ctx, svc, "job-6", 0, true, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.RecordsUpdated != 1 {
		t.Errorf("RecordsUpdated = %d, want 1", result.RecordsUpdated)
	}
}

func TestRegistry_DuplicateRegistrationIsError(t *testing.T) {
	reg := NewRegistry()
	svc := newStubService(nil)

	if err := reg.Register(svc); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(svc); err == nil {
		t.Fatal("duplicate register must error")
	}

	got, ok := reg.Get("stub")
	if !ok || got != Service(svc) {
		t.Errorf("Get = %v, %v", got, ok)
	}
	if ids := reg.SourceIDs(); len(ids) != 1 || ids[0] != "stub" {
		t.Errorf("SourceIDs = %v", ids)
	}
}
