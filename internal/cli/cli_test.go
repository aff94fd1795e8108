package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestScheduleFlags_Request(t *testing.T) {
	f := scheduleFlags{
		name:    "hook",
		kind:    "http",
		in:      90 * time.Second,
		config:  []string{"url=http://example.com", "method=PUT"},
		retries: 3,
		backoff: "exponential",
	}

	req, err := f.request()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.DelaySec != 90 {
		t.Errorf("expected delay 90s, got %v", req.DelaySec)
	}
	if req.Config["url"] != "http://example.com" || req.Config["method"] != "PUT" {
		t.Errorf("unexpected config: %v", req.Config)
	}
	if req.Retry == nil || req.Retry.MaxAttempts != 3 || req.Retry.Backoff != "exponential" {
		t.Errorf("unexpected retry: %+v", req.Retry)
	}
}

func TestScheduleFlags_Errors(t *testing.T) {
	tests := []struct {
		name  string
		flags scheduleFlags
	}{
		{"bad at", scheduleFlags{kind: "log", at: "tomorrow"}},
		{"at and in", scheduleFlags{kind: "log", at: "2030-01-01T00:00:00Z", in: time.Second}},
		{"fractional every", scheduleFlags{kind: "log", every: 1500 * time.Millisecond}},
		{"bad config", scheduleFlags{kind: "log", config: []string{"novalue"}}},
		{"bad config json", scheduleFlags{kind: "log", configJSON: "[1,2]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.flags.request(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestScheduleFlags_AtAndEvery(t *testing.T) {
	f := scheduleFlags{
		kind:       "log",
		at:         "2030-01-02T03:04:05Z",
		every:      time.Minute,
		configJSON: `{"message":"tick","level":"DEBUG"}`,
		config:     []string{"level=WARN"},
	}

	req, err := f.request()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.DueAt == nil || !req.DueAt.Equal(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected due_at: %v", req.DueAt)
	}
	if req.IntervalSec != 60 {
		t.Errorf("expected interval 60, got %d", req.IntervalSec)
	}
	// KEY=VALUE перекрывает --config-json
	if req.Config["level"] != "WARN" || req.Config["message"] != "tick" {
		t.Errorf("unexpected config: %v", req.Config)
	}
}

func TestClient_CreateAndList(t *testing.T) {
	var gotReq CreateJobRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/jobs":
			json.NewDecoder(r.Body).Decode(&gotReq)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"id":"j1","kind":"log","status":"SCHEDULED"}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/jobs":
			if r.URL.Query().Get("status") != "FAILED" {
				t.Errorf("expected status filter, got %q", r.URL.RawQuery)
			}
			w.Write([]byte(`{"data":[{"id":"j1"},{"id":"j2"}],"total":2}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"job not found"}}`))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	job, err := client.CreateJob(CreateJobRequest{Kind: "log", DelaySec: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID != "j1" || job.Status != "SCHEDULED" {
		t.Errorf("unexpected job: %+v", job)
	}
	if gotReq.Kind != "log" || gotReq.DelaySec != 5 {
		t.Errorf("unexpected request: %+v", gotReq)
	}

	jobs, err := client.ListJobs(ListJobsOpts{Status: "FAILED"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(jobs))
	}

	_, err = client.GetJob("missing")
	if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND error, got %v", err)
	}
}

func TestOutput_TableAndJSON(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{w: &buf, errW: &buf}

	out.Print([]string{"ID", "STATUS"}, [][]string{{"j1", "SCHEDULED"}}, nil)
	if !strings.Contains(buf.String(), "j1") || !strings.Contains(buf.String(), "------") {
		t.Errorf("unexpected table: %q", buf.String())
	}

	buf.Reset()
	out.jsonMode = true
	out.Print(nil, nil, map[string]string{"id": "j1"})

	var decoded map[string]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || decoded["id"] != "j1" {
		t.Errorf("unexpected JSON output %q: %v", buf.String(), err)
	}
}

func TestOutput_DetailsSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{w: &buf, errW: &buf}

	job := &JobResponse{ID: "j1", Kind: "log", Status: "SUCCEEDED", IntervalSec: 60, Seq: 7}
	out.Details(jobFields(job), job)

	got := buf.String()
	for _, want := range []string{"ID:", "j1", "Schedule:", "every 1m0s", "Seq:", "7"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "Error:") || strings.Contains(got, "Name:") {
		t.Errorf("empty fields should be skipped: %q", got)
	}
}

func TestFormatDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
	}{
		{"2026-03-01T12:05:00Z", "in 5m0s"},
		{"2026-03-01T11:58:00Z", "2m0s ago"},
		{"2026-03-01T12:00:00.2Z", "now"},
		{"not a time", "not a time"},
	}

	for _, tt := range tests {
		if got := formatDue(tt.in, now); got != tt.want {
			t.Errorf("formatDue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
