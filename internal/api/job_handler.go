package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/repo"
)

// ListJobs возвращает список jobs с фильтрацией.
// GET /api/v1/jobs?status=...&kind=...&limit=...&offset=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.JobFilter{
		Kind:   q.Get("kind"),
		Limit:  parseInt(q.Get("limit"), 50),
		Offset: parseInt(q.Get("offset"), 0),
	}

	if status := q.Get("status"); status != "" {
		filter.Status = domain.JobStatus(status)
		if !filter.Status.IsValid() {
			BadRequest(w, "invalid status")
			return
		}
	}

	jobs, err := h.jobs.List(r.Context(), filter)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	result := make([]JobResponse, len(jobs))
	for i := range jobs {
		result[i] = JobFromDomain(&jobs[i])
	}

	List(w, result, len(result))
}

// CreateJob ставит новую job.
// POST /api/v1/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	job, err := req.ToDomain(time.Now())
	if HandleServiceError(w, h.logger, err) {
		return
	}

	job, err = h.jobs.Submit(r.Context(), job)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Created(w, JobFromDomain(job))
}

// GetJob возвращает job по ID.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, JobFromDomain(job))
}

// GetStats возвращает состояние планировщика.
// GET /api/v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, _ *http.Request) {
	Success(w, h.jobs.Stats())
}

// parseInt парсит неотрицательное число, иначе возвращает defaultVal.
func parseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
