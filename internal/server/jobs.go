package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/glosskit/gloss/pkg/progress"
)

// JobSummary is one entry in the jobs listing.
type JobSummary struct {
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	TotalChunks int       `json:"total_chunks"`
	Completed   int       `json:"completed"`
	LastUpdated time.Time `json:"last_updated"`
}

// JobDetail is the full view of one job's progress record, minus the
// translated text itself.
type JobDetail struct {
	JobSummary
	ConfigFingerprint string `json:"config_fingerprint"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	paths, err := progress.ListRecords(s.jobsDir)
	if err != nil {
		s.log.Error("Failed to list progress records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to list jobs", nil)
		return
	}

	jobs := make([]JobSummary, 0, len(paths))
	for _, path := range paths {
		rec, err := progress.ReadRecord(path)
		if err != nil {
			// A broken record should not hide the healthy ones.
			s.log.Warn("Skipping unreadable progress record",
				zap.String("path", path), zap.Error(err))
			continue
		}
		jobs = append(jobs, summarize(path, rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	paths, err := progress.ListRecords(s.jobsDir)
	if err != nil {
		s.log.Error("Failed to list progress records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to list jobs", nil)
		return
	}

	for _, path := range paths {
		if progress.JobName(path) != name {
			continue
		}
		rec, err := progress.ReadRecord(path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to read job record",
				map[string]any{"job": name})
			return
		}
		writeJSON(w, http.StatusOK, JobDetail{
			JobSummary:        summarize(path, rec),
			ConfigFingerprint: rec.ConfigFingerprint,
		})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "no such job", map[string]any{"job": name})
}

func summarize(path string, rec *progress.Record) JobSummary {
	return JobSummary{
		Name:        progress.JobName(path),
		Status:      rec.Status,
		TotalChunks: rec.TotalChunks,
		Completed:   len(rec.TranslatedChunks),
		LastUpdated: rec.LastUpdated,
	}
}
