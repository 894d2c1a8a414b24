package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"pollboard/internal/store"
	"pollboard/pkg/types"
)

// ConnectionStats exposes transport connection counts, implemented by the
// websocket registry.
type ConnectionStats interface {
	Stats() map[string]int
}

// ArchiveChecker exposes archive connectivity and volume; nil disables the
// check.
type ArchiveChecker interface {
	HealthCheck(ctx context.Context) error
	PollCount(ctx context.Context) (int, error)
}

// Server is the HTTP status surface: health, the minimal poll-status query,
// and the spreadsheet export of the session's results. No session logic
// lives here; it reads snapshots and serializes them.
type Server struct {
	store   *store.Store
	stats   ConnectionStats
	archive ArchiveChecker
	router  *http.ServeMux
}

// NewServer creates the API server. archive may be nil.
func NewServer(st *store.Store, stats ConnectionStats, archive ArchiveChecker) *Server {
	s := &Server{
		store:   st,
		stats:   stats,
		archive: archive,
		router:  http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
	s.router.Handle("/api/poll/status", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.pollStatus))))
	s.router.Handle("/api/results/export", s.corsMiddleware(http.HandlerFunc(s.exportResults)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type StatusResponse struct {
	CurrentPoll   *types.Poll `json:"currentPoll"`
	StudentsCount int         `json:"studentsCount"`
	ResultsCount  int         `json:"resultsCount"`
}

type HealthResponse struct {
	Status        string         `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
	Archive       string         `json:"archive"`
	ArchivedPolls int            `json:"archivedPolls"`
	Connections   map[string]int `json:"connections"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GET /api/poll/status: current poll, roster size, stored-result count.
func (s *Server) pollStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_ = json.NewEncoder(w).Encode(StatusResponse{
		CurrentPoll:   s.store.CurrentPoll(),
		StudentsCount: s.store.StudentCount(),
		ResultsCount:  s.store.ResultCount(),
	})
}

// GET /health: status plus archive connectivity and connection counts.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	archiveStatus := "disabled"
	archivedPolls := 0
	if s.archive != nil {
		archiveStatus = "healthy"
		if err := s.archive.HealthCheck(ctx); err != nil {
			status = "unhealthy"
			archiveStatus = fmt.Sprintf("error: %v", err)
		} else if n, err := s.archive.PollCount(ctx); err == nil {
			archivedPolls = n
		}
	}

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:        status,
		Timestamp:     time.Now(),
		Archive:       archiveStatus,
		ArchivedPolls: archivedPolls,
		Connections:   s.stats.Stats(),
	})
}

// GET /api/results/export: xlsx workbook of the session's poll results,
// one sheet per poll: the question, per-option tallies, and the response
// list.
func (s *Server) exportResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	results := s.store.Results()
	if len(results) == 0 {
		s.sendError(w, "No poll results to export", http.StatusNotFound)
		return
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close export workbook: %v", err)
		}
	}()

	for i, result := range results {
		sheet := fmt.Sprintf("Poll %d", i+1)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				s.sendError(w, "Failed to build export", http.StatusInternalServerError)
				return
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				s.sendError(w, "Failed to build export", http.StatusInternalServerError)
				return
			}
		}
		if err := writeResultSheet(f, sheet, result); err != nil {
			log.Printf("Failed to write sheet for poll %s: %v", result.PollID, err)
			s.sendError(w, "Failed to build export", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="poll-results.xlsx"`)
	if err := f.Write(w); err != nil {
		log.Printf("Failed to stream export: %v", err)
	}
}

func writeResultSheet(f *excelize.File, sheet string, result *types.PollResult) error {
	rows := [][]interface{}{
		{"Question", result.Question},
		{"Total votes", result.TotalVotes},
		{},
		{"Option", "Votes"},
	}
	for _, opt := range result.Options {
		rows = append(rows, []interface{}{opt, result.Votes[opt]})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Student", "Answer", "Submitted"})
	for _, resp := range result.Responses {
		rows = append(rows, []interface{}{resp.StudentName, resp.Answer, resp.Timestamp.Format(time.RFC3339)})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
