package api

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solarcross/solarcross/internal/pipeline"
	"github.com/solarcross/solarcross/internal/store"
)

//go:embed templates/*
var templateFS embed.FS

// Server is the read-only dashboard over the analysis artifacts.
type Server struct {
	store       *store.Store
	port        string
	summaryPath string
	tmpl        *template.Template
}

func NewServer(store *store.Store, port, summaryPath string) *Server {
	funcs := template.FuncMap{
		"pct": func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
		"f2":  func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
		"f4":  func(f float64) string { return strconv.FormatFloat(f, 'f', 4, 64) },
	}
	tmpl := template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

	return &Server{
		store:       store,
		port:        port,
		summaryPath: summaryPath,
		tmpl:        tmpl,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleOverview)
	mux.HandleFunc("/compare", s.handleCompare)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/sites", s.handleAPISites)
	mux.HandleFunc("/api/summary", s.handleAPISummary)
	mux.HandleFunc("/api/stats", s.handleAPIStats)
	mux.HandleFunc("/api/daily-energy", s.handleAPIDailyEnergy)
	mux.HandleFunc("/api/correlations", s.handleAPICorrelations)
	mux.HandleFunc("/api/tests", s.handleAPITests)
	mux.HandleFunc("/api/cleaning-log", s.handleAPICleaningLog)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// loadSummary reads the summary document fresh per request; it is small and
// regenerating the page on a new analysis run should not need a restart.
func (s *Server) loadSummary() *pipeline.Summary {
	summary, err := pipeline.ReadSummary(s.summaryPath)
	if err != nil {
		log.Printf("api: load summary: %v", err)
		return nil
	}
	return summary
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

func (s *Server) handleAPISites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.store.GetSites()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sites)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	summary := s.loadSummary()
	if summary == nil {
		http.Error(w, "no summary available; run an analysis first", http.StatusNotFound)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	siteID := r.URL.Query().Get("site")
	if siteID == "" {
		http.Error(w, "site parameter required", http.StatusBadRequest)
		return
	}
	stats, err := s.store.GetColumnStats(siteID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleAPIDailyEnergy(w http.ResponseWriter, r *http.Request) {
	siteID := r.URL.Query().Get("site")
	if siteID == "" {
		http.Error(w, "site parameter required", http.StatusBadRequest)
		return
	}

	days := 365
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 {
			http.Error(w, "invalid days parameter", http.StatusBadRequest)
			return
		}
		days = n
	}
	// Anchor the window at the newest stored row so a historical campaign
	// is not empty by default.
	end, ok, err := s.store.LatestEnergyDate(siteID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		end = time.Now().UTC()
	}
	start := end.AddDate(0, 0, -days)

	energy, err := s.store.GetDailyEnergy(siteID, start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, energy)
}

func (s *Server) handleAPICorrelations(w http.ResponseWriter, r *http.Request) {
	siteID := r.URL.Query().Get("site")
	if siteID == "" {
		http.Error(w, "site parameter required", http.StatusBadRequest)
		return
	}
	method := r.URL.Query().Get("method")
	if method == "" {
		method = "pearson"
	}
	correlations, err := s.store.GetCorrelations(siteID, method)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, correlations)
}

func (s *Server) handleAPITests(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	metric := r.URL.Query().Get("metric")
	var (
		results any
		err     error
	)
	if metric == "" {
		results, err = s.store.GetLatestTestResults(limit)
	} else {
		results, err = s.store.GetTestResults(metric, limit)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, results)
}

func (s *Server) handleAPICleaningLog(w http.ResponseWriter, r *http.Request) {
	siteID := r.URL.Query().Get("site")
	if siteID == "" {
		http.Error(w, "site parameter required", http.StatusBadRequest)
		return
	}
	entries, err := s.store.GetCleaningLog(siteID, 200)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

type healthStatus struct {
	Status     string   `json:"status"`
	Sites      int      `json:"sites"`
	HasSummary bool     `json:"has_summary"`
	Errors     []string `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := healthStatus{Status: "ok"}

	sites, err := s.store.GetSites()
	if err != nil {
		health.Status = "error"
		health.Errors = append(health.Errors, err.Error())
	} else {
		health.Sites = len(sites)
	}
	health.HasSummary = s.loadSummary() != nil

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		log.Printf("api: write response: %v", err)
	}
}
