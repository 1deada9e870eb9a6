package api

import (
	"log"
	"net/http"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := buildOverview(s.loadSummary())
	if err := s.tmpl.ExecuteTemplate(w, "overview.html", data); err != nil {
		log.Printf("api: template overview: %v", err)
	}
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	recent, err := s.store.GetLatestTestResults(20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := buildCompare(s.loadSummary(), recent)
	if err := s.tmpl.ExecuteTemplate(w, "compare.html", data); err != nil {
		log.Printf("api: template compare: %v", err)
	}
}
