package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcus/bujo/internal/bujo"
	"github.com/marcus/bujo/internal/journal"
)

// saveTextRequest is the JSON body for POST /v1/entries/text.
type saveTextRequest struct {
	Text string `json:"text"`
	Date string `json:"date"`
}

// chatRequest is the JSON body for POST /v1/chat.
type chatRequest struct {
	Message string `json:"message"`
}

// entriesResponse wraps a list of entries.
type entriesResponse struct {
	Entries []*journal.Entry `json:"entries"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return false
	}
	return true
}

// handleSaveText handles POST /v1/entries/text.
func (s *Server) handleSaveText(w http.ResponseWriter, r *http.Request) {
	var req saveTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	j, ok := s.journalFor(w, r)
	if !ok {
		return
	}
	res, err := j.SaveText(r.Context(), req.Text, req.Date)
	if err != nil {
		writeServiceError(w, r, "save text entry", err)
		return
	}
	s.metrics.RecordEntrySaved()
	writeJSON(w, http.StatusCreated, res)
}

// handleSaveAudio handles POST /v1/entries/audio (multipart: audio, date).
func (s *Server) handleSaveAudio(w http.ResponseWriter, r *http.Request) {
	res, err := s.saveAudio(r)
	if err != nil {
		writeServiceError(w, r, "save audio entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) saveAudio(r *http.Request) (bujo.AudioResult, error) {
	j, err := s.journals.Get(getUserFromContext(r.Context()).UserID)
	if err != nil {
		return bujo.AudioResult{}, err
	}
	if err := parseMultipart(r); err != nil {
		return bujo.AudioResult{}, err
	}
	path, err := s.saveUpload(r, "audio", j.Dirs().Uploads)
	if err != nil {
		return bujo.AudioResult{}, err
	}
	res, err := j.SaveAudio(r.Context(), path, r.FormValue("date"))
	if err != nil {
		discardUpload(r, path)
		return bujo.AudioResult{}, err
	}
	s.metrics.RecordTranscription()
	s.metrics.RecordEntrySaved()
	return res, nil
}

// handleSaveImage handles POST /v1/entries/image (multipart: image, notes, date).
func (s *Server) handleSaveImage(w http.ResponseWriter, r *http.Request) {
	res, err := s.saveImage(r)
	if err != nil {
		writeServiceError(w, r, "save image entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) saveImage(r *http.Request) (bujo.ImageResult, error) {
	j, err := s.journals.Get(getUserFromContext(r.Context()).UserID)
	if err != nil {
		return bujo.ImageResult{}, err
	}
	if err := parseMultipart(r); err != nil {
		return bujo.ImageResult{}, err
	}
	path, err := s.saveUpload(r, "image", j.Dirs().Uploads)
	if err != nil {
		return bujo.ImageResult{}, err
	}
	res, err := j.SaveImage(r.Context(), path, r.FormValue("notes"), r.FormValue("date"))
	if err != nil {
		discardUpload(r, path)
		return bujo.ImageResult{}, err
	}
	s.metrics.RecordEntrySaved()
	return res, nil
}

// handleEntriesByDate handles GET /v1/entries?date=.
func (s *Server) handleEntriesByDate(w http.ResponseWriter, r *http.Request) {
	j, ok := s.journalFor(w, r)
	if !ok {
		return
	}
	entries, err := j.EntriesByDate(r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, "get entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries})
}

// searchQuery reads start, end, tags, and emotion from the query string.
// Tags may repeat or be comma separated.
func searchQuery(r *http.Request) journal.Query {
	q := r.URL.Query()
	var tags []string
	for _, v := range q["tags"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return journal.Query{
		Start:   q.Get("start"),
		End:     q.Get("end"),
		Tags:    tags,
		Emotion: strings.TrimSpace(q.Get("emotion")),
	}
}

// handleSearch handles GET /v1/entries/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	j, ok := s.journalFor(w, r)
	if !ok {
		return
	}
	entries, err := j.Search(searchQuery(r))
	if err != nil {
		writeServiceError(w, r, "search entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries})
}

// handleWeeklySummary handles GET /v1/summary/weekly?start=.
func (s *Server) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	j, ok := s.journalFor(w, r)
	if !ok {
		return
	}
	sum, err := j.WeeklySummary(r.Context(), r.URL.Query().Get("start"))
	if err != nil {
		writeServiceError(w, r, "weekly summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleChat handles POST /v1/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	j, ok := s.journalFor(w, r)
	if !ok {
		return
	}
	res, err := j.Chat(r.Context(), req.Message)
	if err != nil {
		writeServiceError(w, r, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleInsights handles GET /v1/insights?start&end.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	j, ok := s.journalFor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	ins, err := j.Insights(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		writeServiceError(w, r, "insights", err)
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

// handleTrendChart handles GET /v1/charts/trend.png.
func (s *Server) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, (*bujo.Journal).TrendChart)
}

// handleDistributionChart handles GET /v1/charts/distribution.png.
func (s *Server) handleDistributionChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, (*bujo.Journal).DistributionChart)
}

func (s *Server) serveChart(w http.ResponseWriter, r *http.Request, render func(*bujo.Journal, io.Writer, string, string) error) {
	j, ok := s.journalFor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var buf bytes.Buffer
	if err := render(j, &buf, q.Get("start"), q.Get("end")); err != nil {
		writeServiceError(w, r, "render chart", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleVisualization handles GET /v1/visualizations/{name}, serving only
// PNGs from the signed-in user's visualizations directory.
func (s *Server) handleVisualization(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".png" {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "visualization not found")
		return
	}
	j, ok := s.journalFor(w, r)
	if !ok {
		return
	}
	f, err := os.Open(filepath.Join(j.Dirs().Visualizations, name))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "visualization not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "visualization not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
