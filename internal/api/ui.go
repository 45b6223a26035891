package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"

	"github.com/marcus/bujo/internal/dateparse"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// uiTab is one tab of the journal page.
type uiTab struct {
	ID    string
	Title string
}

var uiTabs = []uiTab{
	{"text", "Text Journal"},
	{"voice", "Voice Journal"},
	{"photo", "Photo Journal"},
	{"review", "Review"},
	{"summary", "Weekly Summary"},
	{"chat", "Chat"},
	{"insights", "Insights"},
}

// pageData holds template data for the journal page.
type pageData struct {
	Tabs         []uiTab
	Tab          string
	User         *AuthUser
	OAuthEnabled bool
	Today        string
	Result       string
	Error        string
	ChartURL     string
	Form         url.Values
}

func validTab(tab string) string {
	for _, t := range uiTabs {
		if t.ID == tab {
			return tab
		}
	}
	return uiTabs[0].ID
}

// handleIndex handles GET /. Signed-out visitors see the login page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	u, err := s.authenticate(r)
	if err != nil {
		logFor(r.Context()).Error("verify session", "err", err)
	}
	if u == nil {
		s.renderTemplate(w, r, "login.html", pageData{OAuthEnabled: s.oauth != nil})
		return
	}
	s.renderPage(w, withUser(r, u), validTab(r.URL.Query().Get("tab")), nil, nil)
}

// renderPage shows tab with result as indented JSON, or err as a message.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, tab string, result any, err error) {
	data := pageData{
		Tabs:         uiTabs,
		Tab:          tab,
		User:         getUserFromContext(r.Context()),
		OAuthEnabled: s.oauth != nil,
		Today:        dateparse.Format(s.now()),
		Form:         r.Form,
	}
	if err != nil {
		status, _, msg := serviceError(err)
		if status >= 500 {
			logFor(r.Context()).Error("ui "+tab, "err", err)
			msg = "Something went wrong. Please try again."
		}
		data.Error = msg
	} else if result != nil {
		out, mErr := json.MarshalIndent(result, "", "  ")
		if mErr != nil {
			logFor(r.Context()).Error("encode ui result", "err", mErr)
		}
		data.Result = string(out)
	}
	if tab == "insights" && err == nil && result != nil {
		q := url.Values{}
		q.Set("start", r.FormValue("start"))
		q.Set("end", r.FormValue("end"))
		data.ChartURL = "/v1/charts/trend.png?" + q.Encode()
	}
	s.renderTemplate(w, r, "index.html", data)
}

func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, name, data); err != nil {
		logFor(r.Context()).Error("render template", "name", name, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleUIText handles POST /ui/text.
func (s *Server) handleUIText(w http.ResponseWriter, r *http.Request) {
	j, err := s.journals.Get(getUserFromContext(r.Context()).UserID)
	if err != nil {
		s.renderPage(w, r, "text", nil, err)
		return
	}
	res, err := j.SaveText(r.Context(), r.FormValue("text"), r.FormValue("date"))
	if err == nil {
		s.metrics.RecordEntrySaved()
	}
	s.renderPage(w, r, "text", res, err)
}

// handleUIVoice handles POST /ui/voice.
func (s *Server) handleUIVoice(w http.ResponseWriter, r *http.Request) {
	res, err := s.saveAudio(r)
	s.renderPage(w, r, "voice", res, err)
}

// handleUIPhoto handles POST /ui/photo.
func (s *Server) handleUIPhoto(w http.ResponseWriter, r *http.Request) {
	res, err := s.saveImage(r)
	s.renderPage(w, r, "photo", res, err)
}

// handleUIChat handles POST /ui/chat.
func (s *Server) handleUIChat(w http.ResponseWriter, r *http.Request) {
	j, err := s.journals.Get(getUserFromContext(r.Context()).UserID)
	if err != nil {
		s.renderPage(w, r, "chat", nil, err)
		return
	}
	res, err := j.Chat(r.Context(), r.FormValue("message"))
	s.renderPage(w, r, "chat", res, err)
}

// handleUIReview handles GET /ui/review. A date shows that day; range or
// filter fields run a search.
func (s *Server) handleUIReview(w http.ResponseWriter, r *http.Request) {
	j, err := s.journals.Get(getUserFromContext(r.Context()).UserID)
	if err != nil {
		s.renderPage(w, r, "review", nil, err)
		return
	}
	r.ParseForm()
	q := searchQuery(r)
	if q.Start != "" || q.End != "" || len(q.Tags) > 0 || q.Emotion != "" {
		res, err := j.Search(q)
		s.renderPage(w, r, "review", res, err)
		return
	}
	res, err := j.EntriesByDate(r.FormValue("date"))
	s.renderPage(w, r, "review", res, err)
}

// handleUISummary handles GET /ui/summary.
func (s *Server) handleUISummary(w http.ResponseWriter, r *http.Request) {
	j, err := s.journals.Get(getUserFromContext(r.Context()).UserID)
	if err != nil {
		s.renderPage(w, r, "summary", nil, err)
		return
	}
	res, err := j.WeeklySummary(r.Context(), r.FormValue("start"))
	s.renderPage(w, r, "summary", res, err)
}

// handleUIInsights handles GET /ui/insights.
func (s *Server) handleUIInsights(w http.ResponseWriter, r *http.Request) {
	j, err := s.journals.Get(getUserFromContext(r.Context()).UserID)
	if err != nil {
		s.renderPage(w, r, "insights", nil, err)
		return
	}
	res, err := j.Insights(r.Context(), r.FormValue("start"), r.FormValue("end"))
	s.renderPage(w, r, "insights", res, err)
}
