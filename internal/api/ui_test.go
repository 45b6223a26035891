package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func postForm(srv *testServer, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(srv, req)
}

func TestIndexTabs(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		query string
		want  string
	}{
		{"", `action="/ui/text"`},
		{"?tab=voice", `action="/ui/voice"`},
		{"?tab=photo", `action="/ui/photo"`},
		{"?tab=review", `action="/ui/review"`},
		{"?tab=summary", `action="/ui/summary"`},
		{"?tab=chat", `action="/ui/chat"`},
		{"?tab=insights", `action="/ui/insights"`},
		{"?tab=bogus", `action="/ui/text"`},
	}
	for _, tt := range tests {
		w := doRequest(srv, "GET", "/"+tt.query, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", tt.query, w.Code)
		}
		if !strings.Contains(w.Body.String(), tt.want) {
			t.Errorf("%q: page missing %s", tt.query, tt.want)
		}
	}
}

func TestUITextAndReview(t *testing.T) {
	srv := newTestServer(t, nil)

	w := postForm(srv, "/ui/text", url.Values{"text": {"Walked the dog"}, "date": {"2026-02-14"}})
	body := w.Body.String()
	if w.Code != http.StatusOK || !strings.Contains(body, "entry_id") || !strings.Contains(body, "2026-02-14") {
		t.Fatalf("ui text: %d %s", w.Code, body)
	}

	w = doRequest(srv, "GET", "/ui/review?date=2026-02-14", "", nil)
	if !strings.Contains(w.Body.String(), "Walked the dog") {
		t.Errorf("review page missing entry: %s", w.Body.String())
	}

	w = doRequest(srv, "GET", "/ui/review?start=2026-02-01&emotion=calm", "", nil)
	if !strings.Contains(w.Body.String(), "Walked the dog") {
		t.Errorf("search page missing entry")
	}

	w = postForm(srv, "/ui/text", url.Values{"text": {""}})
	if !strings.Contains(w.Body.String(), "Journal text cannot be empty") {
		t.Errorf("validation error not shown: %s", w.Body.String())
	}
}

func TestUIChatSummaryInsights(t *testing.T) {
	srv := newTestServer(t, nil)

	w := postForm(srv, "/ui/chat", url.Values{"message": {"how am I"}})
	if !strings.Contains(w.Body.String(), "echo: how am I") {
		t.Errorf("chat page: %s", w.Body.String())
	}

	w = doRequest(srv, "GET", "/ui/summary?start=2026-02-12", "", nil)
	if !strings.Contains(w.Body.String(), "2026-02-18") {
		t.Errorf("summary page missing end date")
	}

	w = doRequest(srv, "GET", "/ui/insights?start=2026-02-01&end=2026-02-18", "", nil)
	if !strings.Contains(w.Body.String(), "/v1/charts/trend.png?end=2026-02-18") {
		t.Errorf("insights page missing chart: %s", w.Body.String())
	}
}

func TestUIRequiresSignIn(t *testing.T) {
	srv := newOAuthServer(t)
	w := postForm(srv, "/ui/text", url.Values{"text": {"hi"}})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Errorf("anonymous ui post: %d %q", w.Code, w.Header().Get("Location"))
	}
}
