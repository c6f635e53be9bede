package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedReq struct {
	method  string
	path    string
	auth    string
	version string
	body    map[string]any
}

// notionServer starts an httptest.Server that records requests and answers
// each one with handler's status and body.
func notionServer(t *testing.T, handler func(r capturedReq) (int, string)) (*httptest.Server, func() []capturedReq) {
	t.Helper()
	var mu sync.Mutex
	var reqs []capturedReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c := capturedReq{
			method:  r.Method,
			path:    r.URL.Path,
			auth:    r.Header.Get("Authorization"),
			version: r.Header.Get("Notion-Version"),
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &c.body)
		}
		mu.Lock()
		reqs = append(reqs, c)
		mu.Unlock()

		status, body := handler(c)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedReq {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedReq(nil), reqs...)
	}
}

const questPage = `{
  "object": "page",
  "id": "q1",
  "created_time": "2026-10-01T08:00:00.000Z",
  "archived": false,
  "parent": {"type": "data_source_id", "data_source_id": "catalog"},
  "properties": {
    "Quest Name": {"id": "a", "type": "title", "title": [{"plain_text": "Stretch", "text": {"content": "Stretch"}}]},
    "XP Value": {"id": "b", "type": "number", "number": 10},
    "Times Completed": {"id": "c", "type": "number", "number": null},
    "Last Completed": {"id": "d", "type": "date", "date": {"start": "2026-10-12T09:30:00.000+01:00"}},
    "Skill": {"id": "e", "type": "select", "select": {"name": "Body"}},
    "Done": {"id": "f", "type": "checkbox", "checkbox": true},
    "Quest Master": {"id": "g", "type": "relation", "relation": [{"id": "m1"}]},
    "Formula": {"id": "h", "type": "formula", "formula": {"type": "number", "number": 3}}
  }
}`

func TestNotion_Get(t *testing.T) {
	srv, collect := notionServer(t, func(capturedReq) (int, string) {
		return http.StatusOK, questPage
	})

	n := NewNotion(srv.URL, "secret", "", time.Second)
	rec, err := n.Get(context.Background(), "q1")
	require.NoError(t, err)

	reqs := collect()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].method)
	assert.Equal(t, "/pages/q1", reqs[0].path)
	assert.Equal(t, "Bearer secret", reqs[0].auth)
	assert.Equal(t, DefaultNotionVersion, reqs[0].version)

	assert.Equal(t, "q1", rec.ID)
	assert.Equal(t, "catalog", rec.Collection)
	assert.Equal(t, "Stretch", rec.Text("Quest Name"))
	assert.Equal(t, "Body", rec.Text("Skill"))

	xp, ok := rec.Number("XP Value")
	assert.True(t, ok)
	assert.Equal(t, 10.0, xp)

	_, ok = rec.Number("Times Completed")
	assert.False(t, ok, "null number should read as unset")

	last := rec.Date("Last Completed")
	require.NotNil(t, last)
	assert.True(t, last.Equal(time.Date(2026, 10, 12, 8, 30, 0, 0, time.UTC)))

	assert.True(t, rec.Checkbox("Done"))
	assert.Equal(t, []string{"m1"}, rec.Relation("Quest Master"))
	assert.NotContains(t, rec.Properties, "Formula")
}

func TestNotion_QueryPaginatesAndEncodesFilter(t *testing.T) {
	srv, collect := notionServer(t, func(r capturedReq) (int, string) {
		if r.body["start_cursor"] == nil {
			return http.StatusOK, `{"results": [{"id": "r1", "properties": {}}], "has_more": true, "next_cursor": "c2"}`
		}
		return http.StatusOK, `{"results": [{"id": "r2", "properties": {}}, {"id": "r3", "archived": true, "properties": {}}], "has_more": false, "next_cursor": null}`
	})

	n := NewNotion(srv.URL, "tok", "2025-09-03", time.Second)
	since := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	recs, err := n.Query(context.Background(), "log-ds", And(
		RelationContains("Quest Master", "q1"),
		DateOnOrAfter("Completed On", since),
	))
	require.NoError(t, err)

	require.Len(t, recs, 2, "archived results are dropped")
	assert.Equal(t, "r1", recs[0].ID)
	assert.Equal(t, "r2", recs[1].ID)

	reqs := collect()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/data_sources/log-ds/query", reqs[0].path)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Equal(t, "c2", reqs[1].body["start_cursor"])

	filter, ok := reqs[0].body["filter"].(map[string]any)
	require.True(t, ok, "filter should be sent")
	and, ok := filter["and"].([]any)
	require.True(t, ok)
	require.Len(t, and, 2)
	assert.Equal(t, map[string]any{
		"property": "Quest Master",
		"relation": map[string]any{"contains": "q1"},
	}, and[0])
	assert.Equal(t, map[string]any{
		"property": "Completed On",
		"date":     map[string]any{"on_or_after": "2026-10-15T00:00:00Z"},
	}, and[1])
}

func TestNotion_QueryWithoutFilterSendsNone(t *testing.T) {
	srv, collect := notionServer(t, func(capturedReq) (int, string) {
		return http.StatusOK, `{"results": [], "has_more": false}`
	})

	n := NewNotion(srv.URL, "tok", "", time.Second)
	recs, err := n.Query(context.Background(), "tracker", Filter{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	reqs := collect()
	require.Len(t, reqs, 1)
	assert.NotContains(t, reqs[0].body, "filter")
}

func TestNotion_CreateEncodesProperties(t *testing.T) {
	srv, collect := notionServer(t, func(capturedReq) (int, string) {
		return http.StatusOK, `{"id": "new-row", "parent": {"type": "data_source_id", "data_source_id": "tracker"}, "properties": {}}`
	})

	n := NewNotion(srv.URL, "tok", "", time.Second)
	rec, err := n.Create(context.Background(), "tracker", Properties{
		"Name":         Title("Stretch"),
		"Completed":    Checkbox(false),
		"Quest Master": Relation("q1"),
		"XP Earned":    Number(10),
		"Skill":        RichText("Body"),
		"Completed On": Date(time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.Equal(t, "new-row", rec.ID)
	assert.Equal(t, "tracker", rec.Collection)

	reqs := collect()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/pages", reqs[0].path)
	assert.Equal(t, map[string]any{"type": "data_source_id", "data_source_id": "tracker"}, reqs[0].body["parent"])

	props := reqs[0].body["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"title": []any{map[string]any{"text": map[string]any{"content": "Stretch"}}}}, props["Name"])
	assert.Equal(t, map[string]any{"checkbox": false}, props["Completed"])
	assert.Equal(t, map[string]any{"relation": []any{map[string]any{"id": "q1"}}}, props["Quest Master"])
	assert.Equal(t, map[string]any{"number": 10.0}, props["XP Earned"])
	assert.Equal(t, map[string]any{"rich_text": []any{map[string]any{"text": map[string]any{"content": "Body"}}}}, props["Skill"])
	assert.Equal(t, map[string]any{"date": map[string]any{"start": "2026-10-15T10:00:00Z"}}, props["Completed On"])
}

func TestTextContent_SplitsLongText(t *testing.T) {
	content := func(segs []map[string]any) []string {
		var out []string
		for _, s := range segs {
			out = append(out, s["text"].(map[string]string)["content"])
		}
		return out
	}

	assert.Equal(t, []string{""}, content(textContent("")))
	assert.Equal(t, []string{"Stretch"}, content(textContent("Stretch")))

	exact := strings.Repeat("a", maxTextRunes)
	assert.Equal(t, []string{exact}, content(textContent(exact)))

	// Multi-byte runes must not be cut in half.
	long := strings.Repeat("é", maxTextRunes) + strings.Repeat("b", maxTextRunes) + "ç"
	segs := content(textContent(long))
	require.Len(t, segs, 3)
	assert.Equal(t, strings.Repeat("é", maxTextRunes), segs[0])
	assert.Equal(t, strings.Repeat("b", maxTextRunes), segs[1])
	assert.Equal(t, "ç", segs[2])
	assert.Equal(t, long, strings.Join(segs, ""))
}

func TestNotion_CreateSplitsLongTitle(t *testing.T) {
	srv, collect := notionServer(t, func(capturedReq) (int, string) {
		return http.StatusOK, `{"id": "new-row"}`
	})

	name := strings.Repeat("x", maxTextRunes+5)
	n := NewNotion(srv.URL, "tok", "", time.Second)
	_, err := n.Create(context.Background(), "tracker", Properties{"Name": Title(name)})
	require.NoError(t, err)

	reqs := collect()
	require.Len(t, reqs, 1)
	title := reqs[0].body["properties"].(map[string]any)["Name"].(map[string]any)["title"].([]any)
	require.Len(t, title, 2)
	assert.Equal(t, map[string]any{"text": map[string]any{"content": "xxxxx"}}, title[1])
}

func TestNotion_ArchiveAndUpdate(t *testing.T) {
	srv, collect := notionServer(t, func(capturedReq) (int, string) {
		return http.StatusOK, `{"id": "x"}`
	})

	n := NewNotion(srv.URL, "tok", "", time.Second)
	require.NoError(t, n.Archive(context.Background(), "row-1"))
	require.NoError(t, n.Update(context.Background(), "q1", Properties{"Times Completed": Number(4)}))

	reqs := collect()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPatch, reqs[0].method)
	assert.Equal(t, "/pages/row-1", reqs[0].path)
	assert.Equal(t, true, reqs[0].body["archived"])
	assert.NotContains(t, reqs[0].body, "properties")

	assert.Equal(t, "/pages/q1", reqs[1].path)
	assert.NotContains(t, reqs[1].body, "archived")
	assert.Equal(t, map[string]any{"Times Completed": map[string]any{"number": 4.0}}, reqs[1].body["properties"])
}

func TestNotion_ErrorStatus(t *testing.T) {
	srv, _ := notionServer(t, func(capturedReq) (int, string) {
		return http.StatusNotFound, `{"object": "error", "status": 404, "code": "object_not_found", "message": "Could not find page"}`
	})

	n := NewNotion(srv.URL, "tok", "", time.Second)
	_, err := n.Get(context.Background(), "missing")
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "get", te.Op)
	assert.Equal(t, http.StatusNotFound, te.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "object_not_found: Could not find page")
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestNotion_ServerErrorIsNotNotFound(t *testing.T) {
	srv, _ := notionServer(t, func(capturedReq) (int, string) {
		return http.StatusBadGateway, `upstream down`
	})

	n := NewNotion(srv.URL, "tok", "", time.Second)
	err := n.Archive(context.Background(), "row")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Contains(t, err.Error(), "archive failed: 502")
}

func TestNotion_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	n := NewNotion(srv.URL, "tok", "", time.Second)
	_, err := n.Query(context.Background(), "tracker", Filter{})
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "query", te.Op)
	assert.Zero(t, te.Status)
}

func TestNewNotion_Defaults(t *testing.T) {
	n := NewNotion("", "tok", "", 0)
	assert.Equal(t, DefaultNotionURL, n.baseURL)
	assert.Equal(t, DefaultNotionVersion, n.version)
	assert.Equal(t, 30*time.Second, n.client.Timeout)

	n = NewNotion("http://example.test/v1/", "tok", "", 0)
	assert.Equal(t, "http://example.test/v1", n.baseURL)
}
