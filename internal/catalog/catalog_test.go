package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/model"
)

// ===== FAKES =====

// memStore is an in-memory CatalogRepository keyed by URL.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	tools  []model.Tool
}

func (m *memStore) InsertIgnore(_ context.Context, tool *model.Tool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tools {
		if t.URL == tool.URL {
			return false, nil
		}
	}
	m.nextID++
	tool.ID = m.nextID
	m.tools = append(m.tools, *tool)
	return true, nil
}

func (m *memStore) ListURLs(context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make(map[string]struct{}, len(m.tools))
	for _, t := range m.tools {
		urls[t.URL] = struct{}{}
	}
	return urls, nil
}

func (m *memStore) ListByDescription(_ context.Context, description string) ([]model.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Tool
	for _, t := range m.tools {
		if t.Description != nil && *t.Description == description {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) UpdateDescription(_ context.Context, id int64, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tools {
		if m.tools[i].ID == id {
			m.tools[i].Description = model.StringPtr(description)
			return nil
		}
	}
	return apperror.NotFound("tool", fmt.Sprint(id))
}

func (m *memStore) byURL(url string) (model.Tool, bool) {
	for _, t := range m.tools {
		if t.URL == url {
			return t, true
		}
	}
	return model.Tool{}, false
}

// stubDescriber records which names it was asked about.
type stubDescriber struct {
	calls   []string
	prompts []string
}

func (s *stubDescriber) DescribeOrFallback(_ context.Context, name, prompt string) string {
	s.calls = append(s.calls, name)
	s.prompts = append(s.prompts, prompt)
	return "generated: " + name
}

func newJobs(t *testing.T, store *memStore, d Describer, srv *httptest.Server) *Jobs {
	t.Helper()
	return NewJobs(store, d, Sources{
		DirectoryURL: srv.URL + "/entries",
		ReadmeURL:    srv.URL + "/README.md",
	}, zap.NewNop()).WithHTTPClient(srv.Client())
}

func serve(t *testing.T, path, contentType, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ===== FETCH =====

func TestFetch_AppliesDefaults(t *testing.T) {
	body := `{"count": 2, "entries": [
		{"API": "Cat Facts", "Description": "Daily cat facts", "Category": "Animals", "Link": "https://catfact.ninja"},
		{"Category": "Misc", "Link": "https://partial.example.com"}
	]}`
	srv := serve(t, "/entries", "application/json", body, http.StatusOK)
	store := &memStore{}

	res, err := newJobs(t, store, &stubDescriber{}, srv).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Seen: 2, Inserted: 2}, res)

	partial, ok := store.byURL("https://partial.example.com")
	require.True(t, ok)
	assert.Equal(t, "No Name", partial.Name)
	assert.Equal(t, "No Description", *partial.Description)
	assert.Equal(t, "Misc", partial.Category)
}

func TestFetch_LimitsEntries(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"entries": [`)
	for i := 0; i < FetchLimit+5; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"API": "api-%d", "Link": "https://api-%d.example.com"}`, i, i)
	}
	sb.WriteString(`]}`)
	srv := serve(t, "/entries", "application/json", sb.String(), http.StatusOK)
	store := &memStore{}

	res, err := newJobs(t, store, &stubDescriber{}, srv).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FetchLimit, res.Inserted)
	assert.Len(t, store.tools, FetchLimit)
}

func TestFetch_SkipsKnownURLs(t *testing.T) {
	body := `{"entries": [{"API": "Cat Facts", "Link": "https://catfact.ninja"}]}`
	srv := serve(t, "/entries", "application/json", body, http.StatusOK)
	store := &memStore{}
	jobs := newJobs(t, store, &stubDescriber{}, srv)

	_, err := jobs.Fetch(context.Background())
	require.NoError(t, err)

	res, err := jobs.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Seen: 1, Skipped: 1}, res)
	assert.Len(t, store.tools, 1)
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := serve(t, "/entries", "text/plain", "down", http.StatusServiceUnavailable)
	store := &memStore{}

	_, err := newJobs(t, store, &stubDescriber{}, srv).Fetch(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Empty(t, store.tools)
}

// ===== SCRAPE =====

func TestScrape(t *testing.T) {
	srv := serve(t, "/README.md", "text/markdown", sampleReadme, http.StatusOK)
	store := &memStore{}
	// Pre-existing row: must be skipped, not duplicated.
	_, _ = store.InsertIgnore(context.Background(), &model.Tool{
		Name: "Dogs", Category: "Animals", URL: "https://dog.ceo/dog-api/",
	})
	describer := &stubDescriber{}

	res, err := newJobs(t, store, describer, srv).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Seen: 4, Inserted: 3, Skipped: 1}, res)

	cat, ok := store.byURL("https://catfact.ninja")
	require.True(t, ok)
	assert.Equal(t, ScrapedCategory, cat.Category)
	assert.Equal(t, "Daily cat facts", *cat.Description)

	// Only the row with no usable description went to the model.
	assert.Equal(t, []string{"Nav"}, describer.calls)
	assert.Contains(t, describer.prompts[0], "is a public API")
	nav, _ := store.byURL("https://nav.example.com")
	assert.Equal(t, "generated: Nav", *nav.Description)
}

func TestScrape_DuplicateRowsInReadme(t *testing.T) {
	readme := "| [A](https://a.example.com) | first | x | x | x |\n" +
		"| [A again](https://a.example.com) | second | x | x | x |\n"
	srv := serve(t, "/README.md", "text/markdown", readme, http.StatusOK)
	store := &memStore{}

	res, err := newJobs(t, store, &stubDescriber{}, srv).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	a, _ := store.byURL("https://a.example.com")
	assert.Equal(t, "A", a.Name)
}

// ===== BACKFILL =====

func TestBackfill(t *testing.T) {
	store := &memStore{}
	ctx := context.Background()
	for _, name := range []string{"Beta", "Alpha"} {
		_, _ = store.InsertIgnore(ctx, &model.Tool{
			Name:        name,
			Description: model.StringPtr(PendingDescription),
			Category:    ScrapedCategory,
			URL:         "https://" + strings.ToLower(name) + ".example.com",
		})
	}
	_, _ = store.InsertIgnore(ctx, &model.Tool{
		Name: "Done", Description: model.StringPtr("already fine"), URL: "https://done.example.com",
	})
	describer := &stubDescriber{}
	jobs := NewJobs(store, describer, Sources{}, zap.NewNop())

	var progressed []string
	n, err := jobs.Backfill(ctx, func(tool model.Tool) { progressed = append(progressed, tool.Name) })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Beta", "Alpha"}, progressed)

	sorted := append([]string(nil), describer.calls...)
	sort.Strings(sorted)
	assert.Equal(t, []string{"Alpha", "Beta"}, sorted)

	done, _ := store.byURL("https://done.example.com")
	assert.Equal(t, "already fine", *done.Description)
	beta, _ := store.byURL("https://beta.example.com")
	assert.Equal(t, "generated: Beta", *beta.Description)

	// Second run finds nothing left to do.
	n, err = jobs.Backfill(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
