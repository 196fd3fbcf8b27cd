// Package catalog holds the offline jobs that populate and enrich the tool
// catalog: importing the public API directory, scraping its README, and
// backfilling descriptions with the completion model.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/describe"
	"github.com/sakif/toolhub/internal/model"
	"github.com/sakif/toolhub/internal/repository"
)

const (
	// FetchLimit is how many directory entries the fetch job imports.
	FetchLimit = 20

	ScrapedCategory = "Public APIs"

	// PendingDescription marks rows whose description still needs generating.
	PendingDescription = "Scraped from public-apis list"
)

// Describer produces a description, falling back to a fixed text on failure.
// *describe.Generator satisfies it.
type Describer interface {
	DescribeOrFallback(ctx context.Context, name, prompt string) string
}

// StatusError is returned when a source answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: %s returned status %d", e.URL, e.StatusCode)
}

type Sources struct {
	DirectoryURL string // JSON list of APIs
	ReadmeURL    string // markdown README with API tables
}

type Jobs struct {
	store     repository.CatalogRepository
	describer Describer
	client    *http.Client
	sources   Sources
	logger    *zap.Logger
}

func NewJobs(store repository.CatalogRepository, describer Describer, sources Sources, logger *zap.Logger) *Jobs {
	return &Jobs{
		store:     store,
		describer: describer,
		client:    &http.Client{Timeout: 30 * time.Second},
		sources:   sources,
		logger:    logger,
	}
}

// WithHTTPClient swaps the client used to reach the sources.
func (j *Jobs) WithHTTPClient(c *http.Client) *Jobs {
	j.client = c
	return j
}

// Result counts what a job did.
type Result struct {
	Seen     int // rows read from the source
	Inserted int // rows written
	Skipped  int // rows already present
}

type directoryEntry struct {
	API         *string `json:"API"`
	Description *string `json:"Description"`
	Category    *string `json:"Category"`
	Link        *string `json:"Link"`
}

type directoryResponse struct {
	Entries []directoryEntry `json:"entries"`
}

// Fetch imports the first FetchLimit entries of the JSON directory.
// Missing fields get placeholder values; URLs already stored are skipped.
func (j *Jobs) Fetch(ctx context.Context) (Result, error) {
	var res Result

	body, err := j.get(ctx, j.sources.DirectoryURL)
	if err != nil {
		return res, err
	}
	defer body.Close()

	var payload directoryResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return res, fmt.Errorf("catalog: decoding directory: %w", err)
	}

	entries := payload.Entries
	if len(entries) > FetchLimit {
		entries = entries[:FetchLimit]
	}

	for _, e := range entries {
		res.Seen++
		tool := &model.Tool{
			Name:        valueOr(e.API, "No Name"),
			Description: model.StringPtr(valueOr(e.Description, "No Description")),
			Category:    valueOr(e.Category, "Uncategorized"),
			URL:         valueOr(e.Link, "#"),
		}
		if err := j.insert(ctx, tool, &res); err != nil {
			return res, err
		}
	}

	j.logger.Info("directory fetch finished",
		zap.Int("seen", res.Seen),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Scrape parses the README tables and stores every new API under the
// "Public APIs" category. Rows without a description get one from the
// completion model.
func (j *Jobs) Scrape(ctx context.Context) (Result, error) {
	var res Result

	body, err := j.get(ctx, j.sources.ReadmeURL)
	if err != nil {
		return res, err
	}
	defer body.Close()

	entries, err := ParseReadme(body)
	if err != nil {
		return res, fmt.Errorf("catalog: reading readme: %w", err)
	}

	known, err := j.store.ListURLs(ctx)
	if err != nil {
		return res, fmt.Errorf("catalog: loading known urls: %w", err)
	}

	for _, e := range entries {
		res.Seen++
		if _, ok := known[e.URL]; ok {
			res.Skipped++
			continue
		}

		desc := e.Description
		if desc == "" {
			desc = j.describer.DescribeOrFallback(ctx, e.Name, describe.PublicAPIPrompt(e.Name))
		}

		tool := &model.Tool{
			Name:        e.Name,
			Description: model.StringPtr(desc),
			Category:    ScrapedCategory,
			URL:         e.URL,
		}
		if err := j.insert(ctx, tool, &res); err != nil {
			return res, err
		}
		known[e.URL] = struct{}{}
	}

	j.logger.Info("readme scrape finished",
		zap.Int("seen", res.Seen),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Backfill regenerates the description of every tool still carrying
// PendingDescription. progress, if non-nil, is called before each tool.
func (j *Jobs) Backfill(ctx context.Context, progress func(model.Tool)) (int, error) {
	pending, err := j.store.ListByDescription(ctx, PendingDescription)
	if err != nil {
		return 0, fmt.Errorf("catalog: listing pending tools: %w", err)
	}

	updated := 0
	for _, tool := range pending {
		if progress != nil {
			progress(tool)
		}
		desc := j.describer.DescribeOrFallback(ctx, tool.Name, describe.Prompt(tool.Name))
		if err := j.store.UpdateDescription(ctx, tool.ID, desc); err != nil {
			return updated, fmt.Errorf("catalog: updating tool %d: %w", tool.ID, err)
		}
		updated++
	}

	j.logger.Info("description backfill finished", zap.Int("updated", updated))
	return updated, nil
}

func (j *Jobs) insert(ctx context.Context, tool *model.Tool, res *Result) error {
	inserted, err := j.store.InsertIgnore(ctx, tool)
	if err != nil {
		return fmt.Errorf("catalog: storing %q: %w", tool.URL, err)
	}
	if inserted {
		res.Inserted++
	} else {
		res.Skipped++
	}
	return nil
}

// get performs a GET and returns the body of a 200 response.
func (j *Jobs) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: building request: %w", err)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetching %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// valueOr returns fallback when the JSON field was absent or null.
func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
