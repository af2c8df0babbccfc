package scribble

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"squadchat/internal/logging"
)

// DefaultQuickDrawURL is the public simplified-drawings dataset. Each
// category file is ndjson, one drawing per line.
const DefaultQuickDrawURL = "https://storage.googleapis.com/quickdraw_dataset/full/simplified"

// fetchBytes bounds the range request: the first 120KB holds roughly
// 100-150 complete drawings, plenty to choose from.
const fetchBytes = 122880

// Fetcher pulls human drawings from the Quick Draw dataset.
type Fetcher struct {
	baseURL string
	http    *http.Client
	rand    *rand.Rand
}

// NewFetcher creates a fetcher against baseURL (empty means the public
// dataset).
func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultQuickDrawURL
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Fetcher{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type quickDrawLine struct {
	Drawing [][][]float64 `json:"drawing"`
}

// Strokes fetches candidate drawings for word, picks a clean one and
// converts it to canvas commands. Returns an error when nothing suitable
// was found; callers fall back to other drawing sources.
func (f *Fetcher) Strokes(ctx context.Context, word string) ([]Command, error) {
	category := url.PathEscape(Category(strings.ToLower(word)))
	target := f.baseURL + "/" + category + ".ndjson"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", fetchBytes))

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("dataset status %d for %q", resp.StatusCode, word)
	}

	var candidates [][][][]float64
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var parsed quickDrawLine
		// The range request truncates the last line; skip anything that
		// does not parse.
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			continue
		}
		if suitable(parsed.Drawing) {
			candidates = append(candidates, parsed.Drawing)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no suitable drawings for %q", word)
	}

	pool := candidates
	if len(pool) > 50 {
		pool = pool[:50]
	}
	chosen := pool[f.rand.Intn(len(pool))]
	logging.Debug("scribble", "picked dataset drawing for %q: %d strokes", word, len(chosen))
	return ConvertDrawing(chosen), nil
}

// suitable keeps clean, recognizable sketches: 3-14 strokes with 15-200
// total points. Over-detailed drawings animate badly.
func suitable(drawing [][][]float64) bool {
	if len(drawing) < 3 || len(drawing) > 14 {
		return false
	}
	points := 0
	for _, s := range drawing {
		if len(s) >= 2 {
			points += len(s[0])
		}
	}
	return points >= 15 && points <= 200
}
