package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"bookmark-manager-backend/pkg/logger"
	"bookmark-manager-backend/pkg/models"
)

const (
	maxSuggestions   = 5
	maxRetryAttempts = 3
	rateWindow       = time.Minute
)

var errRateLimited = errors.New("tag suggestion rate limit reached")

// TagSuggesterConfig configures the chat-completion backend used for tag
// suggestions.
type TagSuggesterConfig struct {
	APIURL        string
	APIKey        string
	Model         string
	RatePerMinute int
}

// TagSuggester asks a chat-completion API for tag suggestions. Calls are
// rate limited with a sliding window and retried with exponential backoff
// on transient failures.
type TagSuggester struct {
	cfg    TagSuggesterConfig
	client *http.Client
	log    logger.Logger

	mu    sync.Mutex
	calls []time.Time
}

func NewTagSuggester(cfg TagSuggesterConfig, log logger.Logger) *TagSuggester {
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 10
	}
	return &TagSuggester{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

// Enabled reports whether an API key is configured.
func (s *TagSuggester) Enabled() bool {
	return s.cfg.APIKey != ""
}

// Suggest returns up to five normalized tag names for a bookmark. The
// existing tag names are offered to the model for reuse.
func (s *TagSuggester) Suggest(ctx context.Context, bookmark *models.Bookmark, existingTags []string) ([]string, error) {
	if !s.Enabled() {
		return []string{}, nil
	}
	if err := s.reserveSlot(); err != nil {
		return nil, err
	}

	content, err := s.complete(ctx, buildPrompt(bookmark, existingTags))
	if err != nil {
		return nil, err
	}
	return parseTagList(content), nil
}

// reserveSlot applies the sliding window: timestamps older than the window
// are pruned, and the call is rejected once the window is full.
func (s *TagSuggester) reserveSlot() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-rateWindow)
	kept := s.calls[:0]
	for _, t := range s.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.calls = kept

	if len(s.calls) >= s.cfg.RatePerMinute {
		return errRateLimited
	}
	s.calls = append(s.calls, time.Now())
	return nil
}

// IsRateLimited reports whether err came from the sliding window limiter.
func IsRateLimited(err error) bool {
	return errors.Is(err, errRateLimited)
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete performs the chat-completion call, retrying on 429, 5xx and
// network errors with exponential backoff.
func (s *TagSuggester) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a bookmark tagging assistant. Reply with a comma-separated list of short lowercase tags, nothing else."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	b := &backoff.Backoff{
		Min:    2 * time.Second,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		content, retryable, err := s.attempt(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable || attempt == maxRetryAttempts {
			break
		}

		wait := b.Duration()
		s.log.Warn("tag suggestion attempt failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func (s *TagSuggester) attempt(ctx context.Context, body []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return "", true, fmt.Errorf("completion request: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", false, fmt.Errorf("completion request: status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("empty completion response")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

func buildPrompt(bookmark *models.Bookmark, existingTags []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Suggest up to %d tags for this bookmark.\n", maxSuggestions)
	fmt.Fprintf(&sb, "URL: %s\n", bookmark.URL)
	fmt.Fprintf(&sb, "Title: %s\n", bookmark.Title)
	if bookmark.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", bookmark.Description)
	}
	if len(existingTags) > 0 {
		fmt.Fprintf(&sb, "Prefer reusing these existing tags when relevant: %s\n", strings.Join(existingTags, ", "))
	}
	return sb.String()
}

// parseTagList accepts the model output as a JSON array, comma-separated
// line, or one tag per line. Tags are normalized and deduplicated
// preserving order, capped at maxSuggestions.
func parseTagList(content string) []string {
	content = strings.TrimSpace(content)

	var raw []string
	var asJSON []string
	if err := json.Unmarshal([]byte(content), &asJSON); err == nil {
		raw = asJSON
	} else if strings.Contains(content, ",") {
		raw = strings.Split(content, ",")
	} else {
		raw = strings.Split(content, "\n")
	}

	seen := make(map[string]struct{}, len(raw))
	tags := []string{}
	for _, candidate := range raw {
		candidate = strings.Trim(strings.TrimSpace(candidate), `"'`+"`")
		candidate = strings.TrimPrefix(candidate, "#")
		name, err := models.NormalizeTagName(candidate)
		if err != nil {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
		if len(tags) == maxSuggestions {
			break
		}
	}
	return tags
}
