// Package slack collects a worker's own chat messages through the
// Slack search API.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"timesheet-automation/model"
)

const defaultBaseURL = "https://slack.com"

// Client searches messages sent by one user. Rate limiting returns the
// partial result collected so far; other failures return empty.
type Client struct {
	token      string
	userID     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a Slack message collector.
func NewClient(token, userID string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		userID:     userID,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListMessages returns the user's messages for one calendar day,
// ordered by timestamp. Pagination is followed until exhausted.
func (c *Client) ListMessages(ctx context.Context, date string) ([]model.Message, error) {
	if c.token == "" || c.userID == "" {
		slog.Warn("slack token or user id missing, skipping message collection")
		return nil, nil
	}

	var messages []model.Message
	page := 1
	for {
		result, err := c.search(ctx, date, page)
		if err != nil {
			if isRateLimited(err) {
				slog.Warn("slack rate limit reached, returning partial results",
					"date", date, "collected", len(messages))
				return messages, nil
			}
			slog.Warn("failed to fetch slack messages", "date", date, "error", err)
			return nil, nil
		}

		for _, match := range result.Messages.Matches {
			if match.Type != "message" || match.TS == "" {
				continue
			}
			messages = append(messages, model.Message{
				Text:        match.Text,
				Channel:     match.Channel.ID,
				ChannelName: match.Channel.Name,
				Timestamp:   tsToTime(match.TS),
				Permalink:   match.Permalink,
			})
		}

		if page >= result.Messages.Paging.Pages {
			break
		}
		page++
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

func (c *Client) search(ctx context.Context, date string, page int) (*searchResponse, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("from:<@%s> on:%s", c.userID, date))
	q.Set("count", "100")
	q.Set("page", strconv.Itoa(page))

	endpoint := c.baseURL + "/api/search.messages?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !result.OK {
		if result.Error == "ratelimited" {
			return nil, errRateLimited
		}
		return nil, fmt.Errorf("slack API error: %s", result.Error)
	}

	return &result, nil
}

var errRateLimited = fmt.Errorf("ratelimited")

func isRateLimited(err error) bool {
	return err == errRateLimited
}

// tsToTime converts a Slack "seconds.micros" timestamp.
func tsToTime(ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Slack API types

type searchResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Messages struct {
		Matches []struct {
			Type    string `json:"type"`
			Text    string `json:"text"`
			TS      string `json:"ts"`
			Channel struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"channel"`
			Permalink string `json:"permalink"`
		} `json:"matches"`
		Paging struct {
			Pages int `json:"pages"`
		} `json:"paging"`
	} `json:"messages"`
}
