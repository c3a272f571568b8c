// Package github collects a worker's commits from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"timesheet-automation/model"
)

const defaultBaseURL = "https://api.github.com"

// Repo identifies one repository to collect commits from.
type Repo struct {
	Owner string
	Name  string
}

// Client fetches commits authored by one user. Upstream failures are
// absorbed per repository: a broken repo is skipped, never fatal.
type Client struct {
	token      string
	username   string
	repos      []Repo
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

// NewClient creates a GitHub commit collector.
func NewClient(token, username string, repos []Repo, opts ...Option) *Client {
	c := &Client{
		token:      token,
		username:   username,
		repos:      repos,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCommits returns the user's commits for one calendar day across
// all configured repositories, ordered by timestamp.
func (c *Client) ListCommits(ctx context.Context, date string) ([]model.Commit, error) {
	if c.token == "" {
		slog.Warn("github access token is empty, skipping commit collection")
		return nil, nil
	}

	var all []model.Commit
	for _, repo := range c.repos {
		commits, err := c.listRepoCommits(ctx, repo, date)
		if err != nil {
			slog.Warn("failed to fetch commits, skipping repo",
				"repo", repo.Owner+"/"+repo.Name, "date", date, "error", err)
			continue
		}
		all = append(all, commits...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all, nil
}

func (c *Client) listRepoCommits(ctx context.Context, repo Repo, date string) ([]model.Commit, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits", c.baseURL, repo.Owner, repo.Name)

	q := url.Values{}
	q.Set("author", c.username)
	q.Set("since", date+"T00:00:00Z")
	q.Set("until", date+"T23:59:59Z")
	q.Set("per_page", "100")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "timesheet-automation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var items []commitItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	repoName := repo.Owner + "/" + repo.Name
	commits := make([]model.Commit, 0, len(items))
	for _, item := range items {
		commits = append(commits, model.Commit{
			Hash:      item.SHA,
			Message:   item.Commit.Message,
			Timestamp: item.Commit.Author.Date,
			Repo:      repoName,
		})
	}
	return commits, nil
}

// GitHub API types

type commitItem struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}
