// Package quizapi talks to a QuizAPI-compatible trivia provider and
// normalises its lettered answer slots into a plain options list.
package quizapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingAPIKey = errors.New("quiz api key not configured")
	ErrEmptyResult   = errors.New("quiz api returned no questions")
)

// StatusError reports a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("quiz api responded %d: %s", e.StatusCode, e.Body)
}

// Params selects the batch to fetch. Empty strings are omitted.
type Params struct {
	Category   string
	Difficulty string
	Limit      int
}

// RawQuestion mirrors the provider schema.
type RawQuestion struct {
	ID                     int                `json:"id"`
	Question               string             `json:"question"`
	Description            *string            `json:"description"`
	Answers                map[string]*string `json:"answers"`
	MultipleCorrectAnswers string             `json:"multiple_correct_answers"`
	CorrectAnswers         map[string]string  `json:"correct_answers"`
	Explanation            *string            `json:"explanation"`
	Category               string             `json:"category"`
	Difficulty             string             `json:"difficulty"`
}

// Client is a thin HTTP client for the provider.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client; a nil httpClient gets one with the given timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: httpClient}
}

// Fetch retrieves one batch of questions.
func (c *Client) Fetch(ctx context.Context, p Params) ([]RawQuestion, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	q := url.Values{}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.Difficulty != "" {
		q.Set("difficulty", p.Difficulty)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	endpoint := c.baseURL + "/questions"
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build quiz request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call quiz api: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var questions []RawQuestion
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		return nil, fmt.Errorf("decode quiz response: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrEmptyResult
	}
	return questions, nil
}
