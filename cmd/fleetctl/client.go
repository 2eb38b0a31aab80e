package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiPrefix = "/api/v1"

type fleetClient struct {
	baseURL string
	actor   string
	http    *http.Client
}

func newClient() *fleetClient {
	return &fleetClient{
		baseURL: serverURL,
		actor:   actor,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError carries the server's error envelope.
type apiError struct {
	Status   int
	Message  string           `json:"error"`
	Rule     string           `json:"rule"`
	Blockers map[string]int64 `json:"blockers"`
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	if e.Rule != "" {
		msg += fmt.Sprintf(" (rule %s)", e.Rule)
	}
	return msg
}

// do sends a request and decodes a successful JSON response into v. v may
// be nil.
func (c *fleetClient) do(method, path string, body, v any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.actor != "" {
		req.Header.Set("X-Fleet-Actor", c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(raw))
		}
		return apiErr
	}
	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	return nil
}

// getJSON performs a GET request and decodes the response.
func (c *fleetClient) getJSON(path string, v any) error {
	return c.do(http.MethodGet, path, nil, v)
}

// getRaw performs a GET request and returns the raw JSON object.
func (c *fleetClient) getRaw(path string) (map[string]any, error) {
	var result map[string]any
	if err := c.getJSON(path, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *fleetClient) postJSON(path string, body, v any) error {
	return c.do(http.MethodPost, path, body, v)
}

func (c *fleetClient) patchJSON(path string, body, v any) error {
	return c.do(http.MethodPatch, path, body, v)
}

func (c *fleetClient) delete(path string) error {
	return c.do(http.MethodDelete, path, nil, nil)
}
