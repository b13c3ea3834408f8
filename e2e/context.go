// Package e2e drives end-to-end scenarios against a running chronicle
// server. The target is selected with E2E_BASE_URL and defaults to a
// local instance.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// TestContext carries shared state between steps: the HTTP client, the
// last response, and values saved by earlier steps in a scenario.
type TestContext struct {
	baseURL string
	client  *http.Client

	lastStatus int
	lastBody   interface{}

	token      string
	documentID string
}

func NewTestContext() *TestContext {
	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state. The token survives within a scenario
// only, so scenarios never leak authentication into each other.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.token = ""
	tc.documentID = ""
}

func (tc *TestContext) AdminEmail() string {
	if v := os.Getenv("E2E_ADMIN_EMAIL"); v != "" {
		return v
	}
	return "admin@example.com"
}

func (tc *TestContext) AdminPassword() string {
	if v := os.Getenv("E2E_ADMIN_PASSWORD"); v != "" {
		return v
	}
	return "change-me"
}

func (tc *TestContext) SetToken(token string)    { tc.token = token }
func (tc *TestContext) GetToken() string         { return tc.token }
func (tc *TestContext) SetDocumentID(id string)  { tc.documentID = id }
func (tc *TestContext) GetDocumentID() string    { return tc.documentID }
func (tc *TestContext) LastStatus() int          { return tc.lastStatus }

// POST sends a JSON body. The saved token, if any, is attached.
func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body)
}

// PUT sends a JSON body. The saved token, if any, is attached.
func (tc *TestContext) PUT(path string, body interface{}) error {
	return tc.do(http.MethodPut, path, body)
}

// GET sends a request with optional extra headers.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.doWithHeaders(http.MethodGet, path, nil, headers)
}

// DELETE sends a request. The saved token, if any, is attached.
func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body interface{}) error {
	return tc.doWithHeaders(method, path, body, nil)
}

func (tc *TestContext) doWithHeaders(method, path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(raw) > 0 {
		var parsed interface{}
		if err := json.Unmarshal(raw, &parsed); err == nil {
			tc.lastBody = parsed
		}
	}
	return nil
}

// GetResponseField resolves a dotted path into the last JSON response.
// Numeric segments index into arrays, so "data.0.action" reads the action
// of the first returned record.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no response body captured")
	}
	current := tc.lastBody
	for _, segment := range strings.Split(field, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, fmt.Errorf("field %q not present in response", field)
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil {
				return nil, fmt.Errorf("field %q: %q is not an array index", field, segment)
			}
			if idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("field %q: index %d out of range", field, idx)
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("field %q: cannot descend into %T", field, current)
		}
	}
	return current, nil
}
