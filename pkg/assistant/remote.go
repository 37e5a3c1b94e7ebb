package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// maxResponseSize bounds the body read from a remote assistant.
const maxResponseSize = 64 << 10

// Remote is an Assistant backed by an HTTP service. It posts
// {"prompt": "..."} to Endpoint and decodes the response with Decode.
// A 204 No Content response means no suggestion.
type Remote struct {
	Endpoint string
	Client   *http.Client
	// Header is added to every request, for example an API key.
	Header http.Header
}

// NewRemote creates a Remote with a client timing out after timeout.
func NewRemote(endpoint string, timeout time.Duration) *Remote {
	return &Remote{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
		Header:   make(http.Header),
	}
}

// Suggest implements Assistant.
func (r *Remote) Suggest(ctx context.Context, prompt string) (*Suggestion, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, errors.Wrap(err, "encode prompt")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.Header {
		req.Header[k] = v
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "assistant request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("assistant returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "read assistant response")
	}
	return Decode(data)
}
