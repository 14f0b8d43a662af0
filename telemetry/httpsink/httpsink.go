// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package httpsink delivers telemetry payloads as JSON over HTTP.
package httpsink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"github.com/gogpu/g3d/telemetry"
)

// ErrStatus is returned when the collector answers with a non-2xx status.
var ErrStatus = errors.New("httpsink: unexpected status")

// maxErrorBody bounds how much of an error response is quoted.
const maxErrorBody = 512

// HTTPClient is the subset of *http.Client used by Sink.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sink posts each payload to an endpoint.
type Sink struct {
	client   HTTPClient
	endpoint string
	token    string
	agent    string
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient replaces the default http.Client.
func WithClient(c HTTPClient) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithBearerToken sets the Authorization header.
func WithBearerToken(token string) Option {
	return func(s *Sink) { s.token = token }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Sink) { s.agent = ua }
}

// New creates a sink posting to endpoint.
func New(endpoint string, opts ...Option) (*Sink, error) {
	if endpoint == "" {
		return nil, errors.New("httpsink: empty endpoint")
	}
	s := &Sink{
		client:   http.DefaultClient,
		endpoint: endpoint,
		agent:    "g3d-telemetry",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send implements telemetry.Sink.
func (s *Sink) Send(ctx context.Context, p telemetry.Payload) error {
	body, err := telemetry.Encode(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httpsink: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.agent)
	req.Header.Set("X-G3D-Event-Id", p.EventID)
	req.Header.Set("X-G3D-OSArch", runtime.GOOS+"/"+runtime.GOARCH)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpsink: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
