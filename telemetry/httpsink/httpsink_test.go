// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package httpsink

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/telemetry"
)

func payload() telemetry.Payload {
	r := caps.NewReport(caps.Info{DeviceID: "dev", VendorID: 0x1002, Features: map[caps.FeatureName]bool{caps.FeatureCompute: true}})
	return telemetry.NewBuilder().BuildEvent(telemetry.EventInitialized, "webgpu", r, &telemetry.Performance{InitMs: 30}, nil)
}

func TestSendPostsJSON(t *testing.T) {
	var got telemetry.Payload
	var auth, ctype, eventHdr string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		auth = r.Header.Get("Authorization")
		ctype = r.Header.Get("Content-Type")
		eventHdr = r.Header.Get("X-G3D-Event-Id")
		body, _ := io.ReadAll(r.Body)
		p, err := telemetry.Decode(body)
		if err != nil {
			t.Errorf("Decode: %v", err)
		}
		got = p
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s, err := New(srv.URL+"/v1/events", WithBearerToken("secret"), WithClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	p := payload()
	if err := s.Send(context.Background(), p); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.EventID != p.EventID || got.BackendID != "webgpu" || got.Performance.InitMs != 30 {
		t.Errorf("server received %+v", got)
	}
	if auth != "Bearer secret" || ctype != "application/json" || eventHdr != p.EventID {
		t.Errorf("headers: auth=%q ctype=%q event=%q", auth, ctype, eventHdr)
	}
}

func TestSendStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "collector overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, _ := New(srv.URL)
	err := s.Send(context.Background(), payload())
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "collector overloaded") {
		t.Errorf("err = %v", err)
	}
}

func TestSendInvalidPayload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()

	s, _ := New(srv.URL)
	if err := s.Send(context.Background(), telemetry.Payload{}); !errors.Is(err, telemetry.ErrInvalidPayload) {
		t.Errorf("err = %v", err)
	}
	if hits.Load() != 0 {
		t.Error("invalid payload reached the server")
	}
}

func TestSendHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-release }))
	defer srv.Close()
	defer close(release)

	s, _ := New(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Send(ctx, payload()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestEmitterRetriesOverHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, _ := New(srv.URL)
	arch := telemetry.NewArchive(4)
	e := telemetry.NewEmitter(s,
		telemetry.WithArchive(arch),
		telemetry.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	defer e.Shutdown()

	e.EnqueueAndTransmit(payload())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 3 {
		t.Errorf("requests = %d, want 3", hits.Load())
	}
	if recs := arch.Snapshot(); len(recs) != 1 || recs[0].Outcome != telemetry.OutcomeDelivered {
		t.Errorf("archive = %+v", recs)
	}
}

func TestNewRejectsEmptyEndpoint(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New accepted empty endpoint")
	}
}
