// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gogpu/g3d/internal/config"
	"github.com/gogpu/g3d/negotiate"
	"github.com/gogpu/g3d/telemetry"
	"github.com/gogpu/g3d/telemetry/sqlitesink"
)

// isolate keeps the user's config file and G3D_* variables out of a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "G3D_") {
			t.Setenv(k, "")
		}
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out, io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDetectJSON(t *testing.T) {
	isolate(t)
	out, err := run(t, "detect", "--noop", "--json")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var rep detectReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if rep.Selected != "webgpu" {
		t.Errorf("Selected = %q, want webgpu", rep.Selected)
	}
	if !rep.Features["COMPUTE"] {
		t.Errorf("features = %v, want COMPUTE", rep.Features)
	}
}

func TestDetectDisabledFeatureFallsBack(t *testing.T) {
	isolate(t)
	out, err := run(t, "detect", "--noop", "--disable-feature", "compute")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !strings.Contains(out, "selected: vulkan") || !strings.Contains(out, "- COMPUTE") {
		t.Errorf("output:\n%s", out)
	}
}

func TestDetectDenied(t *testing.T) {
	isolate(t)
	out, err := run(t, "detect", "--noop", "--json", "--backend", "webgpu", "--disable-feature", "compute")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var rep detectReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Selected != "" || len(rep.Denied) != 1 || !strings.Contains(rep.Denied[0], "COMPUTE") {
		t.Errorf("report = %+v", rep)
	}
}

func TestNegotiateStoresTelemetry(t *testing.T) {
	isolate(t)
	db := filepath.Join(t.TempDir(), "events.db")
	out, err := run(t, "negotiate", "--noop", "--json", "--frames", "3",
		"--backend", "vulkan", "--telemetry-log=false", "--telemetry-db", db)
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	var res sessionResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Backend != "vulkan" || res.Frames != 3 || res.Delivered != 1 || res.Dropped != 0 {
		t.Errorf("result = %+v", res)
	}

	s, err := sqlitesink.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Events(context.Background(), telemetry.EventInitialized, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].BackendID != "vulkan" {
		t.Errorf("stored events = %+v", got)
	}

	out, err = run(t, "events", "--telemetry-db", db, "--type", "initialized")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if !strings.Contains(out, "INITIALIZED") || !strings.Contains(out, got[0].EventID) {
		t.Errorf("events output:\n%s", out)
	}
}

func TestNegotiateDenied(t *testing.T) {
	isolate(t)
	db := filepath.Join(t.TempDir(), "events.db")
	out, err := run(t, "negotiate", "--noop", "--backend", "webgpu", "--disable-feature", "COMPUTE",
		"--telemetry-log=false", "--telemetry-db", db)
	if !errors.Is(err, negotiate.ErrDenied) {
		t.Fatalf("negotiate = %v, want ErrDenied", err)
	}
	if !strings.Contains(out, "backend:   denied") || !strings.Contains(out, "1 delivered") {
		t.Errorf("output:\n%s", out)
	}

	s, err := sqlitesink.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	counts, err := s.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts[telemetry.EventDenied] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestNegotiatePostsToCollector(t *testing.T) {
	isolate(t)
	var (
		mu    sync.Mutex
		auth  []string
		types []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		p, err := telemetry.Decode(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		types = append(types, string(p.EventType))
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	_, err := run(t, "negotiate", "--noop", "--frames", "1", "--telemetry-log=false",
		"--telemetry-endpoint", srv.URL, "--telemetry-token", "secret")
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(types) != 1 || types[0] != "INITIALIZED" || auth[0] != "Bearer secret" {
		t.Errorf("collector saw types=%v auth=%v", types, auth)
	}
}

func TestTelemetryDisabled(t *testing.T) {
	isolate(t)
	db := filepath.Join(t.TempDir(), "events.db")
	out, err := run(t, "negotiate", "--noop", "--json", "--frames", "1", "--telemetry=false", "--telemetry-db", db)
	if err != nil {
		t.Fatal(err)
	}
	var res sessionResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Delivered != 0 {
		t.Errorf("Delivered = %d with telemetry disabled", res.Delivered)
	}
	if _, err := os.Stat(db); !os.IsNotExist(err) {
		t.Errorf("database created with telemetry disabled: %v", err)
	}
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "g3d.toml")
	writeConfig(t, path, "backend = \"vulkan\"\n")

	out, err := run(t, "detect", "--noop", "--json", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"selected": "vulkan"`) {
		t.Errorf("file backend ignored:\n%s", out)
	}

	out, err = run(t, "detect", "--noop", "--json", "--config", path, "--backend", "webgpu")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"selected": "webgpu"`) {
		t.Errorf("flag should beat file:\n%s", out)
	}

	if _, err := run(t, "detect", "--config", filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing config file should fail")
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	isolate(t)
	if _, err := run(t, "detect", "--noop", "--width", "0"); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("detect --width 0 = %v, want ErrInvalid", err)
	}
	if _, err := run(t, "events", "--type", "BOGUS", "--telemetry-db", filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Error("unknown event type should fail")
	}
	if _, err := run(t, "events"); err == nil {
		t.Error("events without a database should fail")
	}
}

func TestWatchNeedsConfig(t *testing.T) {
	a := &app{log: zerolog.Nop(), cfg: config.Default()}
	if err := a.watch(context.Background(), time.Millisecond, nil); err == nil {
		t.Error("watch without a config file should fail")
	}
}

func TestWatchRenegotiatesOnChange(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "g3d.toml")
	writeConfig(t, path, "backend = \"vulkan\"\n[telemetry]\nenabled = false\n")

	a := &app{out: io.Discard, log: zerolog.Nop(), cfg: config.Default(), cfgPath: path, noop: true, changed: map[string]bool{}}
	a.flagged = a.cfg
	if err := config.Load(&a.cfg, path, a.changed); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan *sessionResult, 4)
	done := make(chan error, 1)
	go func() { done <- a.watch(ctx, 5*time.Millisecond, results) }()

	next := func() *sessionResult {
		t.Helper()
		select {
		case r := <-results:
			return r
		case err := <-done:
			t.Fatalf("watch returned early: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for negotiation")
		}
		return nil
	}

	if r := next(); r.Backend != "vulkan" {
		t.Fatalf("initial backend = %q", r.Backend)
	}

	// An invalid file keeps the running session.
	writeConfig(t, path, "width = -5\nbackend = 1\n")
	time.Sleep(3 * reloadDebounce)

	writeConfig(t, path, "backend = \"webgpu\"\n[telemetry]\nenabled = false\n")
	if r := next(); r.Backend != "webgpu" {
		t.Fatalf("backend after change = %q, want webgpu", r.Backend)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
