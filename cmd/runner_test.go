package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	tu "github.com/desertthunder/nowplaying/internal/testing"
	"github.com/urfave/cli/v3"
)

// upstream fakes the Spotify accounts and web API endpoints the commands reach.
type upstream struct {
	*httptest.Server
	tokenCalls atomic.Int32
	playing    atomic.Int32
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()

	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		u.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600,"refresh_token":"rt-1"}`))
	})
	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"spotify-user","display_name":"Listener"}`))
	})
	mux.HandleFunc("/v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
		u.playing.Add(1)
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"is_playing":true,"progress_ms":61000,"item":{"name":"Song Title","duration_ms":180000,` +
			`"artists":[{"name":"Artist A"},{"name":"Artist B"}],"album":{"name":"Record","images":[{"url":"https://i.scdn.co/image/1"}]}}}`))
	})

	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Close)
	return u
}

func testConfig(t *testing.T, upstreamURL string) *shared.Config {
	t.Helper()

	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "test_client_id"
	config.Credentials.Spotify.ClientSecret = "test_client_secret"
	config.Credentials.Spotify.AuthURL = upstreamURL + "/authorize"
	config.Credentials.Spotify.TokenURL = upstreamURL + "/api/token"
	config.Credentials.Spotify.APIURL = upstreamURL + "/v1"
	config.Database.Path = filepath.Join(t.TempDir(), "nowplaying.db")
	config.Server.Port = 0
	return config
}

// callbackBrowser stands in for the user: it follows the login URL's host back to /callback.
func callbackBrowser(t *testing.T, state string) func(string) error {
	return func(loginURL string) error {
		u, err := url.Parse(loginURL)
		if err != nil {
			return err
		}
		if state == "" {
			state = u.Query().Get("key")
		}
		callback := u.Scheme + "://" + u.Host + "/callback?" + url.Values{"code": {"auth-code"}, "state": {state}}.Encode()
		go func() {
			resp, err := http.Get(callback)
			if err != nil {
				t.Logf("callback request failed: %v", err)
				return
			}
			resp.Body.Close()
		}()
		return nil
	}
}

func run(t *testing.T, cmd *cli.Command, args ...string) error {
	t.Helper()
	return cmd.Run(context.Background(), append([]string{cmd.Name}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil config defers resolution", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config != nil {
				t.Error("expected config to be resolved lazily")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil browser opener uses system browser", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.openBrowser == nil {
				t.Error("expected openBrowser to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\ndone\n" {
				t.Errorf("expected newline-wrapped text, got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "serve", "connect", "status", "watch", "disconnect"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("returns preset config", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			got, err := runner.loadConfig(setupCommand(runner))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != config {
				t.Error("expected preset config to be returned")
			}
		})

		t.Run("reads the --config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[server]\nport = 4123\n"), 0600); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			cmd := &cli.Command{
				Name:  "load-config",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, err := runner.loadConfig(cmd)
					return err
				},
			}

			if err := run(t, cmd, "--config", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config == nil || runner.config.Server.Port != 4123 {
				t.Errorf("expected port from file, got %+v", runner.config)
			}
			if runner.config.Widget.CacheWindow.Duration != models.DefaultCacheWindow {
				t.Errorf("expected default cache window to survive, got %v", runner.config.Widget.CacheWindow)
			}
		})
	})

	t.Run("openApp", func(t *testing.T) {
		t.Run("wires sqlite store", func(t *testing.T) {
			up := newUpstream(t)
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			a, err := runner.openApp(context.Background(), testConfig(t, up.URL))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			defer a.Close()

			if a.poller == nil || a.manager == nil || a.spotify == nil {
				t.Fatal("expected all components to be wired")
			}
			if a.manager.Keys().Name() != shared.KeyStrategyWidget {
				t.Errorf("expected widget keys, got %s", a.manager.Keys().Name())
			}
		})

		t.Run("wires redis store", func(t *testing.T) {
			up := newUpstream(t)
			mr := miniredis.RunT(t)

			config := testConfig(t, up.URL)
			config.Store.Backend = shared.StoreRedis
			config.Redis.URL = "redis://" + mr.Addr() + "/0"
			config.Widget.KeyStrategy = shared.KeyStrategyUser

			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			a, err := runner.openApp(context.Background(), config)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			defer a.Close()

			if a.manager.Keys().Name() != shared.KeyStrategyUser {
				t.Errorf("expected user keys, got %s", a.manager.Keys().Name())
			}
		})

		t.Run("rejects invalid config", func(t *testing.T) {
			config := testConfig(t, "http://127.0.0.1:1")
			config.Credentials.Spotify.ClientSecret = ""

			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			_, err := runner.openApp(context.Background(), config)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("rejects unreachable redis", func(t *testing.T) {
			config := testConfig(t, "http://127.0.0.1:1")
			config.Store.Backend = shared.StoreRedis
			config.Redis.URL = "redis://127.0.0.1:1/0"

			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if _, err := runner.openApp(context.Background(), config); err == nil {
				t.Error("expected error for unreachable redis")
			}
		})
	})

	t.Run("Setup", func(t *testing.T) {
		t.Run("creates config and migrates database", func(t *testing.T) {
			dir := t.TempDir()
			configPath := filepath.Join(dir, "config.toml")
			dbPath := filepath.Join(dir, "setup.db")
			t.Setenv("NOWPLAYING_DB_PATH", dbPath)

			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := run(t, setupCommand(runner), "--config", configPath); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if _, err := os.Stat(configPath); err != nil {
				t.Errorf("expected config file to be created: %v", err)
			}
			if _, err := os.Stat(dbPath); err != nil {
				t.Errorf("expected database file to be created: %v", err)
			}
		})

		t.Run("checks redis backend", func(t *testing.T) {
			mr := miniredis.RunT(t)
			config := testConfig(t, "http://127.0.0.1:1")
			config.Store.Backend = shared.StoreRedis
			config.Redis.URL = "redis://" + mr.Addr() + "/0"

			runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := run(t, setupCommand(runner), "--config", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	})

	t.Run("Connect", func(t *testing.T) {
		t.Run("stores credential under requested key", func(t *testing.T) {
			up := newUpstream(t)
			config := testConfig(t, up.URL)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:      config,
				Output:      output,
				OpenBrowser: callbackBrowser(t, ""),
			})

			if err := run(t, connectCommand(runner), "--key", "desk-widget"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if up.tokenCalls.Load() != 1 {
				t.Errorf("expected 1 token exchange, got %d", up.tokenCalls.Load())
			}
			if !strings.Contains(output.String(), "Key: desk-widget") {
				t.Errorf("expected key in output, got %q", output.String())
			}
			if !strings.Contains(output.String(), "/now-playing?key=desk-widget") {
				t.Errorf("expected now-playing URL in output, got %q", output.String())
			}
		})

		t.Run("user strategy keys by profile id", func(t *testing.T) {
			up := newUpstream(t)
			config := testConfig(t, up.URL)
			config.Widget.KeyStrategy = shared.KeyStrategyUser
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:      config,
				Output:      output,
				OpenBrowser: callbackBrowser(t, "random-state"),
			})

			if err := run(t, connectCommand(runner)); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Key: spotify-user") {
				t.Errorf("expected profile id as key, got %q", output.String())
			}
		})

		t.Run("reports denied authorization", func(t *testing.T) {
			up := newUpstream(t)
			config := testConfig(t, up.URL)

			deny := func(loginURL string) error {
				u, _ := url.Parse(loginURL)
				go func() {
					resp, err := http.Get(u.Scheme + "://" + u.Host + "/callback?error=access_denied")
					if err == nil {
						resp.Body.Close()
					}
				}()
				return nil
			}
			runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, OpenBrowser: deny})

			err := run(t, connectCommand(runner))
			if err == nil || !strings.Contains(err.Error(), "authorization failed") {
				t.Errorf("expected authorization failure, got %v", err)
			}
			if up.tokenCalls.Load() != 0 {
				t.Errorf("expected no token exchange, got %d", up.tokenCalls.Load())
			}
		})
	})

	t.Run("Status", func(t *testing.T) {
		snapshot := models.Snapshot{
			Playing:    true,
			ProgressMs: 1000,
			DurationMs: 2000,
			Track:      &models.Track{Title: "Remote Song", Artists: []string{"Band"}, Album: "LP"},
		}

		service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/now-playing" || r.URL.Query().Get("key") != "k1" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"not connected"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(snapshot)
		}))
		defer service.Close()

		t.Run("prints text from a running service", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Output: output})

			if err := run(t, statusCommand(runner), "--key", "k1", "--url", service.URL); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Playing: Remote Song") {
				t.Errorf("expected track in output, got %q", output.String())
			}
		})

		t.Run("prints JSON with --json", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Output: output})

			if err := run(t, statusCommand(runner), "--key", "k1", "--url", service.URL, "--json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var got models.Snapshot
			if err := json.Unmarshal(output.Bytes(), &got); err != nil {
				t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
			}
			if got.Track == nil || got.Track.Title != "Remote Song" {
				t.Errorf("unexpected snapshot %+v", got)
			}
		})

		t.Run("maps unknown key to not connected", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Output: &bytes.Buffer{}})

			err := run(t, statusCommand(runner), "--key", "other", "--url", service.URL)
			if !errors.Is(err, shared.ErrNotConnected) {
				t.Errorf("expected ErrNotConnected, got %v", err)
			}
		})

		t.Run("requires a key", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Output: &bytes.Buffer{}})

			if err := run(t, statusCommand(runner), "--url", service.URL); err == nil {
				t.Error("expected error without --key")
			}
		})
	})

	t.Run("connect, status and disconnect against the store", func(t *testing.T) {
		up := newUpstream(t)
		config := testConfig(t, up.URL)

		connect := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, OpenBrowser: callbackBrowser(t, "")})
		if err := run(t, connectCommand(connect), "--key", "shelf"); err != nil {
			t.Fatalf("connect failed: %v", err)
		}

		output := &bytes.Buffer{}
		status := NewRunner(RunnerOpts{Config: config, Output: output})
		if err := run(t, statusCommand(status), "--key", "shelf", "--local"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Song Title") || !strings.Contains(output.String(), "Artist A, Artist B") {
			t.Errorf("unexpected status output %q", output.String())
		}
		if up.playing.Load() != 1 {
			t.Errorf("expected 1 playback request, got %d", up.playing.Load())
		}

		disconnect := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})
		if err := run(t, disconnectCommand(disconnect), "--key", "shelf"); err != nil {
			t.Fatalf("disconnect failed: %v", err)
		}

		after := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})
		err := run(t, statusCommand(after), "--key", "shelf", "--local")
		if !errors.Is(err, shared.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected after disconnect, got %v", err)
		}
		if up.playing.Load() != 1 {
			t.Errorf("expected no playback request after disconnect, got %d", up.playing.Load())
		}
	})

	t.Run("Disconnect via running service", func(t *testing.T) {
		var method, key string
		service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method, key = r.Method, r.URL.Query().Get("key")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer service.Close()

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		if err := run(t, disconnectCommand(runner), "--key", "k9", "--url", service.URL); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if method != http.MethodPost || key != "k9" {
			t.Errorf("expected POST for k9, got %s %s", method, key)
		}
		if !strings.Contains(output.String(), "Disconnected k9") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Watch fails fast when service is unreachable", func(t *testing.T) {
		service := httptest.NewServer(http.NotFoundHandler())
		service.Close()

		runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Output: &bytes.Buffer{}})
		err := run(t, watchCommand(runner), "--key", "k1", "--url", service.URL)
		if err == nil || !strings.Contains(err.Error(), "not reachable") {
			t.Errorf("expected unreachable error, got %v", err)
		}
	})
}
