package tasks

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	tu "github.com/desertthunder/nowplaying/internal/testing"
)

var testStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeExchanger records calls and returns scripted credentials.
type fakeExchanger struct {
	mu           sync.Mutex
	codeCalls    int
	refreshCalls int
	refreshed    []string
	codeResult   *models.Credential
	refreshFn    func(rt string) (*models.Credential, error)
	err          error
	release      chan struct{}
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, code string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeCalls++
	if f.err != nil {
		return nil, f.err
	}
	c := *f.codeResult
	return &c, nil
}

func (f *fakeExchanger) ExchangeRefreshToken(ctx context.Context, rt string) (*models.Credential, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	f.refreshed = append(f.refreshed, rt)
	if f.err != nil {
		return nil, f.err
	}
	return f.refreshFn(rt)
}

func (f *fakeExchanger) calls() (code, refresh int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codeCalls, f.refreshCalls
}

// fakeProfiles answers UserProfile with a fixed id.
type fakeProfiles struct {
	id    string
	err   error
	token string
}

func (f *fakeProfiles) UserProfile(ctx context.Context, accessToken string) (*services.SpotifyUser, error) {
	f.token = accessToken
	if f.err != nil {
		return nil, f.err
	}
	return &services.SpotifyUser{ID: f.id}, nil
}

type fetchResult struct {
	snap *models.Snapshot
	err  error
}

// fakeFetcher replays results in order and records the tokens it was called with.
type fakeFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	tokens  []string
	started chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) CurrentlyPlaying(ctx context.Context, accessToken string) (*models.Snapshot, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, accessToken)
	if len(f.results) == 0 {
		return models.NotPlaying(), nil
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.snap, r.err
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

func unauthorized() error {
	return &shared.UpstreamError{Kind: shared.ErrUpstreamFetch, StatusCode: 401, Description: "The access token expired"}
}

func playing(title string) *models.Snapshot {
	return models.NewSnapshot(true, 1000, 200000, &models.Track{Title: title, Artists: []string{"Artist"}, Album: "Album"})
}

func quietLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

// fixture wires a manager and poller over in-memory stores.
type fixture struct {
	clock     *tu.Clock
	credKV    *tu.MemoryKV
	cacheKV   *tu.MemoryKV
	creds     *repositories.CredentialRepository
	cache     *repositories.CacheRepository
	exchanger *fakeExchanger
	fetcher   *fakeFetcher
	manager   *CredentialManager
	poller    *Poller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:   tu.NewClock(testStart),
		credKV:  tu.NewMemoryKV(),
		cacheKV: tu.NewMemoryKV(),
		fetcher: &fakeFetcher{},
	}
	f.exchanger = &fakeExchanger{
		codeResult: &models.Credential{AccessToken: "A1", RefreshToken: "R1", ExpiresAt: testStart.Add(59 * time.Minute)},
		refreshFn: func(rt string) (*models.Credential, error) {
			return &models.Credential{AccessToken: "A2", ExpiresAt: f.clock.Now().Add(59 * time.Minute)}, nil
		},
	}
	f.creds = repositories.NewCredentialRepository(f.credKV)
	f.cache = repositories.NewCacheRepository(f.cacheKV)

	opts := []Option{WithClock(f.clock.Now), WithLogger(quietLogger())}
	f.manager = NewCredentialManager(f.creds, f.exchanger, WidgetKeys{}, opts...)
	f.poller = NewPoller(f.cache, f.manager, f.fetcher, opts...)
	return f
}

// seed stores a credential directly and resets the store counters.
func (f *fixture) seed(t *testing.T, key string, cred models.Credential) {
	t.Helper()
	if err := f.creds.Put(context.Background(), key, &cred); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}
	f.credKV.Sets = 0
	f.credKV.Gets = 0
}

func (f *fixture) stored(t *testing.T, key string) *models.Credential {
	t.Helper()
	cred, err := f.creds.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("failed to read credential: %v", err)
	}
	return cred
}
