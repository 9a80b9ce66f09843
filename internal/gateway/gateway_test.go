package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nexlearn-exam-client/internal/domain"
	"nexlearn-exam-client/internal/gateway"
	"nexlearn-exam-client/internal/infra/memory"
)

func buildGet(url string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestAttachesBearerHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := memory.NewTokenStore()
	store.SetTokens(domain.Tokens{AccessToken: "abc", RefreshToken: "ref", TokenType: "Bearer"})
	client := gateway.New(server.URL, 5*time.Second, store, nil)

	resp, err := client.Do(context.Background(), buildGet(server.URL+"/question/list"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if gotAuth != "Bearer abc" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}

func TestRefreshSingleFlight(t *testing.T) {
	const concurrent = 8

	var (
		mu           sync.Mutex
		arrived      int
		release      = make(chan struct{})
		refreshCalls int64
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/question/list", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer fresh" {
			w.WriteHeader(http.StatusOK)
			return
		}
		// Hold every request on the stale credential until all have arrived,
		// then fail them together so the refreshes race.
		mu.Lock()
		arrived++
		if arrived == concurrent {
			close(release)
		}
		mu.Unlock()
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		time.Sleep(50 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","refresh_token":"fresh-ref","token_type":"Bearer"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := memory.NewTokenStore()
	store.SetTokens(domain.Tokens{AccessToken: "stale", RefreshToken: "ref", TokenType: "Bearer"})
	client := gateway.New(server.URL, 5*time.Second, store, nil)

	var wg sync.WaitGroup
	errs := make([]error, concurrent)
	codes := make([]int, concurrent)
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Do(context.Background(), buildGet(server.URL+"/question/list"))
			if err != nil {
				errs[i] = err
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i := 0; i < concurrent; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d failed: %v", i, errs[i])
		}
		if codes[i] != http.StatusOK {
			t.Fatalf("request %d expected retry success, got %d", i, codes[i])
		}
	}
	if calls := atomic.LoadInt64(&refreshCalls); calls != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", calls)
	}
	tokens, ok := store.Tokens()
	if !ok || tokens.AccessToken != "fresh" || tokens.RefreshToken != "fresh-ref" {
		t.Fatalf("expected rotated pair in store, got %+v ok=%v", tokens, ok)
	}
}

func TestSecond401SurfacesAsHardFailure(t *testing.T) {
	var refreshCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/answers/submit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		w.Write([]byte(`{"access_token":"fresh","refresh_token":"fresh-ref"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := memory.NewTokenStore()
	store.SetTokens(domain.Tokens{AccessToken: "stale", RefreshToken: "ref"})
	client := gateway.New(server.URL, 5*time.Second, store, nil)

	resp, err := client.Do(context.Background(), buildGet(server.URL+"/answers/submit"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected the second 401 to surface, got %d", resp.StatusCode)
	}
	if calls := atomic.LoadInt64(&refreshCalls); calls != 1 {
		t.Fatalf("expected a single refresh attempt, got %d", calls)
	}
}

func TestMissingRefreshTokenClearsStoreAndRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	redirected := false
	store := memory.NewTokenStore()
	store.SetTokens(domain.Tokens{AccessToken: "stale"})
	client := gateway.New(server.URL, 5*time.Second, store, func() { redirected = true })

	_, err := client.Do(context.Background(), buildGet(server.URL+"/question/list"))
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !redirected {
		t.Fatalf("expected auth-lost hook to fire")
	}
	if _, ok := store.Tokens(); ok {
		t.Fatalf("expected store to be cleared")
	}
}

func TestRefreshFailureClearsStoreAndRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/question/list", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	redirected := false
	store := memory.NewTokenStore()
	store.SetTokens(domain.Tokens{AccessToken: "stale", RefreshToken: "dead"})
	client := gateway.New(server.URL, 5*time.Second, store, func() { redirected = true })

	_, err := client.Do(context.Background(), buildGet(server.URL+"/question/list"))
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !redirected {
		t.Fatalf("expected auth-lost hook to fire")
	}
	if _, ok := store.Tokens(); ok {
		t.Fatalf("expected store to be cleared")
	}
}
