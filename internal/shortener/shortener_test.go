package shortener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-keyword-bot/internal/config"
)

func newClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return New(config.ShortenerConfig{BaseURL: baseURL, APIKey: apiKey, Timeout: timeout}, zerolog.Nop())
}

func TestShorten_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api"); got != "key-1" {
			t.Errorf("api param = %q", got)
		}
		if got := r.URL.Query().Get("url"); got != "https://x.io/a?b=c" {
			t.Errorf("url param = %q, want the original URL decoded", got)
		}
		w.Write([]byte(`{"status":"success","shortenedUrl":"https://short.ly/z"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "key-1", time.Second)
	if got := c.Shorten(context.Background(), "https://x.io/a?b=c"); got != "https://short.ly/z" {
		t.Errorf("Shorten = %q", got)
	}
}

func TestShorten_DisabledPassthrough(t *testing.T) {
	c := newClient("https://unused.example", "", time.Second)
	if c.Enabled() {
		t.Fatalf("blank key should disable the client")
	}
	if got := c.Shorten(context.Background(), "https://x.io/a"); got != "https://x.io/a" {
		t.Errorf("disabled client must pass through, got %q", got)
	}
}

func TestShorten_FallbackOnFailure(t *testing.T) {
	const long = "https://x.io/a"

	cases := map[string]http.HandlerFunc{
		"http error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"non-success status": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"error","message":"invalid api key"}`))
		},
		"empty short url": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"success","shortenedUrl":""}`))
		},
		"garbage body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>nope</html>`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			c := newClient(srv.URL, "k", time.Second)
			if got := c.Shorten(context.Background(), long); got != long {
				t.Errorf("Shorten = %q, want fallback to input", got)
			}
		})
	}
}

func TestShorten_TimeoutFallsBack(t *testing.T) {
	const long = "https://x.io/a"
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := newClient(srv.URL, "k", 50*time.Millisecond)
	start := time.Now()
	if got := c.Shorten(context.Background(), long); got != long {
		t.Errorf("Shorten = %q, want fallback on timeout", got)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("fallback took %v, timeout not honored", elapsed)
	}
}

func TestShorten_UnreachableHostFallsBack(t *testing.T) {
	const long = "https://x.io/a"
	c := newClient("http://127.0.0.1:1", "k", 200*time.Millisecond)
	if got := c.Shorten(context.Background(), long); got != long {
		t.Errorf("Shorten = %q, want fallback on connection failure", got)
	}
}
