package nlroute

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sokosumi/cli/internal/config"
)

func fakeAnthropic(t *testing.T, reply string, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") == "" {
			t.Fatalf("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Fatalf("missing anthropic-version header")
		}
		io.WriteString(w, `{"content":[{"type":"text","text":`+jsonQuote(reply)+`}]}`)
	}))
}

func jsonQuote(text string) string {
	out := []byte{'"'}
	for _, r := range text {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, string(r)...)
		}
	}
	return string(append(out, '"'))
}

func routerFor(srvURL string) *Router {
	cfg := config.Config{AnthropicKey: "anthropic-key", Model: "claude-test"}
	return NewWithEndpoint(cfg, srvURL)
}

func TestRouteMissingCredentialShortCircuits(t *testing.T) {
	var calls atomic.Int64
	srv := fakeAnthropic(t, `{}`, &calls)
	defer srv.Close()

	router := NewWithEndpoint(config.Config{}, srv.URL)
	result := router.Route(context.Background(), "show my account")
	if result.Section != SectionUnknown {
		t.Fatalf("expected unknown section, got %q", result.Section)
	}
	if result.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", result.Confidence)
	}
	if result.Reason != "Missing ANTHROPIC_API_KEY" {
		t.Fatalf("unexpected reason: %q", result.Reason)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no network attempt, saw %d calls", calls.Load())
	}
}

func TestRouteWellFormedReplyPassesThrough(t *testing.T) {
	var calls atomic.Int64
	srv := fakeAnthropic(t, `{"section":"account","action":"show","args":{},"confidence":0.9,"reason":"ok"}`, &calls)
	defer srv.Close()

	result := routerFor(srv.URL).Route(context.Background(), "show my account")
	if result.Section != SectionAccount || result.Action != "show" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Confidence != 0.9 || result.Reason != "ok" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Args) != 0 {
		t.Fatalf("expected empty args, got %v", result.Args)
	}
}

func TestRouteBogusSectionForcedUnknown(t *testing.T) {
	var calls atomic.Int64
	srv := fakeAnthropic(t, `{"section":"bogus"}`, &calls)
	defer srv.Close()

	result := routerFor(srv.URL).Route(context.Background(), "do something weird")
	if result.Section != SectionUnknown {
		t.Fatalf("expected forced unknown, got %q", result.Section)
	}
	if result.Action != "unknown" {
		t.Fatalf("expected default action, got %q", result.Action)
	}
}

func TestRouteExtractsEmbeddedJSON(t *testing.T) {
	var calls atomic.Int64
	srv := fakeAnthropic(t, "Sure! Here you go:\n{\"section\":\"agents\",\"action\":\"list\",\"args\":{},\"confidence\":0.8,\"reason\":\"ok\"}\nHope that helps.", &calls)
	defer srv.Close()

	result := routerFor(srv.URL).Route(context.Background(), "list my agents")
	if result.Section != SectionAgents || result.Action != "list" {
		t.Fatalf("expected fallback extraction to succeed, got %+v", result)
	}
}

func TestRouteUnparseableReply(t *testing.T) {
	var calls atomic.Int64
	srv := fakeAnthropic(t, "I cannot answer that in JSON, sorry.", &calls)
	defer srv.Close()

	result := routerFor(srv.URL).Route(context.Background(), "hmm")
	if result.Section != SectionUnknown || result.Reason != "Unparseable response" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRouteValidationRules(t *testing.T) {
	var calls atomic.Int64
	srv := fakeAnthropic(t, `{"section":"jobs","action":"  ","args":[1,2],"confidence":7,"reason":"r"}`, &calls)
	defer srv.Close()

	result := routerFor(srv.URL).Route(context.Background(), "start a job")
	if result.Section != SectionJobs {
		t.Fatalf("expected jobs section, got %q", result.Section)
	}
	if result.Action != "unknown" {
		t.Fatalf("blank action must default to unknown, got %q", result.Action)
	}
	if len(result.Args) != 0 {
		t.Fatalf("array args must become empty map, got %v", result.Args)
	}
	if result.Confidence != 1 {
		t.Fatalf("confidence must clamp to 1, got %v", result.Confidence)
	}
}

func TestRouteTransportErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close() // connection refused from here on

	result := routerFor(srv.URL).Route(context.Background(), "anything")
	if result.Section != SectionUnknown || result.Confidence != 0 {
		t.Fatalf("expected degraded unknown result, got %+v", result)
	}
	if result.Reason == "" {
		t.Fatalf("expected error text in reason")
	}
}

func TestRouteHTTPErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	result := routerFor(srv.URL).Route(context.Background(), "anything")
	if result.Section != SectionUnknown {
		t.Fatalf("expected unknown on HTTP error, got %q", result.Section)
	}
}

func TestExtractJSONObject(t *testing.T) {
	if got := extractJSONObject(`  {"a":1}  `); got != `{"a":1}` {
		t.Fatalf("unexpected direct extraction: %q", got)
	}
	if got := extractJSONObject("noise {\"a\":1} trailing"); got != `{"a":1}` {
		t.Fatalf("unexpected embedded extraction: %q", got)
	}
	if got := extractJSONObject("no braces here"); got != "" {
		t.Fatalf("expected empty extraction, got %q", got)
	}
}
