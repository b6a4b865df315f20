package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeCreds struct {
	token   string
	logouts int
}

func (f *fakeCreds) Token() string { return f.token }
func (f *fakeCreds) Logout() error {
	f.logouts++
	f.token = ""
	return nil
}

func TestDoAttachesBearerToken(t *testing.T) {
	var gotAuth, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"id":1,"title":"Plan"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, &fakeCreds{token: "abc"})
	var out struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := c.Get(context.Background(), "/api/projects/1", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer abc" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatal("expected a request id header")
	}
	if out.ID != 1 || out.Title != "Plan" {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestDoWithoutTokenSendsNoAuthorization(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, &fakeCreds{})
	if err := c.Delete(context.Background(), "/api/projects/1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if sawAuth {
		t.Fatal("expected no Authorization header without a token")
	}
}

func TestUnauthorizedClearsSessionAndNotifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"token expired"}`))
	}))
	defer srv.Close()

	creds := &fakeCreds{token: "stale"}
	var notified atomic.Int32
	c := New(srv.URL, creds, WithAuthExpiredHandler(func() { notified.Add(1) }))

	paths := []string{"/api/projects", "/api/projects/3/tasks"}
	for _, p := range paths {
		creds.token = "stale"
		err := c.Get(context.Background(), p, nil)
		if !IsAuthExpired(err) {
			t.Fatalf("%s: expected auth-expired error, got %v", p, err)
		}
		if creds.token != "" {
			t.Fatalf("%s: expected token cleared", p)
		}
	}
	if creds.logouts != len(paths) {
		t.Fatalf("expected %d logouts, got %d", len(paths), creds.logouts)
	}
	if notified.Load() != int32(len(paths)) {
		t.Fatalf("expected %d notifications, got %d", len(paths), notified.Load())
	}
}

func TestStatusErrorsPassThrough(t *testing.T) {
	cases := []struct {
		body    string
		status  int
		message string
		notice  string
	}{
		{`{"message":"Project not found"}`, http.StatusNotFound, "Project not found", "Error 404: Project not found"},
		{`{"error":"bad title"}`, http.StatusBadRequest, "bad title", "Error 400: bad title"},
		{``, http.StatusInternalServerError, "", "Error 500: server error"},
		{`<html>oops</html>`, http.StatusBadGateway, "", "Error 502: server error"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))
		creds := &fakeCreds{token: "t"}
		c := New(srv.URL, creds)
		err := c.Get(context.Background(), "/api/projects/9", nil)
		srv.Close()

		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if apiErr.Kind != KindStatus || apiErr.Status != tc.status || apiErr.Message != tc.message {
			t.Fatalf("unexpected error %+v", apiErr)
		}
		if apiErr.Notice() != tc.notice {
			t.Fatalf("Notice(): expected %q, got %q", tc.notice, apiErr.Notice())
		}
		if creds.logouts != 0 {
			t.Fatalf("status %d must not clear the session", tc.status)
		}
	}
}

func TestNoResponseIsDistinguished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, &fakeCreds{})
	err := c.Get(context.Background(), "/api/projects", nil)
	if !IsNoResponse(err) {
		t.Fatalf("expected no-response error, got %v", err)
	}
	if StatusOf(err) != 0 {
		t.Fatalf("expected no status, got %d", StatusOf(err))
	}
	var apiErr *Error
	errors.As(err, &apiErr)
	if apiErr.Notice() != "No response from server. Check that the backend is running." {
		t.Fatalf("unexpected notice %q", apiErr.Notice())
	}
}

func TestMalformedRequestNeverSent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL, &fakeCreds{})
	err := c.Post(context.Background(), "/api/projects", map[string]any{"bad": make(chan int)}, nil)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindRequest {
		t.Fatalf("expected request error, got %v", err)
	}
	if err := c.Get(context.Background(), "api/projects", nil); err == nil {
		t.Fatal("expected error for relative path")
	}
	if hits.Load() != 0 {
		t.Fatalf("malformed requests must not reach the server, got %d hits", hits.Load())
	}
}

func TestWithTimeoutLeavesCallerClientAlone(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":2}`))
	}))
	defer srv.Close()

	hc := srv.Client()
	c := New(srv.URL, &fakeCreds{token: "t"}, WithHTTPClient(hc), WithTimeout(5*time.Second))
	if hc.Timeout != 0 {
		t.Fatalf("caller's client modified: timeout %v", hc.Timeout)
	}
	if c.http.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", c.http.Timeout)
	}

	// The TLS server is only reachable through the client that trusts its certificate
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.Get(context.Background(), "/api/projects/2", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.ID != 2 {
		t.Fatalf("unexpected body: %+v", out)
	}
}
