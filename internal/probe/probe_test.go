package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProbeAcceptsPongVariants(t *testing.T) {
	bodies := []string{
		"pong",
		"PONG",
		`{"status": "pong"}`,
		"prefix pong suffix",
	}
	for _, body := range bodies {
		body := body
		t.Run(body, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			t.Cleanup(server.Close)

			prober := NewHTTP(server.URL, time.Second)
			if err := prober.Probe(context.Background()); err != nil {
				t.Fatalf("expected success for body %q, got %v", body, err)
			}
		})
	}
}

func TestHTTPProbeRejectsNonPongBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("it is alive"))
	}))
	t.Cleanup(server.Close)

	prober := NewHTTP(server.URL, time.Second)
	if err := prober.Probe(context.Background()); err == nil {
		t.Fatal("expected failure for body without pong")
	}
}

func TestHTTPProbeRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("pong"))
	}))
	t.Cleanup(server.Close)

	prober := NewHTTP(server.URL, time.Second)
	if err := prober.Probe(context.Background()); err == nil {
		t.Fatal("expected failure for non-200 response")
	}
}

func TestHTTPProbeTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	prober := NewHTTP(server.URL, 50*time.Millisecond)
	begin := time.Now()
	if err := prober.Probe(context.Background()); err == nil {
		t.Fatal("expected timeout failure")
	}
	if elapsed := time.Since(begin); elapsed > 2*time.Second {
		t.Fatalf("probe did not respect its timeout, took %s", elapsed)
	}
}

func TestHTTPProbeConnectionRefused(t *testing.T) {
	// Grab an address nothing listens on.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	prober := NewHTTP("http://"+addr+"/ping", time.Second)
	if err := prober.Probe(context.Background()); err == nil {
		t.Fatal("expected failure for refused connection")
	}
}

func TestTCPProbe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	prober := NewTCP(listener.Addr().String())
	if err := prober.Probe(context.Background()); err != nil {
		t.Fatalf("expected success against live listener, got %v", err)
	}

	addr := listener.Addr().String()
	listener.Close()
	if err := NewTCP(addr).Probe(context.Background()); err == nil {
		t.Fatal("expected failure once listener is gone")
	}
}

func TestFuncAdapter(t *testing.T) {
	called := false
	prober := Func(func(context.Context) error {
		called = true
		return nil
	})
	if err := prober.Probe(context.Background()); err != nil || !called {
		t.Fatalf("Func adapter did not invoke function (called=%v, err=%v)", called, err)
	}
}
