package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLookup_PrivateIPResolvesLocally(t *testing.T) {
	r := NewResolver("http://unused.invalid", time.Second)

	loc := r.Lookup(context.Background(), "10.0.0.5")
	if loc.Source != SourceLocal {
		t.Errorf("source = %q, want %q", loc.Source, SourceLocal)
	}
}

func TestLookup_LoopbackResolvesLocally(t *testing.T) {
	r := NewResolver("http://unused.invalid", time.Second)

	loc := r.Lookup(context.Background(), "127.0.0.1")
	if loc.Source != SourceLocal {
		t.Errorf("source = %q, want %q", loc.Source, SourceLocal)
	}
}

func TestLookup_EmptyAndMalformedIPFallBack(t *testing.T) {
	r := NewResolver("http://unused.invalid", time.Second)

	for _, ip := range []string{"", "not-an-ip"} {
		loc := r.Lookup(context.Background(), ip)
		if loc.Source != SourceFallback {
			t.Errorf("Lookup(%q) source = %q, want %q", ip, loc.Source, SourceFallback)
		}
	}
}

func TestLookup_RemoteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"status":"success","country":"Germany","city":"Berlin","org":"ExampleNet"}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, time.Second)
	loc := r.Lookup(context.Background(), "93.184.216.34")
	if loc.Source != SourceRemote {
		t.Fatalf("source = %q, want %q", loc.Source, SourceRemote)
	}
	if loc.Country != "Germany" || loc.City != "Berlin" {
		t.Errorf("loc = %+v, want Germany/Berlin", loc)
	}
}

func TestLookup_RemoteErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, time.Second)
	loc := r.Lookup(context.Background(), "93.184.216.34")
	if loc.Source != SourceFallback {
		t.Errorf("source = %q, want %q", loc.Source, SourceFallback)
	}
}

func TestLookup_TimeoutFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"status":"success","country":"Germany"}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, 20*time.Millisecond)
	loc := r.Lookup(context.Background(), "93.184.216.34")
	if loc.Source != SourceFallback {
		t.Errorf("source = %q, want %q", loc.Source, SourceFallback)
	}
}
