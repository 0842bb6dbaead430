package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type echoBody struct {
	Value string `json:"value"`
}

func TestPostJSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in echoBody
		json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(echoBody{Value: "echo:" + in.Value})
	}))
	defer srv.Close()

	c := New(DefaultTimeout)
	var out echoBody
	if err := c.PostJSON(context.Background(), srv.URL, echoBody{Value: "hi"}, &out); err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if out.Value != "echo:hi" {
		t.Fatalf("PostJSON() out = %+v, want echo:hi", out)
	}
}

func TestGetJSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(echoBody{Value: "ok"})
	}))
	defer srv.Close()

	c := New(DefaultTimeout)
	var out echoBody
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Value != "ok" {
		t.Fatalf("GetJSON() out = %+v, want ok", out)
	}
}

func TestNonTwoXXStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()

	c := New(DefaultTimeout)
	err := c.PostJSON(context.Background(), srv.URL, nil, nil)
	if err == nil {
		t.Fatalf("PostJSON() error = nil, want non-nil for a 409 response")
	}
}

func TestCallRespectsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(5 * time.Millisecond)
	err := c.GetJSON(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatalf("GetJSON() error = nil, want a timeout error")
	}
}
