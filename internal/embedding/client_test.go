package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClient_EmbedOrdersByIndex(t *testing.T) {
	var gotReq embeddingsRequest
	var gotAuth, gotPath string
	hc := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		gotPath = req.URL.Path
		if err := json.NewDecoder(req.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"data":[
			{"index":1,"embedding":[0,1]},
			{"index":0,"embedding":[1,0]}
		]}`), nil
	})}

	c, err := New(Config{BaseURL: "http://embed.local/", APIKey: "sk-test", Model: "m1"}, hc)
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := c.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/v1/embeddings" {
		t.Errorf("path = %q, want /v1/embeddings", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotReq.Model != "m1" || len(gotReq.Input) != 2 {
		t.Errorf("request = %+v", gotReq)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not placed by index: %v", vecs)
	}
}

func TestClient_EmbedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `upstream down`},
		{"bad json", http.StatusOK, `{"data":`},
		{"missing vector", http.StatusOK, `{"data":[{"index":0,"embedding":[1]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			})}
			c, _ := New(Config{BaseURL: "http://embed.local"}, hc)
			_, err := c.Embed(context.Background(), []string{"a", "b"})
			if !errors.Is(err, model.ErrExternalUnavailable) {
				t.Errorf("error = %v, want ErrExternalUnavailable", err)
			}
		})
	}
}

func TestClient_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.5,0.5]}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Model() != defaultModel {
		t.Errorf("model = %q, want default", c.Model())
	}
	vecs, err := c.Embed(context.Background(), []string{"only"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 1 || len(vecs[0]) != 3 {
		t.Errorf("vectors = %v", vecs)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "  "}, nil); err == nil {
		t.Error("expected an error for an empty base url")
	}
}

type countingEmbedder struct{ calls int }

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

func TestCached_NilClientPassesThrough(t *testing.T) {
	next := &countingEmbedder{}
	c := NewCached(next, nil, "m", 0, zerolog.Nop())
	vecs, err := c.Embed(context.Background(), []string{"abc"})
	if err != nil {
		t.Fatal(err)
	}
	if next.calls != 1 || vecs[0][0] != 3 {
		t.Errorf("calls = %d, vecs = %v", next.calls, vecs)
	}
}

func TestVectorKey(t *testing.T) {
	a := VectorKey("m1", "hello")
	if !strings.HasPrefix(a, "emb:") || len(a) != len("emb:")+64 {
		t.Errorf("unexpected key %q", a)
	}
	if a == VectorKey("m2", "hello") {
		t.Error("key must depend on the model")
	}
	if a != VectorKey("m1", "hello") {
		t.Error("key must be deterministic")
	}
}
