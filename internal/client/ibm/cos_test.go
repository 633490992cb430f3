package ibm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"capbudget/internal/config"
)

func newTestTokens(t *testing.T) *TokenCache {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"test-token","expires_in":3600}`)
	}))
	t.Cleanup(server.Close)
	cache := NewTokenCache(config.AuthConfig{TokenURL: server.URL, TokenTTL: time.Minute})
	cache.RegisterService(ServiceCOS, "cos-key")
	cache.RegisterService(ServiceWatsonML, "ml-key")
	return cache
}

func newObjectStore(t *testing.T, handler http.HandlerFunc) *ObjectStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewObjectStore(server.Client(), config.COSConfig{
		Endpoint:          server.URL,
		Bucket:            "bucket",
		ServiceInstanceID: "instance-1",
	}, newTestTokens(t))
}

func TestUpload_SendsAuthHeaders(t *testing.T) {
	var gotAuth, gotInstance, gotContentType string
	var gotBody []byte
	store := newObjectStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotInstance = r.Header.Get("ibm-service-instance-id")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	})

	info, err := store.Upload(context.Background(), "parameters.csv", []byte("Parameter,Value\n"), "text/csv")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if gotAuth != "Bearer test-token" || gotInstance != "instance-1" || gotContentType != "text/csv" {
		t.Fatalf("headers: auth=%q instance=%q content-type=%q", gotAuth, gotInstance, gotContentType)
	}
	if string(gotBody) != "Parameter,Value\n" {
		t.Fatalf("body=%q", gotBody)
	}
	if info.Name != "parameters.csv" || info.Size != 16 || info.ETag != `"abc123"` {
		t.Fatalf("info=%+v", info)
	}
}

func TestDownload_NotFound(t *testing.T) {
	store := newObjectStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := store.Download(context.Background(), "missing.csv")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err=%T want *NotFoundError", err)
	}
	if notFound.Key != "missing.csv" {
		t.Fatalf("key=%q", notFound.Key)
	}
}

func TestDownload_RemoteError(t *testing.T) {
	store := newObjectStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := store.Download(context.Background(), "file.csv")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err=%T want *RemoteError", err)
	}
	if remote.Status != http.StatusInternalServerError {
		t.Fatalf("status=%d", remote.Status)
	}
}

func TestDo_RetriesOnceOn401(t *testing.T) {
	calls := 0
	store := newObjectStore(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "token expired", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, "content")
	})

	body, err := store.Download(context.Background(), "file.csv")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if string(body) != "content" || calls != 2 {
		t.Fatalf("body=%q calls=%d", body, calls)
	}
}

func TestExists(t *testing.T) {
	store := newObjectStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bucket/there.csv" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	})

	if !store.Exists(context.Background(), "there.csv") {
		t.Fatalf("expected object to exist")
	}
	if store.Exists(context.Background(), "gone.csv") {
		t.Fatalf("expected object to be absent")
	}
}

func TestList_ParsesBucketXML(t *testing.T) {
	var gotPrefix string
	store := newObjectStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPrefix = r.URL.Query().Get("prefix")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult>
  <Name>bucket</Name>
  <Contents>
    <Key>SolutionResults.csv</Key>
    <Size>128</Size>
    <LastModified>2026-08-28T10:05:00Z</LastModified>
    <ETag>"e1"</ETag>
  </Contents>
  <Contents>
    <Key>BalanceResults.csv</Key>
    <Size>64</Size>
    <LastModified>2026-08-28T10:05:01Z</LastModified>
    <ETag>"e2"</ETag>
  </Contents>
</ListBucketResult>`)
	})

	items, err := store.List(context.Background(), "Sol")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if gotPrefix != "Sol" {
		t.Fatalf("prefix=%q", gotPrefix)
	}
	if len(items) != 2 {
		t.Fatalf("items=%d", len(items))
	}
	if items[0].Name != "SolutionResults.csv" || items[0].Size != 128 {
		t.Fatalf("items[0]=%+v", items[0])
	}
	if items[0].ModifiedAt.IsZero() {
		t.Fatalf("modified not parsed")
	}
}

func TestFileURL_EscapesName(t *testing.T) {
	store := NewObjectStore(http.DefaultClient, config.COSConfig{
		Endpoint: "https://cos.example.com",
		Bucket:   "bucket",
	}, nil)

	if got := store.FileURL("a b.csv"); got != "https://cos.example.com/bucket/a%20b.csv" {
		t.Fatalf("url=%q", got)
	}
}
