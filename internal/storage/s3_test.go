package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/speedwagon-io/flexlab/internal/config"
)

func TestNewObjectStore(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, err := NewObjectStore(&config.StorageConfig{})
		if !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("expected ErrNotConfigured, got %v", err)
		}
	})

	t.Run("configured", func(t *testing.T) {
		store, err := NewObjectStore(&config.StorageConfig{
			Endpoint:  "localhost:9000",
			Bucket:    "results",
			AccessKey: "minio",
			SecretKey: "minio123",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if store.Bucket != "results" || store.Client == nil {
			t.Errorf("unexpected store %+v", store)
		}
	})
}

func TestFetchWithoutClient(t *testing.T) {
	var store *ObjectStore
	if _, err := store.Fetch(context.Background(), "run1/PlotDemo.mat"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

// newBucketServer serves objects from an in-memory bucket named "results".
func newBucketServer(t *testing.T, objects map[string][]byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("location") {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
			return
		}

		body, ok := objects[strings.TrimPrefix(r.URL.Path, "/results/")]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				fmt.Fprint(w, `<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			}
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.Header().Set("Last-Modified", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			w.Write(body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := newBucketServer(t, map[string][]byte{
		"run1/PlotDemo.mat": []byte("result file"),
	})

	store, err := NewObjectStore(&config.StorageConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    "results",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("existing object", func(t *testing.T) {
		rc, err := store.Fetch(ctx, "run1/PlotDemo.mat")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != "result file" {
			t.Errorf("unexpected content %q", data)
		}
	})

	t.Run("missing object", func(t *testing.T) {
		if _, err := store.Fetch(ctx, "run2/missing.mat"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
