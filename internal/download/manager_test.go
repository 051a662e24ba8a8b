package download

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/sitescan/internal/fetch"
	"github.com/nao1215/sitescan/internal/model"
)

func TestLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address  string
		wantDir  string
		wantName string
	}{
		{"http://a.test/static/app.JS", "js", "app.JS"},
		{"http://a.test/img/logo.png?v=2", "png", "logo.png"},
		{"http://a.test/", "unknown", "index.html"},
		{"http://a.test", "unknown", "index.html"},
		{"http://a.test/docs/", "unknown", "index.html"},
		{"http://a.test/about", "unknown", "about"},
		{"http://a.test/archive.tar.gz", "gz", "archive.tar.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()

			dir, name, err := Location(tt.address)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dir != tt.wantDir || name != tt.wantName {
				t.Errorf("Location(%q) = (%q, %q), want (%q, %q)", tt.address, dir, name, tt.wantDir, tt.wantName)
			}
		})
	}

	t.Run("malformed address", func(t *testing.T) {
		t.Parallel()

		if _, _, err := Location("http://a.test/%zz"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestManager_Save(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/files/report.pdf", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>home</html>"))
	})
	mux.HandleFunc("/missing.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/photo.jpg", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not really a jpeg"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Run("saves by extension", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		m := NewManager(root, fetch.NewHTTPFetcher())

		rec, err := m.Save(t.Context(), server.URL+"/files/report.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := filepath.Join(root, "pdf", "report.pdf")
		if rec.Path != want {
			t.Errorf("Path = %q, want %q", rec.Path, want)
		}
		data, err := os.ReadFile(want)
		if err != nil {
			t.Fatalf("read saved file: %v", err)
		}
		if string(data) != "%PDF-1.4 fake" {
			t.Errorf("unexpected content %q", data)
		}
		sum := sha3.Sum256(data)
		if rec.Digest != hex.EncodeToString(sum[:]) {
			t.Errorf("unexpected digest %s", rec.Digest)
		}
		if rec.Size != int64(len(data)) {
			t.Errorf("Size = %d", rec.Size)
		}
	})

	t.Run("root path becomes index.html", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		rec, err := NewManager(root, fetch.NewHTTPFetcher()).Save(t.Context(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Path != filepath.Join(root, "unknown", "index.html") {
			t.Errorf("unexpected path %q", rec.Path)
		}
	})

	t.Run("second save overwrites", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		m := NewManager(root, fetch.NewHTTPFetcher())
		target := filepath.Join(root, "unknown", "index.html")
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, err := m.Save(t.Context(), server.URL+"/"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, _ := os.ReadFile(target)
		if string(data) != "<html>home</html>" {
			t.Errorf("expected overwrite, got %q", data)
		}
	})

	t.Run("non-200 returns StatusError", func(t *testing.T) {
		t.Parallel()

		_, err := NewManager(t.TempDir(), fetch.NewHTTPFetcher()).Save(t.Context(), server.URL+"/missing.txt")
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected StatusError, got %v", err)
		}
		want := "Failed to download " + server.URL + "/missing.txt: Status 404"
		if statusErr.Error() != want {
			t.Errorf("Error() = %q, want %q", statusErr.Error(), want)
		}
	})

	t.Run("image without EXIF has no metadata", func(t *testing.T) {
		t.Parallel()

		rec, err := NewManager(t.TempDir(), fetch.NewHTTPFetcher()).Save(t.Context(), server.URL+"/photo.jpg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Metadata != nil {
			t.Errorf("expected no metadata, got %v", rec.Metadata)
		}
	})
}

func TestManager_SaveUsesGuard(t *testing.T) {
	t.Parallel()

	offline := errors.New("offline")
	fetched := false
	f := fetch.FetcherFunc(func(_ context.Context, _ string) (*model.Page, error) {
		fetched = true
		return &model.Page{StatusCode: http.StatusOK, Raw: []byte("x")}, nil
	})

	m := NewManager(t.TempDir(), f, WithGuard(guardFunc(func(context.Context) error { return offline })))
	if _, err := m.Save(t.Context(), "http://a.test/x.txt"); !errors.Is(err, offline) {
		t.Errorf("expected guard error, got %v", err)
	}
	if fetched {
		t.Error("fetch must not run when the guard fails")
	}
}

func TestManager_NoFetcher(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(t.TempDir(), nil).Save(t.Context(), "http://a.test/"); !errors.Is(err, ErrNoFetcher) {
		t.Errorf("expected ErrNoFetcher, got %v", err)
	}
}

func TestInspectEXIF_NoData(t *testing.T) {
	t.Parallel()

	if got := InspectEXIF([]byte("plain bytes")); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

type guardFunc func(ctx context.Context) error

func (f guardFunc) EnsureOnline(ctx context.Context) error { return f(ctx) }
