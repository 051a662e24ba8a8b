package extract

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/sitescan/internal/model"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Sample</title>
  <link rel="stylesheet" href="/style.css">
  <script src="app.js"></script>
  <script>var api = "https://api.example.net/v1";</script>
  <style>.hidden { color: red }</style>
</head>
<body>
  <a href="/about">About Us</a>
  <a href="https://other.example.org/page#section">Other</a>
  <a href="mailto:admin@example.com">Mail</a>
  <a href="javascript:void(0)">JS</a>
  <a>No href</a>
  <img src="images/logo.png" alt="Logo">
  <form href="/submit"></form>
  <p>Hello hello World. See http://plain.example.com/text for more.</p>
</body>
</html>`

func TestExtract_Links(t *testing.T) {
	t.Parallel()

	e := New()
	res := e.Extract([]byte(samplePage), "text/html; charset=utf-8", "http://example.com/dir/index.html")

	want := []string{
		"http://example.com/style.css",
		"http://example.com/dir/app.js",
		"http://example.com/about",
		"https://other.example.org/page",
		"http://example.com/dir/images/logo.png",
		"http://example.com/submit",
	}
	for _, w := range want {
		if !slices.Contains(res.Links, w) {
			t.Errorf("expected link %q in %v", w, res.Links)
		}
	}

	t.Run("literal addresses are unioned", func(t *testing.T) {
		t.Parallel()
		for _, w := range []string{"https://api.example.net/v1", "http://plain.example.com/text"} {
			if !slices.Contains(res.Links, w) {
				t.Errorf("expected literal link %q in %v", w, res.Links)
			}
		}
	})

	t.Run("non-http schemes are dropped", func(t *testing.T) {
		t.Parallel()
		for _, l := range res.Links {
			if strings.HasPrefix(l, "mailto:") || strings.HasPrefix(l, "javascript:") {
				t.Errorf("unexpected link %q", l)
			}
		}
	})

	t.Run("links are unique", func(t *testing.T) {
		t.Parallel()
		seen := map[string]bool{}
		for _, l := range res.Links {
			if seen[l] {
				t.Errorf("duplicate link %q", l)
			}
			seen[l] = true
		}
	})
}

func TestExtract_Records(t *testing.T) {
	t.Parallel()

	res := New().Extract([]byte(samplePage), "text/html", "http://example.com/")

	// link, 2 scripts, 5 anchors, img, form
	if len(res.Records) != 10 {
		t.Fatalf("got %d records, expected 10: %+v", len(res.Records), res.Records)
	}

	var about *model.TagRecord
	for i := range res.Records {
		if res.Records[i].Attributes["href"] == "/about" {
			about = &res.Records[i]
		}
	}
	if about == nil {
		t.Fatal("expected record for /about anchor")
	}
	if about.Tag != "a" || about.Text != "About Us" {
		t.Errorf("unexpected record: %+v", about)
	}
}

func TestExtract_Keywords(t *testing.T) {
	t.Parallel()

	res := New().Extract([]byte(samplePage), "text/html", "http://example.com/")

	if res.Keywords["hello"] != 2 {
		t.Errorf("expected hello=2, got %d", res.Keywords["hello"])
	}
	if res.Keywords["world"] != 1 {
		t.Errorf("expected world=1, got %d", res.Keywords["world"])
	}
	if _, ok := res.Keywords["api"]; ok {
		t.Error("script text must not be counted")
	}
	if _, ok := res.Keywords["hidden"]; ok {
		t.Error("style text must not be counted")
	}
}

func TestExtract_ScanToggles(t *testing.T) {
	t.Parallel()

	t.Run("urls off", func(t *testing.T) {
		t.Parallel()
		res := New(WithScanURLs(false)).Extract([]byte(samplePage), "text/html", "http://example.com/")
		if len(res.Links) != 0 {
			t.Errorf("expected no links, got %v", res.Links)
		}
		if len(res.Records) == 0 {
			t.Error("expected records")
		}
	})

	t.Run("objects off", func(t *testing.T) {
		t.Parallel()
		res := New(WithScanObjects(false)).Extract([]byte(samplePage), "text/html", "http://example.com/")
		if len(res.Records) != 0 || len(res.Keywords) != 0 {
			t.Error("expected no records and no keywords")
		}
		if len(res.Links) == 0 {
			t.Error("expected links")
		}
	})
}

func TestExtract_CustomKeywords(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body><p>Join the Beta Program today</p><script>var alpha = 1;</script></body></html>`)
	e := New(WithKeywordSource(KeywordList{"beta", "ALPHA", "gamma", " "}))
	res := e.Extract(body, "text/html", "http://example.com/")

	if !slices.Equal(res.CustomHits, []string{"beta"}) {
		t.Errorf("CustomHits = %v, expected [beta]", res.CustomHits)
	}
}

func TestExtract_MalformedReference(t *testing.T) {
	t.Parallel()

	body := []byte(`<a href="http://[::1">bad</a><a href="/ok">ok</a>`)
	res := New().Extract(body, "text/html", "http://example.com/")

	if !slices.Contains(res.Links, "http://example.com/ok") {
		t.Errorf("expected the valid link to survive, got %v", res.Links)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "Error joining URL http://[::1 with base http://example.com/") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestExtract_UnparsableBase(t *testing.T) {
	t.Parallel()

	res := New().Extract([]byte(`<a href="/x">x</a>`), "text/html", "http://[::1")
	if len(res.Links) != 0 {
		t.Errorf("expected references to be skipped, got %v", res.Links)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected silent skip, got %v", res.Errors)
	}
}

func TestExtract_ParseUnsupported(t *testing.T) {
	t.Parallel()

	res := New().Extract([]byte{0x89, 'P', 'N', 'G', 0, 0}, "image/png", "http://example.com/a.png")
	if len(res.Links) != 0 || len(res.Records) != 0 {
		t.Error("expected empty result")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], ErrParseUnsupported.Error()) {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestExtract_LossyDecode(t *testing.T) {
	t.Parallel()

	body := []byte("<p>caf\xe9 \xff ok</p>")
	res := New().Extract(body, "text/html", "http://example.com/")
	if !res.Lossy {
		t.Error("expected lossy decode")
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "Error decoding http://example.com/") {
		t.Errorf("expected a decode error entry, got %v", res.Errors)
	}
	if res.Keywords["ok"] != 1 {
		t.Errorf("expected extraction to continue, got %v", res.Keywords)
	}
}

func TestResultCommit(t *testing.T) {
	t.Parallel()

	state := model.NewRunState("http://example.com/")
	res := &Result{
		Records:    []model.TagRecord{{Tag: "a"}},
		Keywords:   map[string]int{"beta": 2},
		CustomHits: []string{"beta"},
		Errors:     []string{"not committed"},
	}
	res.Commit(state, "http://example.com/1")
	res.Commit(state, "http://example.com/2")

	if got := len(state.Records()); got != 2 {
		t.Errorf("got %d records", got)
	}
	if got := state.KeywordCount("beta"); got != 4 {
		t.Errorf("got beta=%d, expected 4", got)
	}
	hits := state.CustomHits()
	if len(hits) != 1 || !slices.Equal(hits[0].Locations, []string{"http://example.com/1", "http://example.com/2"}) {
		t.Errorf("unexpected hits: %+v", hits)
	}
	if len(state.Errors()) != 0 {
		t.Error("Commit must not record errors")
	}
}

func TestEnumerate(t *testing.T) {
	t.Parallel()

	records, err := New().Enumerate([]byte(`<html><body><div id="x"><span>hi</span></div></body></html>`), "text/html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var tags []string
	for _, r := range records {
		tags = append(tags, r.Tag)
	}
	want := []string{"html", "head", "body", "div", "span"}
	if !slices.Equal(tags, want) {
		t.Errorf("tags = %v, expected %v", tags, want)
	}

	t.Run("binary is unsupported", func(t *testing.T) {
		t.Parallel()
		_, err := New().Enumerate([]byte("GIF89a"), "image/gif")
		if !errors.Is(err, ErrParseUnsupported) {
			t.Errorf("expected ErrParseUnsupported, got %v", err)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		_, err := New().Enumerate(nil, "text/html")
		if !errors.Is(err, ErrEmptyDocument) {
			t.Errorf("expected ErrEmptyDocument, got %v", err)
		}
	})
}

func TestScriptLinks(t *testing.T) {
	t.Parallel()

	js := []byte(`fetch("https://api.example.com/items"); var a = 'http://single.example.com'; load("http://cdn.example.com/x.js#v"); load("https://api.example.com/items");`)
	got := ScriptLinks(js)
	want := []string{"https://api.example.com/items", "http://cdn.example.com/x.js"}
	if !slices.Equal(got, want) {
		t.Errorf("ScriptLinks() = %v, expected %v", got, want)
	}
}

func TestKeywordFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields no keywords", func(t *testing.T) {
		t.Parallel()
		kws, err := KeywordFile(filepath.Join(t.TempDir(), "none.txt")).Keywords()
		if err != nil || len(kws) != 0 {
			t.Errorf("got %v, %v", kws, err)
		}
	})

	t.Run("lines are trimmed and lowercased, blanks skipped", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "kw.txt")
		if err := os.WriteFile(path, []byte("  Secret \n\nADMIN\n"), 0600); err != nil {
			t.Fatal(err)
		}
		kws, err := KeywordFile(path).Keywords()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(kws, []string{"secret", "admin"}) {
			t.Errorf("got %v", kws)
		}
	})

	t.Run("file is re-read on each call", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "kw.txt")
		src := KeywordFile(path)
		if err := os.WriteFile(path, []byte("one\n"), 0600); err != nil {
			t.Fatal(err)
		}
		first, _ := src.Keywords()
		if err := os.WriteFile(path, []byte("one\ntwo\n"), 0600); err != nil {
			t.Fatal(err)
		}
		second, _ := src.Keywords()
		if len(first) != 1 || len(second) != 2 {
			t.Errorf("got %v then %v", first, second)
		}
	})
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := Tokenize("Héllo, HÉLLO! snake_case 42 über")
	want := map[string]int{"héllo": 2, "snake_case": 1, "42": 1, "über": 1}
	if len(got) != len(want) {
		t.Fatalf("got %v, expected %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %d, expected %d", k, got[k], v)
		}
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("utf-8 passes through", func(t *testing.T) {
		t.Parallel()
		text, lossy := Decode([]byte("héllo"), "")
		if text != "héllo" || lossy {
			t.Errorf("got %q, %v", text, lossy)
		}
	})

	t.Run("declared charset is honoured", func(t *testing.T) {
		t.Parallel()
		text, lossy := Decode([]byte("caf\xe9"), "text/html; charset=iso-8859-1")
		if text != "café" || lossy {
			t.Errorf("got %q, %v", text, lossy)
		}
	})

	t.Run("undeclared invalid bytes are replaced", func(t *testing.T) {
		t.Parallel()
		text, lossy := Decode([]byte("a\xffb"), "")
		if text != "a\uFFFDb" || !lossy {
			t.Errorf("got %q, %v", text, lossy)
		}
	})
}
