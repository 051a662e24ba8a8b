package model

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
)

func TestAddressSetAdd(t *testing.T) {
	t.Parallel()

	t.Run("first add is new, second is not", func(t *testing.T) {
		t.Parallel()

		s := NewAddressSet()
		if !s.Add("http://a.test/") {
			t.Error("expected first Add to report new")
		}
		if s.Add("http://a.test/") {
			t.Error("expected second Add to report not new")
		}
		if s.Len() != 1 {
			t.Errorf("got %d addresses, expected 1", s.Len())
		}
	})

	t.Run("fragment does not create a new identity", func(t *testing.T) {
		t.Parallel()

		s := NewAddressSet()
		s.Add("http://a.test/page")
		if s.Add("http://a.test/page#top") {
			t.Error("expected fragment variant to be a duplicate")
		}
	})

	t.Run("first depth wins", func(t *testing.T) {
		t.Parallel()

		s := NewAddressSet()
		s.AddAtDepth("http://a.test/x", 2)
		s.AddAtDepth("http://a.test/x", 1)

		d, ok := s.Depth("http://a.test/x")
		if !ok || d != 2 {
			t.Errorf("got depth %d (ok=%v), expected 2", d, ok)
		}
	})

	t.Run("empty address is ignored", func(t *testing.T) {
		t.Parallel()

		s := NewAddressSet()
		if s.Add("") {
			t.Error("expected empty address to be rejected")
		}
	})
}

func TestAddressSetStates(t *testing.T) {
	t.Parallel()

	s := NewAddressSet()
	s.Add("http://a.test/1")
	s.Add("http://a.test/2")
	s.Add("http://a.test/3")

	s.MarkVisited("http://a.test/1")
	s.MarkDenied("http://a.test/2")

	if got := s.Pending(); !slices.Equal(got, []string{"http://a.test/3"}) {
		t.Errorf("Pending() = %v", got)
	}
	if !s.IsVisited("http://a.test/2") {
		t.Error("denied address must also be visited")
	}
	if got := s.Denied(); !slices.Equal(got, []string{"http://a.test/2"}) {
		t.Errorf("Denied() = %v", got)
	}
	if got := s.Visited(); !slices.Equal(got, []string{"http://a.test/1", "http://a.test/2"}) {
		t.Errorf("Visited() = %v", got)
	}

	d, v, n := s.Counts()
	if d != 3 || v != 2 || n != 1 {
		t.Errorf("Counts() = %d, %d, %d", d, v, n)
	}
}

func TestAddressSetMarkVisitedUnknown(t *testing.T) {
	t.Parallel()

	s := NewAddressSet()
	s.MarkVisited("http://a.test/unknown")

	if !s.Contains("http://a.test/unknown") {
		t.Error("visited must be a subset of discovered")
	}
}

func TestAddressSetPendingRecomputed(t *testing.T) {
	t.Parallel()

	s := NewAddressSet()
	s.Add("http://a.test/1")
	if len(s.Pending()) != 1 {
		t.Fatal("expected one pending address")
	}
	s.Add("http://a.test/2")
	s.MarkVisited("http://a.test/1")

	if got := s.Pending(); !slices.Equal(got, []string{"http://a.test/2"}) {
		t.Errorf("Pending() = %v", got)
	}
}

func TestAddressSetConcurrentAdd(t *testing.T) {
	t.Parallel()

	s := NewAddressSet()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("http://a.test/race") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("got %d winners, expected exactly 1", wins.Load())
	}
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in, want string
	}{
		{"http://a.test/", "http://a.test/"},
		{"http://a.test/p#frag", "http://a.test/p"},
		{"http://a.test/p#", "http://a.test/p"},
		{"http://a.test/p?q=1", "http://a.test/p?q=1"},
	}
	for i, tc := range testCases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			t.Parallel()
			if got := NormalizeAddress(tc.in); got != tc.want {
				t.Errorf("NormalizeAddress(%q) = %q, expected %q", tc.in, got, tc.want)
			}
		})
	}
}
