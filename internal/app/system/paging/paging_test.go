// internal/app/system/paging/paging_test.go
package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParseStart(t *testing.T) {
	cases := []struct {
		url  string
		want int
	}{
		{"/teams", 1},
		{"/teams?start=1", 1},
		{"/teams?start=51", 51},
		{"/teams?start=0", 1},
		{"/teams?start=-5", 1},
		{"/teams?start=abc", 1},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", tc.url, nil)
		if got := ParseStart(r); got != tc.want {
			t.Errorf("ParseStart(%q) = %d, want %d", tc.url, got, tc.want)
		}
	}
}

func TestSkip(t *testing.T) {
	if got := Skip(1); got != 0 {
		t.Errorf("Skip(1) = %d, want 0", got)
	}
	if got := Skip(51); got != 50 {
		t.Errorf("Skip(51) = %d, want 50", got)
	}
	if got := Skip(0); got != 0 {
		t.Errorf("Skip(0) = %d, want 0", got)
	}
}

func TestTrim(t *testing.T) {
	full := make([]int, PageSize+1)
	if !Trim(&full) {
		t.Error("expected hasNext for an over-full page")
	}
	if len(full) != PageSize {
		t.Errorf("expected %d rows after trim, got %d", PageSize, len(full))
	}

	partial := make([]int, 3)
	if Trim(&partial) {
		t.Error("did not expect hasNext for a partial page")
	}
	if len(partial) != 3 {
		t.Errorf("partial page resized to %d", len(partial))
	}
}

func TestNewPageNeverNil(t *testing.T) {
	p := NewPage[int](nil, 1, false)
	if p.Items == nil {
		t.Error("expected empty slice, got nil")
	}
}
