package lock

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestParseRecord(t *testing.T) {
	cases := []struct {
		in   string
		want Record
	}{
		{"owner:1", Record{Owner: "owner", Count: 1}},
		{"a:b:c:12", Record{Owner: "a:b:c", Count: 12}},
		{"uuid:7:3", Record{Owner: "uuid:7", Count: 3}},
		{"legacy", Record{Owner: "legacy", Count: 1, Legacy: true}},
		{"trailing:", Record{Owner: "trailing:", Count: 1, Legacy: true}},
		{"mixed:1x", Record{Owner: "mixed:1x", Count: 1, Legacy: true}},
		{"big:99999999999999999999", Record{Owner: "big", Count: math.MaxInt64}},
		{"", Record{Owner: "", Count: 1, Legacy: true}},
	}
	for _, c := range cases {
		if got := ParseRecord(c.in); got != c.want {
			t.Errorf("ParseRecord(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestRecordStringRoundTrip(t *testing.T) {
	owner := NewOwner()
	r := Record{Owner: owner, Count: 4}
	if got := ParseRecord(r.String()); got != r {
		t.Fatalf("round trip: got %+v want %+v", got, r)
	}
}

func TestNewOwnerUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		o := NewOwner()
		if _, dup := seen[o]; dup {
			t.Fatalf("duplicate owner %q", o)
		}
		seen[o] = struct{}{}
		if !strings.HasPrefix(o, processID+":") {
			t.Fatalf("owner %q lacks process id", o)
		}
	}
}

func TestNewOwnerConcurrent(t *testing.T) {
	const n = 64
	ch := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() { ch <- NewOwner() }()
	}
	seen := make(map[string]struct{})
	for i := 0; i < n; i++ {
		o := <-ch
		if _, dup := seen[o]; dup {
			t.Fatalf("duplicate owner %q across goroutines", o)
		}
		seen[o] = struct{}{}
	}
}

func TestRenewPeriod(t *testing.T) {
	cases := []struct {
		ttl, floor, want time.Duration
	}{
		{3 * time.Second, 100 * time.Millisecond, time.Second},
		{150 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond},
		{time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond},
		{30 * time.Second, 500 * time.Millisecond, 10 * time.Second},
	}
	for _, c := range cases {
		if got := renewPeriod(c.ttl, c.floor); got != c.want {
			t.Errorf("renewPeriod(%v, %v) = %v, want %v", c.ttl, c.floor, got, c.want)
		}
	}
}
