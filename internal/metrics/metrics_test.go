package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://VedicStandardTime.com/", "vedicstandardtime.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if httpRequestsTotal == nil || httpRequestDurationSeconds == nil ||
		snapshotReadsTotal == nil || pageReloadsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveReadAndReload(t *testing.T) {
	Init()

	cachedBefore := testutil.ToFloat64(snapshotReadsTotal.WithLabelValues(ReadCached))
	ObserveRead(ReadCached, 3*time.Second)
	if got := testutil.ToFloat64(snapshotReadsTotal.WithLabelValues(ReadCached)); got != cachedBefore+1 {
		t.Errorf("expected cached reads to grow by 1, got %f -> %f", cachedBefore, got)
	}
	if got := testutil.ToFloat64(snapshotAgeSeconds); got != 3 {
		t.Errorf("expected snapshot age 3s, got %f", got)
	}

	ObserveRead(ReadFailed, time.Hour)
	if got := testutil.ToFloat64(snapshotAgeSeconds); got != 3 {
		t.Errorf("failed reads must not move the snapshot age, got %f", got)
	}

	failedBefore := testutil.ToFloat64(pageReloadsTotal.WithLabelValues("vedicstandardtime.com", "error"))
	ObserveReload("https://vedicstandardtime.com/", errors.New("boom"))
	if got := testutil.ToFloat64(pageReloadsTotal.WithLabelValues("vedicstandardtime.com", "error")); got != failedBefore+1 {
		t.Errorf("expected failed reloads to grow by 1, got %f -> %f", failedBefore, got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://vedicstandardtime.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
