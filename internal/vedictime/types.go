package vedictime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultSource identifies the upstream origin in every snapshot.
const DefaultSource = "vedicstandardtime.com"

// fetchedAtLayout renders timestamps the way JavaScript's toISOString does.
const fetchedAtLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrSessionLaunch indicates the headless browser could not be started.
	ErrSessionLaunch = errors.New("browser session launch failed")
	// ErrNavigation indicates the upstream page could not be loaded.
	ErrNavigation = errors.New("upstream navigation failed")
	// ErrExtractionFailed indicates no clock text was found on the rendered page.
	ErrExtractionFailed = errors.New("no time pattern found on upstream page")
	// ErrReload marks a failed best-effort reload. It never escapes ReadSnapshot.
	ErrReload = errors.New("upstream reload failed")
)

// Snapshot is the cached clock reading served to clients.
type Snapshot struct {
	Time      string
	Location  *string
	Source    string
	FetchedAt time.Time
}

type snapshotJSON struct {
	Time      string  `json:"time"`
	Location  *string `json:"location"`
	Source    string  `json:"source"`
	FetchedAt string  `json:"fetched_at"`
}

// MarshalJSON encodes the snapshot with a null location when absent and a
// millisecond precision UTC timestamp.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(snapshotJSON{
		Time:      s.Time,
		Location:  s.Location,
		Source:    s.Source,
		FetchedAt: s.FetchedAt.UTC().Format(fetchedAtLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// PageText is the raw text read from the rendered page.
type PageText struct {
	// TextNodes holds trimmed, non-empty text node contents under <body> in
	// depth-first document order.
	TextNodes []string `json:"textNodes"`
	// InnerText is the body's rendered text, newline separated.
	InnerText string `json:"innerText"`
}

// Extraction is the result of running Extract over a PageText.
type Extraction struct {
	Time     *string
	Location *string
}
