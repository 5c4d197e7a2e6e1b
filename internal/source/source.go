package source

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-ap/errors"

	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// Format selects how a payload is decoded.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatICS  Format = "ics"
)

// ParseFormat maps config strings to a Format; unknown values are auto.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON
	case FormatICS:
		return FormatICS
	default:
		return FormatAuto
	}
}

// maxBody caps how much of a source is read.
const maxBody = 16 << 20

// Loader reads the startup event list from a file or an HTTP(S) URL.
//
// Remote sources are always fetched fresh: requests ask intermediaries not
// to serve cached copies and nothing is cached locally.
type Loader struct {
	client   *http.Client
	format   Format
	location *time.Location
}

// Option customizes a Loader.
type Option func(*Loader)

// WithFormat forces a payload format instead of sniffing it.
func WithFormat(f Format) Option {
	return func(l *Loader) { l.format = f }
}

// WithLocation sets the zone ICS times are converted into.
func WithLocation(loc *time.Location) Option {
	return func(l *Loader) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:   &http.Client{Timeout: 15 * time.Second},
		format:   FormatAuto,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and decodes every event at location. Any failure, including a
// single malformed record, fails the whole load.
func (l *Loader) Load(ctx context.Context, location string) ([]model.Event, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.Newf("event source is empty")
	}

	var (
		body        []byte
		contentType string
		err         error
	)
	if isRemote(location) {
		body, contentType, err = l.fetch(ctx, location)
	} else {
		body, err = readFile(location)
	}
	if err != nil {
		return nil, err
	}

	switch l.formatFor(location, contentType, body) {
	case FormatICS:
		return ics.Parse(body, l.location)
	default:
		return decodeJSON(body)
	}
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", errors.Annotatef(err, "bad source URL")
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	appLog.Info("event source fetch start", "url", redactURL(url))

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", errors.Annotatef(err, "fetch %s", redactURL(url))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Newf("fetch %s: %s", redactURL(url), resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, "", errors.Annotatef(err, "read %s", redactURL(url))
	}

	appLog.Info("event source fetch success", "url", redactURL(url), "bytes", len(body))
	return body, resp.Header.Get("Content-Type"), nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "open event source")
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, maxBody))
	if err != nil {
		return nil, errors.Annotatef(err, "read event source")
	}
	return body, nil
}

func (l *Loader) formatFor(location, contentType string, body []byte) Format {
	if l.format != FormatAuto && l.format != "" {
		return l.format
	}
	if strings.EqualFold(filepath.Ext(stripQuery(location)), ".ics") {
		return FormatICS
	}
	if strings.Contains(strings.ToLower(contentType), "text/calendar") {
		return FormatICS
	}
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("BEGIN:VCALENDAR")) {
		return FormatICS
	}
	return FormatJSON
}

// decodeJSON reads the data file: a JSON array of {date,title,start,end}.
func decodeJSON(body []byte) ([]model.Event, error) {
	var events []model.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, errors.Annotatef(err, "decode events JSON")
	}
	for i, ev := range events {
		if !ev.Date.Valid() {
			return nil, errors.Newf("event %d (%q) has invalid date %q", i, ev.Title, ev.Date)
		}
	}
	if events == nil {
		events = make([]model.Event, 0)
	}
	return events, nil
}

func isRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func stripQuery(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		return location[:i]
	}
	return location
}

// redactURL keeps only scheme and host of a source URL for logging.
// Credentials and path are dropped.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return "...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		rest = rest[:j]
	}
	if j := strings.LastIndex(rest, "@"); j >= 0 {
		rest = rest[j+1:]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
