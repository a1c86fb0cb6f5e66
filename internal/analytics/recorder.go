package analytics

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/shortlinks/internal/geo"
	"github.com/serroba/shortlinks/internal/messaging"
	"go.uber.org/zap"
)

// Unknown is recorded for any attribute that could not be determined.
const Unknown = "unknown"

// ClickEvent is one immutable visit of a short link.
type ClickEvent struct {
	ID        string
	Alias     string
	ClickedAt time.Time
	UserAgent string
	Referrer  string // empty when the request carried none
	IP        string
	Country   string
	Region    string
	City      string
}

// Click is the raw request metadata of a redirect.
type Click struct {
	Alias     string
	UserAgent string
	Referrer  string
	RawIP     string
}

// Recorder turns redirects into stored click events.
type Recorder struct {
	clicks  ClickWriter
	geo     geo.Lookup
	publish messaging.Publish[LinkClickedEvent]
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewRecorder creates a click recorder.
func NewRecorder(
	clicks ClickWriter,
	lookup geo.Lookup,
	publish messaging.Publish[LinkClickedEvent],
	logger *zap.Logger,
) *Recorder {
	return &Recorder{
		clicks:  clicks,
		geo:     lookup,
		publish: publish,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock replaces the time source. Intended for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now

	return r
}

// Record normalizes and enriches a click, then stores it. Geo lookup
// failures degrade to Unknown; publish failures are only logged.
func (r *Recorder) Record(ctx context.Context, click Click) (*ClickEvent, error) {
	ip := NormalizeIP(click.RawIP)

	event := &ClickEvent{
		ID:        r.newID(),
		Alias:     click.Alias,
		ClickedAt: r.now().UTC(),
		UserAgent: orUnknown(click.UserAgent),
		Referrer:  click.Referrer,
		IP:        ip,
		Country:   Unknown,
		Region:    Unknown,
		City:      Unknown,
	}

	r.enrich(ctx, event)

	if err := r.clicks.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("append click for %s: %w", click.Alias, err)
	}

	if err := r.publish(ctx, &LinkClickedEvent{
		ClickID:   event.ID,
		Alias:     event.Alias,
		ClickedAt: event.ClickedAt,
		Referrer:  event.Referrer,
		Country:   event.Country,
	}); err != nil {
		r.logger.Error("failed to publish click event",
			zap.String("alias", event.Alias),
			zap.Error(err),
		)
	}

	return event, nil
}

func (r *Recorder) enrich(ctx context.Context, event *ClickEvent) {
	if event.IP == Unknown {
		return
	}

	loc, err := r.geo.Lookup(ctx, event.IP)
	if err != nil {
		r.logger.Warn("geo lookup failed",
			zap.String("alias", event.Alias),
			zap.String("ip", event.IP),
			zap.Error(err),
		)

		return
	}

	if loc == nil {
		return
	}

	event.Country = orUnknown(loc.Country)
	event.Region = orUnknown(loc.Region)
	event.City = orUnknown(loc.City)
}

// NormalizeIP reduces a raw client address to a bare IP:
// first entry of a comma-separated list, IPv4-mapped prefix removed, port
// removed, loopback and empty addresses reported as Unknown.
func NormalizeIP(raw string) string {
	ip := raw
	if idx := strings.Index(ip, ","); idx != -1 {
		ip = ip[:idx]
	}

	ip = strings.TrimSpace(ip)
	ip = strings.TrimPrefix(ip, "::ffff:")
	ip = stripPort(ip)

	if ip == "" || ip == Unknown {
		return Unknown
	}

	if parsed := net.ParseIP(ip); parsed != nil && parsed.IsLoopback() {
		return Unknown
	}

	return ip
}

// stripPort removes a trailing port from "host:port" and "[v6]:port". A bare
// IPv6 address is returned unchanged.
func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}

	return strings.Trim(addr, "[]")
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}

	return s
}
