package analytics

import (
	"time"

	"github.com/serroba/shortlinks/internal/messaging"
)

var (
	TopicLinkCreated = messaging.Topic[LinkCreatedEvent]{Name: "link.created"}
	TopicLinkClicked = messaging.Topic[LinkClickedEvent]{Name: "link.clicked"}
)

// LinkCreatedEvent is emitted after a short link is stored.
type LinkCreatedEvent struct {
	Alias     string     `json:"alias"`
	LongURL   string     `json:"longUrl"`
	OwnerID   string     `json:"ownerId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	ClientIP  string     `json:"clientIp"`
	UserAgent string     `json:"userAgent"`
}

// LinkClickedEvent is emitted after a click has been recorded.
type LinkClickedEvent struct {
	ClickID   string    `json:"clickId"`
	Alias     string    `json:"alias"`
	ClickedAt time.Time `json:"clickedAt"`
	Referrer  string    `json:"referrer,omitempty"`
	Country   string    `json:"country"`
}
