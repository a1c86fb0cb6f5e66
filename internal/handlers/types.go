package handlers

import (
	"net/http"
	"time"

	"github.com/serroba/shortlinks/internal/analytics"
)

// ShortenRequest is the request body for creating a short link.
type ShortenRequest struct {
	Body struct {
		LongURL        string     `doc:"The URL to shorten"                                    example:"https://example.com/very/long/path" json:"longUrl"                  required:"false"`
		Alias          string     `doc:"Custom alias, honored for signed-in callers only"      example:"my-link"                           json:"alias,omitempty"          required:"false"`
		ExpirationDate *time.Time `doc:"Instant after which the link stops redirecting (UTC)" json:"expirationDate,omitempty" required:"false"`
	}
}

// ShortenResponse is the response for a created short link.
type ShortenResponse struct {
	Body struct {
		ShortURL  string     `doc:"The full short URL" example:"http://localhost:8888/abc123" json:"shortUrl"`
		Alias     string     `doc:"The alias"          example:"abc123"                       json:"alias"`
		ExpiresAt *time.Time `doc:"Expiration date, null when the link never expires"          json:"expiresAt"`
	}
}

// RedirectRequest is the request for following a short link.
type RedirectRequest struct {
	Alias string `doc:"The alias" example:"abc123" path:"alias"`
}

// RedirectResponse sends the visitor to the long URL.
type RedirectResponse struct {
	Status   int
	Location string `doc:"The long URL" header:"Location"`
}

// LinkItem is one link in a history listing.
type LinkItem struct {
	Alias          string     `json:"alias"`
	ShortURL       string     `json:"shortUrl"`
	LongURL        string     `json:"longUrl"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpirationDate *time.Time `json:"expirationDate"`
	TotalClicks    int64      `json:"totalClicks"`
}

// HistoryResponse lists the caller's links, newest first.
type HistoryResponse struct {
	Body struct {
		URLs []LinkItem `json:"urls"`
	}
}

// StatsRequest selects the link to aggregate.
type StatsRequest struct {
	Alias string `doc:"The alias" example:"abc123" path:"alias"`
}

// ClickItem is one raw click in a stats payload.
type ClickItem struct {
	ClickedAt time.Time `json:"clickedAt"`
	IP        string    `json:"ip"`
	Referrer  *string   `json:"referrer"`
	UserAgent string    `json:"userAgent"`
	Country   string    `json:"country"`
	Region    string    `json:"region"`
	City      string    `json:"city"`
}

// StatsResponse is the analytics payload of a link.
type StatsResponse struct {
	Body struct {
		Alias               string            `json:"alias"`
		LongURL             string            `json:"longUrl"`
		TotalClicks         int               `doc:"Number of recorded click events" json:"totalClicks"`
		CreatedAt           time.Time         `json:"createdAt"`
		ExpirationDate      *time.Time        `json:"expirationDate"`
		LastClick           *time.Time        `json:"lastClick"`
		ClicksByDay         map[string]int    `doc:"Clicks per UTC day (YYYY-MM-DD)" json:"clicksByDay"`
		TopReferrers        map[string]int    `json:"topReferrers"`
		TopUserAgents       map[string]int    `json:"topUserAgents"`
		TopReferrersRanked  []analytics.Count `doc:"Ten most frequent referrers, most clicks first" json:"topReferrersRanked"`
		TopUserAgentsRanked []analytics.Count `doc:"Ten most frequent user agents, most clicks first" json:"topUserAgentsRanked"`
		ClicksOverTime      []ClickItem       `json:"clicksOverTime"`
	}
}

// UserView is the public part of an account.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Body struct {
		Email    string `example:"ann@example.com" json:"email"    required:"false"`
		Password string `json:"password"         required:"false"`
		Name     string `json:"name,omitempty"     required:"false"`
	}
}

// LoginRequest opens a session.
type LoginRequest struct {
	Body struct {
		Email    string `example:"ann@example.com" json:"email"    required:"false"`
		Password string `json:"password"         required:"false"`
	}
}

// SessionResponse sets the session cookies and returns the user.
type SessionResponse struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      struct {
		OK   bool     `json:"ok"`
		User UserView `json:"user"`
	}
}

// RefreshRequest carries the refresh cookie.
type RefreshRequest struct {
	RefreshToken string `cookie:"refresh_token"`
}

// OKResponse is a bare acknowledgement that may set cookies.
type OKResponse struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      struct {
		OK bool `json:"ok"`
	}
}

// LogoutRequest carries the refresh cookie, if any.
type LogoutRequest struct {
	RefreshToken string `cookie:"refresh_token"`
}

// MeResponse returns the signed-in user.
type MeResponse struct {
	Body struct {
		User UserView `json:"user"`
	}
}
