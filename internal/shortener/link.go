package shortener

import (
	"errors"
	"time"
)

// AnonymousPartition holds links created without an owner.
const AnonymousPartition = "anonymous"

var (
	ErrNotFound            = errors.New("short link not found")
	ErrAliasTaken          = errors.New("alias already in use")
	ErrExpired             = errors.New("short link expired")
	ErrInvalidURL          = errors.New("invalid url: must be an absolute http or https url")
	ErrInvalidAlias        = errors.New("invalid alias")
	ErrAllocationExhausted = errors.New("could not allocate a unique alias")
)

// ShortLink maps an alias to a long URL.
type ShortLink struct {
	Alias       string
	LongURL     string
	OwnerID     string // empty for anonymous links
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	TotalClicks int64
}

// Partition returns the alias space the link lives in.
func (l *ShortLink) Partition() string {
	return PartitionFor(l.OwnerID)
}

// IsExpired reports whether the link has an expiration date before now.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// IsOwnedBy reports whether userID owns the link. Anonymous links have no owner.
func (l *ShortLink) IsOwnedBy(userID string) bool {
	return l.OwnerID != "" && l.OwnerID == userID
}

// PartitionFor maps an owner id to its alias space.
func PartitionFor(ownerID string) string {
	if ownerID == "" {
		return AnonymousPartition
	}

	return ownerID
}
