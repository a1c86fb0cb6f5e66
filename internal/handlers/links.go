package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/auth"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/shortener"
	"go.uber.org/zap"
)

// rankedLimit caps the ranked referrer and user agent lists of a stats payload.
const rankedLimit = 10

// LinkHandler serves shortening, redirects and link analytics.
type LinkHandler struct {
	registry           *shortener.Registry
	recorder           *analytics.Recorder
	aggregator         *analytics.Aggregator
	baseURL            string
	publishLinkCreated messaging.Publish[analytics.LinkCreatedEvent]
	logger             *zap.Logger
}

// NewLinkHandler creates a link handler. baseURL prefixes every short URL.
func NewLinkHandler(
	registry *shortener.Registry,
	recorder *analytics.Recorder,
	aggregator *analytics.Aggregator,
	baseURL string,
	publishLinkCreated messaging.Publish[analytics.LinkCreatedEvent],
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		registry:           registry,
		recorder:           recorder,
		aggregator:         aggregator,
		baseURL:            baseURL,
		publishLinkCreated: publishLinkCreated,
		logger:             logger,
	}
}

func (h *LinkHandler) shortURL(alias string) string {
	return h.baseURL + "/" + alias
}

// Shorten creates a link. Anonymous callers always get a generated alias.
func (h *LinkHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	create := shortener.CreateRequest{
		LongURL:   req.Body.LongURL,
		ExpiresAt: req.Body.ExpirationDate,
	}

	if id := auth.IdentityFrom(ctx); id != nil {
		create.OwnerID = id.UserID
		create.Alias = req.Body.Alias
	}

	link, err := h.registry.Create(ctx, create)
	if err != nil {
		return nil, linkError(h.logger, "shorten", err)
	}

	visitor := VisitorFrom(ctx)
	event := &analytics.LinkCreatedEvent{
		Alias:     link.Alias,
		LongURL:   link.LongURL,
		OwnerID:   link.OwnerID,
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
		ClientIP:  visitor.ClientIP,
		UserAgent: visitor.UserAgent,
	}

	if err := h.publishLinkCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("alias", link.Alias),
			zap.Error(err),
		)
	}

	resp := &ShortenResponse{}
	resp.Body.ShortURL = h.shortURL(link.Alias)
	resp.Body.Alias = link.Alias
	resp.Body.ExpiresAt = link.ExpiresAt

	return resp, nil
}

// Redirect counts the visit, records a click event and redirects. Expired
// links answer 410 without recording anything.
func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	link, err := h.registry.Visit(ctx, req.Alias)
	if err != nil {
		return nil, linkError(h.logger, "redirect", err)
	}

	if _, err := h.recorder.Record(ctx, VisitorFrom(ctx).Click(link.Alias)); err != nil {
		return nil, linkError(h.logger, "record click", err)
	}

	return &RedirectResponse{
		Status:   http.StatusFound,
		Location: link.LongURL,
	}, nil
}

// History lists the caller's links.
func (h *LinkHandler) History(ctx context.Context, _ *struct{}) (*HistoryResponse, error) {
	id := auth.IdentityFrom(ctx)
	if id == nil {
		return nil, huma.Error401Unauthorized("access token missing")
	}

	links, err := h.registry.ListByOwner(ctx, id.UserID)
	if err != nil {
		return nil, linkError(h.logger, "history", err)
	}

	resp := &HistoryResponse{}
	resp.Body.URLs = make([]LinkItem, 0, len(links))

	for _, link := range links {
		resp.Body.URLs = append(resp.Body.URLs, LinkItem{
			Alias:          link.Alias,
			ShortURL:       h.shortURL(link.Alias),
			LongURL:        link.LongURL,
			CreatedAt:      link.CreatedAt,
			ExpirationDate: link.ExpiresAt,
			TotalClicks:    link.TotalClicks,
		})
	}

	return resp, nil
}

// Stats aggregates the click events of a link owned by the caller.
func (h *LinkHandler) Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	id := auth.IdentityFrom(ctx)
	if id == nil {
		return nil, huma.Error401Unauthorized("access token missing")
	}

	link, err := h.registry.Resolve(ctx, req.Alias)
	if err != nil {
		return nil, linkError(h.logger, "stats", err)
	}

	if !link.IsOwnedBy(id.UserID) {
		return nil, huma.Error403Forbidden("not authorized to view stats")
	}

	stats, err := h.aggregator.Aggregate(ctx, link.Alias)
	if err != nil {
		return nil, linkError(h.logger, "aggregate", err)
	}

	resp := &StatsResponse{}
	resp.Body.Alias = link.Alias
	resp.Body.LongURL = link.LongURL
	resp.Body.TotalClicks = stats.TotalClicks
	resp.Body.CreatedAt = link.CreatedAt
	resp.Body.ExpirationDate = link.ExpiresAt
	resp.Body.LastClick = stats.LastClick
	resp.Body.ClicksByDay = stats.ClicksByDay
	resp.Body.TopReferrers = stats.TopReferrers
	resp.Body.TopUserAgents = stats.TopUserAgents
	resp.Body.TopReferrersRanked = analytics.Ranked(stats.TopReferrers, rankedLimit)
	resp.Body.TopUserAgentsRanked = analytics.Ranked(stats.TopUserAgents, rankedLimit)
	resp.Body.ClicksOverTime = make([]ClickItem, 0, len(stats.Events))

	for _, e := range stats.Events {
		item := ClickItem{
			ClickedAt: e.ClickedAt,
			IP:        e.IP,
			UserAgent: e.UserAgent,
			Country:   e.Country,
			Region:    e.Region,
			City:      e.City,
		}

		if e.Referrer != "" {
			item.Referrer = &e.Referrer
		}

		resp.Body.ClicksOverTime = append(resp.Body.ClicksOverTime, item)
	}

	return resp, nil
}
