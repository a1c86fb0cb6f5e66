package analytics_test

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/geo"
)

var errMock = errors.New("mock error")

type mockClicks struct {
	mu        sync.Mutex
	events    []analytics.ClickEvent
	appendErr error
	listErr   error
}

func (m *mockClicks) Append(_ context.Context, event *analytics.ClickEvent) error {
	if m.appendErr != nil {
		return m.appendErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, *event)

	return nil
}

func (m *mockClicks) ListByAlias(_ context.Context, alias string) iter.Seq2[analytics.ClickEvent, error] {
	return func(yield func(analytics.ClickEvent, error) bool) {
		if m.listErr != nil {
			yield(analytics.ClickEvent{}, m.listErr)

			return
		}

		m.mu.Lock()
		events := append([]analytics.ClickEvent(nil), m.events...)
		m.mu.Unlock()

		for _, e := range events {
			if e.Alias != alias {
				continue
			}

			if !yield(e, nil) {
				return
			}
		}
	}
}

type mockGeo struct {
	loc   *geo.Location
	err   error
	calls []string
}

func (m *mockGeo) Lookup(_ context.Context, ip string) (*geo.Location, error) {
	m.calls = append(m.calls, ip)

	return m.loc, m.err
}
