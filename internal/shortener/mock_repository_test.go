package shortener_test

import (
	"context"
	"errors"
	"sort"

	"github.com/serroba/shortlinks/internal/shortener"
)

var errMock = errors.New("mock error")

// mockRepository is an in-memory Repository that counts writes and can fail on demand.
type mockRepository struct {
	links     map[string]map[string]shortener.ShortLink
	creates   int
	createErr error
	getErr    error
	incErr    error
	taken     map[string]bool // aliases reported as taken regardless of state
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		links: make(map[string]map[string]shortener.ShortLink),
		taken: make(map[string]bool),
	}
}

func (m *mockRepository) put(link shortener.ShortLink) {
	p := link.Partition()
	if m.links[p] == nil {
		m.links[p] = make(map[string]shortener.ShortLink)
	}

	m.links[p][link.Alias] = link
}

func (m *mockRepository) Create(_ context.Context, link *shortener.ShortLink) error {
	m.creates++

	if m.createErr != nil {
		return m.createErr
	}

	if m.taken[link.Alias] {
		return shortener.ErrAliasTaken
	}

	if _, ok := m.links[link.Partition()][link.Alias]; ok {
		return shortener.ErrAliasTaken
	}

	m.put(*link)

	return nil
}

func (m *mockRepository) Get(_ context.Context, partition, alias string) (*shortener.ShortLink, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}

	link, ok := m.links[partition][alias]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &link, nil
}

func (m *mockRepository) FindByAlias(_ context.Context, alias string) (*shortener.ShortLink, error) {
	partitions := make([]string, 0, len(m.links))
	for p := range m.links {
		partitions = append(partitions, p)
	}

	sort.Strings(partitions)

	for _, p := range partitions {
		if link, ok := m.links[p][alias]; ok {
			return &link, nil
		}
	}

	return nil, shortener.ErrNotFound
}

func (m *mockRepository) IncrementClicks(_ context.Context, link *shortener.ShortLink) (int64, error) {
	if m.incErr != nil {
		return 0, m.incErr
	}

	stored := m.links[link.Partition()][link.Alias]
	stored.TotalClicks++
	m.put(stored)

	return stored.TotalClicks, nil
}

func (m *mockRepository) ListByOwner(_ context.Context, ownerID string) ([]*shortener.ShortLink, error) {
	var out []*shortener.ShortLink

	for _, link := range m.links[shortener.PartitionFor(ownerID)] {
		out = append(out, &link)
	}

	return out, nil
}

// sequence returns a generator yielding codes in order, repeating the last one.
func sequence(codes ...string) shortener.CodeGenerator {
	i := 0

	return func() string {
		code := codes[min(i, len(codes)-1)]
		i++

		return code
	}
}
