package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxAliasLength bounds caller-chosen aliases.
const MaxAliasLength = 64

// DefaultMaxAttempts is used when the allocator is given a non-positive bound.
const DefaultMaxAttempts = 5

// Aliases that would shadow service routes.
var reservedAliases = map[string]struct{}{
	"api":     {},
	"docs":    {},
	"health":  {},
	"openapi": {},
	"schemas": {},
	"shorten": {},
}

// CodeGenerator generates candidate aliases.
type CodeGenerator func() string

// Allocator picks an alias for a link and persists it under that alias.
type Allocator struct {
	store        Repository
	generateCode CodeGenerator
	maxAttempts  int
}

// NewAllocator creates an allocator that retries generated aliases up to maxAttempts times.
func NewAllocator(store Repository, generator CodeGenerator, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Allocator{
		store:        store,
		generateCode: generator,
		maxAttempts:  maxAttempts,
	}
}

// Allocate stores link under requested when given, otherwise under a generated alias.
//
// A requested alias gets exactly one attempt and surfaces ErrAliasTaken.
// Generated aliases are retried on collision and fail with
// ErrAllocationExhausted once the attempts run out.
func (a *Allocator) Allocate(ctx context.Context, link *ShortLink, requested string) error {
	if requested != "" {
		if err := ValidateAlias(requested); err != nil {
			return err
		}

		link.Alias = requested

		return a.store.Create(ctx, link)
	}

	for range a.maxAttempts {
		link.Alias = a.generateCode()

		err := a.store.Create(ctx, link)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrAliasTaken) {
			return err
		}
	}

	link.Alias = ""

	return fmt.Errorf("%w after %d attempts", ErrAllocationExhausted, a.maxAttempts)
}

// ValidateAlias checks a caller-chosen alias: 1-64 characters from
// [A-Za-z0-9_-], not one of the reserved route names.
func ValidateAlias(alias string) error {
	if alias == "" || len(alias) > MaxAliasLength {
		return fmt.Errorf("%w: length must be between 1 and %d", ErrInvalidAlias, MaxAliasLength)
	}

	for _, r := range alias {
		if !isAliasRune(r) {
			return fmt.Errorf("%w: only letters, digits, '_' and '-' are allowed", ErrInvalidAlias)
		}
	}

	if _, reserved := reservedAliases[strings.ToLower(alias)]; reserved {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidAlias, alias)
	}

	return nil
}

func isAliasRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	default:
		return false
	}
}
