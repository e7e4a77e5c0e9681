package catalog

import (
	"context"
	"fmt"

	"github.com/dooshek/voiceassist/internal/logger"
)

// Fetcher is the part of the backend client the loader needs
type Fetcher interface {
	GetCharacters(ctx context.Context) (*Catalog, error)
	GetLanguages(ctx context.Context, character string) ([]Language, error)
}

// Source tells where a loaded catalog came from
type Source int

const (
	SourceRemote Source = iota
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Result of a catalog load. Catalog is always usable; Err carries the reason
// the fallback was used.
type Result struct {
	Catalog *Catalog
	Source  Source
	Err     error
}

// UsedFallback reports whether the compiled-in catalog was substituted
func (r Result) UsedFallback() bool {
	return r.Source == SourceFallback
}

// Load makes a single attempt to fetch the catalog and substitutes the
// fallback catalog on any failure.
func Load(ctx context.Context, f Fetcher) Result {
	remote, err := f.GetCharacters(ctx)
	if err != nil {
		logger.Warnf("Loading characters failed, using fallback catalog: %v", err)
		return Result{Catalog: Fallback(), Source: SourceFallback, Err: err}
	}
	if remote == nil {
		return Result{Catalog: Fallback(), Source: SourceFallback, Err: fmt.Errorf("backend returned no characters")}
	}

	logger.Debugf("Loaded %d characters from backend", remote.Len())
	return Result{Catalog: remote, Source: SourceRemote}
}

// Languages asks the backend for a character's languages and falls back to
// the compiled-in catalog when the backend fails.
func Languages(ctx context.Context, f Fetcher, character string) ([]Language, error) {
	languages, err := f.GetLanguages(ctx, character)
	if err == nil {
		return languages, nil
	}

	logger.Warnf("Loading languages for %s failed: %v", character, err)
	if fb, ok := Fallback().Get(character); ok && len(fb.Languages) > 0 {
		return fb.Languages, nil
	}
	return nil, fmt.Errorf("failed to load languages for %s: %w", character, err)
}
