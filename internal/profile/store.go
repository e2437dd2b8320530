// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile builds and caches structured author profiles: the raw
// reviewer database resolved to publication metadata plus a generated
// research summary per author.
package profile

import (
	"bufio"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"

	"github.com/pdiddy/reviewer-match/internal/pubmeta"
	"github.com/pdiddy/reviewer-match/pkg/types"
)

// Store loads the cached author-profile artifact or builds it from the
// raw database. The artifact is a JSON array of Author objects; by
// default its presence alone decides whether a rebuild happens, with no
// validation against the raw database. That means edits to the raw
// database after a cache exists are silently ignored unless Verify is
// enabled in the config.
type Store struct {
	cfg        types.ProfileConfig
	resolver   *pubmeta.Resolver
	summarizer Summarizer
	pubCache   *PubCache
	logger     *slog.Logger
}

// NewStore wires a Store. resolver and summarizer are required for
// building; a pure cache load never touches them. pubCache may be nil.
func NewStore(cfg types.ProfileConfig, resolver *pubmeta.Resolver, summarizer Summarizer, pubCache *PubCache, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cfg:        cfg,
		resolver:   resolver,
		summarizer: summarizer,
		pubCache:   pubCache,
		logger:     logger,
	}
}

// LoadOrBuild returns the author pool. An existing cache artifact is
// decoded and returned verbatim; otherwise the pool is built from the raw
// database and persisted before returning. The artifact write is
// all-or-nothing: an interrupted build leaves nothing at the cache path.
func (s *Store) LoadOrBuild(ctx context.Context) ([]types.Author, error) {
	if s.cacheUsable() {
		s.logger.Info("loading cached author profiles", "path", s.cfg.CachePath)
		return s.loadCache()
	}

	authors, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.writeCache(authors); err != nil {
		return nil, err
	}
	return authors, nil
}

// cacheUsable reports whether the artifact should be trusted. Default is
// the naive existence check; with Verify enabled the raw-database
// checksum stamp must also match.
func (s *Store) cacheUsable() bool {
	if _, err := os.Stat(s.cfg.CachePath); err != nil {
		return false
	}
	if !s.cfg.Verify {
		return true
	}

	stamp, err := os.ReadFile(s.stampPath())
	if err != nil {
		s.logger.Warn("cache stamp missing, rebuilding", "path", s.stampPath())
		return false
	}
	sum, err := s.rawChecksum()
	if err != nil || string(stamp) != sum {
		s.logger.Warn("raw database changed since cache was built, rebuilding",
			"cache", s.cfg.CachePath)
		return false
	}
	return true
}

func (s *Store) loadCache() ([]types.Author, error) {
	data, err := os.ReadFile(s.cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("reading profile cache %s: %w", s.cfg.CachePath, err)
	}
	var authors []types.Author
	if err := gojson.Unmarshal(data, &authors); err != nil {
		return nil, fmt.Errorf("parsing profile cache %s: %w", s.cfg.CachePath, err)
	}
	return authors, nil
}

// writeCache persists the pool atomically: encode to a temp file in the
// cache directory, then rename into place.
func (s *Store) writeCache(authors []types.Author) error {
	dir := filepath.Dir(s.cfg.CachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := gojson.MarshalIndent(authors, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling profiles: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".author_profile-*.json")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing profile cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, s.cfg.CachePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publishing profile cache: %w", err)
	}

	if s.cfg.Verify {
		sum, err := s.rawChecksum()
		if err != nil {
			return fmt.Errorf("stamping profile cache: %w", err)
		}
		if err := os.WriteFile(s.stampPath(), []byte(sum), 0o644); err != nil {
			return fmt.Errorf("writing cache stamp: %w", err)
		}
	}
	return nil
}

func (s *Store) stampPath() string {
	return s.cfg.CachePath + ".sum"
}

func (s *Store) rawChecksum() (string, error) {
	data, err := os.ReadFile(s.cfg.DataPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// rawRecord is one line of the raw reviewer database. A publication entry
// is either a URL string or an inline {title, abstract} object.
type rawRecord struct {
	Name         string            `json:"name"`
	Publications []gojson.RawMessage `json:"publication_urls_or_content"`

	// Pubs is an accepted shorthand key for inline publication objects.
	Pubs []gojson.RawMessage `json:"pubs"`
}

// build reads the raw database and derives the full author pool. Any
// malformed record aborts the whole build; there is no partial-success
// mode.
func (s *Store) build(ctx context.Context) ([]types.Author, error) {
	f, err := os.Open(s.cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("opening reviewer database %s: %w", s.cfg.DataPath, err)
	}
	defer f.Close()

	var authors []types.Author

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var rec rawRecord
		if err := gojson.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("parsing database line %d: %w", line, err)
		}

		author, err := s.buildAuthor(ctx, rec, line)
		if err != nil {
			return nil, err
		}
		authors = append(authors, author)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading reviewer database: %w", err)
	}

	return authors, nil
}

func (s *Store) buildAuthor(ctx context.Context, rec rawRecord, line int) (types.Author, error) {
	entries := rec.Publications
	if len(entries) == 0 {
		entries = rec.Pubs
	}

	if rec.Name == "" {
		return types.Author{}, fmt.Errorf("database line %d: record has no name", line)
	}
	if len(entries) == 0 {
		return types.Author{}, fmt.Errorf("database line %d: author %q has no publications", line, rec.Name)
	}

	s.logger.Info("building author profile", "author", rec.Name, "publications", len(entries))

	pubs := make([]types.Publication, 0, len(entries))
	for i, entry := range entries {
		pub, err := s.resolveEntry(ctx, entry)
		if err != nil {
			return types.Author{}, fmt.Errorf("author %q publication %d: %w", rec.Name, i, err)
		}
		pubs = append(pubs, pub)
	}

	summary, err := s.summarizer.Summarize(ctx, pubs)
	if err != nil {
		return types.Author{}, fmt.Errorf("summarizing author %q: %w", rec.Name, err)
	}

	return types.Author{
		Name:         rec.Name,
		Publications: pubs,
		Summary:      summary,
	}, nil
}

// resolveEntry turns one raw publication entry into metadata. Inline
// objects pass through; URL strings are resolved, consulting the
// publication cache first so interrupted builds don't refetch.
func (s *Store) resolveEntry(ctx context.Context, entry gojson.RawMessage) (types.Publication, error) {
	var url string
	if err := gojson.Unmarshal(entry, &url); err == nil {
		return s.resolveURL(ctx, url)
	}

	var pub types.Publication
	if err := gojson.Unmarshal(entry, &pub); err != nil {
		return types.Publication{}, fmt.Errorf("publication entry is neither a URL nor an object: %w", err)
	}
	if pub.Title == "" {
		return types.Publication{}, fmt.Errorf("inline publication has no title")
	}
	return pub, nil
}

func (s *Store) resolveURL(ctx context.Context, url string) (types.Publication, error) {
	if s.pubCache != nil {
		if pub, ok, err := s.pubCache.Get(ctx, url); err != nil {
			return types.Publication{}, err
		} else if ok {
			return pub, nil
		}
	}

	if s.resolver == nil {
		return types.Publication{}, fmt.Errorf("no metadata resolver configured for %q", url)
	}

	pub, err := s.resolver.Resolve(ctx, url)
	if err != nil {
		return types.Publication{}, err
	}

	if s.pubCache != nil {
		if err := s.pubCache.Put(ctx, url, pub); err != nil {
			return types.Publication{}, err
		}
	}
	return pub, nil
}
