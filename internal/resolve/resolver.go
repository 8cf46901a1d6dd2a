// Package resolve decides, for every referenced asset, which library owns
// it, its stable platform identifier, and where its transcoded bytes land.
package resolve

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"jigpipe/internal/album"
	"jigpipe/internal/media"
)

// Namespace for derived asset identifiers. The same (game, path) pair must
// resolve to the same UUID across processes, so the namespace is fixed.
var assetNamespace = uuid.MustParse("9d1f2a64-5c1b-45ab-8a64-2f1c7a90be03")

// Resolved describes one asset after resolution.
type Resolved struct {
	Library    media.Library
	UUID       uuid.UUID
	Kind       media.Kind
	TargetPath string // relative path under the slide media directory; empty for Web assets
	SourceURL  string // absolute URL the bytes come from; raw reference for Web assets
}

// Resolver interns asset resolutions for one manifest. Derivation is
// local-only today; a remote naming service could slot in behind Resolve
// without changing callers.
type Resolver struct {
	gameID  string
	baseURL string

	mu       sync.Mutex
	interned map[string]Resolved
}

// New builds a resolver scoped to the manifest's game and base URL.
func New(manifest *album.SrcManifest) *Resolver {
	return &Resolver{
		gameID:   manifest.GameID,
		baseURL:  strings.TrimRight(manifest.BaseURL, "/"),
		interned: make(map[string]Resolved),
	}
}

// Resolve maps one raw asset reference to its library, stable UUID, and
// target path. Repeated calls with the same reference return the interned
// resolution; two UUIDs are never allocated for one asset.
func (r *Resolver) Resolve(rawRef string, kind media.Kind) (Resolved, error) {
	ref := strings.TrimSpace(rawRef)
	if ref == "" {
		return Resolved{}, fmt.Errorf("empty asset reference")
	}

	key := r.normalize(ref)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.interned[key]; ok {
		return cached, nil
	}

	resolved, err := r.resolveLocked(ref, key, kind)
	if err != nil {
		return Resolved{}, err
	}
	r.interned[key] = resolved
	return resolved, nil
}

// Snapshot returns a copy of every interned resolution.
func (r *Resolver) Snapshot() map[string]Resolved {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Resolved, len(r.interned))
	for k, v := range r.interned {
		out[k] = v
	}
	return out
}

func (r *Resolver) resolveLocked(ref, key string, kind media.Kind) (Resolved, error) {
	id := uuid.NewSHA1(assetNamespace, []byte(r.gameID+"/"+key))

	switch {
	case strings.HasPrefix(ref, r.baseURL+"/") || ref == r.baseURL:
		// Assets inside the manifest's base URL belong to the shared library.
		rel := strings.TrimPrefix(strings.TrimPrefix(ref, r.baseURL), "/")
		return Resolved{
			Library:    media.LibraryGlobal,
			UUID:       id,
			Kind:       kind,
			TargetPath: stripQuery(rel),
			SourceURL:  ref,
		}, nil
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		// External web-hosted assets are linked verbatim.
		return Resolved{
			Library:   media.LibraryWeb,
			UUID:      id,
			Kind:      kind,
			SourceURL: ref,
		}, nil
	default:
		// Bare paths only exist in a user's private context.
		rel := stripQuery(strings.TrimPrefix(ref, "/"))
		return Resolved{
			Library:    media.LibraryUser,
			UUID:       id,
			Kind:       kind,
			TargetPath: rel,
			SourceURL:  r.baseURL + "/" + rel,
		}, nil
	}
}

// normalize produces the interning key: the asset's path local to the game,
// query-stripped and cleaned.
func (r *Resolver) normalize(ref string) string {
	trimmed := ref
	if strings.HasPrefix(trimmed, r.baseURL) {
		trimmed = strings.TrimPrefix(trimmed, r.baseURL)
	}
	if u, err := url.Parse(trimmed); err == nil {
		trimmed = u.EscapedPath()
		if u.Host != "" {
			trimmed = u.Host + trimmed
		}
	}
	return path.Clean(strings.TrimPrefix(trimmed, "/"))
}

func stripQuery(ref string) string {
	if i := strings.IndexByte(ref, '?'); i >= 0 {
		return ref[:i]
	}
	return ref
}
