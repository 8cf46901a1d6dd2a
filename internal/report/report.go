// Package report reconciles the output tree: it cross-references
// provisioned modules, downloaded album descriptors, and transcoded game
// directories, then emits set-difference reports.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"

	"jigpipe/internal/faults"
	"jigpipe/internal/fileutil"
	"jigpipe/internal/logging"
	"jigpipe/internal/modules"
)

// Result holds the four reconciled game-id sets, each sorted.
type Result struct {
	GamesInJIGs          []string
	GamesInAlbums        []string
	GamesInJIGsNotAlbums []string
	GamesInAlbumsNotJIGs []string
	TranscodedGames      []string
}

// Reconciler walks one output directory.
type Reconciler struct {
	outputDir string
	logger    *slog.Logger
}

// New creates a reconciler over outputDir.
func New(outputDir string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{
		outputDir: outputDir,
		logger:    logger.With(logging.String(logging.FieldComponent, "report")),
	}
}

// Run scans the tree, writes the four report files under reports/, and
// returns the sets. A jig whose modules reference more than one game is a
// fatal assertion; the offending path is part of the diagnostic.
func (r *Reconciler) Run() (*Result, error) {
	jigGames, err := r.scanModules()
	if err != nil {
		return nil, err
	}
	albumGames, err := r.scanAlbums()
	if err != nil {
		return nil, err
	}
	transcoded, err := r.scanGames()
	if err != nil {
		return nil, err
	}

	result := &Result{
		GamesInJIGs:          sortedKeys(jigGames),
		GamesInAlbums:        sortedKeys(albumGames),
		GamesInJIGsNotAlbums: difference(jigGames, albumGames),
		GamesInAlbumsNotJIGs: difference(albumGames, jigGames),
		TranscodedGames:      transcoded,
	}

	files := map[string][]string{
		"games_in_jigs.json":                result.GamesInJIGs,
		"games_in_albums.json":              result.GamesInAlbums,
		"games_in_jigs_but_not_albums.json": result.GamesInJIGsNotAlbums,
		"games_in_albums_but_not_jigs.json": result.GamesInAlbumsNotJIGs,
	}
	reportDir := filepath.Join(r.outputDir, "reports")
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	for name, set := range files {
		data, err := json.MarshalIndent(set, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		if err := fileutil.WriteFileAtomic(filepath.Join(reportDir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return result, nil
}

// RenderSummary prints the reconciliation counts as a table.
func (r *Result) RenderSummary(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Set", "Count"})
	t.AppendRows([]table.Row{
		{"games in jigs", len(r.GamesInJIGs)},
		{"games in albums", len(r.GamesInAlbums)},
		{"in jigs but not albums", len(r.GamesInJIGsNotAlbums)},
		{"in albums but not jigs", len(r.GamesInAlbumsNotJIGs)},
		{"transcoded games", len(r.TranscodedGames)},
	})
	t.Render()
}

// scanModules reads every modules/<jig_id>/<module_id>.json document and
// asserts that all modules of one jig name the same game.
func (r *Reconciler) scanModules() (map[string]struct{}, error) {
	games := make(map[string]struct{})
	moduleDir := filepath.Join(r.outputDir, "modules")
	jigs, err := os.ReadDir(moduleDir)
	if os.IsNotExist(err) {
		return games, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read modules directory: %w", err)
	}

	for _, jigEntry := range jigs {
		if !jigEntry.IsDir() {
			continue
		}
		jigDir := filepath.Join(moduleDir, jigEntry.Name())
		entries, err := os.ReadDir(jigDir)
		if err != nil {
			return nil, fmt.Errorf("read jig directory %s: %w", jigDir, err)
		}

		jigGame := ""
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := filepath.Join(jigDir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read module %s: %w", path, err)
			}
			var stored modules.Stored
			if err := json.Unmarshal(data, &stored); err != nil {
				return nil, fmt.Errorf("parse module %s: %w", path, err)
			}
			if stored.GameID == "" {
				return nil, fmt.Errorf("module %s carries no game id", path)
			}
			if jigGame == "" {
				jigGame = stored.GameID
			} else if jigGame != stored.GameID {
				return nil, faults.Fatalf("jig %s references games %s and %s (module %s)",
					jigEntry.Name(), jigGame, stored.GameID, path)
			}
		}
		if jigGame != "" {
			games[jigGame] = struct{}{}
		}
	}
	return games, nil
}

// scanAlbums lists albums/<game_id>.json descriptors.
func (r *Reconciler) scanAlbums() (map[string]struct{}, error) {
	games := make(map[string]struct{})
	entries, err := os.ReadDir(filepath.Join(r.outputDir, "albums"))
	if os.IsNotExist(err) {
		return games, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read albums directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		games[strings.TrimSuffix(entry.Name(), ".json")] = struct{}{}
	}
	return games, nil
}

// scanGames lists games/<game_id>/ directories.
func (r *Reconciler) scanGames() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.outputDir, "games"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read games directory: %w", err)
	}
	var games []string
	for _, entry := range entries {
		if entry.IsDir() {
			games = append(games, entry.Name())
		}
	}
	sort.Strings(games)
	return games, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func difference(a, b map[string]struct{}) []string {
	out := []string{}
	for key := range a {
		if _, ok := b[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
