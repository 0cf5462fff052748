// Package fsloader implements catalogue.Loader by scanning one or more
// on-disk library roots. It is the concrete filesystem collaborator the core
// spec treats as external (§1, §6): disk scanning and deserialization of
// graph definition files is not part of the dispatcher's contract, only the
// catalogue.Loader interface it satisfies is.
//
// Layout, per §6:
//
//	<root>/<library-dir>/lib.json
//	<root>/<library-dir>/<graph-dir>/graph.json
//	<root>/<library-dir>/<graph-dir>/<version-number>/version.json
package fsloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	ds "github.com/bmatcuk/doublestar/v4"

	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/log"
	"github.com/procflow/engine/pin"
)

// Loader scans a fixed set of library roots. Missing roots are not errors
// (§6: "Missing roots are not errors").
type Loader struct {
	Roots []string
}

// New returns a Loader over the given library roots.
func New(roots ...string) *Loader {
	return &Loader{Roots: roots}
}

type libraryFile struct {
	Name   string        `json:"name"`
	ID     identifier.ID `json:"id"`
	Author string        `json:"author"`
	Format uint64        `json:"format"`
}

// Load implements catalogue.Loader: it walks every root looking for
// lib.json, builds one catalogue.Library per match, and returns the flat
// list in the order the roots were given and libraries were discovered
// within each root (doublestar's Glob returns matches in lexical order).
func (l *Loader) Load() ([]*catalogue.Library, error) {
	var libs []*catalogue.Library
	for _, root := range l.Roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue // missing roots are not errors
		}
		matches, err := ds.Glob(os.DirFS(root), "**/lib.json")
		if err != nil {
			log.Errorf("fsloader: globbing %s: %v", root, err)
			continue
		}
		for _, m := range matches {
			libDir := filepath.Join(root, filepath.FromSlash(path.Dir(m)))
			lib, err := loadLibrary(libDir)
			if err != nil {
				log.Errorf("fsloader: could not load library at %s: %v", libDir, err)
				continue
			}
			libs = append(libs, lib)
		}
	}
	return libs, nil
}

func loadLibrary(libDir string) (*catalogue.Library, error) {
	raw, err := os.ReadFile(filepath.Join(libDir, "lib.json"))
	if err != nil {
		return nil, fmt.Errorf("read lib.json: %w", err)
	}
	var lf libraryFile
	if err := json.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("parse lib.json: %w", err)
	}

	lib := &catalogue.Library{
		ID:     lf.ID,
		Name:   lf.Name,
		Author: lf.Author,
		Format: lf.Format,
		Origin: libDir,
		Graphs: make(map[identifier.ID]*catalogue.GraphEntry),
	}

	entries, err := os.ReadDir(libDir)
	if err != nil {
		return nil, fmt.Errorf("read library dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		graphDir := filepath.Join(libDir, e.Name())
		entry, err := loadGraphEntry(graphDir)
		if err != nil {
			log.Errorf("fsloader: could not load graph at %s: %v", graphDir, err)
			continue
		}
		if entry == nil {
			continue // not a graph directory (no graph.json)
		}
		lib.Graphs[entry.Descriptor.ID] = entry
	}
	return lib, nil
}

func loadGraphEntry(graphDir string) (*catalogue.GraphEntry, error) {
	graphJSON := filepath.Join(graphDir, "graph.json")
	if info, err := os.Stat(graphJSON); err != nil || info.IsDir() {
		return nil, nil
	}
	raw, err := os.ReadFile(graphJSON)
	if err != nil {
		return nil, fmt.Errorf("read graph.json: %w", err)
	}
	var descriptor catalogue.GraphDescriptor
	if err := json.Unmarshal(raw, &descriptor); err != nil {
		return nil, fmt.Errorf("parse graph.json: %w", err)
	}

	entries, err := os.ReadDir(graphDir)
	if err != nil {
		return nil, fmt.Errorf("read graph dir: %w", err)
	}
	versions := make(map[uint64]bool)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.ParseUint(e.Name(), 10, 64)
		if err != nil {
			continue // non-numeric subdirectories are not versions
		}
		versionJSON := filepath.Join(graphDir, e.Name(), "version.json")
		if info, err := os.Stat(versionJSON); err == nil && !info.IsDir() {
			versions[n] = true
		}
	}

	return &catalogue.GraphEntry{
		Descriptor: descriptor,
		Versions:   versions,
		Loader:     versionLoader{graphDir: graphDir},
	}, nil
}

// versionLoader deserializes version.json for one graph directory, lazily,
// on LoadVersion.
type versionLoader struct {
	graphDir string
}

func (v versionLoader) LoadVersion(_ identifier.ID, version uint64) (*pin.VersionDescriptor, error) {
	versionJSON := filepath.Join(v.graphDir, strconv.FormatUint(version, 10), "version.json")
	raw, err := os.ReadFile(versionJSON)
	if err != nil {
		return nil, fmt.Errorf("read version.json: %w", err)
	}
	var vd pin.VersionDescriptor
	if err := json.Unmarshal(raw, &vd); err != nil {
		return nil, fmt.Errorf("parse version.json: %w", err)
	}
	if err := vd.Validate(); err != nil {
		return nil, fmt.Errorf("validate version.json: %w", err)
	}
	return &vd, nil
}
