// Package manifest resolves the list of slice jobs to run.
//
// Jobs come from one of three places: the built-in defaults under the data
// directory, source paths given on the command line, or a YAML manifest.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/raphaelgruber/propslice/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultSources are the datasets sliced when no jobs are configured.
var DefaultSources = []string{
	"prizepicks-nfl-tomorrow.json",
	"prizepicks-nfl-today.json",
}

// ErrInvalidManifest indicates a manifest that parsed but cannot be used.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest is the YAML job list.
//
//	limit: 200
//	jobs:
//	  - source: prizepicks-nfl-today.json
//	    destination: out/today.json
//	    limit: 50
type Manifest struct {
	Limit int                    `yaml:"limit,omitempty"`
	Jobs  []models.JobDescriptor `yaml:"jobs"`

	// dir anchors relative paths; set by Load.
	dir string
}

// Load reads and validates a manifest file.
// Relative job paths are resolved against the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if m.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidManifest)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("%w: no jobs", ErrInvalidManifest)
	}
	for i, j := range m.Jobs {
		if strings.TrimSpace(j.Source) == "" {
			return nil, fmt.Errorf("%w: job %d has no source", ErrInvalidManifest, i+1)
		}
		if j.Limit < 0 {
			return nil, fmt.Errorf("%w: job %d limit must not be negative", ErrInvalidManifest, i+1)
		}
	}
	return &m, nil
}

// JobDescriptors returns the manifest's jobs with paths resolved and limits
// and destinations filled in. Limit precedence is job, then manifest, then
// fallbackLimit.
func (m *Manifest) JobDescriptors(fallbackLimit int) []models.JobDescriptor {
	jobs := make([]models.JobDescriptor, 0, len(m.Jobs))
	for _, j := range m.Jobs {
		limit := j.Limit
		if limit <= 0 {
			limit = m.Limit
		}
		if limit <= 0 {
			limit = fallbackLimit
		}

		source := m.resolve(j.Source)
		dest := j.Destination
		if dest == "" {
			dest = DestinationFor(source, limit)
		} else {
			dest = m.resolve(dest)
		}

		jobs = append(jobs, models.JobDescriptor{
			Source:      source,
			Destination: dest,
			Limit:       limit,
		})
	}
	return jobs
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.dir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(m.dir, p)
}

// DefaultJobs returns the built-in jobs for dataDir.
func DefaultJobs(dataDir string, limit int) []models.JobDescriptor {
	sources := make([]string, 0, len(DefaultSources))
	for _, s := range DefaultSources {
		sources = append(sources, filepath.Join(dataDir, s))
	}
	return JobsFromSources(sources, limit)
}

// JobsFromSources creates one job per source with a derived destination.
func JobsFromSources(sources []string, limit int) []models.JobDescriptor {
	jobs := make([]models.JobDescriptor, 0, len(sources))
	for _, s := range sources {
		jobs = append(jobs, models.JobDescriptor{
			Source:      s,
			Destination: DestinationFor(s, limit),
			Limit:       limit,
		})
	}
	return jobs
}

// DestinationFor derives the slice path for source: the base name gets a
// "-top-<limit>" suffix in the same directory. Sources without an extension
// get ".json".
func DestinationFor(source string, limit int) string {
	dir := filepath.Dir(source)
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".json"
	}
	return filepath.Join(dir, name+"-top-"+strconv.Itoa(limit)+ext)
}
