package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/duynguyendang/routescan/pkg/common/errors"
	"github.com/duynguyendang/routescan/pkg/routes"
	"github.com/duynguyendang/routescan/pkg/scan"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = ".routescan.yaml"

const DefaultPort = "8080"

// Environment variables that override the settings file.
const (
	EnvInclude = "ROUTESCAN_INCLUDE"
	EnvExclude = "ROUTESCAN_EXCLUDE"
	EnvSort    = "ROUTESCAN_SORT"
	EnvWorkers = "ROUTESCAN_WORKERS"
	EnvPort    = "PORT"
)

// Settings defines the structure of the .routescan.yaml file.
type Settings struct {
	Include   string         `yaml:"include"`
	Exclude   []string       `yaml:"exclude"`
	Sort      string         `yaml:"sort"`
	Workers   int            `yaml:"workers"`
	Port      string         `yaml:"port"`
	Lookahead int            `yaml:"lookahead"`
	Denylist  *scan.Denylist `yaml:"denylist"`
}

// Load reads the settings file at path and applies environment overrides.
// An empty path reads DefaultFile if it exists.
func Load(path string) (*Settings, error) {
	s := &Settings{}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := s.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvInclude); ok && v != "" {
		s.Include = v
	}
	if v, ok := lookup(EnvExclude); ok {
		s.Exclude = SplitList(v)
	}
	if v, ok := lookup(EnvSort); ok && v != "" {
		s.Sort = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s=%q: %w", EnvWorkers, v, apperrors.ErrInvalidInput)
		}
		s.Workers = n
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		s.Port = v
	}
	return nil
}

// SplitList parses a comma separated list. The result is never nil, so an
// empty value clears the default exclusions.
func SplitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParserConfig builds the scan configuration. An unrecognized sort key
// keeps insertion order.
func (s *Settings) ParserConfig() (routes.Config, error) {
	return routes.NewConfig(s.Include, s.Exclude, routes.SortKeyOf(s.Sort)), nil
}

// ScanOptions returns the worker and extractor options for scan.Run.
func (s *Settings) ScanOptions() []scan.Option {
	var extOpts []scan.ExtractorOption
	if s.Denylist != nil {
		extOpts = append(extOpts, scan.WithDenylist(*s.Denylist))
	}
	if s.Lookahead > 0 {
		extOpts = append(extOpts, scan.WithLookahead(s.Lookahead))
	}

	var opts []scan.Option
	if s.Workers > 0 {
		opts = append(opts, scan.WithWorkers(s.Workers))
	}
	if len(extOpts) > 0 {
		opts = append(opts, scan.WithExtractor(scan.NewExtractor(extOpts...)))
	}
	return opts
}

// Addr is the listen address for the REST server.
func (s *Settings) Addr() string {
	port := s.Port
	if port == "" {
		port = DefaultPort
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
