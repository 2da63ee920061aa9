// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source kinds a dataset can be fetched from.
const (
	SourceGeoJSON   = "geojson"
	SourceShapefile = "shapefile"
	SourcePostgres  = "postgres"
)

// Config represents the root configuration file structure.
type Config struct {
	Attribution string    `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	DataDir     string    `yaml:"data_dir,omitempty" json:"-"`
	Datasets    []Dataset `yaml:"datasets" json:"datasets"`
}

// Dataset describes a single boundary collection and where its raw
// geometry comes from.
type Dataset struct {
	Name        string   `yaml:"name" json:"name"`
	Source      string   `yaml:"source" json:"-"`
	Path        string   `yaml:"path,omitempty" json:"-"`
	DSN         string   `yaml:"dsn,omitempty" json:"-"`
	Table       string   `yaml:"table,omitempty" json:"-"`
	GeometryCol string   `yaml:"geometry_column,omitempty" json:"-"`
	Attribution string   `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty" json:"-"`
	Fields      Fields   `yaml:"fields,omitempty" json:"-"`
}

// Fields maps source attribute names onto the entry fields the
// normalizer consumes.
type Fields struct {
	ID    string `yaml:"id,omitempty"`
	Name  string `yaml:"name,omitempty"`
	City  string `yaml:"city,omitempty"`
	State string `yaml:"state,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified
// path, fills in defaults and validates every dataset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "boundaries"
	}

	for i := range c.Datasets {
		d := &c.Datasets[i]

		if d.Fields.ID == "" {
			d.Fields.ID = "id"
		}
		if d.Fields.Name == "" {
			d.Fields.Name = "name"
		}
		if d.Fields.City == "" {
			d.Fields.City = "city"
		}
		if d.Fields.State == "" {
			d.Fields.State = "state"
		}
		if d.GeometryCol == "" {
			d.GeometryCol = "geometry"
		}

		// DSNs commonly carry credentials via environment.
		d.DSN = os.ExpandEnv(d.DSN)
	}
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Datasets))
	for i := range c.Datasets {
		d := &c.Datasets[i]

		if d.Name == "" {
			return fmt.Errorf("dataset %d: name is required", i)
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("dataset %q: duplicate name", d.Name)
		}
		seen[d.Name] = struct{}{}

		switch d.Source {
		case SourceGeoJSON, SourceShapefile:
			if d.Path == "" {
				return fmt.Errorf("dataset %q: path is required for %s source", d.Name, d.Source)
			}
		case SourcePostgres:
			if d.DSN == "" {
				return fmt.Errorf("dataset %q: dsn is required for %s source", d.Name, d.Source)
			}
			if d.Table == "" {
				return fmt.Errorf("dataset %q: table is required for %s source", d.Name, d.Source)
			}
		default:
			return fmt.Errorf("dataset %q: unknown source %q", d.Name, d.Source)
		}
	}

	return nil
}
