package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override pipeline values.
const (
	EnvSourceDSN      = "FHVCLEAN_SOURCE_DSN"
	EnvDestinationDSN = "FHVCLEAN_DESTINATION_DSN"
	EnvRunLogDSN      = "FHVCLEAN_RUNLOG_DSN"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvStatsdAddr     = "STATSD_ADDR"
)

// Load reads the pipeline file at path over Default() and applies
// environment overrides. An empty path yields the defaults plus overrides.
func Load(path string) (Pipeline, error) {
	p := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Decode(b, filepath.Ext(path), &p); err != nil {
			return Pipeline{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	ApplyEnv(&p, os.Getenv)
	return p, nil
}

// Decode unmarshals b into p, which is usually pre-populated with defaults.
// ext selects the format: ".yaml"/".yml" for YAML, anything else JSON.
// Unknown fields are rejected so that typos do not silently fall back to
// defaults. A renames map in the document replaces p.Renames rather than
// merging into it.
func Decode(b []byte, ext string, p *Pipeline) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var top map[string]any
		if err := yaml.Unmarshal(b, &top); err == nil {
			clearReplaced(top, p)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		var top map[string]any
		if err := json.Unmarshal(b, &top); err == nil {
			clearReplaced(top, p)
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		return dec.Decode(p)
	}
}

// clearReplaced drops the map fields of p that the document sets. Both
// decoders merge into a non-nil map.
func clearReplaced(top map[string]any, p *Pipeline) {
	if _, ok := top["renames"]; ok {
		p.Renames = nil
	}
}

// ApplyEnv overrides p with non-empty values returned by getenv.
func ApplyEnv(p *Pipeline, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&p.Source.DSN, EnvSourceDSN)
	set(&p.Destination.DSN, EnvDestinationDSN)
	set(&p.RunLog.DSN, EnvRunLogDSN)
	set(&p.Metrics.Backend, EnvMetricsBackend)
	set(&p.Metrics.PushgatewayURL, EnvPushgatewayURL)
	set(&p.Metrics.StatsdAddr, EnvStatsdAddr)
}
