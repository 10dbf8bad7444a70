// Package config defines the JSON run file accepted by --config.
//
// A run file supplies defaults for every command-line option; flags given on
// the command line win. Reader and storage settings are free-form option
// bags read with the typed Options getters.
//
// Example:
//
//	{
//	  "size": "all",
//	  "columns": "name-age",
//	  "filters": ["age-integer-true"],
//	  "execute": ["1-\"tr a-z A-Z\""],
//	  "reader":  { "delimiter": ";", "encoding": "windows-1250" },
//	  "exec":    { "policy": "abort", "timeout": "5s", "workers": 4 },
//	  "storage": { "table": "people", "batch_size": 500 },
//	  "metrics": { "pushgateway_url": "http://pushgateway:9091", "job": "nightly" }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// File is the top-level object decoded from a run file.
type File struct {
	Size    string   `json:"size"`
	Columns string   `json:"columns"`
	Range   string   `json:"range"`
	Filters []string `json:"filters"`
	Match   string   `json:"match"`
	Execute []string `json:"execute"`
	Query   bool     `json:"query"`
	Output  string   `json:"output"`

	// Reader keys: delimiter (string), encoding (string), no_header (bool),
	// strict (bool).
	Reader Options `json:"reader"`

	Exec    Exec    `json:"exec"`
	Dedup   Dedup   `json:"dedup"`
	Format  Format  `json:"format"`
	Metrics Metrics `json:"metrics"`

	// Storage keys: table (string), batch_size (int).
	Storage Options `json:"storage"`
}

// Exec configures external command invocation.
type Exec struct {
	Policy  string `json:"policy"`
	Timeout string `json:"timeout"`
	Workers int    `json:"workers"`
	OKCodes []int  `json:"ok_codes"`
	Shell   string `json:"shell"`
}

// Dedup configures the dedup stage.
type Dedup struct {
	Enabled bool   `json:"enabled"`
	Keys    string `json:"keys"`
	Policy  string `json:"policy"`
}

// Format configures presentation on stdout.
type Format struct {
	Kind  string `json:"kind"`
	Width int    `json:"width"`
	Query string `json:"query"`
}

// Metrics configures the Pushgateway backend.
type Metrics struct {
	PushgatewayURL string `json:"pushgateway_url"`
	Job            string `json:"job"`
}

// Load reads and decodes a run file. Unknown top-level keys are rejected.
func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(b)
}

// Decode parses a run file from b.
func Decode(b []byte) (File, error) {
	var f File
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode config: %w", err)
	}
	if f.Reader == nil {
		f.Reader = Options{}
	}
	if f.Storage == nil {
		f.Storage = Options{}
	}
	return f, nil
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns the provided default
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so both float64 and int are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// UnmarshalJSON makes a missing or null object decode to an empty, non-nil
// Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
