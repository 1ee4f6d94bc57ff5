package model

import (
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

// Enum helpers (optional).
const (
	ProcessorChecksum = "checksum"
	ProcessorGzip     = "gzip"
	ProcessorDemo     = "demo"

	ServiceModeManual = "manual"
	ServiceModeTimer  = "timer"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Batch   Batch   `json:"batch" yaml:"batch"`
	Items   *Items  `json:"items,omitempty" yaml:"items,omitempty"`
	Service Service `json:"service" yaml:"service"`
}

// Batch run settings: pool size and the per-item processing strategy.
type Batch struct {
	Workers   int    `json:"workers" yaml:"workers"`     // 0 => available hardware parallelism
	Processor string `json:"processor" yaml:"processor"` // "checksum" | "gzip" | "demo"
	Gzip      *Gzip  `json:"gzip,omitempty" yaml:"gzip,omitempty"`
	Demo      *Demo  `json:"demo,omitempty" yaml:"demo,omitempty"`
}

// Gzip processor options.
type Gzip struct {
	Level *int `json:"level,omitempty" yaml:"level,omitempty"` // 1..9, default gzip.DefaultCompression
}

// Demo processor options.
type Demo struct {
	Delay *string `json:"delay,omitempty" yaml:"delay,omitempty"` // Go duration string, e.g. "1s"
}

// Items staged ahead of an interactive or headless run.
type Items struct {
	Paths   []string `json:"paths,omitempty" yaml:"paths,omitempty"`
	Recurse bool     `json:"recurse" yaml:"recurse"` // expand directories into their regular files
}

// Service settings for the headless process command.
type Service struct {
	Mode     string         `json:"mode" yaml:"mode"` // "manual" | "timer"
	Schedule *TimerSchedule `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Verbose  bool           `json:"verbose" yaml:"verbose"`
	Dir      string         `json:"dir,omitempty" yaml:"dir,omitempty"`         // report output directory
	Webhook  *Webhook       `json:"webhook,omitempty" yaml:"webhook,omitempty"` // remote publication
}

// TimerSchedule configures timer mode, exactly one of the fields is used.
type TimerSchedule struct {
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`         // 5 field cron expression
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"` // ISO8601 duration, e.g. PT15M
}

// Webhook publication settings.
type Webhook struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	URL     string `json:"url" yaml:"url"`
}

// DefaultConfig is what gets written on the very first run.
func DefaultConfig() Config {
	return Config{
		Version: 0,
		Batch: Batch{
			Workers:   0,
			Processor: ProcessorChecksum,
		},
		Service: Service{
			Mode: ServiceModeManual,
		},
	}
}

// LoadConfig validates YAML from r against the CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}
