package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/convert"
	"github.com/anirudhraja/protocodec/wire"
)

// fileConfig is the YAML configuration file:
//
//	proto_paths: [protos]
//	schemas: [protos/shop]
//	descriptor_sets: [build/api.pb]
//	strict_ingest: true
//	decode:
//	  populate_defaults: true
//	to_object:
//	  longs: string
//	  enums: string
//	  json_names: true
type fileConfig struct {
	ProtoPaths     []string `yaml:"proto_paths"`
	Schemas        []string `yaml:"schemas"`
	DescriptorSets []string `yaml:"descriptor_sets"`
	StrictIngest   bool     `yaml:"strict_ingest"`

	Decode struct {
		StrictWireType   bool `yaml:"strict_wire_type"`
		PopulateDefaults bool `yaml:"populate_defaults"`
		AllowPartial     bool `yaml:"allow_partial"`
		RecursionLimit   int  `yaml:"recursion_limit"`
	} `yaml:"decode"`

	Encode struct {
		AllowPartial bool `yaml:"allow_partial"`
	} `yaml:"encode"`

	ToObject toObjectConfig `yaml:"to_object"`
}

type toObjectConfig struct {
	Defaults      bool   `yaml:"defaults"`
	Arrays        bool   `yaml:"arrays"`
	Objects       bool   `yaml:"objects"`
	Oneofs        bool   `yaml:"oneofs"`
	Longs         string `yaml:"longs"` // number | string
	Enums         string `yaml:"enums"` // number | string
	Bytes         string `yaml:"bytes"` // base64 | array
	JSONNames     bool   `yaml:"json_names"`
	WellKnownJSON bool   `yaml:"well_known_json"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// codecConfig layers the file on top of the PROTOCODEC_* environment toggles.
func (c *fileConfig) codecConfig() protocodec.Config {
	w := wire.ConfigFromEnv()
	w.Decode.StrictWireType = w.Decode.StrictWireType || c.Decode.StrictWireType
	w.Decode.PopulateDefaults = w.Decode.PopulateDefaults || c.Decode.PopulateDefaults
	w.Decode.AllowPartial = w.Decode.AllowPartial || c.Decode.AllowPartial
	w.Encode.AllowPartial = w.Encode.AllowPartial || c.Encode.AllowPartial
	if c.Decode.RecursionLimit > 0 {
		w.Decode.RecursionLimit = c.Decode.RecursionLimit
	}
	return protocodec.Config{
		Wire:             w,
		StrictIngest:     c.StrictIngest,
		ProtoDirectories: c.ProtoPaths,
	}
}

func (c *toObjectConfig) options() (convert.ToObjectOptions, error) {
	opts := convert.ToObjectOptions{
		Defaults:      c.Defaults,
		Arrays:        c.Arrays,
		Objects:       c.Objects,
		Oneofs:        c.Oneofs,
		JSONNames:     c.JSONNames,
		WellKnownJSON: c.WellKnownJSON,
	}
	switch strings.ToLower(c.Longs) {
	case "", "number":
	case "string":
		opts.Longs = convert.LongsString
	default:
		return opts, fmt.Errorf("longs: unknown format %q", c.Longs)
	}
	switch strings.ToLower(c.Enums) {
	case "", "number":
	case "string":
		opts.Enums = convert.EnumsString
	default:
		return opts, fmt.Errorf("enums: unknown format %q", c.Enums)
	}
	switch strings.ToLower(c.Bytes) {
	case "", "base64":
	case "array":
		opts.Bytes = convert.BytesArray
	default:
		return opts, fmt.Errorf("bytes: unknown format %q", c.Bytes)
	}
	return opts, nil
}
