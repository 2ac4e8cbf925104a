// tableloader.go: Declarative conversion tables for the Proteus engine
//
// Not every enum lives in Go code. Deployment-defined vocabularies
// (feature tiers, regions, channel names) arrive as data, so Proteus
// accepts variant tables from YAML or JSON files and registers the same
// "tag:Variant" round-trip the compiled enum codecs get.
//
// Format (YAML shown, JSON mirrors it):
//
//	enums:
//	  - tag: color
//	    variants: [red, green, blue]
//	  - tag: tier
//	    variants: [free, pro, enterprise]
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// EnumValue is the runtime representation of a table-declared enum variant.
// It converts to and from the "tag:variant" textual form and to its ordinal
// position within the declaring table.
type EnumValue struct {
	Tag     string
	Variant string
}

// String renders the canonical textual form.
func (e EnumValue) String() string { return e.Tag + ":" + e.Variant }

// EnumTable declares one enum: a stable tag and its ordered variant names.
type EnumTable struct {
	Tag      string   `yaml:"tag" json:"tag"`
	Variants []string `yaml:"variants" json:"variants"`
}

// Table is the root of a conversion table file.
type Table struct {
	Enums []EnumTable `yaml:"enums" json:"enums"`
}

// TableRegistrar loads conversion table files and registers their enums
// into a Registry. Tables from multiple files merge; a tag may only be
// declared once across all of them.
//
// Like every registrar, it belongs to the single-threaded startup phase.
type TableRegistrar struct {
	reg *Registry

	mu        sync.RWMutex
	ordinals  map[string]map[string]int // tag -> variant -> ordinal
	installed bool
}

// NewTableRegistrar creates a registrar feeding reg.
func NewTableRegistrar(reg *Registry) *TableRegistrar {
	return &TableRegistrar{
		reg:      reg,
		ordinals: make(map[string]map[string]int),
	}
}

// LoadFile reads, parses and applies one table file. The format is chosen
// by extension: .yml/.yaml for YAML, .json for JSON.
func (t *TableRegistrar) LoadFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - table paths are operator-supplied configuration
	if err != nil {
		return errors.Wrap(err, ErrCodeInvalidTable, "failed to read table file").
			WithContext("path", path)
	}

	var table Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &table); err != nil {
			return errors.Wrap(err, ErrCodeInvalidTable, "invalid YAML table file").
				WithContext("path", path)
		}
	case ".json":
		if err := json.Unmarshal(data, &table); err != nil {
			return errors.Wrap(err, ErrCodeInvalidTable, "invalid JSON table file").
				WithContext("path", path)
		}
	default:
		return errors.New(ErrCodeInvalidTable, "unsupported table format: "+filepath.Ext(path)).
			WithContext("path", path)
	}

	return t.Apply(&table)
}

// Apply validates table and merges its enums into the registrar, installing
// the EnumValue converters on first use. Validation collects every problem
// before failing, so one pass reports all of them.
func (t *TableRegistrar) Apply(table *Table) error {
	var errs ErrorList

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, enum := range table.Enums {
		if enum.Tag == "" {
			errs.Add(errors.New(ErrCodeInvalidTable, "enum table with empty tag"))
			continue
		}
		if len(enum.Variants) == 0 {
			errs.Add(errors.New(ErrCodeInvalidTable, "enum table '"+enum.Tag+"' has no variants"))
			continue
		}
		if _, dup := t.ordinals[enum.Tag]; dup {
			errs.Add(errors.New(ErrCodeInvalidTable, "enum tag '"+enum.Tag+"' declared twice"))
			continue
		}

		byVariant := make(map[string]int, len(enum.Variants))
		for i, variant := range enum.Variants {
			if variant == "" {
				errs.Add(errors.New(ErrCodeInvalidTable, "enum tag '"+enum.Tag+"' has an empty variant"))
				continue
			}
			if _, dup := byVariant[variant]; dup {
				errs.Add(errors.New(ErrCodeInvalidTable,
					"enum tag '"+enum.Tag+"' declares variant '"+variant+"' twice"))
				continue
			}
			byVariant[variant] = i
		}
		t.ordinals[enum.Tag] = byVariant
	}

	if !t.installed {
		t.installConverters()
		t.installed = true
	}

	return errs.Err()
}

// Tags returns the declared enum tags in unspecified order.
func (t *TableRegistrar) Tags() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.ordinals))
	for tag := range t.ordinals {
		out = append(out, tag)
	}
	return out
}

// lookup resolves (tag, variant) to its ordinal.
func (t *TableRegistrar) lookup(tag, variant string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	variants, ok := t.ordinals[tag]
	if !ok {
		return 0, false
	}
	ordinal, ok := variants[variant]
	return ordinal, ok
}

// installConverters registers the EnumValue round-trip once. All declared
// enums share the EnumValue runtime type, so the converters consult the
// registrar's merged tables per value. Caller holds t.mu.
func (t *TableRegistrar) installConverters() {
	enumValueType := reflect.TypeFor[EnumValue]()

	t.reg.RegisterExact(enumValueType, stringType, func(v any) (any, error) {
		e := v.(EnumValue)
		if _, ok := t.lookup(e.Tag, e.Variant); !ok {
			return nil, nil // undeclared variant, decline
		}
		return e.String(), nil
	})

	t.reg.RegisterExact(stringType, enumValueType, func(v any) (any, error) {
		tag, variant, ok := strings.Cut(v.(string), ":")
		if !ok {
			return nil, nil
		}
		if _, ok := t.lookup(tag, variant); !ok {
			return nil, nil
		}
		return EnumValue{Tag: tag, Variant: variant}, nil
	})

	t.reg.RegisterExact(enumValueType, reflect.TypeFor[int](), func(v any) (any, error) {
		e := v.(EnumValue)
		ordinal, ok := t.lookup(e.Tag, e.Variant)
		if !ok {
			return nil, nil
		}
		return ordinal, nil
	})
}
