package stages

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Source string

const (
	SourceMetafield Source = "metafield"
	SourceTag       Source = "tag"
)

// Stage pairs a source signal with the metafield that records when the
// signal first turned on.
type Stage struct {
	Key          string `koanf:"key"`
	Name         string `koanf:"name"`
	TimestampKey string `koanf:"timestamp_key"`
	StaffKey     string `koanf:"staff_key"`
	Source       Source `koanf:"source"`
}

// Catalog is the ordered, read-only stage table.
type Catalog struct {
	stages []Stage
}

var defaultStages = []Stage{
	{Key: "sent_to_design_production", Name: "Sent to Design/Production"},
	{Key: "pending_customer_approval", Name: "Pending Customer Approval"},
	{Key: "production_initiated", Name: "Production Initiated"},
	{Key: "in_production", Name: "In Production"},
	{Key: "cleaning_packaging", Name: "Cleaning & Packaging"},
	{Key: "packed_ready_to_ship", Name: "Packed & Ready to Ship"},
	{Key: "shipped_out", Name: "Shipped Out"},
}

// Default returns the built-in production pipeline.
func Default() *Catalog {
	c, err := NewCatalog(defaultStages)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog fills defaults (TimestampKey = Key+"_timestamp", Source =
// metafield, Name = Key) and rejects duplicate or colliding keys.
func NewCatalog(in []Stage) (*Catalog, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("stage catalog is empty")
	}

	out := make([]Stage, 0, len(in))
	seenKey := map[string]bool{}
	written := map[string]bool{}

	for i, s := range in {
		s.Key = strings.TrimSpace(s.Key)
		s.Name = strings.TrimSpace(s.Name)
		s.TimestampKey = strings.TrimSpace(s.TimestampKey)
		s.StaffKey = strings.TrimSpace(s.StaffKey)
		s.Source = Source(strings.ToLower(strings.TrimSpace(string(s.Source))))

		if s.Key == "" {
			return nil, fmt.Errorf("stage %d: key is required", i)
		}
		if s.Name == "" {
			s.Name = s.Key
		}
		if s.TimestampKey == "" {
			s.TimestampKey = s.Key + "_timestamp"
		}
		switch s.Source {
		case "":
			s.Source = SourceMetafield
		case SourceMetafield, SourceTag:
		default:
			return nil, fmt.Errorf("stage %q: unknown source %q", s.Key, s.Source)
		}

		if seenKey[s.Key] {
			return nil, fmt.Errorf("stage %q: duplicate key", s.Key)
		}
		seenKey[s.Key] = true

		for _, k := range []string{s.TimestampKey, s.StaffKey} {
			if k == "" {
				continue
			}
			if k == s.Key || written[k] {
				return nil, fmt.Errorf("stage %q: metafield %q is written by more than one stage", s.Key, k)
			}
			written[k] = true
		}
		out = append(out, s)
	}

	for k := range written {
		if seenKey[k] {
			return nil, fmt.Errorf("metafield %q is both a stage signal and a written field", k)
		}
	}

	return &Catalog{stages: out}, nil
}

// LoadFile reads a YAML catalog:
//
//	stages:
//	  - key: in_production
//	    name: In Production
//	    staff_key: in_production_staff
func LoadFile(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load stages file %s: %w", path, err)
	}

	var in []Stage
	if err := k.Unmarshal("stages", &in); err != nil {
		return nil, fmt.Errorf("parse stages file %s: %w", path, err)
	}
	return NewCatalog(in)
}

// Stages returns a copy in catalog order.
func (c *Catalog) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

func (c *Catalog) Len() int { return len(c.stages) }
