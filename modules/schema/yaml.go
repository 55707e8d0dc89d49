package schema

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/moznion/go-optional"
)

type yamlField struct {
	Name     string   `yaml:"name"`
	Type     TypeID   `yaml:"type"`
	TypeName string   `yaml:"typeName"`
	Docs     []string `yaml:"docs"`
}

type yamlVariant struct {
	Name   string      `yaml:"name"`
	Index  uint8       `yaml:"index"`
	Fields []yamlField `yaml:"fields"`
	Docs   []string    `yaml:"docs"`
}

type yamlParam struct {
	Name string  `yaml:"name"`
	Type *TypeID `yaml:"type"`
}

type yamlType struct {
	ID        TypeID        `yaml:"id"`
	Path      []string      `yaml:"path"`
	Params    []yamlParam   `yaml:"params"`
	Docs      []string      `yaml:"docs"`
	Kind      string        `yaml:"kind"`
	Fields    []yamlField   `yaml:"fields"`
	Variants  []yamlVariant `yaml:"variants"`
	Elem      TypeID        `yaml:"elem"`
	Len       uint32        `yaml:"len"`
	Tuple     []TypeID      `yaml:"tuple"`
	Primitive string        `yaml:"primitive"`
}

type yamlExtension struct {
	Identifier string `yaml:"identifier"`
	Type       TypeID `yaml:"type"`
	Additional TypeID `yaml:"additional"`
}

type yamlCatalogue struct {
	Runtime *struct {
		Genesis     string `yaml:"genesis"`
		SpecVersion uint32 `yaml:"specVersion"`
		TxVersion   uint32 `yaml:"txVersion"`
	} `yaml:"runtime"`
	Extrinsic struct {
		Version    uint8           `yaml:"version"`
		Address    TypeID          `yaml:"address"`
		Call       TypeID          `yaml:"call"`
		Signature  TypeID          `yaml:"signature"`
		Extensions []yamlExtension `yaml:"extensions"`
	} `yaml:"extrinsic"`
	Types []yamlType `yaml:"types"`
}

var kinds = map[string]DefKind{
	"composite":   KindComposite,
	"variant":     KindVariant,
	"sequence":    KindSequence,
	"array":       KindArray,
	"tuple":       KindTuple,
	"primitive":   KindPrimitive,
	"compact":     KindCompact,
	"bitsequence": KindBitSequence,
}

func convertFields(fields []yamlField) []Field {
	res := make([]Field, len(fields))
	for i, f := range fields {
		res[i] = Field(f)
	}
	return res
}

// LoadYAML reads a type catalogue. The optional runtime section supplies
// the chain facts needed to work offline.
func LoadYAML(b []byte) (*Registry, optional.Option[Env], error) {
	noEnv := optional.None[Env]()

	var doc yamlCatalogue
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, noEnv, fmt.Errorf("failed to parse catalogue: %w", err)
	}

	reg := &Registry{
		Types: make(map[TypeID]*Type, len(doc.Types)),
		Extrinsic: ExtrinsicDef{
			Version:   doc.Extrinsic.Version,
			Address:   doc.Extrinsic.Address,
			Call:      doc.Extrinsic.Call,
			Signature: doc.Extrinsic.Signature,
		},
	}
	if reg.Extrinsic.Version == 0 {
		reg.Extrinsic.Version = 4
	}
	for _, e := range doc.Extrinsic.Extensions {
		reg.Extrinsic.Extensions = append(reg.Extrinsic.Extensions, ExtensionDef(e))
	}

	for _, yt := range doc.Types {
		kind, ok := kinds[strings.ToLower(yt.Kind)]
		if !ok {
			return nil, noEnv, fmt.Errorf("%w: type %d has kind %q", ErrUnsupported, yt.ID, yt.Kind)
		}
		if _, dup := reg.Types[yt.ID]; dup {
			return nil, noEnv, fmt.Errorf("duplicate type id %d", yt.ID)
		}
		t := &Type{
			ID:        yt.ID,
			Path:      yt.Path,
			Docs:      yt.Docs,
			Kind:      kind,
			Fields:    convertFields(yt.Fields),
			Elem:      yt.Elem,
			Len:       yt.Len,
			Tuple:     yt.Tuple,
			Primitive: yt.Primitive,
		}
		for _, p := range yt.Params {
			param := Param{Name: p.Name, Type: optional.None[TypeID]()}
			if p.Type != nil {
				param.Type = optional.Some(*p.Type)
			}
			t.Params = append(t.Params, param)
		}
		for _, v := range yt.Variants {
			t.Variants = append(t.Variants, VariantDef{
				Name:   v.Name,
				Index:  v.Index,
				Fields: convertFields(v.Fields),
				Docs:   v.Docs,
			})
		}
		reg.Types[t.ID] = t
	}

	if err := reg.Validate(); err != nil {
		return nil, noEnv, err
	}

	if doc.Runtime == nil {
		return reg, noEnv, nil
	}
	env := Env{SpecVersion: doc.Runtime.SpecVersion, TxVersion: doc.Runtime.TxVersion}
	if doc.Runtime.Genesis != "" {
		g, err := hex.DecodeString(strings.TrimPrefix(doc.Runtime.Genesis, "0x"))
		if err != nil || len(g) != 32 {
			return nil, noEnv, fmt.Errorf("invalid genesis hash %q", doc.Runtime.Genesis)
		}
		copy(env.Genesis[:], g)
	}
	return reg, optional.Some(env), nil
}
