package spec

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed builtin.toml
var builtinSpec []byte

type specFile struct {
	Asset        []assetSpec    `toml:"asset"`
	Localization []propertySpec `toml:"localization"`
}

type assetSpec struct {
	Type     string         `toml:"type"`
	Property []propertySpec `toml:"property"`
}

type propertySpec struct {
	Key         string         `toml:"key"`
	Type        string         `toml:"type"`
	Element     string         `toml:"element"`
	Min         *float64       `toml:"min"`
	Max         *float64       `toml:"max"`
	Values      []string       `toml:"values"`
	Deprecated  bool           `toml:"deprecated"`
	Description string         `toml:"description"`
	Fields      []propertySpec `toml:"fields"`
}

// Load reads TOML declarations into m. It does not initialize m.
func (m *Memory) Load(r io.Reader) error {
	var file specFile
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return fmt.Errorf("decode spec: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("decode spec: unknown key %q", undecoded[0].String())
	}

	// Build everything first so a bad file leaves m untouched.
	assets := make([][]*Property, len(file.Asset))
	for i, asset := range file.Asset {
		props, err := buildProperties(asset.Property)
		if err != nil {
			return fmt.Errorf("asset %q: %w", asset.Type, err)
		}
		assets[i] = props
	}
	localization, err := buildProperties(file.Localization)
	if err != nil {
		return fmt.Errorf("localization: %w", err)
	}

	for i, asset := range file.Asset {
		m.AddAsset(asset.Type, assets[i]...)
	}
	m.AddLocalization(localization...)
	return nil
}

func (m *Memory) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open spec: %w", err)
	}
	defer f.Close()
	if err := m.Load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (m *Memory) LoadBuiltin() error {
	return m.Load(bytes.NewReader(builtinSpec))
}

// Builtin returns an initialized database with the embedded declarations.
func Builtin() (*Memory, error) {
	m := NewMemory()
	if err := m.LoadBuiltin(); err != nil {
		return nil, err
	}
	m.Initialize()
	return m, nil
}

func buildProperties(specs []propertySpec) ([]*Property, error) {
	props := make([]*Property, 0, len(specs))
	for _, ps := range specs {
		if ps.Key == "" {
			return nil, fmt.Errorf("property with type %q has no key", ps.Type)
		}
		t, err := buildType(ps.Type, ps)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", ps.Key, err)
		}
		props = append(props, &Property{
			Key:         ps.Key,
			Type:        t,
			Deprecated:  ps.Deprecated,
			Description: ps.Description,
		})
	}
	return props, nil
}

func buildType(name string, ps propertySpec) (Type, error) {
	switch strings.ToLower(name) {
	case "", "string":
		return StringType{}, nil
	case "localized_string":
		return LocalizedStringType{}, nil
	case "int":
		return IntType{Min: ps.Min, Max: ps.Max}, nil
	case "float":
		return FloatType{Min: ps.Min, Max: ps.Max}, nil
	case "bool":
		return BoolType{}, nil
	case "flag":
		return FlagType{}, nil
	case "enum":
		if len(ps.Values) == 0 {
			return nil, fmt.Errorf("enum has no values")
		}
		return EnumType{Values: ps.Values}, nil
	case "guid":
		return GUIDType{}, nil
	case "vector3":
		return Vector3Type{}, nil
	case "object":
		fields, err := buildProperties(ps.Fields)
		if err != nil {
			return nil, err
		}
		return ObjectType{Properties: fields}, nil
	case "list":
		if ps.Element == "" {
			return ListType{}, nil
		}
		elemSpec := ps
		elemSpec.Element = ""
		elem, err := buildType(ps.Element, elemSpec)
		if err != nil {
			return nil, err
		}
		return ListType{Element: elem}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, name)
	}
}
