package spec

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
)

// stringValue returns the text of a plain value, reporting UNT2013 for
// containers and UNT2004 for missing values.
func stringValue(ctx *ParseContext, typeName string) (string, bool) {
	switch v := ctx.Value.(type) {
	case *source.Value:
		return v.Text, true
	case nil:
		ctx.Report(source.UNT2004.New(ctx.Range(), "Property %q needs a %s value.", ctx.Node.Key, typeName))
	default:
		ctx.Report(source.UNT2013.New(ctx.Range(), "Expected a %s value, found a %s.", typeName, v.Kind()))
	}
	return "", false
}

type StringType struct{}

func (StringType) Name() string { return "string" }

func (t StringType) TryParseValue(ctx *ParseContext) (any, bool) {
	return stringValue(ctx, t.Name())
}

// LocalizedStringType is a string value that the game shows from the asset's
// localization files.
type LocalizedStringType struct{}

func (LocalizedStringType) Name() string { return "localized_string" }

func (t LocalizedStringType) TryParseValue(ctx *ParseContext) (any, bool) {
	if ctx.FileType.Kind == source.FileAsset && (ctx.File == nil || len(ctx.File.Localizations) == 0) {
		ctx.Report(source.UNT1030.New(ctx.Node.KeyRange, "No localization file found for %q.", ctx.Node.Key))
	}
	if ctx.Value == nil {
		return "", true
	}
	return stringValue(ctx, t.Name())
}

type IntType struct {
	Min *float64
	Max *float64
}

func (IntType) Name() string { return "int" }

func (t IntType) TryParseValue(ctx *ParseContext) (any, bool) {
	text, ok := stringValue(ctx, t.Name())
	if !ok {
		return nil, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		ctx.Report(source.UNT2004.New(ctx.Range(), "%q is not an integer.", text))
		return nil, false
	}
	checkRange(ctx, float64(v), t.Min, t.Max)
	return v, true
}

type FloatType struct {
	Min *float64
	Max *float64
}

func (FloatType) Name() string { return "float" }

func (t FloatType) TryParseValue(ctx *ParseContext) (any, bool) {
	text, ok := stringValue(ctx, t.Name())
	if !ok {
		return nil, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		ctx.Report(source.UNT2004.New(ctx.Range(), "%q is not a number.", text))
		return nil, false
	}
	checkRange(ctx, v, t.Min, t.Max)
	return v, true
}

func checkRange(ctx *ParseContext, v float64, lo, hi *float64) {
	switch {
	case lo != nil && v < *lo:
		ctx.Report(source.UNT1028.New(ctx.Range(), "Value %s is below the minimum of %s.", formatNumber(v), formatNumber(*lo)))
	case hi != nil && v > *hi:
		ctx.Report(source.UNT1028.New(ctx.Range(), "Value %s is above the maximum of %s.", formatNumber(v), formatNumber(*hi)))
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type BoolType struct{}

func (BoolType) Name() string { return "bool" }

func (t BoolType) TryParseValue(ctx *ParseContext) (any, bool) {
	text, ok := stringValue(ctx, t.Name())
	if !ok {
		return nil, false
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	ctx.Report(source.UNT2004.New(ctx.Range(), "%q is not true or false.", text))
	return nil, false
}

// FlagType is set by writing the key alone.
type FlagType struct{}

func (FlagType) Name() string { return "flag" }

func (FlagType) TryParseValue(ctx *ParseContext) (any, bool) {
	if ctx.Value == nil {
		return true, true
	}
	if v, ok := ctx.Value.(*source.Value); ok && strings.EqualFold(strings.TrimSpace(v.Text), "false") {
		ctx.Report(source.UNT2003.New(ctx.Range(), "Flag %q is set even when its value is false. Remove the property instead.", ctx.Node.Key))
		return true, true
	}
	ctx.Report(source.UNT1003.New(ctx.Range(), "Flag %q does not take a value.", ctx.Node.Key))
	return true, true
}

type EnumType struct {
	Values []string
}

func (EnumType) Name() string { return "enum" }

func (t EnumType) TryParseValue(ctx *ParseContext) (any, bool) {
	text, ok := stringValue(ctx, t.Name())
	if !ok {
		return nil, false
	}
	for _, v := range t.Values {
		if strings.EqualFold(v, strings.TrimSpace(text)) {
			return v, true
		}
	}
	ctx.Report(source.UNT1014.New(ctx.Range(), "%q is not one of: %s.", text, strings.Join(t.Values, ", ")))
	return nil, false
}

type GUIDType struct{}

func (GUIDType) Name() string { return "guid" }

func (t GUIDType) TryParseValue(ctx *ParseContext) (any, bool) {
	text, ok := stringValue(ctx, t.Name())
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(text))
	if err != nil {
		ctx.Report(source.UNT2004.New(ctx.Range(), "%q is not a GUID.", text))
		return nil, false
	}
	return id, true
}

type Vector3 struct {
	X, Y, Z float64
}

// Vector3Type is written as "(x, y, z)", as a dictionary with X, Y and Z,
// or as three legacy keys ending in _X, _Y and _Z.
type Vector3Type struct{}

var vectorSuffixes = []string{"_X", "_Y", "_Z"}

func (Vector3Type) Name() string { return "vector3" }

func (Vector3Type) LegacySuffixes() []string { return vectorSuffixes }

func (t Vector3Type) TryParseValue(ctx *ParseContext) (any, bool) {
	if ctx.Resolution == Legacy {
		return t.parseLegacy(ctx)
	}
	switch v := ctx.Value.(type) {
	case *source.Value:
		return t.parseTuple(ctx, v.Text)
	case *source.Dictionary:
		return t.parseComponents(ctx, v, "", []string{"X", "Y", "Z"})
	case nil:
		ctx.Report(source.UNT2004.New(ctx.Range(), "Property %q needs a vector3 value.", ctx.Node.Key))
	default:
		ctx.Report(source.UNT2013.New(ctx.Range(), "Expected a vector3 value, found a %s.", v.Kind()))
	}
	return nil, false
}

func (t Vector3Type) parseTuple(ctx *ParseContext, text string) (any, bool) {
	inner := strings.TrimSpace(text)
	if !strings.HasPrefix(inner, "(") || !strings.HasSuffix(inner, ")") {
		ctx.Report(source.UNT2004.New(ctx.Range(), "%q is not a vector3, expected (x, y, z).", text))
		return nil, false
	}
	parts := strings.Split(inner[1:len(inner)-1], ",")
	if len(parts) != 3 {
		ctx.Report(source.UNT2004.New(ctx.Range(), "%q is not a vector3, expected (x, y, z).", text))
		return nil, false
	}
	var out [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			ctx.Report(source.UNT2004.New(ctx.Range(), "%q is not a number.", strings.TrimSpace(part)))
			return nil, false
		}
		out[i] = f
	}
	return Vector3{X: out[0], Y: out[1], Z: out[2]}, true
}

func (t Vector3Type) parseLegacy(ctx *ParseContext) (any, bool) {
	dict, ok := ctx.Node.Parent().(*source.Dictionary)
	if !ok {
		return nil, false
	}
	base, _ := TrimLegacySuffix(ctx.Node.Key, vectorSuffixes)
	return t.parseComponents(ctx, dict, base, vectorSuffixes)
}

func (t Vector3Type) parseComponents(ctx *ParseContext, dict *source.Dictionary, base string, keys []string) (any, bool) {
	var out [3]float64
	ok := true
	for i, suffix := range keys {
		key := base + suffix
		p, found := dict.Property(key)
		if !found {
			ctx.Report(source.UNT1007.New(ctx.Node.KeyRange, "Missing %q for %q.", key, ctx.Property.Key))
			ok = false
			continue
		}
		text, isValue := p.StringValue()
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if !isValue || err != nil {
			r := p.KeyRange
			if p.Value != nil {
				r = p.Value.Range()
			}
			ctx.Report(source.UNT2004.New(r, "%q is not a number.", text))
			ok = false
			continue
		}
		out[i] = f
	}
	if !ok {
		return nil, false
	}
	return Vector3{X: out[0], Y: out[1], Z: out[2]}, true
}

// TrimLegacySuffix strips the first matching suffix, ignoring case.
func TrimLegacySuffix(key string, suffixes []string) (string, bool) {
	for _, suffix := range suffixes {
		if len(key) > len(suffix) && strings.EqualFold(key[len(key)-len(suffix):], suffix) {
			return key[:len(key)-len(suffix)], true
		}
	}
	return key, false
}

// ObjectType is a dictionary whose properties are declared by Fields.
type ObjectType struct {
	Properties []*Property
}

func (ObjectType) Name() string { return "object" }

func (t ObjectType) Fields() []*Property { return t.Properties }

func (t ObjectType) TryParseValue(ctx *ParseContext) (any, bool) {
	switch v := ctx.Value.(type) {
	case *source.Dictionary:
		return v, true
	case nil:
		ctx.Report(source.UNT2004.New(ctx.Range(), "Property %q needs a dictionary value.", ctx.Node.Key))
	default:
		ctx.Report(source.UNT2013.New(ctx.Range(), "Expected a dictionary, found a %s.", v.Kind()))
	}
	return nil, false
}

// ListType is a list whose elements all have the Element type. Dictionary
// elements are checked through their own properties.
type ListType struct {
	Element Type
}

func (t ListType) Name() string {
	if t.Element == nil {
		return "list"
	}
	return "list<" + t.Element.Name() + ">"
}

func (t ListType) Fields() []*Property {
	if n, ok := t.Element.(Nested); ok {
		return n.Fields()
	}
	return nil
}

func (t ListType) TryParseValue(ctx *ParseContext) (any, bool) {
	list, ok := ctx.Value.(*source.List)
	if !ok {
		if ctx.Value == nil {
			ctx.Report(source.UNT2004.New(ctx.Range(), "Property %q needs a list value.", ctx.Node.Key))
		} else {
			ctx.Report(source.UNT2013.New(ctx.Range(), "Expected a list, found a %s.", ctx.Value.Kind()))
		}
		return nil, false
	}
	if t.Element == nil {
		return list, true
	}
	values := make([]any, 0, list.Count())
	all := true
	for _, elem := range list.Elements() {
		if _, nested := t.Element.(Nested); nested {
			if _, ok := elem.(*source.Dictionary); ok {
				values = append(values, elem)
				continue
			}
		}
		v, ok := t.Element.TryParseValue(ctx.withValue(elem))
		if !ok {
			all = false
			continue
		}
		values = append(values, v)
	}
	return values, all
}
