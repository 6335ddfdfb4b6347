// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package compiler

import (
	"fmt"
	"strings"

	"go.asn1c.org/asn1c/ref"
)

type Mode uint8

const (
	ModeType Mode = iota
	ModeValue
	ModeSet
)

func (m Mode) String() string {
	switch m {
	case ModeType:
		return "type"
	case ModeValue:
		return "value"
	case ModeSet:
		return "set"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

type NativeType uint8

const (
	TypeUnknown NativeType = iota
	TypeNull
	TypeBoolean
	TypeInteger
	TypeReal
	TypeEnumerated
	TypeBitString
	TypeOctetString
	TypeObjectIdentifier
	TypeRelativeOID
	TypeObjectDescriptor
	TypeUTF8String
	TypeNumericString
	TypePrintableString
	TypeTeletexString
	TypeVideotexString
	TypeIA5String
	TypeGraphicString
	TypeVisibleString
	TypeGeneralString
	TypeUniversalString
	TypeBMPString
	TypeUTCTime
	TypeGeneralizedTime
	TypeExternal
	TypeEmbeddedPDV
	TypeCharacterString
	TypeChoice
	TypeSequence
	TypeSet
	TypeSequenceOf
	TypeSetOf
	TypeOpen
	TypeAny
	TypeClass
)

type nativeInfo struct {
	keyword   string
	universal int64
}

var nativeTypes = [...]nativeInfo{
	TypeUnknown:          {"<unknown>", -1},
	TypeNull:             {"NULL", 5},
	TypeBoolean:          {"BOOLEAN", 1},
	TypeInteger:          {"INTEGER", 2},
	TypeReal:             {"REAL", 9},
	TypeEnumerated:       {"ENUMERATED", 10},
	TypeBitString:        {"BIT STRING", 3},
	TypeOctetString:      {"OCTET STRING", 4},
	TypeObjectIdentifier: {"OBJECT IDENTIFIER", 6},
	TypeRelativeOID:      {"RELATIVE-OID", 13},
	TypeObjectDescriptor: {"ObjectDescriptor", 7},
	TypeUTF8String:       {"UTF8String", 12},
	TypeNumericString:    {"NumericString", 18},
	TypePrintableString:  {"PrintableString", 19},
	TypeTeletexString:    {"TeletexString", 20},
	TypeVideotexString:   {"VideotexString", 21},
	TypeIA5String:        {"IA5String", 22},
	TypeGraphicString:    {"GraphicString", 25},
	TypeVisibleString:    {"VisibleString", 26},
	TypeGeneralString:    {"GeneralString", 27},
	TypeUniversalString:  {"UniversalString", 28},
	TypeBMPString:        {"BMPString", 30},
	TypeUTCTime:          {"UTCTime", 23},
	TypeGeneralizedTime:  {"GeneralizedTime", 24},
	TypeExternal:         {"EXTERNAL", 8},
	TypeEmbeddedPDV:      {"EMBEDDED PDV", 11},
	TypeCharacterString:  {"CHARACTER STRING", 29},
	TypeChoice:           {"CHOICE", -1},
	TypeSequence:         {"SEQUENCE", 16},
	TypeSet:              {"SET", 17},
	TypeSequenceOf:       {"SEQUENCE OF", 16},
	TypeSetOf:            {"SET OF", 17},
	TypeOpen:             {"OPEN_TYPE", -1},
	TypeAny:              {"ANY", -1},
	TypeClass:            {"CLASS", -1},
}

func (t NativeType) String() string {
	if int(t) < len(nativeTypes) {
		return nativeTypes[t].keyword
	}
	return fmt.Sprintf("NativeType(%d)", uint8(t))
}

// Universal returns the UNIVERSAL tag number of t, or -1 when t has none.
func (t NativeType) Universal() int64 {
	if int(t) < len(nativeTypes) {
		return nativeTypes[t].universal
	}
	return -1
}

func (t NativeType) IsString() bool {
	return t >= TypeObjectDescriptor && t <= TypeGeneralizedTime
}

// IsRestrictedString reports whether t is a known-multiplier character
// string type, which accepts ALPHABET constraints.
func (t NativeType) IsRestrictedString() bool {
	switch t {
	case TypeNumericString, TypePrintableString, TypeIA5String,
		TypeVisibleString, TypeUniversalString, TypeBMPString, TypeUTF8String:
		return true
	}
	return false
}

func (t NativeType) IsConstructed() bool {
	switch t {
	case TypeChoice, TypeSequence, TypeSet:
		return true
	}
	return false
}

func (t NativeType) IsList() bool {
	return t == TypeSequenceOf || t == TypeSetOf
}

type TagClass uint8

const (
	TagContext TagClass = iota
	TagUniversal
	TagApplication
	TagPrivate
)

func (c TagClass) String() string {
	switch c {
	case TagUniversal:
		return "UNIVERSAL"
	case TagApplication:
		return "APPLICATION"
	case TagPrivate:
		return "PRIVATE"
	}
	return "CONTEXT"
}

type TagMode uint8

const (
	TagExplicit TagMode = iota
	TagImplicit
)

func (m TagMode) String() string {
	if m == TagImplicit {
		return "IMPLICIT"
	}
	return "EXPLICIT"
}

// TagDefault is a module tagging environment.
type TagDefault uint8

const (
	TagsExplicit TagDefault = iota
	TagsImplicit
	TagsAutomatic
)

func (d TagDefault) String() string {
	switch d {
	case TagsImplicit:
		return "IMPLICIT"
	case TagsAutomatic:
		return "AUTOMATIC"
	}
	return "EXPLICIT"
}

type Tag struct {
	Value int64
	Class TagClass
	Mode  TagMode

	// Param is set while the tag number is a formal parameter.
	Param *ref.Param

	// Auto marks a tag assigned by automatic tagging.
	Auto bool
}

func (t *Tag) String() string {
	var num string
	if t.Param != nil {
		num = t.Param.Name
	} else {
		num = fmt.Sprint(t.Value)
	}
	if t.Class == TagContext {
		return fmt.Sprintf("[%s] %s", num, t.Mode)
	}
	return fmt.Sprintf("[%s %s] %s", t.Class, num, t.Mode)
}

// NamedNumber is a named INTEGER value, a named BIT STRING bit, or an
// ENUMERATED item.
type NamedNumber struct {
	Name  string
	Value int64
}

type ParamKind uint8

const (
	ParamType ParamKind = iota
	ParamValue
	ParamSet
)

func (k ParamKind) String() string {
	switch k {
	case ParamValue:
		return "value"
	case ParamSet:
		return "set"
	}
	return "type"
}

// Param is a formal parameter of a parameterized definition. Referrers
// hold the path of every spot of the definition where the actual parameter
// gets substituted.
type Param struct {
	Name      string
	Kind      ParamKind
	Governor  *Object
	Referrers []Path

	ref *ref.Param
}

// SyntaxItem is one element of a WITH SYNTAX grammar: a literal keyword, a
// field placeholder, or an optional group.
type SyntaxItem struct {
	Word  string
	Field string
	Group *SyntaxGroup
}

type SyntaxGroup struct {
	Items []SyntaxItem
}

func (g *SyntaxGroup) String() string {
	var parts []string
	for _, item := range g.Items {
		switch {
		case item.Group != nil:
			parts = append(parts, "["+item.Group.String()+"]")
		case item.Field != "":
			parts = append(parts, "&"+item.Field)
		default:
			parts = append(parts, item.Word)
		}
	}
	return strings.Join(parts, " ")
}

// Object is a definition or a nested part of one (a component, a list
// item, a class field). The same record serves before and after
// resolution: Type stays TypeUnknown until the reference chain is
// resolved.
type Object struct {
	ID     int
	Name   string
	Module string
	Mode   Mode
	Type   NativeType
	Tag    *Tag
	Params []*Param
	Ref    *ref.Ref

	// INTEGER named numbers, BIT STRING named bits, ENUMERATED items
	Named []NamedNumber
	// SEQUENCE, SET and CHOICE components
	Comps []*Object
	// SEQUENCE OF and SET OF item
	Item *Object
	// CLASS fields
	Fields []*Object
	Syntax *SyntaxGroup

	// Root and extension identifiers of Comps or Named
	Root       []string
	Ext        []string
	Extensible bool
	// SEQUENCE and SET extension groups, by component name
	Groups [][]string

	Const []*Constraint
	Val   Value
	Set   *ValueSet

	Optional bool
	Default  Value
	Unique   bool
	Parent   *Object

	// Refs holds every definition this object refers to, by ref.Ref.Key.
	Refs map[string]*ref.Ref

	// content is set once the object holds its own type content, as
	// opposed to reaching it through Ref.
	content bool
	// stub marks a header-only placeholder for a definition that is not
	// compiled yet.
	stub bool
	// field is the class field kind of a CLASS field object.
	field FieldKind
}

// QualifiedName returns "Module.Name".
func (o *Object) QualifiedName() string {
	if o.Module == "" {
		return o.Name
	}
	return o.Module + "." + o.Name
}

func (o *Object) IsParameterized() bool {
	return len(o.Params) > 0
}

func (o *Object) Component(name string) *Object {
	for _, comp := range o.Comps {
		if comp.Name == name {
			return comp
		}
	}
	return nil
}

func (o *Object) Field(name string) *Object {
	for _, field := range o.Fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

func (o *Object) NamedValue(name string) (int64, bool) {
	for _, nn := range o.Named {
		if nn.Name == name {
			return nn.Value, true
		}
	}
	return 0, false
}

func (o *Object) Constraints(kind ConstKind) []*Constraint {
	var out []*Constraint
	for _, c := range o.Const {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (o *Object) addRef(r *ref.Ref) {
	if r == nil || r.IsParam() {
		return
	}
	if o.Refs == nil {
		o.Refs = make(map[string]*ref.Ref)
	}
	o.Refs[r.Key()] = r
}

func (o *Object) isExtension(name string) bool {
	for _, ext := range o.Ext {
		if ext == name {
			return true
		}
	}
	return false
}

func (o *Object) groupOf(name string) int {
	for ii, group := range o.Groups {
		for _, member := range group {
			if member == name {
				return ii
			}
		}
	}
	return -1
}

type FieldKind uint8

const (
	FieldNone FieldKind = iota
	FieldType
	FieldFixedValue
	FieldVariableValue
	FieldFixedValueSet
	FieldVariableValueSet
	FieldObject
	FieldObjectSet
)

func (k FieldKind) String() string {
	switch k {
	case FieldType:
		return "type"
	case FieldFixedValue:
		return "fixed-type value"
	case FieldVariableValue:
		return "variable-type value"
	case FieldFixedValueSet:
		return "fixed-type value set"
	case FieldVariableValueSet:
		return "variable-type value set"
	case FieldObject:
		return "object"
	case FieldObjectSet:
		return "object set"
	}
	return "none"
}

func (o *Object) FieldKind() FieldKind {
	return o.field
}

type ConstKind uint8

const (
	ConstVal ConstKind = iota
	ConstSize
	ConstAlphabet
	ConstTable
	ConstContaining
	ConstWithComps
	ConstWithComp
	ConstPattern
	ConstEncodedBy
	ConstConstrainedBy
	ConstSettings
)

func (k ConstKind) String() string {
	switch k {
	case ConstVal:
		return "VAL"
	case ConstSize:
		return "SIZE"
	case ConstAlphabet:
		return "ALPHABET"
	case ConstTable:
		return "TABLE"
	case ConstContaining:
		return "CONTAINING"
	case ConstWithComps:
		return "WITH COMPONENTS"
	case ConstWithComp:
		return "WITH COMPONENT"
	case ConstPattern:
		return "PATTERN"
	case ConstEncodedBy:
		return "ENCODED BY"
	case ConstConstrainedBy:
		return "CONSTRAINED BY"
	case ConstSettings:
		return "SETTINGS"
	}
	return fmt.Sprintf("ConstKind(%d)", uint8(k))
}

// IsInert reports whether constraints of kind k are parsed but never
// evaluated.
func (k ConstKind) IsInert() bool {
	switch k {
	case ConstWithComp, ConstPattern, ConstEncodedBy, ConstConstrainedBy, ConstSettings:
		return true
	}
	return false
}

type Presence uint8

const (
	PresenceUnset Presence = iota
	PresencePresent
	PresenceAbsent
	PresenceOptional
)

func (p Presence) String() string {
	switch p {
	case PresencePresent:
		return "PRESENT"
	case PresenceAbsent:
		return "ABSENT"
	case PresenceOptional:
		return "OPTIONAL"
	}
	return ""
}

// CompConstraint is one entry of a WITH COMPONENTS constraint.
type CompConstraint struct {
	Name     string
	Presence Presence
	Const    []*Constraint
}

type Constraint struct {
	Kind ConstKind

	// VAL, SIZE and ALPHABET elements: values and ranges
	Root       []Value
	Ext        []Value
	Extensible bool
	// Excl marks "ALL EXCEPT" root elements.
	Excl bool

	// TABLE: synthetic CLASS set, absolute @ path, exception text
	Tab *Object
	At  []string
	Exc string

	// CONTAINING
	Containing *Object
	EncodedBy  Value

	// WITH COMPONENTS
	Comps   []*CompConstraint
	Partial bool

	// raw text of inert kinds
	Text string
}

// ValueSet is the content of a MODE_SET object: root and extension
// elements, each a value, a range, or a nested set.
type ValueSet struct {
	Root       []Value
	Ext        []Value
	Extensible bool
}

// All returns the root and extension elements. Nested sets are flattened.
func (s *ValueSet) All() []Value {
	out := make([]Value, 0, len(s.Root)+len(s.Ext))
	for _, list := range [][]Value{s.Root, s.Ext} {
		for _, v := range list {
			if nested, ok := v.(SetValue); ok && nested.Set != nil {
				out = append(out, nested.Set.All()...)
				continue
			}
			out = append(out, v)
		}
	}
	return out
}
