// Package artifact defines the syncable artifact types of a content hub, the
// per-item descriptor exchanged with accessors, and the capability interfaces
// the sync engine consumes for each artifact type.
package artifact

import (
	"fmt"
	"slices"
	"strings"
)

// Type identifies an artifact type. The value doubles as the name of the
// type's subdirectory in the working directory and its remote collection.
type Type string

const (
	TypeImageProfiles  Type = "image-profiles"
	TypeCategories     Type = "categories"
	TypeAssets         Type = "assets"
	TypeRenditions     Type = "renditions"
	TypeTypes          Type = "types"
	TypeLayouts        Type = "layouts"
	TypeLayoutMappings Type = "layout-mappings"
	TypeContent        Type = "content"
	TypeSites          Type = "sites"
	TypePages          Type = "pages"
)

// Kind describes how an artifact's bytes are shaped.
type Kind string

const (
	KindJSON   Kind = "json"
	KindBinary Kind = "binary"
)

// Category groups artifact types that reference the same set of other types.
type Category string

const (
	CategoryTaxonomy     Category = "taxonomy"
	CategoryAssets       Category = "assets"
	CategoryContentModel Category = "content-model"
	CategoryContent      Category = "content"
	CategoryStructure    Category = "structure"
)

type typeInfo struct {
	kind     Kind
	category Category
}

var types = map[Type]typeInfo{
	TypeImageProfiles:  {KindJSON, CategoryTaxonomy},
	TypeCategories:     {KindJSON, CategoryTaxonomy},
	TypeAssets:         {KindBinary, CategoryAssets},
	TypeRenditions:     {KindBinary, CategoryAssets},
	TypeTypes:          {KindJSON, CategoryContentModel},
	TypeLayouts:        {KindJSON, CategoryContentModel},
	TypeLayoutMappings: {KindJSON, CategoryContentModel},
	TypeContent:        {KindJSON, CategoryContent},
	TypeSites:          {KindJSON, CategoryStructure},
	TypePages:          {KindJSON, CategoryStructure},
}

// categoryOrder lists categories so that types with no outward references
// come before the types that reference them. It is an empirical ordering and
// does not rule out reference cycles between items of the same category.
var categoryOrder = []Category{
	CategoryTaxonomy,
	CategoryAssets,
	CategoryContentModel,
	CategoryContent,
	CategoryStructure,
}

// typeOrder is the stable order of types within their categories.
var typeOrder = []Type{
	TypeImageProfiles,
	TypeCategories,
	TypeAssets,
	TypeRenditions,
	TypeTypes,
	TypeLayouts,
	TypeLayoutMappings,
	TypeContent,
	TypeSites,
	TypePages,
}

// AllTypes returns every known artifact type in dependency order.
func AllTypes() []Type {
	return slices.Clone(typeOrder)
}

// Categories returns the categories in dependency order.
func Categories() []Category {
	return slices.Clone(categoryOrder)
}

// TypesIn returns the known types belonging to the category, in order.
func TypesIn(c Category) []Type {
	var out []Type
	for _, t := range typeOrder {
		if types[t].category == c {
			out = append(out, t)
		}
	}
	return out
}

// ParseType converts a user supplied name to a Type.
func ParseType(name string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown artifact type %q", name)
	}
	return t, nil
}

func (t Type) Valid() bool {
	_, ok := types[t]
	return ok
}

func (t Type) Kind() Kind {
	return types[t].kind
}

func (t Type) Category() Category {
	return types[t].category
}

// Dir is the slash-separated directory of the type relative to the working directory.
func (t Type) Dir() string {
	return string(t)
}

func (t Type) String() string {
	return string(t)
}

// TypeOfPath infers the artifact type from the first segment of a working
// directory relative path.
func TypeOfPath(path string) (Type, bool) {
	first, _, _ := strings.Cut(strings.TrimLeft(path, "/"), "/")
	t := Type(first)
	return t, t.Valid()
}
