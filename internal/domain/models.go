// Package domain defines the persistence models for item categories and
// paint variants, plus the value types that flow through the scrape
// pipelines. Persisted types are mapped with GORM and form the core data
// layer of the catalog service.
package domain

import (
	"time"
)

// VanillaSkinName is the skin name stored for paintindex 0, which the
// upstream catalog reports with an arbitrary placeholder name.
const VanillaSkinName = "Vanilla"

// DefaultTypeName is assigned to categories the upstream reports without a
// type name.
const DefaultTypeName = "Equipment"

// ExcludedTypeNames lists category types that are never persisted.
var ExcludedTypeNames = []string{"Agent", "Gloves"}

// Category represents one item definition (defindex) in the catalog.
//
// Fields:
//   - ID: surrogate UUID primary key (char(36)).
//   - UUID: upstream identifier of the item definition.
//   - Name: display name.
//   - TypeName: item type; never empty once persisted ("Equipment" default).
//   - Defindex: upstream item definition index (indexed).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Category struct {
	ID        string    `json:"-"         gorm:"type:char(36);primaryKey"`
	UUID      string    `json:"uuid"      gorm:"type:varchar(64);not null"            validate:"required"`
	Name      string    `json:"name"      gorm:"type:varchar(255);not null"           validate:"required"`
	TypeName  string    `json:"type_name" gorm:"type:varchar(64);not null"            validate:"required,excluded_type"`
	Defindex  int       `json:"defindex"  gorm:"not null;index:idx_categories_defindex" validate:"gte=0"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// Paint represents the representative variant chosen for one
// (defindex, paintindex) pair. A rescrape of a defindex replaces every Paint
// row of that defindex.
//
// Fields:
//   - ID: surrogate UUID primary key (char(36)).
//   - UUID: upstream identifier of the chosen item instance (indexed).
//   - ItemName / WearName / SkinName / RarityName: display metadata.
//   - UVType: texture-mapping type of the chosen instance (never empty).
//   - Texture: upstream texture identifier, used to derive texture assets.
//   - Defindex / Paintindex: catalog keys (composite index).
//   - Material / UVScale: paintable material metadata.
//   - Slot: optional loadout slot supplied by the scrape request.
//   - BlurHash: placeholder hash of the rebuilt thumbnail, empty until built.
type Paint struct {
	ID         string    `json:"-"           gorm:"type:char(36);primaryKey"`
	UUID       string    `json:"uuid"        gorm:"type:varchar(64);not null;index:idx_paints_uuid" validate:"required"`
	ItemName   string    `json:"item_name"   gorm:"type:varchar(255);not null"`
	WearName   string    `json:"wear_name"   gorm:"type:varchar(64);not null"`
	SkinName   string    `json:"skin_name"   gorm:"type:varchar(255);not null"                      validate:"required"`
	RarityName string    `json:"rarity_name" gorm:"type:varchar(64);not null"`
	UVType     string    `json:"uv_type"     gorm:"type:varchar(64);not null"                       validate:"required"`
	Texture    string    `json:"texture"     gorm:"type:varchar(255);not null"`
	Defindex   int       `json:"defindex"    gorm:"not null;index:idx_paints_def_paint,priority:1"  validate:"gte=0"`
	Paintindex int       `json:"paintindex"  gorm:"not null;index:idx_paints_def_paint,priority:2"  validate:"gte=0"`
	Material   string    `json:"material"    gorm:"type:varchar(255);not null"`
	UVScale    string    `json:"uvscale"     gorm:"type:varchar(64);not null"`
	Slot       *string   `json:"slot,omitempty" gorm:"type:varchar(64)"`
	BlurHash   string    `json:"blurhash,omitempty" gorm:"type:varchar(64)"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// TableName returns the database table name for Paint.
func (Paint) TableName() string { return "paints" }

// IsExcludedType reports whether categories of typeName are dropped before
// persistence.
func IsExcludedType(typeName string) bool {
	for _, t := range ExcludedTypeNames {
		if t == typeName {
			return true
		}
	}
	return false
}
