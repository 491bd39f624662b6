// Package catalog provides a rate-limited client for the upstream item
// catalog and its image and texture asset origins.
package catalog

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/tbourn/skinvault/internal/domain"
)

// Raw API response types (internal)

type rawVariant struct {
	UUID       string      `json:"uuid"`
	ItemName   string      `json:"item_name"`
	WearName   string      `json:"wear_name"`
	SkinName   string      `json:"skin_name"`
	RarityName string      `json:"rarity_name"`
	UVType     *string     `json:"uvType"`
	Defindex   int         `json:"defindex"`
	Paintindex int         `json:"paintindex"`
	Texture    string      `json:"texture"`
	FloatValue json.Number `json:"floatvalue"`
	Item       *rawItem    `json:"item"`
}

type rawItem struct {
	PaintData *struct {
		Material *struct {
			Name    string          `json:"name"`
			UVScale json.RawMessage `json:"uvscale"`
		} `json:"paintablematerial0"`
	} `json:"paint_data"`
}

// toRecord flattens the nested upstream shape. A missing float sorts last.
func (r rawVariant) toRecord() domain.VariantRecord {
	rec := domain.VariantRecord{
		UUID:       r.UUID,
		ItemName:   r.ItemName,
		WearName:   r.WearName,
		SkinName:   r.SkinName,
		RarityName: r.RarityName,
		Defindex:   r.Defindex,
		Paintindex: r.Paintindex,
		Texture:    r.Texture,
		FloatValue: math.MaxFloat64,
	}
	if r.UVType != nil {
		rec.UVType = *r.UVType
	}
	if f, err := r.FloatValue.Float64(); err == nil {
		rec.FloatValue = f
	}
	if r.Item != nil && r.Item.PaintData != nil && r.Item.PaintData.Material != nil {
		m := r.Item.PaintData.Material
		rec.Material = m.Name
		rec.UVScale = scalarString(m.UVScale)
	}
	return rec
}

// scalarString renders a JSON string or number as text; anything else is "".
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return n.String()
		}
	}
	return ""
}
