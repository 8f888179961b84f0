package models

import (
	"encoding/json"
	"time"
)

// Costume is a rentable catalog item.
type Costume struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PricePerDay float64   `json:"price_per_day"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`

	// JSON string fields for DB storage
	SizesJSON  string `json:"-"`
	ImagesJSON string `json:"-"`

	// Slice fields for API interaction
	Sizes  []string `json:"sizes"`
	Images []string `json:"images"`
}

// CostumeInput is the admin-supplied body for creating or replacing a costume.
type CostumeInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Sizes       []string `json:"sizes"`
	Images      []string `json:"images"`
	PricePerDay float64  `json:"price_per_day"`
	Available   *bool    `json:"available"`
}

// CostumeFilter narrows a catalog listing. Empty fields match everything.
type CostumeFilter struct {
	Category string
	Search   string
}

// PrepareForSave marshals the slice fields into their JSON strings for DB storage.
func (c *Costume) PrepareForSave() {
	if c.Sizes == nil {
		c.Sizes = []string{}
	}
	if c.Images == nil {
		c.Images = []string{}
	}
	sizesBytes, _ := json.Marshal(c.Sizes)
	c.SizesJSON = string(sizesBytes)

	imagesBytes, _ := json.Marshal(c.Images)
	c.ImagesJSON = string(imagesBytes)
}

// PrepareForAPI unmarshals the JSON string fields into their slice fields for API responses.
func (c *Costume) PrepareForAPI() {
	c.Sizes = []string{}
	c.Images = []string{}
	if c.SizesJSON != "" {
		json.Unmarshal([]byte(c.SizesJSON), &c.Sizes)
	}
	if c.ImagesJSON != "" {
		json.Unmarshal([]byte(c.ImagesJSON), &c.Images)
	}
}
