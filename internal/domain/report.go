package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Report represents a single citizen-submitted civic issue.
type Report struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Category       Category  `json:"category"`
	Type           string    `json:"type"`
	Description    string    `json:"description,omitempty"`
	Location       Location  `json:"location"`
	Photos         []string  `json:"photos,omitempty"`
	PriorityScore  float64   `json:"priority_score"`
	Status         Status    `json:"status"`
	ResolutionNote string    `json:"resolution_note,omitempty"`
	UpvoteCount    int       `json:"upvote_count"`
	ReportedBy     string    `json:"reported_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Category is the top-level department classification.
type Category string

const (
	CategoryWater Category = "water"
	CategoryRoads Category = "roads"
	CategoryPower Category = "power"
	CategoryWaste Category = "waste"
)

// Status values for the report lifecycle.
type Status string

const (
	StatusOpen      Status = "Open"
	StatusScheduled Status = "Scheduled"
	StatusResolved  Status = "Resolved"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite and inside Earth ranges.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsInf(l.Lat, 0) || math.IsNaN(l.Lng) || math.IsInf(l.Lng, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// CategoryTypes maps each category to its selectable issue types.
var CategoryTypes = map[Category][]string{
	CategoryWater: {"Leak", "No Supply", "Contamination", "Burst Pipe"},
	CategoryRoads: {"Pothole", "Flooding", "Damaged Surface", "Missing Sign"},
	CategoryPower: {"Outage", "Damaged Line", "Flickering", "Transformer Issue"},
	CategoryWaste: {"Uncollected Waste", "Illegal Dumping", "Overflowing Bin"},
}

// Categories lists the valid categories in display order.
var Categories = []Category{CategoryWater, CategoryRoads, CategoryPower, CategoryWaste}

// Statuses lists the valid report statuses.
var Statuses = []Status{StatusOpen, StatusScheduled, StatusResolved}

// IsValidCategory checks if category is valid.
func IsValidCategory(category Category) bool {
	_, ok := CategoryTypes[category]
	return ok
}

// IsValidType checks that typ belongs to the category's type sub-list.
func IsValidType(category Category, typ string) bool {
	for _, t := range CategoryTypes[category] {
		if t == typ {
			return true
		}
	}
	return false
}

// IsValidStatus checks if status is valid.
func IsValidStatus(status Status) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Draft carries the caller-supplied fields of a new report. ReportedBy is
// taken from the authenticated session, never from the request body.
type Draft struct {
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Location    Location `json:"location"`
	Photos      []string `json:"photos"`
	ReportedBy  string   `json:"-"`
}

// Validate checks the draft's required fields. maxPhotos bounds the photo
// list. Returns a *ValidationError naming every failing field, or nil.
func (d Draft) Validate(maxPhotos int) error {
	var fields []string
	if d.Title == "" {
		fields = append(fields, "title")
	}
	if !IsValidCategory(d.Category) {
		fields = append(fields, "category")
	} else if !IsValidType(d.Category, d.Type) {
		// a category change invalidates any previously selected type
		fields = append(fields, "type")
	}
	if !d.Location.Valid() {
		fields = append(fields, "location")
	}
	if len(d.Photos) > maxPhotos {
		fields = append(fields, "photos")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
