package models

import (
	"time"
)

// Category is the closed set of project categories.
type Category string

const (
	CategoryArchitecture Category = "ARCHITECTURE"
	CategoryArtwork      Category = "ARTWORK"
	CategoryBiology      Category = "BIOLOGY"
	CategoryBusiness     Category = "BUSINESS"
	CategoryChemistry    Category = "CHEMISTRY"
	CategoryEconomics    Category = "ECONOMICS"
	CategoryEngineering  Category = "ENGINEERING"
	CategoryEnglish      Category = "ENGLISH"
	CategoryHistory      Category = "HISTORY"
	CategoryLaw          Category = "LAW"
	CategoryMath         Category = "MATH"
	CategoryMedicine     Category = "MEDICINE"
	CategoryMusic        Category = "MUSIC"
	CategoryPhilosophy   Category = "PHILOSOPHY"
	CategoryPhysics      Category = "PHYSICS"
	CategoryPolitics     Category = "POLITICS"
	CategoryPsychology   Category = "PSYCHOLOGY"
	CategoryScience      Category = "SCIENCE"
	CategorySociology    Category = "SOCIOLOGY"
	CategorySoftware     Category = "SOFTWARE"
	CategoryOther        Category = "OTHER"
)

// Categories lists every valid project category.
var Categories = []Category{
	CategoryArchitecture, CategoryArtwork, CategoryBiology, CategoryBusiness,
	CategoryChemistry, CategoryEconomics, CategoryEngineering, CategoryEnglish,
	CategoryHistory, CategoryLaw, CategoryMath, CategoryMedicine, CategoryMusic,
	CategoryPhilosophy, CategoryPhysics, CategoryPolitics, CategoryPsychology,
	CategoryScience, CategorySociology, CategorySoftware, CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Project is a reviewable project. The owner also holds a membership row, so
// member counts always include the owner.
type Project struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"size:100;not null;uniqueIndex:idx_owner_name,priority:2" json:"name"`
	OwnerID           uint           `gorm:"not null;uniqueIndex:idx_owner_name,priority:1" json:"owner_id"`
	Owner             *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Category          Category       `gorm:"size:100;default:OTHER" json:"category"`
	Description       string         `gorm:"type:text" json:"description"`
	DueDate           *time.Time     `json:"due_date"`
	NumberOfReviewers uint           `gorm:"default:1" json:"number_of_reviewers"`
	IsPrivate         bool           `gorm:"default:false" json:"is_private"`
	Upvotes           uint           `gorm:"default:0" json:"upvotes"`
	RubricKey         string     `gorm:"size:255" json:"rubric_key"`
	GuidelinesKey     string     `gorm:"size:255" json:"guidelines_key"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// StorageRoot returns the object-store key prefix for the project's files.
func (p *Project) StorageRoot() string {
	return p.Name + "/"
}
