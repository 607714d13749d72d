package models

// SlugTrackerModel maps a slug a post used to carry to the post that now owns it.
type SlugTrackerModel struct {
	Base
	Slug     string `json:"slug"      gorm:"size:191;index;not null"`
	Type     string `json:"type"      gorm:"size:32;index;not null"`
	TargetID string `json:"target_id" gorm:"type:char(36);index;not null"`
}

func (SlugTrackerModel) TableName() string { return "slug_trackers" }
