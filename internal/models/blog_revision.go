package models

import "time"

// BlogRevisionSource identifies what produced a revision.
type BlogRevisionSource string

const BlogRevisionAdminAutosave BlogRevisionSource = "admin_autosave"

// BlogRevisionModel is an immutable audit entry of tracked field changes on a post.
type BlogRevisionModel struct {
	Base
	PostID        string                 `json:"post_id"        gorm:"type:char(36);index;not null"`
	EditedBy      *string                `json:"edited_by"      gorm:"type:char(36)"`
	Source        BlogRevisionSource     `json:"source"         gorm:"size:32;not null"`
	ChangedFields StringSlice            `json:"changed_fields" gorm:"type:json;serializer:json"`
	Before        map[string]interface{} `json:"before"         gorm:"type:longtext;serializer:json"`
	After         map[string]interface{} `json:"after"          gorm:"type:longtext;serializer:json"`
	EditedAt      time.Time              `json:"edited_at"      gorm:"index"`
}

func (BlogRevisionModel) TableName() string { return "blog_revisions" }
