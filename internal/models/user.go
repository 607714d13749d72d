package models

// User roles.
const (
	RoleRunner    = "runner"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// UserModel is an account on the platform. The blog core only reads it.
type UserModel struct {
	Base
	Email         string `json:"email"          gorm:"size:191;uniqueIndex;not null"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"           gorm:"size:16;index;default:'runner'"`
	EmailVerified bool   `json:"email_verified" gorm:"default:false"`
}

func (UserModel) TableName() string { return "users" }

// DisplayName returns the best human-readable name for the user.
func (u *UserModel) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}
