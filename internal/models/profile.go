package models

import "time"

// Profile roles.
const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
	RoleAdmin   = "admin"
)

// Profile is a platform member (student, tutor or admin). The contact
// number is envelope-encrypted at rest; ContactKeyID names the data key
// that protects it.
type Profile struct {
	Bucket           int        `db:"bucket" json:"-"`
	ProfileID        string     `db:"profile_id" json:"id"`
	Role             string     `db:"role" json:"role"`
	DisplayName      string     `db:"display_name" json:"display_name"`
	Email            string     `db:"email" json:"email"`
	ContactEncrypted []byte     `db:"contact_encrypted" json:"-"`
	ContactDEK       string     `db:"contact_dek" json:"-"`
	ContactKeyID     string     `db:"contact_key_id" json:"-"`
	GradeLevel       string     `db:"grade_level" json:"grade_level,omitempty"`
	Subjects         []string   `db:"subjects" json:"subjects,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// ValidRole reports whether role is one of the three platform roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	}
	return false
}
