package models

import "gorm.io/gorm"

// Roles
const (
	RoleTrainee     = "trainee"
	RoleFacilitator = "facilitator"
	RoleHR          = "hr"
	RoleHSE         = "hse"
	RoleSuperadmin  = "superadmin"
)

// Statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var AllRoles = []string{RoleTrainee, RoleFacilitator, RoleHR, RoleHSE, RoleSuperadmin}

func ValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is an actor in the system. Staff roles authenticate by unique email +
// password; trainees are identified by unique phone number and carry no
// password. Email and phone are pointers so unset values stay NULL and do not
// collide on the unique indexes.
type User struct {
	gorm.Model
	Name         string  `json:"name" gorm:"not null"`
	Email        *string `json:"email,omitempty" gorm:"uniqueIndex"`
	PhoneNumber  *string `json:"phoneNumber,omitempty" gorm:"uniqueIndex"`
	PasswordHash string  `json:"-"`
	Department   string  `json:"department,omitempty"`
	Role         string  `json:"role" gorm:"not null;index"`
	Status       string  `json:"status" gorm:"not null;default:active"`
}

func (u *User) IsTrainee() bool {
	return u.Role == RoleTrainee
}

func (u *User) IsStaff() bool {
	return u.Role != RoleTrainee
}

// IdentityKey returns the value that must be unique for this user's role.
func (u *User) IdentityKey() string {
	if u.IsTrainee() {
		if u.PhoneNumber != nil {
			return *u.PhoneNumber
		}
		return ""
	}
	if u.Email != nil {
		return *u.Email
	}
	return ""
}
