package models

import "time"

type UserRole string

const (
	RolePlayer    UserRole = "player"
	RoleModerator UserRole = "moderator"
)

// User is a registered player. Password holds the bcrypt digest and is never
// serialized.
type User struct {
	ID         int       `json:"id"`
	FirstName  string    `json:"firstname"`
	LastName   string    `json:"lastname"`
	Nickname   string    `json:"nickname"`
	Mail       string    `json:"mail"`
	Password   string    `json:"-"`
	Trophies   int       `json:"trophies"`
	HonorPoint int       `json:"honor_point"`
	Team       *string   `json:"team"`
	Role       UserRole  `json:"role"`
	Avatar     *string   `json:"avatar"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
