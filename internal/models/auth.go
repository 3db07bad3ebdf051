package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the staff roles known to the gateway.
type UserRole string

const (
	RoleHR      UserRole = "HR"
	RoleStaff   UserRole = "STAFF"
	RoleManager UserRole = "MANAGER"
)

// ActingUser identifies the employee on whose behalf an operation runs.
type ActingUser struct {
	StaffID    int      `json:"staff_id"`
	ManagerID  int      `json:"manager_id"`
	Department string   `json:"dept"`
	Position   string   `json:"position"`
	Role       UserRole `json:"role"`
	FirstName  string   `json:"staff_fname"`
	LastName   string   `json:"staff_lname"`
}

// CanReview reports whether the user may decide on subordinates' requests.
func (u ActingUser) CanReview() bool {
	return u.Role == RoleManager || u.Role == RoleHR
}

// JWTClaims represents the JWT payload issued by the login service.
type JWTClaims struct {
	StaffID    int      `json:"staff_id"`
	ManagerID  int      `json:"manager_id"`
	Department string   `json:"dept"`
	Position   string   `json:"position"`
	Role       UserRole `json:"role"`
	FirstName  string   `json:"staff_fname"`
	LastName   string   `json:"staff_lname"`
	jwt.RegisteredClaims
}

// Actor converts token claims into the acting user.
func (c *JWTClaims) Actor() ActingUser {
	if c == nil {
		return ActingUser{}
	}
	return ActingUser{
		StaffID:    c.StaffID,
		ManagerID:  c.ManagerID,
		Department: c.Department,
		Position:   c.Position,
		Role:       c.Role,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
	}
}
