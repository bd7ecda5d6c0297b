package domain

import "time"

type PortalType string

const (
	PortalStudent     PortalType = "student"
	PortalCoordinator PortalType = "coordinator"
	PortalAdmin       PortalType = "admin"
)

// PortalAccess is a credential grant for one user on one portal.
type PortalAccess struct {
	ID              string     `json:"id"`
	CompanyID       string     `json:"company_id" validate:"required"`
	UserID          string     `json:"user_id" validate:"required"`
	PortalType      PortalType `json:"portal_type" validate:"oneof=student coordinator admin"`
	AccessURL       string     `json:"access_url" validate:"required,url"`
	TempPassword    *string    `json:"temp_password"`
	PasswordChanged bool       `json:"password_changed"`
	LastAccessedAt  *time.Time `json:"last_accessed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CreatedBy       *string    `json:"created_by"`
}

type PortalAccessUpdate struct {
	AccessURL       *string    `json:"access_url,omitempty" validate:"omitnil,url"`
	TempPassword    *string    `json:"temp_password,omitempty"`
	PasswordChanged *bool      `json:"password_changed,omitempty"`
	LastAccessedAt  *time.Time `json:"last_accessed_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// AccessResult is the outcome of validating a presented portal credential.
type AccessResult struct {
	Valid   bool     `json:"valid"`
	User    *User    `json:"user,omitempty"`
	Company *Company `json:"company,omitempty"`
}
