package domain

import "time"

type Role string

const (
	RoleLearner      Role = "learner"
	RoleTeamLead     Role = "team_lead"
	RoleManager      Role = "manager"
	RoleCompanyAdmin Role = "company_admin"
	RoleCoordinator  Role = "coordinator"
	RoleSales        Role = "koenig_sales"
	RoleOps          Role = "koenig_admin"
)

type AuthProvider string

const (
	AuthEmail     AuthProvider = "email"
	AuthWorkOS    AuthProvider = "workos"
	AuthGoogle    AuthProvider = "google"
	AuthMicrosoft AuthProvider = "microsoft"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

// User belongs to exactly one Company. Email is unique within that company.
type User struct {
	ID             string       `json:"id"`
	Email          string       `json:"email" validate:"required,email"`
	PasswordHash   *string      `json:"password_hash"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	AvatarURL      *string      `json:"avatar_url"`
	CompanyID      string       `json:"company_id" validate:"required"`
	Role           Role         `json:"role" validate:"oneof=learner team_lead manager company_admin coordinator koenig_sales koenig_admin"`
	Department     *string      `json:"department"`
	JobTitle       *string      `json:"job_title"`
	AuthProvider   AuthProvider `json:"auth_provider" validate:"oneof=email workos google microsoft"`
	AuthProviderID *string      `json:"auth_provider_id"`
	EmailVerified  bool         `json:"email_verified"`
	Preferences    Document     `json:"preferences"`
	Status         UserStatus   `json:"status" validate:"oneof=active inactive suspended"`
	LastLoginAt    *time.Time   `json:"last_login_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Public returns a copy safe to hand to API consumers.
func (u User) Public() User {
	u.PasswordHash = nil
	return u
}

type UserUpdate struct {
	Email         *string     `json:"email,omitempty" validate:"omitnil,email"`
	PasswordHash  *string     `json:"password_hash,omitempty"`
	FirstName     *string     `json:"first_name,omitempty"`
	LastName      *string     `json:"last_name,omitempty"`
	AvatarURL     *string     `json:"avatar_url,omitempty"`
	Role          *Role       `json:"role,omitempty" validate:"omitnil,oneof=learner team_lead manager company_admin coordinator koenig_sales koenig_admin"`
	Department    *string     `json:"department,omitempty"`
	JobTitle      *string     `json:"job_title,omitempty"`
	EmailVerified *bool       `json:"email_verified,omitempty"`
	Preferences   Document    `json:"preferences,omitempty"`
	Status        *UserStatus `json:"status,omitempty" validate:"omitnil,oneof=active inactive suspended"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty"`
	UpdatedAt     *time.Time  `json:"updated_at,omitempty"`
}
