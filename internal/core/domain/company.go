package domain

import "time"

type SubscriptionTier string

const (
	TierStarter      SubscriptionTier = "starter"
	TierProfessional SubscriptionTier = "professional"
	TierEnterprise   SubscriptionTier = "enterprise"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Company is the tenant root. Slug is globally unique and seeds derived
// portal credentials.
type Company struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name" validate:"required"`
	Slug               string             `json:"slug" validate:"required,slug"`
	Industry           string             `json:"industry"`
	Size               string             `json:"size"`
	LogoURL            *string            `json:"logo_url"`
	FaviconURL         *string            `json:"favicon_url"`
	Branding           Document           `json:"branding"`
	Features           Document           `json:"features"`
	AdminEmail         string             `json:"admin_email" validate:"omitempty,email"`
	SupportEmail       string             `json:"support_email" validate:"omitempty,email"`
	SubscriptionTier   SubscriptionTier   `json:"subscription_tier" validate:"oneof=starter professional enterprise"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" validate:"oneof=active trial expired cancelled"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at"`
	CreatedBy          *string            `json:"created_by"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// CompanyUpdate carries the columns to change; nil fields are left untouched.
type CompanyUpdate struct {
	Name               *string             `json:"name,omitempty" validate:"omitnil,min=1"`
	Slug               *string             `json:"slug,omitempty" validate:"omitnil,slug"`
	Industry           *string             `json:"industry,omitempty"`
	Size               *string             `json:"size,omitempty"`
	LogoURL            *string             `json:"logo_url,omitempty"`
	FaviconURL         *string             `json:"favicon_url,omitempty"`
	Branding           Document            `json:"branding,omitempty"`
	Features           Document            `json:"features,omitempty"`
	AdminEmail         *string             `json:"admin_email,omitempty" validate:"omitempty,email"`
	SupportEmail       *string             `json:"support_email,omitempty" validate:"omitempty,email"`
	SubscriptionTier   *SubscriptionTier   `json:"subscription_tier,omitempty" validate:"omitempty,oneof=starter professional enterprise"`
	SubscriptionStatus *SubscriptionStatus `json:"subscription_status,omitempty" validate:"omitempty,oneof=active trial expired cancelled"`
	TrialEndsAt        *time.Time          `json:"trial_ends_at,omitempty"`
	UpdatedAt          *time.Time          `json:"updated_at,omitempty"`
}
