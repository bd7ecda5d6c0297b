// Package credentials derives the per-role portal credentials handed to a new
// tenant. Derivation is deterministic: the same role, company and
// configuration always produce the same output.
package credentials

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/learnova/portal-service/internal/config"
	"github.com/learnova/portal-service/internal/core/domain"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
	RoleLearner     Role = "learner"
)

// Roles in credential sheet order.
var Roles = []Role{RoleAdmin, RoleCoordinator, RoleLearner}

const (
	learnerDevPort = "3001"
	staffDevPort   = "3002"
)

// Credentials is what a tenant contact receives for one portal. PortalURL is
// the link that actually opens; DisplayURL is the branded form always shown.
type Credentials struct {
	Role       Role   `json:"role"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	PortalURL  string `json:"portal_url"`
	DisplayURL string `json:"display_url"`
}

// Sheet is the full set handed over when a company is provisioned.
type Sheet struct {
	Company        string        `json:"company"`
	Slug           string        `json:"slug"`
	Credentials    []Credentials `json:"credentials"`
	SalesPortalURL string        `json:"sales_portal_url"`
}

type Deriver struct {
	portal config.PortalConfig
}

func NewDeriver(portal config.PortalConfig) *Deriver {
	return &Deriver{portal: portal}
}

// ParseRole accepts the three derivable roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(s)); r {
	case RoleAdmin, RoleCoordinator, RoleLearner:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownRole, s)
}

// PortalType is the portal_access type a role's credentials grant.
func (r Role) PortalType() domain.PortalType {
	switch r {
	case RoleAdmin:
		return domain.PortalAdmin
	case RoleCoordinator:
		return domain.PortalCoordinator
	default:
		return domain.PortalStudent
	}
}

// DisplayName labels the role on a credential sheet.
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Company Admin"
	case RoleCoordinator:
		return "Training Coordinator"
	default:
		return "Student/Learner"
	}
}

func (d *Deriver) Derive(role Role, company domain.Company) (Credentials, error) {
	switch role {
	case RoleAdmin, RoleCoordinator, RoleLearner:
	default:
		return Credentials{}, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	slug := company.Slug

	return Credentials{
		Role:       role,
		Name:       role.DisplayName(),
		Email:      loginEmail(role, company),
		Password:   Password(role, slug),
		PortalURL:  d.PortalURL(role, slug),
		DisplayURL: d.DisplayURL(role, slug),
	}, nil
}

// DeriveAll returns the admin, coordinator and learner credentials of company.
func (d *Deriver) DeriveAll(company domain.Company) Sheet {
	sheet := Sheet{
		Company:        company.Name,
		Slug:           company.Slug,
		Credentials:    make([]Credentials, 0, len(Roles)),
		SalesPortalURL: d.portal.SalesURL,
	}
	for _, r := range Roles {
		c, _ := d.Derive(r, company)
		sheet.Credentials = append(sheet.Credentials, c)
	}
	return sheet
}

// Password is the temporary password template. It is guessable from the slug
// and must be changed on first login.
func Password(role Role, slug string) string {
	var prefix string
	switch role {
	case RoleAdmin:
		prefix = "Admin"
	case RoleCoordinator:
		prefix = "Train"
	default:
		prefix = "Learn"
	}
	return prefix + capitalize(slug) + "2024!"
}

// PortalURL picks local development ports, then the custom subdomain, then
// the fallback deployments.
func (d *Deriver) PortalURL(role Role, slug string) string {
	if strings.Contains(d.portal.Host, "localhost") {
		port := staffDevPort
		if role == RoleLearner {
			port = learnerDevPort
		}
		u := fmt.Sprintf("http://localhost:%s?company=%s", port, slug)
		if role == RoleAdmin {
			u += "&role=admin"
		}
		return u
	}

	if d.portal.UseCustomDomain {
		return d.DisplayURL(role, slug)
	}

	switch role {
	case RoleCoordinator:
		return fmt.Sprintf("%s?company=%s", d.portal.CoordinatorURL, slug)
	case RoleAdmin:
		return fmt.Sprintf("%s?company=%s&role=admin", d.portal.CoordinatorURL, slug)
	default:
		return fmt.Sprintf("%s?company=%s", d.portal.StudentURL, slug)
	}
}

// DisplayURL is always the branded subdomain, whatever PortalURL resolves to.
func (d *Deriver) DisplayURL(role Role, slug string) string {
	base := fmt.Sprintf("https://%s.%s", slug, d.portal.Domain)
	switch role {
	case RoleCoordinator:
		return base + "/tc"
	case RoleAdmin:
		return base + "/admin"
	default:
		return base
	}
}

func loginEmail(role Role, company domain.Company) string {
	switch role {
	case RoleAdmin:
		if company.AdminEmail != "" {
			return company.AdminEmail
		}
		return "admin@" + company.Slug + ".com"
	case RoleCoordinator:
		return "coordinator@" + company.Slug + ".com"
	default:
		return "learner@" + company.Slug + ".com"
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
