package credentials_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/learnova/portal-service/internal/config"
	"github.com/learnova/portal-service/internal/core/credentials"
	"github.com/learnova/portal-service/internal/core/domain"
)

func portal(mut func(*config.PortalConfig)) config.PortalConfig {
	p := config.PortalConfig{
		Domain:         "learnova.training",
		Host:           "portal.learnova.training",
		StudentURL:     config.DefaultStudentURL,
		CoordinatorURL: config.DefaultCoordinatorURL,
		SalesURL:       config.DefaultSalesURL,
	}
	if mut != nil {
		mut(&p)
	}
	return p
}

var acme = domain.Company{ID: "c-1", Name: "Acme", Slug: "acme"}

func TestDerive_AdminFallbackScenario(t *testing.T) {
	d := credentials.NewDeriver(portal(nil))

	got, err := d.Derive(credentials.RoleAdmin, acme)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	want := credentials.Credentials{
		Role:       credentials.RoleAdmin,
		Name:       "Company Admin",
		Email:      "admin@acme.com",
		Password:   "AdminAcme2024!",
		PortalURL:  "https://koeniglearnova.vercel.app?company=acme&role=admin",
		DisplayURL: "https://acme.learnova.training/admin",
	}
	if got != want {
		t.Errorf("Derive() = %+v\nwant %+v", got, want)
	}
}

func TestDerive_PortalURLPolicy(t *testing.T) {
	tests := []struct {
		name   string
		portal config.PortalConfig
		role   credentials.Role
		want   string
	}{
		{"localhost learner", portal(func(p *config.PortalConfig) { p.Host = "localhost:3000" }), credentials.RoleLearner, "http://localhost:3001?company=acme"},
		{"localhost coordinator", portal(func(p *config.PortalConfig) { p.Host = "localhost:3000" }), credentials.RoleCoordinator, "http://localhost:3002?company=acme"},
		{"localhost admin", portal(func(p *config.PortalConfig) { p.Host = "localhost:3000" }), credentials.RoleAdmin, "http://localhost:3002?company=acme&role=admin"},
		{"localhost wins over custom domain", portal(func(p *config.PortalConfig) { p.Host = "localhost"; p.UseCustomDomain = true }), credentials.RoleLearner, "http://localhost:3001?company=acme"},
		{"custom learner", portal(func(p *config.PortalConfig) { p.UseCustomDomain = true }), credentials.RoleLearner, "https://acme.learnova.training"},
		{"custom coordinator", portal(func(p *config.PortalConfig) { p.UseCustomDomain = true }), credentials.RoleCoordinator, "https://acme.learnova.training/tc"},
		{"custom admin", portal(func(p *config.PortalConfig) { p.UseCustomDomain = true }), credentials.RoleAdmin, "https://acme.learnova.training/admin"},
		{"fallback learner", portal(nil), credentials.RoleLearner, "https://learnovastudent3.vercel.app?company=acme"},
		{"fallback coordinator", portal(nil), credentials.RoleCoordinator, "https://koeniglearnova.vercel.app?company=acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := credentials.NewDeriver(tt.portal).Derive(tt.role, acme)
			if err != nil {
				t.Fatalf("Derive() error = %v", err)
			}
			if got.PortalURL != tt.want {
				t.Errorf("PortalURL = %q, want %q", got.PortalURL, tt.want)
			}
		})
	}
}

func TestDerive_DisplayURLIgnoresEnvironment(t *testing.T) {
	want := map[credentials.Role]string{
		credentials.RoleAdmin:       "https://acme.learnova.training/admin",
		credentials.RoleCoordinator: "https://acme.learnova.training/tc",
		credentials.RoleLearner:     "https://acme.learnova.training",
	}
	configs := []config.PortalConfig{
		portal(nil),
		portal(func(p *config.PortalConfig) { p.UseCustomDomain = true }),
		portal(func(p *config.PortalConfig) { p.Host = "localhost:3000" }),
		portal(func(p *config.PortalConfig) { p.StudentURL = "https://other.example" }),
	}
	for _, cfg := range configs {
		d := credentials.NewDeriver(cfg)
		for role, url := range want {
			got, err := d.Derive(role, acme)
			if err != nil {
				t.Fatalf("Derive() error = %v", err)
			}
			if got.DisplayURL != url {
				t.Errorf("host=%q custom=%v role=%s: DisplayURL = %q, want %q", cfg.Host, cfg.UseCustomDomain, role, got.DisplayURL, url)
			}
		}
	}
}

func TestDerive_IsDeterministic(t *testing.T) {
	d := credentials.NewDeriver(portal(nil))
	for _, role := range credentials.Roles {
		first, err := d.Derive(role, acme)
		if err != nil {
			t.Fatal(err)
		}
		second, _ := d.Derive(role, acme)
		if first != second {
			t.Errorf("role %s: %+v != %+v", role, first, second)
		}
	}
	if !reflect.DeepEqual(d.DeriveAll(acme), d.DeriveAll(acme)) {
		t.Error("DeriveAll() is not deterministic")
	}
}

func TestDerive_EmailsAndPasswords(t *testing.T) {
	d := credentials.NewDeriver(portal(nil))
	withAdmin := acme
	withAdmin.AdminEmail = "it@acme.io"

	tests := []struct {
		role     credentials.Role
		company  domain.Company
		email    string
		password string
	}{
		{credentials.RoleAdmin, acme, "admin@acme.com", "AdminAcme2024!"},
		{credentials.RoleAdmin, withAdmin, "it@acme.io", "AdminAcme2024!"},
		{credentials.RoleCoordinator, withAdmin, "coordinator@acme.com", "TrainAcme2024!"},
		{credentials.RoleLearner, acme, "learner@acme.com", "LearnAcme2024!"},
	}
	for _, tt := range tests {
		got, err := d.Derive(tt.role, tt.company)
		if err != nil {
			t.Fatal(err)
		}
		if got.Email != tt.email || got.Password != tt.password {
			t.Errorf("role %s: email=%q password=%q, want %q %q", tt.role, got.Email, got.Password, tt.email, tt.password)
		}
	}

	if got := credentials.Password(credentials.RoleLearner, "big-co"); got != "LearnBig-co2024!" {
		t.Errorf("Password(hyphenated) = %q", got)
	}
}

func TestDerive_UnknownRole(t *testing.T) {
	d := credentials.NewDeriver(portal(nil))
	if _, err := d.Derive(credentials.Role("sales"), acme); !errors.Is(err, domain.ErrUnknownRole) {
		t.Errorf("Derive(sales) error = %v, want ErrUnknownRole", err)
	}
	if _, err := credentials.ParseRole("owner"); !errors.Is(err, domain.ErrUnknownRole) {
		t.Errorf("ParseRole(owner) error = %v, want ErrUnknownRole", err)
	}
	if r, err := credentials.ParseRole("Coordinator"); err != nil || r != credentials.RoleCoordinator {
		t.Errorf("ParseRole(Coordinator) = %v, %v", r, err)
	}
}

func TestDeriveAll(t *testing.T) {
	sheet := credentials.NewDeriver(portal(nil)).DeriveAll(acme)
	if len(sheet.Credentials) != 3 {
		t.Fatalf("DeriveAll() returned %d credentials, want 3", len(sheet.Credentials))
	}
	names := []string{"Company Admin", "Training Coordinator", "Student/Learner"}
	for i, c := range sheet.Credentials {
		if c.Name != names[i] {
			t.Errorf("credential %d name = %q, want %q", i, c.Name, names[i])
		}
	}
	if sheet.SalesPortalURL != config.DefaultSalesURL {
		t.Errorf("SalesPortalURL = %q", sheet.SalesPortalURL)
	}
}

func TestRolePortalType(t *testing.T) {
	if credentials.RoleLearner.PortalType() != domain.PortalStudent ||
		credentials.RoleCoordinator.PortalType() != domain.PortalCoordinator ||
		credentials.RoleAdmin.PortalType() != domain.PortalAdmin {
		t.Error("role to portal type mapping is wrong")
	}
}
