package postgres

import (
	"reflect"
	"testing"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		query    ports.Query
		limit    int
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "all rows",
			query:   ports.Query{},
			wantSQL: `SELECT row_to_json(t) FROM "users" AS t`,
		},
		{
			name:     "filter and order",
			query:    ports.Where(ports.Eq("company_id", "c-1")).Order("created_at", true),
			wantSQL:  `SELECT row_to_json(t) FROM "users" AS t WHERE t."company_id"::text = $1 ORDER BY t."created_at" DESC`,
			wantArgs: []any{"c-1"},
		},
		{
			name:     "two filters with limit",
			query:    ports.Where(ports.Eq("email", "a@acme.io"), ports.Eq("status", "active")).Order("email", false),
			limit:    1,
			wantSQL:  `SELECT row_to_json(t) FROM "users" AS t WHERE t."email"::text = $1 AND t."status"::text = $2 ORDER BY t."email" ASC LIMIT 1`,
			wantArgs: []any{"a@acme.io", "active"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildSelect(domain.TableUsers, tt.query, tt.limit)
			if err != nil {
				t.Fatalf("buildSelect() error = %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("sql = %s\nwant  %s", sql, tt.wantSQL)
			}
			if len(args) != len(tt.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tt.wantArgs)) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestBuildSelect_RejectsBadIdentifiers(t *testing.T) {
	if _, _, err := buildSelect(domain.TableUsers, ports.Where(ports.Eq("id; drop table users", "x")), 0); err == nil {
		t.Error("expected an error for a hostile filter column")
	}
	if _, _, err := buildSelect(domain.TableUsers, ports.Query{}.Order("Name", false), 0); err == nil {
		t.Error("expected an error for a non-lowercase order column")
	}
	if _, _, err := buildSelect(domain.Table(`users"`), ports.Query{}, 0); err == nil {
		t.Error("expected an error for a hostile table name")
	}
}

func TestBuildInsert(t *testing.T) {
	got, err := buildInsert(domain.TableCompanies, []string{"id", "name", "slug"})
	if err != nil {
		t.Fatalf("buildInsert() error = %v", err)
	}
	want := `INSERT INTO "companies" AS t ("id", "name", "slug") SELECT "id", "name", "slug" FROM json_populate_record(NULL::"companies", $1::json) RETURNING row_to_json(t)`
	if got != want {
		t.Errorf("buildInsert() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildUpdate(t *testing.T) {
	got, err := buildUpdate(domain.TableEnrollments, []string{"progress", "status"})
	if err != nil {
		t.Fatalf("buildUpdate() error = %v", err)
	}
	want := `UPDATE "enrollments" AS t SET "progress" = p."progress", "status" = p."status" FROM json_populate_record(NULL::"enrollments", $1::json) AS p WHERE t."id"::text = $2 RETURNING row_to_json(t)`
	if got != want {
		t.Errorf("buildUpdate() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildDelete(t *testing.T) {
	got, err := buildDelete(domain.TablePortalAccess)
	if err != nil {
		t.Fatalf("buildDelete() error = %v", err)
	}
	if want := `DELETE FROM "portal_access" WHERE "id"::text = $1`; got != want {
		t.Errorf("buildDelete() = %s, want %s", got, want)
	}
}

func TestEncode_ColumnsFollowPresentFields(t *testing.T) {
	progress := 40
	status := domain.EnrollmentInProgress
	_, cols, err := encode(domain.EnrollmentUpdate{Progress: &progress, Status: &status})
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	if want := []string{"progress", "status"}; !reflect.DeepEqual(cols, want) {
		t.Errorf("cols = %v, want %v", cols, want)
	}

	_, cols, err = encode(domain.EnrollmentUpdate{})
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	if len(cols) != 0 {
		t.Errorf("empty patch cols = %v, want none", cols)
	}

	if _, _, err := encode([]string{"not", "an", "object"}); err == nil {
		t.Error("expected an error for a non-object record")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	b, err := Migrations.ReadFile("migrations/0001_realtime.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("embedded migration is empty")
	}
}
