package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.etcd.io/bbolt"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

type recordingNotifier struct {
	mu      sync.Mutex
	changes []domain.SlotChange
}

func (r *recordingNotifier) Notify(_ context.Context, c domain.SlotChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "mirror.db"), "learnova_", nil, opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestTable_CreateThenGetByID(t *testing.T) {
	s := openTestStore(t)
	companies := NewTable[domain.Company](s, domain.TableCompanies)
	ctx := context.Background()

	created, err := companies.Insert(ctx, domain.Company{
		ID:                 "c-1",
		Name:               "Acme",
		Slug:               "acme",
		SubscriptionTier:   domain.TierStarter,
		SubscriptionStatus: domain.SubscriptionActive,
		LogoURL:            strPtr("https://acme.io/logo.png"),
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := companies.SelectOne(ctx, ports.Eq("id", created.ID))
	if err != nil {
		t.Fatalf("SelectOne() error = %v", err)
	}
	if got == nil {
		t.Fatal("SelectOne() = nil, want record")
	}
	if got.Name != "Acme" || got.Slug != "acme" || got.LogoURL == nil || *got.LogoURL != "https://acme.io/logo.png" {
		t.Errorf("SelectOne() = %+v, want the inserted company", got)
	}
}

func TestTable_SelectOneMissingIsNil(t *testing.T) {
	s := openTestStore(t)
	users := NewTable[domain.User](s, domain.TableUsers)

	got, err := users.SelectOne(context.Background(), ports.Eq("email", "nobody@example.com"))
	if err != nil {
		t.Fatalf("SelectOne() error = %v", err)
	}
	if got != nil {
		t.Errorf("SelectOne() = %+v, want nil", got)
	}
}

func TestTable_SelectFiltersAndOrders(t *testing.T) {
	s := openTestStore(t)
	enrollments := NewTable[domain.Enrollment](s, domain.TableEnrollments)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	seed := []domain.Enrollment{
		{ID: "e-1", UserID: "u-1", CourseID: "k-1", Status: domain.EnrollmentNotStarted, EnrolledAt: base.Add(2 * time.Hour)},
		{ID: "e-2", UserID: "u-2", CourseID: "k-1", Status: domain.EnrollmentNotStarted, EnrolledAt: base},
		{ID: "e-3", UserID: "u-1", CourseID: "k-2", Status: domain.EnrollmentNotStarted, EnrolledAt: base.Add(time.Hour)},
	}
	for _, e := range seed {
		if _, err := enrollments.Insert(ctx, e); err != nil {
			t.Fatalf("Insert(%s) error = %v", e.ID, err)
		}
	}

	tests := []struct {
		name  string
		query ports.Query
		want  []string
	}{
		{"no filter keeps insertion order", ports.Query{}, []string{"e-1", "e-2", "e-3"}},
		{"filter by user", ports.Where(ports.Eq("user_id", "u-1")), []string{"e-1", "e-3"}},
		{"order ascending", ports.Query{}.Order("enrolled_at", false), []string{"e-2", "e-3", "e-1"}},
		{"filter and order descending", ports.Where(ports.Eq("user_id", "u-1")).Order("enrolled_at", true), []string{"e-1", "e-3"}},
		{"no match", ports.Where(ports.Eq("user_id", "u-9")), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enrollments.Select(ctx, tt.query)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Select() returned %d rows, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("row %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestTable_FilterComparesNumbersAsText(t *testing.T) {
	s := openTestStore(t)
	enrollments := NewTable[domain.Enrollment](s, domain.TableEnrollments)
	ctx := context.Background()

	if _, err := enrollments.Insert(ctx, domain.Enrollment{ID: "e-1", Progress: 40}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	got, err := enrollments.Select(ctx, ports.Where(ports.Eq("progress", "40")))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Select() returned %d rows, want 1", len(got))
	}
}

func TestTable_UpdateMergesPatch(t *testing.T) {
	s := openTestStore(t)
	courses := NewTable[domain.Course](s, domain.TableCourses)
	ctx := context.Background()

	if _, err := courses.Insert(ctx, domain.Course{
		ID:     "k-1",
		Code:   "GO-101",
		Name:   "Go Basics",
		Status: domain.StatusDraft,
		Level:  domain.LevelBeginner,
	}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	published := domain.StatusPublished
	updated, err := courses.Update(ctx, "k-1", domain.CourseUpdate{Status: &published})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Status != domain.StatusPublished {
		t.Errorf("Status = %s, want published", updated.Status)
	}
	if updated.Name != "Go Basics" || updated.Code != "GO-101" {
		t.Errorf("Update() = %+v, want untouched fields kept", updated)
	}
}

func TestTable_UpdateMissingIsNotFound(t *testing.T) {
	s := openTestStore(t)
	n := &recordingNotifier{}
	s.notifier = n
	courses := NewTable[domain.Course](s, domain.TableCourses)

	name := "x"
	_, err := courses.Update(context.Background(), "missing", domain.CourseUpdate{Name: &name})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
	if n.count() != 0 {
		t.Errorf("notifications = %d, want none for a failed update", n.count())
	}
}

func TestTable_DeleteIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	n := &recordingNotifier{}
	s.notifier = n
	users := NewTable[domain.User](s, domain.TableUsers)
	ctx := context.Background()

	if _, err := users.Insert(ctx, domain.User{ID: "u-1", Email: "a@acme.io"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := users.Delete(ctx, "u-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := users.Delete(ctx, "u-1"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}

	got, err := users.Select(ctx, ports.Query{})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Select() returned %d rows, want 0", len(got))
	}
	if n.count() != 3 {
		t.Errorf("notifications = %d, want 3", n.count())
	}
}

func TestStore_EveryMutationNotifiesOnceAndStampsSync(t *testing.T) {
	n := &recordingNotifier{}
	fixed := time.UnixMilli(1_700_000_000_000)
	s := openTestStore(t, WithNotifier(n), WithClock(func() time.Time { return fixed }))
	users := NewTable[domain.User](s, domain.TableUsers)
	ctx := context.Background()

	if _, err := users.Insert(ctx, domain.User{ID: "u-1", Email: "a@acme.io"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	first, err := s.LastSync()
	if err != nil {
		t.Fatalf("LastSync() error = %v", err)
	}

	name := "Ada"
	if _, err := users.Update(ctx, "u-1", domain.UserUpdate{FirstName: &name}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	second, err := s.LastSync()
	if err != nil {
		t.Fatalf("LastSync() error = %v", err)
	}

	if !second.After(first) {
		t.Errorf("sync timestamp did not advance: %v then %v", first, second)
	}
	if n.count() != 2 {
		t.Fatalf("notifications = %d, want 2", n.count())
	}

	last := n.changes[1]
	if last.Key != "learnova_users" {
		t.Errorf("Key = %q, want learnova_users", last.Key)
	}
	var rows []map[string]any
	if err := json.Unmarshal(last.Data, &rows); err != nil {
		t.Fatalf("notification data is not a JSON array: %v", err)
	}
	if len(rows) != 1 || rows[0]["first_name"] != "Ada" {
		t.Errorf("notification data = %s, want the updated container", last.Data)
	}
	if !last.SyncedAt.Equal(second) {
		t.Errorf("SyncedAt = %v, want %v", last.SyncedAt, second)
	}
}

func TestStore_CorruptSlotReadsEmpty(t *testing.T) {
	s := openTestStore(t)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(s.SlotKey(domain.TableCompanies)), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("seed corrupt slot: %v", err)
	}

	companies := NewTable[domain.Company](s, domain.TableCompanies)
	got, err := companies.Select(context.Background(), ports.Query{})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Select() returned %d rows, want 0", len(got))
	}

	if _, err := companies.Insert(context.Background(), domain.Company{ID: "c-1", Name: "Acme", Slug: "acme"}); err != nil {
		t.Fatalf("Insert() over corrupt slot error = %v", err)
	}
	got, _ = companies.Select(context.Background(), ports.Query{})
	if len(got) != 1 {
		t.Errorf("Select() after insert returned %d rows, want 1", len(got))
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	s, err := Open(path, "learnova_", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := NewTable[domain.User](s, domain.TableUsers).Insert(context.Background(), domain.User{ID: "u-1", Email: "a@acme.io"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	stamp := s.lastSync
	s.Close()

	reopened, err := Open(path, "learnova_", nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if reopened.lastSync != stamp {
		t.Errorf("lastSync = %d, want %d", reopened.lastSync, stamp)
	}
	got, err := NewTable[domain.User](reopened, domain.TableUsers).SelectOne(context.Background(), ports.Eq("id", "u-1"))
	if err != nil || got == nil {
		t.Fatalf("SelectOne() after reopen = %v, %v", got, err)
	}
}

func TestStore_NextSyncIsStrictlyMonotonic(t *testing.T) {
	fixed := time.UnixMilli(5000)
	s := openTestStore(t, WithClock(func() time.Time { return fixed }))
	s.lastSync = 5000

	if got := s.nextSync(); got != 5001 {
		t.Errorf("nextSync() = %d, want 5001", got)
	}
}

func TestStore_Keys(t *testing.T) {
	s := openTestStore(t)
	keys := s.Keys()
	if len(keys) != len(domain.MirroredTables)+1 {
		t.Fatalf("Keys() = %v", keys)
	}
	if keys[len(keys)-1] != "learnova_sync_timestamp" {
		t.Errorf("last key = %q, want the sync key", keys[len(keys)-1])
	}
	if got := SlotKeys("learnova_"); len(got) != len(keys) || got[0] != keys[0] {
		t.Errorf("SlotKeys() = %v, want %v", got, keys)
	}
}

func TestTable_CancelledContext(t *testing.T) {
	s := openTestStore(t)
	users := NewTable[domain.User](s, domain.TableUsers)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := users.Select(ctx, ports.Query{})
	if !domain.IsStoreError(err) {
		t.Errorf("Select() error = %v, want StoreError", err)
	}
}

func TestTable_InsertRejectsDuplicateID(t *testing.T) {
	s := openTestStore(t)
	companies := NewTable[domain.Company](s, domain.TableCompanies)
	ctx := context.Background()

	if _, err := companies.Insert(ctx, domain.Company{ID: "x", Name: "A", Slug: "a"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	_, err := companies.Insert(ctx, domain.Company{ID: "x", Name: "B", Slug: "b"})
	if !domain.IsStoreError(err) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second Insert() error = %v, want StoreError wrapping ErrConflict", err)
	}

	rows, err := companies.Select(ctx, ports.Query{})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Slug != "a" {
		t.Errorf("Select() = %+v, want the first record only", rows)
	}
}

// writeBackNotifier mirrors every users change into an audit slot, writing to
// the store from inside Notify.
type writeBackNotifier struct {
	recordingNotifier
	audit *Table[domain.Course]
}

func (w *writeBackNotifier) Notify(ctx context.Context, c domain.SlotChange) {
	w.recordingNotifier.Notify(ctx, c)
	if c.Key == "learnova_users" {
		w.audit.Insert(ctx, domain.Course{ID: fmt.Sprintf("audit-%d", c.SyncedAt.UnixMilli()), Name: "audit"})
	}
}

func TestStore_NotifierMayWriteToTheMirror(t *testing.T) {
	n := &writeBackNotifier{}
	s := openTestStore(t, WithNotifier(n))
	n.audit = NewTable[domain.Course](s, domain.TableCourses)
	users := NewTable[domain.User](s, domain.TableUsers)

	done := make(chan error, 1)
	go func() {
		_, err := users.Insert(context.Background(), domain.User{ID: "u-1", Email: "a@acme.io"})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Insert() deadlocked on a notifier that writes back")
	}

	if n.count() != 2 {
		t.Fatalf("notifications = %d, want 2", n.count())
	}
	if n.changes[0].Key != "learnova_users" || n.changes[1].Key != "learnova_courses" {
		t.Errorf("notification order = %s, %s", n.changes[0].Key, n.changes[1].Key)
	}
}

// blockingNotifier holds the first Notify until release is closed.
type blockingNotifier struct {
	recordingNotifier
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingNotifier) Notify(ctx context.Context, c domain.SlotChange) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	b.recordingNotifier.Notify(ctx, c)
}

func TestStore_SlowNotifierDoesNotBlockWrites(t *testing.T) {
	n := &blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	s := openTestStore(t, WithNotifier(n))
	users := NewTable[domain.User](s, domain.TableUsers)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := users.Insert(ctx, domain.User{ID: "u-1", Email: "a@acme.io"})
		first <- err
	}()
	<-n.entered

	if _, err := users.Insert(ctx, domain.User{ID: "u-2", Email: "b@acme.io"}); err != nil {
		t.Fatalf("Insert() while notifier is busy error = %v", err)
	}
	rows, err := users.Select(ctx, ports.Query{})
	if err != nil || len(rows) != 2 {
		t.Fatalf("Select() = %d rows, %v; want 2", len(rows), err)
	}

	close(n.release)
	if err := <-first; err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	if n.count() != 2 {
		t.Fatalf("notifications = %d, want 2", n.count())
	}
	// The queued change is delivered after the one that was in flight.
	if !n.changes[1].SyncedAt.After(n.changes[0].SyncedAt) {
		t.Errorf("notifications out of order: %v then %v", n.changes[0].SyncedAt, n.changes[1].SyncedAt)
	}
}
