package userstore_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	userstore "github.com/hackhub-events/hackhub/internal/app/store/users"
	"github.com/hackhub-events/hackhub/internal/domain/models"
	"github.com/hackhub-events/hackhub/internal/testutil"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, "Alice@Test.com ", "Alice", "hash")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if u.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if u.Email != "alice@test.com" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
	if u.Role != models.RoleParticipant {
		t.Errorf("expected participant role, got %q", u.Role)
	}
	if u.AuthMethod != models.AuthPassword {
		t.Errorf("expected password auth method, got %q", u.AuthMethod)
	}
	if u.OnTeam() {
		t.Error("expected new user to have no team")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, "alice@test.com", "Alice", "hash"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Same address, different case.
	if _, err := store.Create(ctx, "ALICE@test.com", "Other Alice", "hash"); err != userstore.ErrEmailInUse {
		t.Errorf("expected ErrEmailInUse, got %v", err)
	}
}

func TestStore_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, "alice@test.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByEmail(ctx, "  ALICE@test.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got %v, want %v", got.ID, created.ID)
	}

	if _, err := store.GetByEmail(ctx, "nobody@test.com"); err != userstore.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_EnsureProfile_CreatesAndFinds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := userstore.Identity{
		GoogleID:    "g-12345",
		Email:       "fed@test.com",
		DisplayName: "Fed User",
		PhotoURL:    "https://example.com/p.jpg",
	}

	first, err := store.EnsureProfile(ctx, id)
	if err != nil {
		t.Fatalf("EnsureProfile failed: %v", err)
	}
	if first.GoogleID != "g-12345" || first.AuthMethod != models.AuthGoogle {
		t.Errorf("unexpected created user: %+v", first)
	}

	// Second call returns the same account, not a duplicate.
	second, err := store.EnsureProfile(ctx, id)
	if err != nil {
		t.Fatalf("EnsureProfile (again) failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same account, got %v and %v", first.ID, second.ID)
	}
}

func TestStore_EnsureProfile_LinksExistingEmailAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, "mixed@test.com", "Mixed", "hash")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.EnsureProfile(ctx, userstore.Identity{
		GoogleID:    "g-999",
		Email:       "mixed@test.com",
		DisplayName: "Mixed G",
	})
	if err != nil {
		t.Fatalf("EnsureProfile failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected existing account %v, got %v", created.ID, got.ID)
	}
	if got.GoogleID != "g-999" {
		t.Errorf("expected google id linked, got %q", got.GoogleID)
	}
}

func TestStore_EnsureProfile_NeverTouchesTeamFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "team@test.com", "Teamed")
	team := fixtures.CreateTeam(ctx, "Keepers", "KEEP01", u)

	if _, err := store.EnsureProfile(ctx, userstore.Identity{
		GoogleID:    "g-777",
		Email:       "team@test.com",
		DisplayName: "Teamed G",
	}); err != nil {
		t.Fatalf("EnsureProfile failed: %v", err)
	}

	var stored models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.TeamID == nil || *stored.TeamID != team.ID {
		t.Errorf("expected team linkage preserved, got %v", stored.TeamID)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, "alice@test.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	name := "Alice Cooper"
	bio := "I build things."
	complete := true
	got, err := store.UpdateProfile(ctx, created.ID, userstore.ProfilePatch{
		DisplayName:       &name,
		Bio:               &bio,
		IsProfileComplete: &complete,
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if got.DisplayName != name || got.Bio != bio || !got.IsProfileComplete {
		t.Errorf("patch not applied: %+v", got)
	}

	// Unset fields are left alone.
	newBio := "Still building."
	got, err = store.UpdateProfile(ctx, created.ID, userstore.ProfilePatch{Bio: &newBio})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if got.DisplayName != name {
		t.Errorf("expected display name untouched, got %q", got.DisplayName)
	}

	if _, err := store.UpdateProfile(ctx, primitive.NewObjectID(), userstore.ProfilePatch{Bio: &bio}); err != userstore.ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}
