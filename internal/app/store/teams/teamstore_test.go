package teamstore_test

import (
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	teamstore "github.com/hackhub-events/hackhub/internal/app/store/teams"
	"github.com/hackhub-events/hackhub/internal/domain/models"
	"github.com/hackhub-events/hackhub/internal/testutil"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "alice@test.com", "Alice")

	team, err := store.Create(ctx, u.ID, u.DisplayName, "  Byte  Bandits ", "we go fast")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if team.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if team.Name != "Byte Bandits" {
		t.Errorf("expected normalized name, got %q", team.Name)
	}
	if len(team.InviteCode) != 6 {
		t.Errorf("expected 6-char invite code, got %q", team.InviteCode)
	}
	if team.InviteCode != strings.ToUpper(team.InviteCode) {
		t.Errorf("expected uppercase invite code, got %q", team.InviteCode)
	}
	if len(team.Members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(team.Members))
	}
	if team.Members[0].UID != u.ID || team.Members[0].Role != models.TeamRoleLeader {
		t.Errorf("expected creator as leader, got %+v", team.Members[0])
	}

	// The creator's profile now points at the team.
	var stored models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.TeamID == nil || *stored.TeamID != team.ID {
		t.Errorf("expected profile team_id %v, got %v", team.ID, stored.TeamID)
	}
	if stored.TeamRole == nil || *stored.TeamRole != models.TeamRoleLeader {
		t.Errorf("expected profile team_role leader, got %v", stored.TeamRole)
	}
}

func TestStore_Create_EmptyName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "alice@test.com", "Alice")

	if _, err := store.Create(ctx, u.ID, u.DisplayName, "   ", ""); err != teamstore.ErrInvalidName {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestStore_Create_AlreadyOnTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "alice@test.com", "Alice")
	fixtures.CreateTeam(ctx, "First", "AAAAAA", u)

	if _, err := store.Create(ctx, u.ID, u.DisplayName, "Second", ""); err != teamstore.ErrAlreadyOnTeam {
		t.Errorf("expected ErrAlreadyOnTeam, got %v", err)
	}

	// Only the original team exists.
	n, err := db.Collection("teams").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count teams: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 team, got %d", n)
	}
}

func TestStore_JoinByCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	team := fixtures.CreateTeam(ctx, "Joiners", "JOIN01", leader)
	u := fixtures.CreateUser(ctx, "bob@test.com", "Bob")

	// Codes are matched after trimming and uppercasing.
	joined, err := store.JoinByCode(ctx, u.ID, u.DisplayName, "  join01 ")
	if err != nil {
		t.Fatalf("JoinByCode failed: %v", err)
	}
	if joined.ID != team.ID {
		t.Errorf("joined wrong team: got %v, want %v", joined.ID, team.ID)
	}
	if len(joined.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(joined.Members))
	}
	if joined.Members[1].UID != u.ID || joined.Members[1].Role != models.TeamRoleMember {
		t.Errorf("expected joiner as member, got %+v", joined.Members[1])
	}

	var stored models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.TeamID == nil || *stored.TeamID != team.ID {
		t.Errorf("expected profile team_id %v, got %v", team.ID, stored.TeamID)
	}
}

func TestStore_JoinByCode_InvalidCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "bob@test.com", "Bob")

	if _, err := store.JoinByCode(ctx, u.ID, u.DisplayName, "NOPE99"); err != teamstore.ErrInvalidCode {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := store.JoinByCode(ctx, u.ID, u.DisplayName, "SHORT"); err != teamstore.ErrInvalidCode {
		t.Errorf("expected ErrInvalidCode for short code, got %v", err)
	}

	// Failed joins leave the profile untouched.
	var stored models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.TeamID != nil {
		t.Errorf("expected nil team_id after failed join, got %v", stored.TeamID)
	}
}

func TestStore_JoinByCode_TeamFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	team := fixtures.CreateTeam(ctx, "Full House", "FULL01", leader)
	for i := 1; i < models.MaxTeamSize; i++ {
		m := fixtures.CreateUser(ctx, "m"+string(rune('0'+i))+"@test.com", "M")
		fixtures.AddMember(ctx, team, m)
	}

	late := fixtures.CreateUser(ctx, "late@test.com", "Late")
	if _, err := store.JoinByCode(ctx, late.ID, late.DisplayName, "FULL01"); err != teamstore.ErrTeamFull {
		t.Errorf("expected ErrTeamFull, got %v", err)
	}
}

func TestStore_JoinByCode_LastSlotRace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	team := fixtures.CreateTeam(ctx, "Race", "RACE01", leader)
	for i := 1; i < models.MaxTeamSize-1; i++ {
		m := fixtures.CreateUser(ctx, "m"+string(rune('0'+i))+"@test.com", "M")
		fixtures.AddMember(ctx, team, m)
	}

	// Two users race for the single free slot; exactly one wins.
	a := fixtures.CreateUser(ctx, "racer-a@test.com", "A")
	b := fixtures.CreateUser(ctx, "racer-b@test.com", "B")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, u := range []models.User{a, b} {
		wg.Add(1)
		go func(i int, u models.User) {
			defer wg.Done()
			_, errs[i] = store.JoinByCode(ctx, u.ID, u.DisplayName, "RACE01")
		}(i, u)
	}
	wg.Wait()

	var wins, fulls int
	for _, err := range errs {
		switch err {
		case nil:
			wins++
		case teamstore.ErrTeamFull:
			fulls++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if wins != 1 || fulls != 1 {
		t.Errorf("expected exactly one winner, got %d wins and %d fulls", wins, fulls)
	}

	final, err := store.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	if len(final.Members) != models.MaxTeamSize {
		t.Errorf("expected %d members, got %d", models.MaxTeamSize, len(final.Members))
	}
}

func TestStore_JoinByCode_AlreadyOnRoster(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	fixtures.CreateTeam(ctx, "Mine", "MINE01", leader)

	if _, err := store.JoinByCode(ctx, leader.ID, leader.DisplayName, "MINE01"); err != teamstore.ErrAlreadyOnTeam {
		t.Errorf("expected ErrAlreadyOnTeam, got %v", err)
	}
}

func TestStore_Leave_PromotesEarliestJoined(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	team := fixtures.CreateTeam(ctx, "Promote", "PROM01", leader)
	second := fixtures.CreateUser(ctx, "second@test.com", "Second")
	third := fixtures.CreateUser(ctx, "third@test.com", "Third")
	fixtures.AddMember(ctx, team, second)
	fixtures.AddMember(ctx, team, third)

	if err := store.Leave(ctx, leader.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	final, err := store.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	if len(final.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(final.Members))
	}
	ldr := final.Leader()
	if ldr == nil || ldr.UID != second.ID {
		t.Errorf("expected earliest-joined member %v promoted, got %+v", second.ID, ldr)
	}

	// Exactly one leader remains.
	var leaders int
	for _, m := range final.Members {
		if m.Role == models.TeamRoleLeader {
			leaders++
		}
	}
	if leaders != 1 {
		t.Errorf("expected exactly 1 leader, got %d", leaders)
	}

	// The departed leader's profile is cleared, the new leader's updated.
	var gone models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": leader.ID}).Decode(&gone); err != nil {
		t.Fatalf("reload departed user: %v", err)
	}
	if gone.TeamID != nil || gone.TeamRole != nil {
		t.Errorf("expected cleared team fields, got %v / %v", gone.TeamID, gone.TeamRole)
	}
	var promoted models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": second.ID}).Decode(&promoted); err != nil {
		t.Fatalf("reload promoted user: %v", err)
	}
	if promoted.TeamRole == nil || *promoted.TeamRole != models.TeamRoleLeader {
		t.Errorf("expected promoted profile role leader, got %v", promoted.TeamRole)
	}
}

func TestStore_Leave_SoleMemberDeletesTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateUser(ctx, "solo@test.com", "Solo")
	team := fixtures.CreateTeam(ctx, "Solo Run", "SOLO01", leader)

	if err := store.Leave(ctx, leader.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	n, err := db.Collection("teams").CountDocuments(ctx, bson.M{"_id": team.ID})
	if err != nil {
		t.Fatalf("count teams: %v", err)
	}
	if n != 0 {
		t.Error("expected team deleted after sole member left")
	}
}

func TestStore_Leave_NotOnTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "loner@test.com", "Loner")

	if err := store.Leave(ctx, u.ID); err != teamstore.ErrNotOnTeam {
		t.Errorf("expected ErrNotOnTeam, got %v", err)
	}
}

func TestStore_Leave_DanglingReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "ghost@test.com", "Ghost")
	fixtures.LinkUserToTeam(ctx, u.ID, primitive.NewObjectID(), models.TeamRoleMember)

	// Leaving a team that no longer exists succeeds and repairs the profile.
	if err := store.Leave(ctx, u.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	var stored models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.TeamID != nil {
		t.Errorf("expected repaired profile, got team_id %v", stored.TeamID)
	}
}

func TestStore_GetForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	team := fixtures.CreateTeam(ctx, "Mine", "MINE01", leader)

	got, repaired, err := store.GetForUser(ctx, leader.ID)
	if err != nil {
		t.Fatalf("GetForUser failed: %v", err)
	}
	if repaired {
		t.Error("expected no repair for a healthy reference")
	}
	if got == nil || got.ID != team.ID {
		t.Fatalf("expected team %v, got %+v", team.ID, got)
	}
}

func TestStore_GetForUser_NoTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "loner@test.com", "Loner")

	got, repaired, err := store.GetForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetForUser failed: %v", err)
	}
	if got != nil || repaired {
		t.Errorf("expected (nil, false), got (%+v, %v)", got, repaired)
	}
}

func TestStore_GetForUser_RepairsDanglingReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "ghost@test.com", "Ghost")
	fixtures.LinkUserToTeam(ctx, u.ID, primitive.NewObjectID(), models.TeamRoleMember)

	got, repaired, err := store.GetForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetForUser failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil team, got %+v", got)
	}
	if !repaired {
		t.Error("expected repaired flag")
	}

	// The repair is persistent.
	var stored models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.TeamID != nil {
		t.Errorf("expected cleared team_id, got %v", stored.TeamID)
	}
}

func TestStore_GetForUser_RepairsStaleRoleLabel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateUser(ctx, "lead@test.com", "Lead")
	team := fixtures.CreateTeam(ctx, "Mine", "MINE01", leader)

	// Simulate a lost promotion write: the roster says leader but the
	// profile still carries the member label.
	if _, err := db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": leader.ID},
		bson.M{"$set": bson.M{"team_role": models.TeamRoleMember}}); err != nil {
		t.Fatalf("force stale role: %v", err)
	}

	got, repaired, err := store.GetForUser(ctx, leader.ID)
	if err != nil {
		t.Fatalf("GetForUser failed: %v", err)
	}
	if got == nil || got.ID != team.ID {
		t.Fatalf("expected team %v, got %+v", team.ID, got)
	}
	if !repaired {
		t.Error("expected repaired flag for a stale role label")
	}

	var stored models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": leader.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.TeamRole == nil || *stored.TeamRole != models.TeamRoleLeader {
		t.Errorf("expected team_role rewritten to leader, got %v", stored.TeamRole)
	}
}

func TestStore_InviteCodesAreUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		u := fixtures.CreateUser(ctx, "u"+string(rune('a'+i))+"@test.com", "U")
		team, err := store.Create(ctx, u.ID, u.DisplayName, "Team "+string(rune('A'+i)), "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[team.InviteCode] {
			t.Fatalf("duplicate invite code %q", team.InviteCode)
		}
		seen[team.InviteCode] = true
	}
}
