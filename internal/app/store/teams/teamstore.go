// internal/app/store/teams/teamstore.go
package teamstore

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hackhub-events/hackhub/internal/app/system/normalize"
	"github.com/hackhub-events/hackhub/internal/domain/models"
)

const (
	codeLength = 6
	// Uppercase base-36, matching the codes shown to participants.
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// How many fresh codes to try before giving up on create.
	maxCodeAttempts = 5
	// How many optimistic retries a contended leave gets.
	maxLeaveRetries = 3
)

var (
	// ErrInvalidName rejects empty team names.
	ErrInvalidName = errors.New("team name must not be empty")
	// ErrAlreadyOnTeam rejects create/join while the caller is on a team.
	ErrAlreadyOnTeam = errors.New("user already belongs to a team")
	// ErrNotOnTeam rejects leave when the caller has no team.
	ErrNotOnTeam = errors.New("user does not belong to a team")
	// ErrTeamFull rejects joins past the member cap.
	ErrTeamFull = errors.New("team already has the maximum number of members")
	// ErrInvalidCode means no team carries the supplied invite code.
	ErrInvalidCode = errors.New("no team with that invite code")
	// ErrCodeExhausted means invite-code generation kept colliding.
	ErrCodeExhausted = errors.New("could not generate a unique invite code")
	// ErrConflict means an operation lost its optimistic check repeatedly.
	ErrConflict = errors.New("team changed concurrently, try again")
)

// Store owns the teams collection and the team-linkage fields on users.
//
// Every mutation of a team's member list is a single conditional update on
// the team document, so the [1, MaxTeamSize] bound and the single-leader
// invariant hold at every observable instant. The paired profile write
// happens after the team write (team first, always): a failure between the
// two leaves the team as the source of truth and the profile reference is
// repaired on the next read (see GetForUser).
type Store struct {
	teams *mongo.Collection
	users *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		teams: db.Collection("teams"),
		users: db.Collection("users"),
	}
}

/* ────────────────────────────── create ────────────────────────────── */

// Create makes a new team with the caller as sole leader and links the
// caller's profile to it.
func (s *Store) Create(ctx context.Context, uid primitive.ObjectID, memberName, name, description string) (models.Team, error) {
	name = normalize.Name(name)
	if name == "" {
		return models.Team{}, ErrInvalidName
	}

	if onTeam, err := s.isOnTeam(ctx, uid); err != nil {
		return models.Team{}, err
	} else if onTeam {
		return models.Team{}, ErrAlreadyOnTeam
	}

	now := time.Now().UTC()
	t := models.Team{
		Name:        name,
		NameCI:      text.Fold(name),
		Description: description,
		CreatedBy:   uid,
		Members: []models.Member{{
			UID:      uid,
			Name:     memberName,
			Role:     models.TeamRoleLeader,
			JoinedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The unique index on invite_code turns a code collision into a
	// duplicate-key error; draw a fresh code and retry a bounded number of
	// times.
	var inserted bool
	for attempt := 0; attempt < maxCodeAttempts && !inserted; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return models.Team{}, err
		}
		t.ID = primitive.NewObjectID()
		t.InviteCode = code

		if _, err := s.teams.InsertOne(ctx, t); err != nil {
			if wafflemongo.IsDup(err) {
				continue
			}
			return models.Team{}, err
		}
		inserted = true
	}
	if !inserted {
		return models.Team{}, ErrCodeExhausted
	}

	// Team first, then profile. The profile write is conditioned on the
	// caller still being unaffiliated; losing that race undoes the create.
	if err := s.linkProfile(ctx, uid, t.ID, models.TeamRoleLeader); err != nil {
		if errors.Is(err, ErrAlreadyOnTeam) {
			_, _ = s.teams.DeleteOne(ctx, bson.M{"_id": t.ID})
		}
		return models.Team{}, err
	}

	return t, nil
}

// generateInviteCode draws codeLength characters from codeAlphabet using
// crypto/rand.
func generateInviteCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

/* ─────────────────────────────── join ─────────────────────────────── */

// JoinByCode adds the caller to the team carrying code.
//
// The member-count check and the append are one conditional update: the
// filter only matches while the team has a free slot and the caller is not
// already on the roster, so two racers for the last slot cannot both land.
func (s *Store) JoinByCode(ctx context.Context, uid primitive.ObjectID, memberName, code string) (models.Team, error) {
	code = normalize.InviteCode(code)
	if len(code) != codeLength {
		return models.Team{}, ErrInvalidCode
	}

	if onTeam, err := s.isOnTeam(ctx, uid); err != nil {
		return models.Team{}, err
	} else if onTeam {
		return models.Team{}, ErrAlreadyOnTeam
	}

	now := time.Now().UTC()
	member := models.Member{
		UID:      uid,
		Name:     memberName,
		Role:     models.TeamRoleMember,
		JoinedAt: now,
	}

	// "members.N" exists iff the array has more than N elements, so requiring
	// index MaxTeamSize-1 to be absent caps the roster at MaxTeamSize.
	filter := bson.M{
		"invite_code": code,
		"members." + itoa(models.MaxTeamSize-1): bson.M{"$exists": false},
		"members.uid":                           bson.M{"$ne": uid},
	}
	update := bson.M{
		"$push": bson.M{"members": member},
		"$set":  bson.M{"updated_at": now},
	}

	res, err := s.teams.UpdateOne(ctx, filter, update)
	if err != nil {
		return models.Team{}, err
	}
	if res.ModifiedCount == 0 {
		// The conditional update didn't land; read the team to say why.
		var t models.Team
		err := s.teams.FindOne(ctx, bson.M{"invite_code": code}).Decode(&t)
		switch {
		case err == mongo.ErrNoDocuments:
			return models.Team{}, ErrInvalidCode
		case err != nil:
			return models.Team{}, err
		case t.HasMember(uid):
			return models.Team{}, ErrAlreadyOnTeam
		default:
			return models.Team{}, ErrTeamFull
		}
	}

	var t models.Team
	if err := s.teams.FindOne(ctx, bson.M{"invite_code": code}).Decode(&t); err != nil {
		return models.Team{}, err
	}

	if err := s.linkProfile(ctx, uid, t.ID, models.TeamRoleMember); err != nil {
		if errors.Is(err, ErrAlreadyOnTeam) {
			// The caller joined another team between our precondition check
			// and here. Take the member back out.
			_, _ = s.teams.UpdateOne(ctx, bson.M{"_id": t.ID},
				bson.M{"$pull": bson.M{"members": bson.M{"uid": uid}}})
		}
		return models.Team{}, err
	}

	return t, nil
}

/* ─────────────────────────────── leave ────────────────────────────── */

// Leave removes the caller from their team. The departing leader's role
// moves to the earliest-joined remaining member in the same update that
// removes the leader; the sole member's departure deletes the team. The
// caller's profile is cleared in all cases.
//
// A profile pointing at a missing team (or a roster the caller is not on)
// is treated as already-left: the dangling reference is repaired and the
// call succeeds.
func (s *Store) Leave(ctx context.Context, uid primitive.ObjectID) error {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrNotOnTeam
		}
		return err
	}
	if u.TeamID == nil {
		return ErrNotOnTeam
	}
	teamID := *u.TeamID

	for attempt := 0; attempt < maxLeaveRetries; attempt++ {
		var t models.Team
		err := s.teams.FindOne(ctx, bson.M{"_id": teamID}).Decode(&t)
		if err == mongo.ErrNoDocuments {
			// Dangling reference: the team is gone, so the caller has
			// effectively already left.
			return s.unlinkProfile(ctx, uid)
		}
		if err != nil {
			return err
		}
		if !t.HasMember(uid) {
			return s.unlinkProfile(ctx, uid)
		}

		if len(t.Members) == 1 {
			// Sole member: delete the team instead of leaving it empty. The
			// size guard keeps a racing join from being swallowed by the
			// delete.
			res, err := s.teams.DeleteOne(ctx, bson.M{
				"_id":     teamID,
				"members": bson.M{"$size": 1},
			})
			if err != nil {
				return err
			}
			if res.DeletedCount == 0 {
				continue // someone joined meanwhile; recompute
			}
			return s.unlinkProfile(ctx, uid)
		}

		remaining := removeMember(t.Members, uid)
		departing := memberOf(t.Members, uid)
		var promoted *models.Member
		if departing.Role == models.TeamRoleLeader {
			promoted = earliestJoined(remaining)
			promoted.Role = models.TeamRoleLeader
		}

		// Removal and promotion land as one compare-and-set on the member
		// array, conditioned on the size we computed from. A concurrent
		// join or leave changes the size and sends us back around.
		res, err := s.teams.UpdateOne(ctx,
			bson.M{
				"_id":         teamID,
				"members":     bson.M{"$size": len(t.Members)},
				"members.uid": uid,
			},
			bson.M{"$set": bson.M{
				"members":    remaining,
				"updated_at": time.Now().UTC(),
			}},
		)
		if err != nil {
			return err
		}
		if res.ModifiedCount == 0 {
			continue
		}

		// Promotion also updates the new leader's profile role label. The
		// team update above already made the promotion durable, so a failure
		// here must not fail the leave; the stale label is rewritten by the
		// next GetForUser.
		if promoted != nil {
			_, _ = s.users.UpdateOne(ctx,
				bson.M{"_id": promoted.UID, "team_id": teamID},
				bson.M{"$set": bson.M{"team_role": models.TeamRoleLeader}})
		}
		return s.unlinkProfile(ctx, uid)
	}

	return ErrConflict
}

/* ─────────────────────────────── reads ────────────────────────────── */

// GetByID returns the team, or mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Team, error) {
	var t models.Team
	if err := s.teams.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return models.Team{}, err
	}
	return t, nil
}

// GetForUser resolves uid's profile reference to a full team document.
//
// An unaffiliated user yields (nil, false, nil). A dangling reference (the
// profile points at a team that no longer exists or no longer lists the
// user) is repaired in place by clearing the team refs, and a profile role
// label that disagrees with the roster is rewritten to match. Either repair
// is reported via the repaired flag so the caller can log it; it is never
// an error.
func (s *Store) GetForUser(ctx context.Context, uid primitive.ObjectID) (team *models.Team, repaired bool, err error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, err
	}
	if u.TeamID == nil {
		return nil, false, nil
	}

	var t models.Team
	err = s.teams.FindOne(ctx, bson.M{"_id": *u.TeamID}).Decode(&t)
	switch {
	case err == mongo.ErrNoDocuments:
		// Lazy repair: clear the reference rather than surfacing an error.
		if err := s.unlinkProfile(ctx, uid); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	case err != nil:
		return nil, false, err
	case !t.HasMember(uid):
		if err := s.unlinkProfile(ctx, uid); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	// The roster is the source of truth for the role too: a profile label
	// that drifted (for example a leader promotion whose profile write was
	// lost) is rewritten to match.
	rosterRole := memberOf(t.Members, uid).Role
	if u.TeamRole == nil || *u.TeamRole != rosterRole {
		if _, err := s.users.UpdateOne(ctx,
			bson.M{"_id": uid, "team_id": t.ID},
			bson.M{"$set": bson.M{"team_role": rosterRole}},
		); err != nil {
			return nil, false, err
		}
		return &t, true, nil
	}
	return &t, false, nil
}

/* ───────────────────────────── internals ──────────────────────────── */

func (s *Store) isOnTeam(ctx context.Context, uid primitive.ObjectID) (bool, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, err
	}
	return u.TeamID != nil, nil
}

// linkProfile points uid's profile at the team, conditioned on the profile
// still being unaffiliated.
func (s *Store) linkProfile(ctx context.Context, uid, teamID primitive.ObjectID, role string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": uid, "team_id": nil},
		bson.M{"$set": bson.M{
			"team_id":    teamID,
			"team_role":  role,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAlreadyOnTeam
	}
	return nil
}

// unlinkProfile clears both team fields together, preserving the
// team_id-nil ⟺ team_role-nil invariant.
func (s *Store) unlinkProfile(ctx context.Context, uid primitive.ObjectID) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{
			"$unset": bson.M{"team_id": "", "team_role": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

func memberOf(members []models.Member, uid primitive.ObjectID) models.Member {
	for _, m := range members {
		if m.UID == uid {
			return m
		}
	}
	return models.Member{}
}

func removeMember(members []models.Member, uid primitive.ObjectID) []models.Member {
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if m.UID != uid {
			out = append(out, m)
		}
	}
	return out
}

// earliestJoined picks the deterministic promotion target: the remaining
// member with the oldest joined_at, ties broken by roster order.
func earliestJoined(members []models.Member) *models.Member {
	best := &members[0]
	for i := range members[1:] {
		if members[i+1].JoinedAt.Before(best.JoinedAt) {
			best = &members[i+1]
		}
	}
	return best
}

func itoa(i int) string {
	// Single-digit indexes only; the cap is far below 10.
	return string(rune('0' + i))
}
