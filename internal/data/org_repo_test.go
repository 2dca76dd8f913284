package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkforge/linkforge-api/internal/domain/model"
	"github.com/linkforge/linkforge-api/internal/testutil"
)

type orgRepoFixture struct {
	db      *sql.DB
	repo    *OrgRepo
	clock   *testutil.TestTimeProvider
	ownerID string
}

func setupOrgRepo(t *testing.T) *orgRepoFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupAutoDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := NewOrgRepo(db, RepoConfig{TimeProvider: clock})
	ownerID := testutil.CreateTestUser(t, db, "owner@example.com")

	return &orgRepoFixture{db: db, repo: repo, clock: clock, ownerID: ownerID}
}

func (f *orgRepoFixture) createOrg(t *testing.T, name string) *model.Organization {
	t.Helper()
	org, err := f.repo.Create(context.Background(), f.ownerID, &model.CreateOrgRequest{Name: name})
	require.NoError(t, err)
	return org
}

func (f *orgRepoFixture) createInvite(t *testing.T, orgID, email string, expiresAt time.Time) *model.OrgInvite {
	t.Helper()
	invite, err := f.repo.CreateInvite(context.Background(), orgID, uuid.NewString(),
		&model.CreateInviteRequest{Email: email, Role: model.OrgRoleMember}, expiresAt)
	require.NoError(t, err)
	return invite
}

func TestOrgRepo_Create_AddsOwnerMembership(t *testing.T) {
	f := setupOrgRepo(t)
	ctx := context.Background()

	org := f.createOrg(t, "Garden Media")
	assert.NotEmpty(t, org.ID)
	assert.Equal(t, f.ownerID, org.OwnerID)

	member, err := f.repo.GetMember(ctx, org.ID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, model.OrgRoleOwner, member.Role)
}

func TestOrgRepo_GetByID_NotFound(t *testing.T) {
	f := setupOrgRepo(t)

	_, err := f.repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrOrgNotFound)
}

func TestOrgRepo_ListByUser(t *testing.T) {
	f := setupOrgRepo(t)
	ctx := context.Background()

	first := f.createOrg(t, "First Org")
	second := f.createOrg(t, "Second Org")

	// An org the user does not belong to must not appear.
	otherOwner := testutil.CreateTestUser(t, f.db, "other.owner@example.com")
	_, err := f.repo.Create(ctx, otherOwner, &model.CreateOrgRequest{Name: "Not Mine"})
	require.NoError(t, err)

	orgs, err := f.repo.ListByUser(ctx, f.ownerID)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	ids := []string{orgs[0].ID, orgs[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestOrgRepo_Members(t *testing.T) {
	f := setupOrgRepo(t)
	ctx := context.Background()

	org := f.createOrg(t, "Garden Media")
	memberID := testutil.CreateTestUser(t, f.db, "member@example.com")
	adminID := testutil.CreateTestUser(t, f.db, "admin@example.com")

	require.NoError(t, f.repo.AddMember(ctx, org.ID, memberID, model.OrgRoleMember))
	require.NoError(t, f.repo.AddMember(ctx, org.ID, adminID, model.OrgRoleAdmin))

	t.Run("invalid role rejected", func(t *testing.T) {
		err := f.repo.AddMember(ctx, org.ID, memberID, model.OrgRole("sudo"))
		require.Error(t, err)
	})

	t.Run("list puts owner first", func(t *testing.T) {
		members, err := f.repo.ListMembers(ctx, org.ID)
		require.NoError(t, err)
		require.Len(t, members, 3)
		assert.Equal(t, model.OrgRoleOwner, members[0].Role)
		assert.Equal(t, f.ownerID, members[0].UserID)
	})

	t.Run("non-member reads as not found", func(t *testing.T) {
		outsider := testutil.CreateTestUser(t, f.db, "outsider@example.com")
		_, err := f.repo.GetMember(ctx, org.ID, outsider)
		assert.ErrorIs(t, err, ErrOrgNotFound)
	})

	t.Run("remove member", func(t *testing.T) {
		require.NoError(t, f.repo.RemoveMember(ctx, org.ID, memberID))

		_, err := f.repo.GetMember(ctx, org.ID, memberID)
		assert.ErrorIs(t, err, ErrOrgNotFound)
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		err := f.repo.RemoveMember(ctx, org.ID, f.ownerID)
		assert.ErrorIs(t, err, ErrOwnerImmutable)
	})

	t.Run("removing a non-member reads as not found", func(t *testing.T) {
		err := f.repo.RemoveMember(ctx, org.ID, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrOrgNotFound)
	})
}

func TestOrgRepo_Invites(t *testing.T) {
	f := setupOrgRepo(t)
	ctx := context.Background()
	expiry := testutil.TestTime().Add(7 * 24 * time.Hour)

	org := f.createOrg(t, "Garden Media")

	t.Run("create lowercases email", func(t *testing.T) {
		invite := f.createInvite(t, org.ID, "Invited@Example.COM", expiry)
		assert.Equal(t, "invited@example.com", invite.Email)
		assert.Equal(t, model.OrgRoleMember, invite.Role)
		assert.Nil(t, invite.AcceptedAt)
	})

	t.Run("get by token", func(t *testing.T) {
		invite := f.createInvite(t, org.ID, "by.token@example.com", expiry)

		found, err := f.repo.GetInviteByToken(ctx, invite.Token)
		require.NoError(t, err)
		assert.Equal(t, invite.ID, found.ID)

		_, err = f.repo.GetInviteByToken(ctx, "no-such-token")
		assert.ErrorIs(t, err, ErrInviteNotFound)
	})

	t.Run("list shows only pending", func(t *testing.T) {
		accepted := f.createInvite(t, org.ID, "joined@example.com", expiry)
		joiner := testutil.CreateTestUser(t, f.db, "joined@example.com")
		_, err := f.repo.AcceptInvite(ctx, accepted.Token, joiner)
		require.NoError(t, err)

		invites, err := f.repo.ListInvites(ctx, org.ID)
		require.NoError(t, err)
		for _, inv := range invites {
			assert.Nil(t, inv.AcceptedAt)
			assert.NotEqual(t, accepted.ID, inv.ID)
		}
	})
}

func TestOrgRepo_AcceptInvite(t *testing.T) {
	f := setupOrgRepo(t)
	ctx := context.Background()
	expiry := testutil.TestTime().Add(7 * 24 * time.Hour)

	org := f.createOrg(t, "Garden Media")

	t.Run("grants membership with invited role", func(t *testing.T) {
		invite, err := f.repo.CreateInvite(ctx, org.ID, uuid.NewString(),
			&model.CreateInviteRequest{Email: "new.admin@example.com", Role: model.OrgRoleAdmin}, expiry)
		require.NoError(t, err)
		userID := testutil.CreateTestUser(t, f.db, "new.admin@example.com")

		accepted, err := f.repo.AcceptInvite(ctx, invite.Token, userID)
		require.NoError(t, err)
		require.NotNil(t, accepted.AcceptedAt)

		member, err := f.repo.GetMember(ctx, org.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, model.OrgRoleAdmin, member.Role)
	})

	t.Run("single use", func(t *testing.T) {
		invite := f.createInvite(t, org.ID, "once@example.com", expiry)
		userID := testutil.CreateTestUser(t, f.db, "once@example.com")

		_, err := f.repo.AcceptInvite(ctx, invite.Token, userID)
		require.NoError(t, err)

		_, err = f.repo.AcceptInvite(ctx, invite.Token, userID)
		assert.ErrorIs(t, err, ErrInviteNotAcceptable)
	})

	t.Run("expired invite", func(t *testing.T) {
		invite := f.createInvite(t, org.ID, "late@example.com", testutil.TestTime().Add(-time.Hour))
		userID := testutil.CreateTestUser(t, f.db, "late@example.com")

		_, err := f.repo.AcceptInvite(ctx, invite.Token, userID)
		assert.ErrorIs(t, err, ErrInviteNotAcceptable)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := f.repo.AcceptInvite(ctx, "no-such-token", f.ownerID)
		assert.ErrorIs(t, err, ErrInviteNotFound)
	})
}

func TestOrgRepo_DeleteExpiredInvites(t *testing.T) {
	f := setupOrgRepo(t)
	ctx := context.Background()

	org := f.createOrg(t, "Garden Media")

	t.Run("validates batch size", func(t *testing.T) {
		_, err := f.repo.DeleteExpiredInvites(ctx, 0)
		require.Error(t, err)
	})

	t.Run("removes only expired pending invites", func(t *testing.T) {
		expired1 := f.createInvite(t, org.ID, "expired.one@example.com", testutil.TestTime().Add(-time.Hour))
		expired2 := f.createInvite(t, org.ID, "expired.two@example.com", testutil.TestTime().Add(-2*time.Hour))
		pending := f.createInvite(t, org.ID, "pending@example.com", testutil.TestTime().Add(time.Hour))

		deleted, err := f.repo.DeleteExpiredInvites(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		_, err = f.repo.GetInviteByToken(ctx, expired1.Token)
		assert.ErrorIs(t, err, ErrInviteNotFound)
		_, err = f.repo.GetInviteByToken(ctx, expired2.Token)
		assert.ErrorIs(t, err, ErrInviteNotFound)

		_, err = f.repo.GetInviteByToken(ctx, pending.Token)
		require.NoError(t, err)
	})

	t.Run("respects batch size", func(t *testing.T) {
		f.createInvite(t, org.ID, "batch.one@example.com", testutil.TestTime().Add(-time.Hour))
		f.createInvite(t, org.ID, "batch.two@example.com", testutil.TestTime().Add(-time.Hour))

		deleted, err := f.repo.DeleteExpiredInvites(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		deleted, err = f.repo.DeleteExpiredInvites(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})
}
