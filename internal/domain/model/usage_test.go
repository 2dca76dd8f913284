package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsage_Remaining(t *testing.T) {
	assert.Equal(t, 7, Usage{JobsUsed: 3, JobsLimit: 10}.Remaining())
	assert.Equal(t, 0, Usage{JobsUsed: 10, JobsLimit: 10}.Remaining())
	assert.Equal(t, 0, Usage{JobsUsed: 12, JobsLimit: 10}.Remaining())
}

func TestCalendarMonth(t *testing.T) {
	start, end := CalendarMonth(time.Date(2025, 3, 17, 22, 5, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), end)

	// December rolls into the next year.
	start, end = CalendarMonth(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestOrgInvite_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	invite := OrgInvite{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, invite.Expired(now))
	assert.True(t, invite.Expired(now.Add(2*time.Hour)))
}

func TestCreateInviteRequest_Validate(t *testing.T) {
	req := &CreateInviteRequest{Email: "dev@example.com"}
	assert.NoError(t, req.Validate())
	assert.Equal(t, OrgRoleMember, req.Role)

	req = &CreateInviteRequest{Email: "dev@example.com", Role: OrgRoleOwner}
	assert.Error(t, req.Validate())

	req = &CreateInviteRequest{Email: "not-an-email"}
	assert.Error(t, req.Validate())
}
