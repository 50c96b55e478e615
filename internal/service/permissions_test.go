package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/unigrading-api/internal/models"
)

func TestPermissionsForExactSets(t *testing.T) {
	assert.Empty(t, PermissionsFor(models.RoleStudent))
	assert.Equal(t, []models.Permission{
		models.PermViewAllClassrooms,
		models.PermManageClassrooms,
		models.PermViewAllGrades,
		models.PermManageGrades,
	}, PermissionsFor(models.RoleTeacher))
	assert.Equal(t, models.Permissions, PermissionsFor(models.RoleAdmin))
	assert.Len(t, PermissionsFor(models.RoleAdmin), 10)
	assert.Empty(t, PermissionsFor(models.Role("Janitor")))
}

func TestDecideAbsentUserDeniesEverything(t *testing.T) {
	for _, perm := range models.Permissions {
		decision := Decide(nil, perm)
		assert.False(t, decision.Allowed, perm)
		assert.Equal(t, models.ReasonNotAuthenticated, decision.Reason, perm)
	}
}

func TestDecideAllowsIffRoleHoldsPermission(t *testing.T) {
	for _, role := range models.Roles {
		user := &models.User{WalletAddress: "w-" + string(role), Username: "u", Role: role}
		granted := map[models.Permission]bool{}
		for _, p := range PermissionsFor(role) {
			granted[p] = true
		}
		for _, perm := range models.Permissions {
			decision := Decide(user, perm)
			if granted[perm] {
				assert.Equal(t, models.Allow(), decision, "%s/%s", role, perm)
			} else {
				assert.Equal(t, models.Deny(models.ReasonInsufficientPermission), decision, "%s/%s", role, perm)
			}
		}
	}
}

func TestAuthorizeStudentManageClassroomsDenied(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	audit := &recordingAudit{}
	authz := NewAuthorizationService(audit, NewMetricsService(), zap.New(core))

	student := &models.User{WalletAddress: "W3", Username: "Sam", Role: models.RoleStudent}
	decision := authz.Authorize(context.Background(), student, models.PermManageClassrooms)

	assert.False(t, decision.Allowed)
	assert.Equal(t, "insufficient permission", decision.Reason)

	require.Len(t, audit.events, 1)
	event := audit.events[0]
	assert.Equal(t, models.AuditActionAccessDenied, event.Action)
	assert.Equal(t, "W3", event.Wallet)
	assert.Equal(t, "Sam", event.Username)
	assert.Equal(t, string(models.PermManageClassrooms), event.Permission)

	entries := logs.FilterMessage("permission denied").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Sam", entries[0].ContextMap()["username"])
}

func TestAuthorizeAllowNotAudited(t *testing.T) {
	audit := &recordingAudit{}
	authz := NewAuthorizationService(audit, nil, nil)
	admin := &models.User{WalletAddress: "A", Username: "Administrator", Role: models.RoleAdmin}

	for _, perm := range models.Permissions {
		assert.True(t, authz.Authorize(context.Background(), admin, perm).Allowed)
	}
	assert.Empty(t, audit.events)
}

func TestSummarisePermissions(t *testing.T) {
	summary := SummarisePermissions(models.User{WalletAddress: "A", Role: models.RoleAdmin})
	assert.Equal(t, "System Administrator", summary.RoleDisplay)
	assert.Equal(t, "Full system access", summary.PermissionLevel)
	assert.Len(t, summary.Permissions, 10)

	assert.Equal(t, "Unknown", RoleDisplay(models.Role("x")))
	assert.Equal(t, "No access", PermissionLevel(models.Role("x")))
	assert.Equal(t, "Limited student access", PermissionLevel(models.RoleStudent))
}
