package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_NeverSerializesPassword(t *testing.T) {
	u := User{ID: 1, Name: "Ada", Email: "ada@campus.edu", Password: "$2a$10$hash"}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
	assert.NotContains(t, string(raw), "password")

	raw, err = json.Marshal(u.Profile())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@campus.edu", NormalizeEmail("  Ada@Campus.EDU \t"))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("12345"), ErrWeakPassword)
	assert.NoError(t, ValidatePassword("123456"))
}

func TestProfilePatch(t *testing.T) {
	assert.True(t, ProfilePatch{}.IsEmpty())

	name, year := "  Grace ", 3
	u := User{Name: "Ada", Email: "ada@campus.edu", Role: RoleStudent}
	ProfilePatch{Name: &name, Year: &year}.Apply(&u)

	assert.Equal(t, "Grace", u.Name)
	assert.Equal(t, 3, u.Year)
	assert.Equal(t, RoleStudent, u.Role)
}

func TestAdminUserPatch(t *testing.T) {
	assert.True(t, AdminUserPatch{}.IsEmpty())

	role, email, verified := RoleAdmin, " New@Campus.edu", true
	p := AdminUserPatch{Role: &role, Email: &email, IsVerified: &verified}
	assert.False(t, p.IsEmpty())

	u := User{Role: RoleStudent}
	p.Apply(&u)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, "new@campus.edu", u.Email)
	assert.True(t, u.IsVerified)
	assert.True(t, u.HasRole(RoleStudent, RoleAdmin))
}
