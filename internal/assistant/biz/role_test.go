package biz

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/persona-assistant/pkg/errors"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"developer", RoleDeveloper},
		{"DEVELOPER", RoleDeveloper},
		{"Software Developer", RoleDeveloper},
		{"Just looking around", RoleJustLooking},
		{"  just-looking-around ", RoleJustLooking},
		{"Hiring Manager (nontechnical)", RoleHiringManagerNonTechnical},
		{"hiring_manager_technical", RoleHiringManagerTechnical},
		{"Technical Manager", RoleTechnicalManager},
		{"confession", RoleConfession},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRoleInvalid(t *testing.T) {
	for _, in := range []string{"", "ninja", "hiring manager"} {
		_, err := ParseRole(in)
		require.Error(t, err, in)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidRole), in)
	}
}

func TestRoleProfiles(t *testing.T) {
	for _, r := range Roles() {
		assert.NotEmpty(t, r.DisplayName(), r)
	}

	assert.True(t, RoleDeveloper.CodeEnriched())
	assert.True(t, RoleTechnicalManager.CodeEnriched())
	assert.False(t, RoleHiringManagerTechnical.CodeEnriched())
	assert.False(t, RoleJustLooking.CodeEnriched())

	assert.Contains(t, RoleHiringManagerNonTechnical.ExcludeTags(), TagPersonal)
	assert.Empty(t, RoleJustLooking.ExcludeTags())
}

func TestRolesReturnsCopy(t *testing.T) {
	rs := Roles()
	rs[0] = "mutated"
	assert.Equal(t, RoleHiringManagerNonTechnical, Roles()[0])
}
