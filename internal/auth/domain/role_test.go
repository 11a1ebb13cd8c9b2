package domain_test

import (
	"testing"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Role
		wantErr bool
	}{
		{in: "user", want: domain.RoleUser},
		{in: "Content", want: domain.RoleContent},
		{in: " ADMIN ", want: domain.RoleAdmin},
		{in: "superadmin", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRole_Hierarchy(t *testing.T) {
	for i, have := range domain.Roles {
		for j, need := range domain.Roles {
			require.Equal(t, i >= j, have.AtLeast(need), "%s AtLeast %s", have, need)
		}
	}

	require.False(t, domain.Role("root").AtLeast(domain.RoleUser))
	require.False(t, domain.RoleAdmin.AtLeast(domain.Role("root")))
}

func TestRole_SatisfiesAny(t *testing.T) {
	require.True(t, domain.RoleContent.SatisfiesAny(domain.RoleAdmin, domain.RoleContent))
	require.True(t, domain.RoleAdmin.SatisfiesAny(domain.RoleContent))
	require.False(t, domain.RoleUser.SatisfiesAny(domain.RoleContent, domain.RoleAdmin))
	require.False(t, domain.RoleAdmin.SatisfiesAny())
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", domain.NormalizeEmail("  Alice@Example.COM "))
}
