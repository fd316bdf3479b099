package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword_Valid(t *testing.T) {
	assert.Empty(t, Password("Password123!"))
}

func TestPassword_EachRuleReported(t *testing.T) {
	cases := []struct {
		name string
		pw   string
		want string
	}{
		{"too short", "Ab1!", "at least 8 characters"},
		{"no uppercase", "password123!", "uppercase letter"},
		{"no digit", "Password!!", "digit"},
		{"no special", "Password123", "special character"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msgs := Password(tc.pw)
			require.NotEmpty(t, msgs)
			found := false
			for _, m := range msgs {
				if strings.Contains(m, tc.want) {
					found = true
				}
			}
			assert.True(t, found, "expected a message mentioning %q, got %v", tc.want, msgs)
		})
	}
}

func TestPassword_AllRulesAtOnce(t *testing.T) {
	// Violates every rule except length.
	msgs := Password("aaaaaaaa")
	assert.Len(t, msgs, 3)
}

func TestOrgSlug(t *testing.T) {
	valid := []string{"acme-1", "abc", "a-b-c", "org42"}
	for _, s := range valid {
		assert.True(t, OrgSlug(s), "expected %q to be valid", s)
	}

	invalid := []string{"Acme", "ab", "123org", "-abc", "acme_1", "", strings.Repeat("a", 51)}
	for _, s := range invalid {
		assert.False(t, OrgSlug(s), "expected %q to be invalid", s)
	}
}

func TestOrgSlug_LengthBounds(t *testing.T) {
	assert.True(t, OrgSlug(strings.Repeat("a", 50)))
	assert.True(t, OrgSlug("aaa"))
	assert.False(t, OrgSlug("aa"))
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("dev@example.com"))
	assert.False(t, Email("not-an-email"))
	assert.False(t, Email(""))
}

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	assert.True(t, fe.Empty())
	fe.Add("password", "too weak")
	fe.Add("password", "no digit")
	fe.Add("org_slug", "bad slug")
	assert.False(t, fe.Empty())
	assert.Len(t, fe["password"], 2)
	assert.Len(t, fe["org_slug"], 1)
}
