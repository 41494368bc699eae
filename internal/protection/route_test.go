package protection

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRESTRoute(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/wp-json/wp/v2/users", "/wp/v2/users"},
		{"/wp-json/wp/v2/users/", "/wp/v2/users"},
		{"/wp-json/wp/v2/users/7", "/wp/v2/users/7"},
		{"/wp-json/wp/v2/posts", "/wp/v2/posts"},
		{"/wp-json", "/"},
		{"/?rest_route=/wp/v2/users", "/wp/v2/users"},
		{"/index.php?rest_route=wp/v2/users", "/wp/v2/users"},
		{"/wp-admin/", ""},
		{"/wp-jsonx/wp/v2/users", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.target, nil)
		assert.Equal(t, tt.want, RESTRoute(r), tt.target)
	}
}

func TestRouteMatchers(t *testing.T) {
	assert.True(t, IsUsersCollection("/wp/v2/users"))
	assert.False(t, IsUsersCollection("/wp/v2/users/7"))
	assert.False(t, IsUsersCollection("/wp/v2/users-extra"))

	assert.True(t, IsUsersRoute("/wp/v2/users"))
	assert.True(t, IsUsersRoute("/wp/v2/users/me"))
	assert.False(t, IsUsersRoute("/wp/v2/users-extra"))
	assert.False(t, IsUsersRoute("/wp/v2/posts"))

	t.Run("mixed case", func(t *testing.T) {
		for _, route := range []string{"/wp/v2/Users", "/WP/V2/USERS", "/wp/v2/USERS/me"} {
			assert.True(t, IsUsersRoute(route), route)
		}
		// блокировка остается на точном совпадении
		assert.False(t, IsUsersCollection("/wp/v2/Users"))
	})
}
