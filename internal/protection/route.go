package protection

import (
	"net/http"
	"strings"
)

const (
	// UsersRoute: единственный маршрут, который блокируется (точное совпадение).
	UsersRoute = "/wp/v2/users"

	restPrefix = "/wp-json"
)

// RESTRoute извлекает маршрут REST API так же, как его видит WordPress:
// из пути (/wp-json/wp/v2/users) или из параметра ?rest_route=/wp/v2/users.
func RESTRoute(r *http.Request) string {
	if route := r.URL.Query().Get("rest_route"); route != "" {
		return normalizeRoute(route)
	}
	p := r.URL.Path
	if p == restPrefix || strings.HasPrefix(p, restPrefix+"/") {
		return normalizeRoute(strings.TrimPrefix(p, restPrefix))
	}
	return ""
}

func normalizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if len(route) > 1 {
		route = strings.TrimSuffix(route, "/")
	}
	return route
}

// IsUsersCollection: тот самый маршрут, на котором работает блокировка.
func IsUsersCollection(route string) bool {
	return route == UsersRoute
}

// IsUsersRoute: любые ответы с записями пользователей (список, /{id}, /me),
// к ним применяется обезличивание. WordPress сопоставляет маршруты без учета
// регистра, поэтому и здесь /wp/v2/Users считается тем же маршрутом.
func IsUsersRoute(route string) bool {
	route = strings.ToLower(route)
	return route == UsersRoute || strings.HasPrefix(route, UsersRoute+"/")
}
