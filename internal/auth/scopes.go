package auth

// Known OAuth scopes used by the activity endpoints.
const (
	ScopeActivitiesWrite = "activities:write"
	ScopeActivitiesRead  = "activities:read"
)

// DefaultScopes are granted to every signed-in user.
var DefaultScopes = []string{ScopeActivitiesRead, ScopeActivitiesWrite}
