package auth

type contextKey string

// UserIDKey is the request-context key holding the authenticated
// user's id as an int64.
const UserIDKey contextKey = "user_id"
