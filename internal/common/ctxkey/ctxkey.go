package ctxkey

type contextKey string

const (
	UserID   contextKey = "userID"
	UserRole contextKey = "userRole"
)
