package domain

// Account links a platform account to a workspace and carries the access
// token obtained by the external OAuth flow. Read-only to this engine.
type Account struct {
	ID                string
	WorkspaceID       string
	Platform          string
	PlatformAccountID string
	Username          string
	AccessToken       string
}
