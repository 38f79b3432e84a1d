package oauth2

// UserInfo is the subset of the OIDC userinfo response the gateway keeps in a session.
type UserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
}
