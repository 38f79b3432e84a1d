package authflowrepo

import "time"

// AuthFlowState is what the sign-in redirect must remember until the provider calls back.
type AuthFlowState struct {
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	// Take returns the flow for state and removes it, so a state can only be redeemed once.
	Take(state string) (*AuthFlowState, error)
}
