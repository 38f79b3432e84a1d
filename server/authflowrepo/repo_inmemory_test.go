package authflowrepo_test

import (
	"testing"
	"time"

	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/server/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepoTakeIsSingleUse(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo(10 * time.Minute)

	require.NoError(t, repo.Upsert("state-1", &authflowrepo.AuthFlowState{
		CodeVerifier: "verifier",
		Nonce:        "nonce",
		ReturnURL:    "/dashboard",
	}))

	flow, err := repo.Take("state-1")
	require.NoError(t, err)
	require.Equal(t, "verifier", flow.CodeVerifier)
	require.Equal(t, "nonce", flow.Nonce)
	require.Equal(t, "/dashboard", flow.ReturnURL)
	require.False(t, flow.CreatedAt.IsZero())

	_, err = repo.Take("state-1")
	require.ErrorIs(t, err, gwerrors.ErrInvalidState)
}

func TestInMemoryRepoRejectsBadInput(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo(time.Minute)

	require.Error(t, repo.Upsert("", &authflowrepo.AuthFlowState{}))
	require.Error(t, repo.Upsert("state", nil))

	_, err := repo.Take("")
	require.ErrorIs(t, err, gwerrors.ErrInvalidState)
	_, err = repo.Take("unknown")
	require.ErrorIs(t, err, gwerrors.ErrInvalidState)
}

func TestInMemoryRepoExpiry(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	authflowrepo.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { authflowrepo.NowTimeFunc = time.Now })

	repo := authflowrepo.NewInMemoryRepo(10 * time.Minute)
	require.NoError(t, repo.Upsert("old", &authflowrepo.AuthFlowState{Nonce: "n1"}))
	require.NoError(t, repo.Upsert("fresh", &authflowrepo.AuthFlowState{Nonce: "n2"}))

	now = now.Add(11 * time.Minute)
	_, err := repo.Take("old")
	require.ErrorIs(t, err, gwerrors.ErrInvalidState)

	// Abandoned flows are dropped on the next write
	require.NoError(t, repo.Upsert("newest", &authflowrepo.AuthFlowState{Nonce: "n3"}))
	_, err = repo.Take("fresh")
	require.ErrorIs(t, err, gwerrors.ErrInvalidState)

	flow, err := repo.Take("newest")
	require.NoError(t, err)
	require.Equal(t, "n3", flow.Nonce)
}
