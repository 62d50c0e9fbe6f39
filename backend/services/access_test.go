package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateOpenSetAlwaysFullAccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccessService(db)
	set := createSet(t, db, false, 3, 10)

	// Anonymous caller.
	access, err := svc.Evaluate(nil, set)
	require.NoError(t, err)
	assert.True(t, access.FullAccess)

	// Logged-in caller without any entitlement.
	user := createUser(t, db, "alice", "user")
	access, err = svc.Evaluate(&user.ID, set)
	require.NoError(t, err)
	assert.True(t, access.FullAccess)
	for i := 0; i < 10; i++ {
		assert.True(t, access.QuestionAccessible(i))
	}
}

func TestEvaluateAnonymousGetsNoTrial(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccessService(db)
	set := createSet(t, db, true, 3, 10)

	access, err := svc.Evaluate(nil, set)
	require.NoError(t, err)
	assert.False(t, access.FullAccess)
	assert.Equal(t, 0, access.TrialLimit)
	for i := 0; i < 10; i++ {
		assert.False(t, access.QuestionAccessible(i))
	}
}

func TestEvaluateTrialWindow(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccessService(db)
	set := createSet(t, db, true, 3, 10)
	user := createUser(t, db, "bob", "user")

	access, err := svc.Evaluate(&user.ID, set)
	require.NoError(t, err)
	assert.False(t, access.FullAccess)
	assert.Equal(t, 3, access.TrialLimit)

	for i := 0; i < 10; i++ {
		assert.Equal(t, i < 3, access.QuestionAccessible(i), "question %d", i)
	}
}

func TestEvaluateActiveEntitlement(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccessService(db)
	set := createSet(t, db, true, 3, 10)
	user := createUser(t, db, "carol", "user")
	grantEntitlement(t, db, user.ID, set.ID, time.Now().Add(24*time.Hour), "pay-1")

	access, err := svc.Evaluate(&user.ID, set)
	require.NoError(t, err)
	assert.True(t, access.FullAccess)
	require.NotNil(t, access.Entitlement)
	for i := 0; i < 10; i++ {
		assert.True(t, access.QuestionAccessible(i))
	}
}

func TestEvaluateExpiredEntitlementIgnored(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccessService(db)
	set := createSet(t, db, true, 3, 10)
	user := createUser(t, db, "dave", "user")
	grantEntitlement(t, db, user.ID, set.ID, time.Now().Add(-time.Hour), "pay-old")

	access, err := svc.Evaluate(&user.ID, set)
	require.NoError(t, err)
	assert.False(t, access.FullAccess)
	assert.Equal(t, 3, access.TrialLimit)
}

func TestEvaluateStackedEntitlementsLatestExpiryWins(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccessService(db)
	set := createSet(t, db, true, 3, 10)
	user := createUser(t, db, "erin", "user")

	near := time.Now().AddDate(0, 0, 10)
	far := time.Now().AddDate(0, 0, 30)
	grantEntitlement(t, db, user.ID, set.ID, near, "pay-near")
	grantEntitlement(t, db, user.ID, set.ID, far, "pay-far")

	access, err := svc.Evaluate(&user.ID, set)
	require.NoError(t, err)
	assert.True(t, access.FullAccess)
	require.NotNil(t, access.Entitlement)
	assert.WithinDuration(t, far, access.Entitlement.ExpiresAt, time.Second)
}

// The paywalled-set scenario end to end: anonymous blocked everywhere, a
// logged-in user gets the trial window, and a redeemed 30-day code opens the
// whole set.
func TestTrialThenRedeemScenario(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	redeems := NewRedeemService(db)

	set := createSet(t, db, true, 3, 10)
	admin := createUser(t, db, "admin", "admin")
	user := createUser(t, db, "frank", "user")

	verdict, err := access.Evaluate(nil, set)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.False(t, verdict.QuestionAccessible(i))
	}

	verdict, err = access.Evaluate(&user.ID, set)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, i < 3, verdict.QuestionAccessible(i))
	}

	codes, err := redeems.GenerateCodes(set.ID, 30, 1, nil, admin)
	require.NoError(t, err)
	result, err := redeems.Redeem(codes[0].Code, user.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), result.Entitlement.ExpiresAt, 2*time.Second)

	verdict, err = access.Evaluate(&user.ID, set)
	require.NoError(t, err)
	assert.True(t, verdict.FullAccess)
	for i := 0; i < 10; i++ {
		assert.True(t, verdict.QuestionAccessible(i))
	}
}
