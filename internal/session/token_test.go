package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewTokenService("test-signing-key", time.Hour)
	sessionID := id.NewSessionID()

	token, err := svc.Issue(sessionID)
	require.NoError(t, err)

	got, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)
}

func TestValidateRejectsForeignKey(t *testing.T) {
	token, err := NewTokenService("key-one", time.Hour).Issue(id.NewSessionID())
	require.NoError(t, err)

	_, err = NewTokenService("key-two", time.Hour).Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewTokenService("test-signing-key", -time.Minute)
	token, err := svc.Issue(id.NewSessionID())
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-signing-key", time.Hour)
	_, err := svc.Validate("not-a-token")
	require.Error(t, err)
}
