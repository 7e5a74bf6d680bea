package authprobe

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLocalAuthenticator_SignIn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("FROM users").
		WithArgs("coach@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash"}).
			AddRow("user-1", "coach@example.com", string(hash)))

	auth := NewLocalAuthenticator(mock)
	session, err := auth.SignIn(context.Background(), " coach@example.com ", "correct")
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Empty(t, session.AccessToken)
	assert.NoError(t, auth.SignOut(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalAuthenticator_WrongPassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("FROM users").
		WithArgs("coach@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash"}).
			AddRow("user-1", "coach@example.com", string(hash)))

	_, err = NewLocalAuthenticator(mock).SignIn(context.Background(), "coach@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalAuthenticator_UnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM users").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewLocalAuthenticator(mock).SignIn(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalAuthenticator_DatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM users").
		WithArgs("coach@example.com").
		WillReturnError(errors.New("connection refused"))

	_, err = NewLocalAuthenticator(mock).SignIn(context.Background(), "coach@example.com", "correct")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
