package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/repository"
	"github.com/tombee-studio/doresore-server/internal/repository/mocks"
	"github.com/tombee-studio/doresore-server/internal/service"
)

func newSessionService(t *testing.T, presence repository.PresenceRepository) *service.SessionService {
	t.Helper()
	svc, err := service.NewSessionService(presence, "test-secret", 1)
	require.NoError(t, err)
	return svc
}

func TestSessionService_IssueAndParseToken(t *testing.T) {
	svc := newSessionService(t, new(mocks.PresenceRepository))

	sid, token, expiresAt, err := svc.Issue()
	require.NoError(t, err)
	assert.NotEmpty(t, sid)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	parsed, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, sid, parsed)

	_, err = svc.ParseToken(token + "x")
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	other, err := service.NewSessionService(new(mocks.PresenceRepository), "another-secret", 1)
	require.NoError(t, err)
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, service.ErrInvalidToken, "不同密钥签发的令牌应被拒绝")
}

func TestNewSessionService_EmptySecret(t *testing.T) {
	_, err := service.NewSessionService(new(mocks.PresenceRepository), "", 1)
	assert.Error(t, err)
}

func TestSessionService_Login_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	presence := new(mocks.PresenceRepository)
	presence.On("Register", ctx, "s1", "alice").Return(nil).Once()
	svc := newSessionService(t, presence)
	svc.Open("s1")

	// Act
	member, err := svc.Login(ctx, "s1", "alice", "a.png")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "s1", member.ID)
	assert.Equal(t, "alice", member.Name)
	got, err := svc.Member("s1")
	require.NoError(t, err)
	assert.Same(t, member, got)
	presence.AssertExpectations(t)
}

func TestSessionService_Login_DuplicateName(t *testing.T) {
	ctx := context.Background()
	presence := new(mocks.PresenceRepository)
	presence.On("Register", ctx, "s2", "alice").Return(repository.ErrNameTaken).Once()
	svc := newSessionService(t, presence)
	svc.Open("s2")

	_, err := svc.Login(ctx, "s2", "alice", "")

	assert.ErrorIs(t, err, domain.ErrDuplicateLogin)
	_, err = svc.Member("s2")
	assert.ErrorIs(t, err, domain.ErrNotLoggedIn)
	presence.AssertExpectations(t)
}

func TestSessionService_Login_SameSessionTwice(t *testing.T) {
	ctx := context.Background()
	presence := new(mocks.PresenceRepository)
	presence.On("Register", ctx, "s1", "alice").Return(nil).Once()
	svc := newSessionService(t, presence)
	svc.Open("s1")

	_, err := svc.Login(ctx, "s1", "alice", "")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "s1", "alice2", "")

	assert.ErrorIs(t, err, domain.ErrDuplicateLogin)
	presence.AssertNumberOfCalls(t, "Register", 1)
}

func TestSessionService_Login_PresenceFailure(t *testing.T) {
	ctx := context.Background()
	presence := new(mocks.PresenceRepository)
	presence.On("Register", ctx, "s1", "alice").Return(errors.New("redis down")).Once()
	svc := newSessionService(t, presence)
	svc.Open("s1")

	_, err := svc.Login(ctx, "s1", "alice", "")
	assert.ErrorIs(t, err, service.ErrInternalServer)
}

func TestSessionService_Login_UnknownSession(t *testing.T) {
	svc := newSessionService(t, new(mocks.PresenceRepository))
	_, err := svc.Login(context.Background(), "ghost", "alice", "")
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestSessionService_LogoutAndBinding(t *testing.T) {
	ctx := context.Background()
	presence := new(mocks.PresenceRepository)
	presence.On("Register", ctx, "s1", "alice").Return(nil)
	presence.On("Unregister", ctx, "s1").Return(nil).Once()
	svc := newSessionService(t, presence)
	svc.Open("s1")
	_, err := svc.Login(ctx, "s1", "alice", "")
	require.NoError(t, err)

	svc.Bind("s1", "room-a")
	assert.Equal(t, "room-a", svc.RoomOf("s1"))
	svc.Unbind("s1", "room-b")
	assert.Equal(t, "room-a", svc.RoomOf("s1"), "解除其他房间的绑定不应生效")

	member, err := svc.Logout(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice", member.Name)
	assert.Empty(t, svc.RoomOf("s1"))

	_, err = svc.Logout(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotLoggedIn)
	presence.AssertExpectations(t)
}

func TestSessionService_OnlineCount(t *testing.T) {
	ctx := context.Background()
	presence := new(mocks.PresenceRepository)
	presence.On("Count", mock.Anything).Return(4, nil).Once()
	presence.On("Count", mock.Anything).Return(0, errors.New("boom")).Once()
	svc := newSessionService(t, presence)

	n, err := svc.OnlineCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = svc.OnlineCount(ctx)
	assert.Error(t, err)
}
