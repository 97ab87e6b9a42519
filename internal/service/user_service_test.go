package service

import (
	"testing"
	"time"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"
	"Med_Community/internal/projection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	svc    *UserService
	users  *memUsers
	tokens *memTokens
	mail   *mailbox
	reg    *projection.Registry
}

func newUserFixture(snippets ...model.CommunitySnippet) *userFixture {
	f := &userFixture{users: newMemUsers(), tokens: newMemTokens(), mail: &mailbox{}, reg: projection.NewRegistry()}
	emails := NewEmailService(newMemCodes(), f.mail.send, 5*time.Minute, discardLogger())
	f.svc = NewUserService(f.users, f.tokens, &stubMembershipStore{snippets: snippets}, emails,
		pkg.NewTokenManager("access-test", "refresh-test"), []string{"Root@Example.com"}, f.reg, discardLogger())
	return f
}

func (f *userFixture) loginAs(t *testing.T, username string) *model.Identity {
	t.Helper()
	pair, err := f.svc.Login(bg, username, "secret1")
	require.NoError(t, err)
	id, err := f.svc.Authenticate(bg, pair.AccessToken)
	require.NoError(t, err)
	return id
}

func TestRegisterAndLogin(t *testing.T) {
	f := newUserFixture(model.CommunitySnippet{UserID: 1, CommunityID: "health"})

	require.NoError(t, f.svc.Register(bg, "alice", "secret1", "alice@example.com"))
	require.Error(t, f.svc.Register(bg, "alice", "secret1", "alice@example.com"))
	require.ErrorIs(t, f.svc.Register(bg, "bob", "123", "bob@example.com"), model.ErrInvalidInput)

	_, err := f.svc.Login(bg, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidPassword)
	_, err = f.svc.Login(bg, "nobody", "secret1")
	require.ErrorIs(t, err, ErrUserNotFound)

	pair, err := f.svc.Login(bg, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, f.tokens.tokens[1])

	p, ok := f.reg.Lookup(1)
	require.True(t, ok)
	assert.True(t, p.SnippetsFetched())
	assert.True(t, p.IsMember("health"))

	id, err := f.svc.Authenticate(bg, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id.UserID)
	assert.Equal(t, "alice", id.DisplayName)
	assert.False(t, id.IsAdmin)
	assert.Equal(t, 1, f.tokens.extends)
}

func TestRegister_AdminEmailNeedsVerification(t *testing.T) {
	f := newUserFixture()
	require.NoError(t, f.svc.Register(bg, "root", "secret1", " Root@Example.COM "))
	assert.Equal(t, "root@example.com", f.users.byID[1].Email)
	assert.Equal(t, model.RoleMember, f.users.byID[1].Role)
	assert.False(t, f.loginAs(t, "root").IsAdmin)

	require.NoError(t, f.svc.SendVerification(bg, 1))
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "root@example.com", f.mail.sent[0].to)

	_, err := f.svc.VerifyEmail(bg, 1, "not-the-code")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.False(t, f.users.byID[1].EmailVerified)

	pair, err := f.svc.VerifyEmail(bg, 1, f.mail.lastCode())
	require.NoError(t, err)
	assert.True(t, f.users.byID[1].EmailVerified)
	assert.Equal(t, model.RoleAdmin, f.users.byID[1].Role)

	id, err := f.svc.Authenticate(bg, pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin)

	require.ErrorIs(t, f.svc.SendVerification(bg, 1), model.ErrInvalidInput)
}

func TestRegister_CaseVariantAdminEmail(t *testing.T) {
	f := newUserFixture()
	require.NoError(t, f.svc.Register(bg, "realadmin", "secret1", "root@example.com"))
	require.Error(t, f.svc.Register(bg, "mallory", "secret1", "ROOT@example.com"))
	assert.Len(t, f.users.byID, 1)

	// 未验证的管理员邮箱拿不到管理员身份，也就不能直接建社区
	g := newUserFixture()
	require.NoError(t, g.svc.Register(bg, "mallory", "secret1", "ROOT@Example.com"))
	id := g.loginAs(t, "mallory")
	assert.False(t, id.IsAdmin)

	svc := NewCommunityService(newStubCommunityStore(), newStubRequestStore(), newMemObjects(), nil, &stubGuard{}, g.reg, discardLogger())
	_, err := svc.CreateCommunity(bg, id, "pwned", model.PrivacyPublic)
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestSendVerification_MailDisabled(t *testing.T) {
	f := newUserFixture()
	f.svc.emails = NewEmailService(newMemCodes(), nil, time.Minute, discardLogger())
	require.NoError(t, f.svc.Register(bg, "root", "secret1", "root@example.com"))
	require.ErrorIs(t, f.svc.SendVerification(bg, 1), ErrMailDisabled)
}

func TestResetPassword(t *testing.T) {
	f := newUserFixture()
	require.NoError(t, f.svc.Register(bg, "alice", "secret1", "alice@example.com"))
	f.loginAs(t, "alice")

	require.NoError(t, f.svc.SendResetCode(bg, "nobody@example.com"))
	assert.Empty(t, f.mail.sent)

	require.NoError(t, f.svc.SendResetCode(bg, "ALICE@example.com"))
	require.Len(t, f.mail.sent, 1)
	code := f.mail.lastCode()

	require.ErrorIs(t, f.svc.ResetPassword(bg, "alice@example.com", "000000", "secret2"), model.ErrInvalidInput)
	require.ErrorIs(t, f.svc.ResetPassword(bg, "alice@example.com", code, "123"), model.ErrInvalidInput)
	require.NoError(t, f.svc.ResetPassword(bg, "alice@example.com", code, "secret2"))
	assert.Empty(t, f.tokens.tokens)
	assert.True(t, f.users.byID[1].EmailVerified)

	_, err := f.svc.Login(bg, "alice", "secret2")
	require.NoError(t, err)
	require.Error(t, f.svc.ResetPassword(bg, "alice@example.com", code, "secret3"))
}

func TestLogin_SyncsRole(t *testing.T) {
	f := newUserFixture()
	require.NoError(t, f.svc.Register(bg, "alice", "secret1", "alice@example.com"))
	f.users.byID[1].Role = model.RoleAdmin

	_, err := f.svc.Login(bg, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, f.users.roles[1])
}

func TestLogout_ClosesSession(t *testing.T) {
	f := newUserFixture()
	require.NoError(t, f.svc.Register(bg, "alice", "secret1", "alice@example.com"))
	pair, err := f.svc.Login(bg, "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(bg, 1))
	_, ok := f.reg.Lookup(1)
	assert.False(t, ok)

	_, err = f.svc.Authenticate(bg, pair.AccessToken)
	require.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestRefresh(t *testing.T) {
	f := newUserFixture()
	require.NoError(t, f.svc.Register(bg, "alice", "secret1", "alice@example.com"))
	pair, err := f.svc.Login(bg, "alice", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Refresh(bg, pair.AccessToken)
	require.Error(t, err)

	next, err := f.svc.Refresh(bg, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, next.AccessToken, f.tokens.tokens[1])
}

func TestChangePassword(t *testing.T) {
	f := newUserFixture()
	require.NoError(t, f.svc.Register(bg, "alice", "secret1", "alice@example.com"))
	_, err := f.svc.Login(bg, "alice", "secret1")
	require.NoError(t, err)

	require.Error(t, f.svc.ChangePassword(bg, 1, "wrong", "secret2"))
	require.NoError(t, f.svc.ChangePassword(bg, 1, "secret1", "secret2"))
	assert.Empty(t, f.tokens.tokens)

	_, err = f.svc.Login(bg, "alice", "secret1")
	require.ErrorIs(t, err, ErrInvalidPassword)
	_, err = f.svc.Login(bg, "alice", "secret2")
	require.NoError(t, err)
}
