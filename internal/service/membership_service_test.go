package service

import (
	"testing"

	"Med_Community/internal/model"
	"Med_Community/internal/projection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinedOutcome(userID uint64, communityID string) (model.MembershipOutcome, error) {
	return model.MembershipOutcome{
		Snippet: model.CommunitySnippet{UserID: userID, CommunityID: communityID},
		Joined:  true,
		Changed: true,
		Delta:   1,
	}, nil
}

func leftOutcome(userID uint64, communityID string) (model.MembershipOutcome, error) {
	return model.MembershipOutcome{
		Snippet: model.CommunitySnippet{UserID: userID, CommunityID: communityID},
		Changed: true,
		Delta:   -1,
	}, nil
}

func newMembershipService(store MembershipStore, guard Guard) (*MembershipService, *projection.Registry) {
	reg := projection.NewRegistry()
	return NewMembershipService(store, guard, reg, discardLogger()), reg
}

func TestOnJoinOrLeaveCommunity_Dispatch(t *testing.T) {
	store := &stubMembershipStore{joinFn: joinedOutcome, leaveFn: leftOutcome}
	svc, reg := newMembershipService(store, nil)

	p := reg.Open(alice.UserID)
	p.SetCurrentCommunity(model.Community{ID: "golang", NumberOfMembers: 10})

	out, err := svc.OnJoinOrLeaveCommunity(bg, alice, "golang", false)
	require.NoError(t, err)
	assert.True(t, out.Joined)
	assert.Equal(t, 1, store.joins)
	assert.True(t, p.IsMember("golang"))
	cur, _ := p.CurrentCommunity()
	assert.Equal(t, int64(11), cur.NumberOfMembers)

	out, err = svc.OnJoinOrLeaveCommunity(bg, alice, "golang", true)
	require.NoError(t, err)
	assert.False(t, out.Joined)
	assert.Equal(t, 1, store.leaves)
	assert.False(t, p.IsMember("golang"))
	cur, _ = p.CurrentCommunity()
	assert.Equal(t, int64(10), cur.NumberOfMembers)
}

func TestOnJoinOrLeaveCommunity_Unauthenticated(t *testing.T) {
	store := &stubMembershipStore{}
	svc, reg := newMembershipService(store, nil)

	_, err := svc.OnJoinOrLeaveCommunity(bg, nil, "golang", false)
	require.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = svc.ToggleMembership(bg, nil, "golang")
	require.ErrorIs(t, err, model.ErrUnauthenticated)
	assert.Zero(t, store.joins+store.leaves)
	assert.Zero(t, reg.Len())
}

func TestJoinCommunity_AlreadyMemberIsNoop(t *testing.T) {
	store := &stubMembershipStore{joinFn: func(userID uint64, communityID string) (model.MembershipOutcome, error) {
		return model.MembershipOutcome{Snippet: model.CommunitySnippet{UserID: userID, CommunityID: communityID}, Joined: true}, nil
	}}
	svc, reg := newMembershipService(store, nil)
	p := reg.Open(alice.UserID)
	p.SetSnippets([]model.CommunitySnippet{{UserID: alice.UserID, CommunityID: "golang"}})
	p.SetCurrentCommunity(model.Community{ID: "golang", NumberOfMembers: 5})

	out, err := svc.JoinCommunity(bg, alice, "golang")
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Len(t, p.Snippets(), 1)
	cur, _ := p.CurrentCommunity()
	assert.Equal(t, int64(5), cur.NumberOfMembers)
}

func TestLeaveCommunity_NotAMember(t *testing.T) {
	store := &stubMembershipStore{leaveFn: func(uint64, string) (model.MembershipOutcome, error) {
		return model.MembershipOutcome{}, model.ErrNotAMember
	}}
	svc, reg := newMembershipService(store, &stubGuard{})
	p := reg.Open(alice.UserID)
	p.SetCurrentCommunity(model.Community{ID: "golang", NumberOfMembers: 5})
	before := p.Snapshot()

	_, err := svc.LeaveCommunity(bg, alice, "golang")
	require.ErrorIs(t, err, model.ErrNotAMember)
	assert.Equal(t, before, p.Snapshot())
}

func TestToggleMembership_LoadsSnippetsOnce(t *testing.T) {
	store := &stubMembershipStore{
		joinFn:   joinedOutcome,
		leaveFn:  leftOutcome,
		snippets: []model.CommunitySnippet{{UserID: alice.UserID, CommunityID: "golang"}},
	}
	svc, _ := newMembershipService(store, nil)

	out, err := svc.ToggleMembership(bg, alice, "golang")
	require.NoError(t, err)
	assert.False(t, out.Joined)
	assert.Equal(t, 1, store.leaves)

	out, err = svc.ToggleMembership(bg, alice, "golang")
	require.NoError(t, err)
	assert.True(t, out.Joined)
	assert.Equal(t, 1, store.joins)
	assert.Equal(t, 1, store.listCalls)
}

func TestMembership_InFlight(t *testing.T) {
	store := &stubMembershipStore{joinFn: joinedOutcome}
	guard := &stubGuard{held: true}
	svc, _ := newMembershipService(store, guard)

	_, err := svc.JoinCommunity(bg, alice, "golang")
	require.ErrorIs(t, err, model.ErrInFlight)
	assert.Zero(t, store.joins)
	assert.Equal(t, []string{"member:1:golang"}, guard.keys)
}

func TestLoadSnippets(t *testing.T) {
	store := &stubMembershipStore{snippets: []model.CommunitySnippet{{UserID: 1, CommunityID: "a"}, {UserID: 1, CommunityID: "b", IsModerator: true}}}
	svc, reg := newMembershipService(store, nil)

	list, err := svc.LoadSnippets(bg, alice)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	p, _ := reg.Lookup(alice.UserID)
	assert.True(t, p.SnippetsFetched())
	assert.True(t, p.IsMember("b"))
}
