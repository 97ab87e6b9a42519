package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"Med_Community/internal/model"

	"gorm.io/gorm"
)

var bg = context.Background()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubVoteStore struct {
	castFn func(userID uint64, postID, communityID string, desired int8) (model.VoteOutcome, error)
	listFn func(userID uint64, communityID string) ([]model.PostVote, error)
	calls  int
}

func (s *stubVoteStore) CastVote(_ context.Context, userID uint64, postID, communityID string, desired int8) (model.VoteOutcome, error) {
	s.calls++
	return s.castFn(userID, postID, communityID, desired)
}

func (s *stubVoteStore) ListVotes(_ context.Context, userID uint64, communityID string) ([]model.PostVote, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(userID, communityID)
}

// stubGuard held=true 模拟另一个请求持有锁
type stubGuard struct {
	mu       sync.Mutex
	held     bool
	keys     []string
	released int
}

func (g *stubGuard) Acquire(_ context.Context, key, _ string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys = append(g.keys, key)
	return !g.held, nil
}

func (g *stubGuard) Release(context.Context, string, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released++
	return nil
}

type memCounter struct {
	mu   sync.Mutex
	vals map[string]int64
	vers map[string]int64
}

func newMemCounter() *memCounter {
	return &memCounter{vals: map[string]int64{}, vers: map[string]int64{}}
}

func (c *memCounter) GetVoteStatus(_ context.Context, postID string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vals[postID]
	return v, ok, nil
}

func (c *memCounter) StoreVoteStatus(_ context.Context, postID string, status, version int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.vers[postID]; ok && v >= version {
		return false, nil
	}
	c.vals[postID] = status
	c.vers[postID] = version
	return true, nil
}

func (c *memCounter) DeleteVoteStatus(_ context.Context, postID string, _ ...time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.vals, postID)
	delete(c.vers, postID)
	return nil
}

type stubMembershipStore struct {
	joinFn    func(userID uint64, communityID string) (model.MembershipOutcome, error)
	leaveFn   func(userID uint64, communityID string) (model.MembershipOutcome, error)
	snippets  []model.CommunitySnippet
	joins     int
	leaves    int
	listCalls int
}

func (s *stubMembershipStore) Join(_ context.Context, userID uint64, communityID string) (model.MembershipOutcome, error) {
	s.joins++
	return s.joinFn(userID, communityID)
}

func (s *stubMembershipStore) Leave(_ context.Context, userID uint64, communityID string) (model.MembershipOutcome, error) {
	s.leaves++
	return s.leaveFn(userID, communityID)
}

func (s *stubMembershipStore) ListSnippets(context.Context, uint64) ([]model.CommunitySnippet, error) {
	s.listCalls++
	return s.snippets, nil
}

type stubCommunityStore struct {
	createFn    func(c *model.Community) (*model.CommunitySnippet, error)
	communities map[string]*model.Community
	creates     int
	imageURLs   map[string]string
}

func newStubCommunityStore() *stubCommunityStore {
	return &stubCommunityStore{communities: map[string]*model.Community{}, imageURLs: map[string]string{}}
}

func (s *stubCommunityStore) Create(_ context.Context, c *model.Community) (*model.CommunitySnippet, error) {
	s.creates++
	if s.createFn != nil {
		return s.createFn(c)
	}
	if _, ok := s.communities[c.ID]; ok {
		return nil, model.NewNameTakenError(c.ID)
	}
	c.NumberOfMembers = 1
	s.communities[c.ID] = c
	return &model.CommunitySnippet{UserID: c.CreatorID, CommunityID: c.ID, IsModerator: true}, nil
}

func (s *stubCommunityStore) Get(_ context.Context, id string) (*model.Community, error) {
	c, ok := s.communities[id]
	if !ok {
		return nil, model.NewNotFoundError("community", id)
	}
	cp := *c
	return &cp, nil
}

func (s *stubCommunityStore) List(context.Context, int, int) ([]model.Community, error) {
	var list []model.Community
	for _, c := range s.communities {
		list = append(list, *c)
	}
	return list, nil
}

func (s *stubCommunityStore) UpdateImageURL(_ context.Context, id, url string) error {
	s.imageURLs[id] = url
	return nil
}

type stubRequestStore struct {
	reqs     map[string]*model.CommunityRequest
	approved []string
	rejected []string
}

func newStubRequestStore() *stubRequestStore {
	return &stubRequestStore{reqs: map[string]*model.CommunityRequest{}}
}

func (s *stubRequestStore) Create(_ context.Context, req *model.CommunityRequest) error {
	req.ID = "req-" + req.Name
	req.Status = model.RequestPending
	s.reqs[req.ID] = req
	return nil
}

func (s *stubRequestStore) List(_ context.Context, status model.RequestStatus) ([]model.CommunityRequest, error) {
	var list []model.CommunityRequest
	for _, r := range s.reqs {
		if r.Status == status {
			list = append(list, *r)
		}
	}
	return list, nil
}

func (s *stubRequestStore) pending(requestID string) (*model.CommunityRequest, error) {
	r, ok := s.reqs[requestID]
	if !ok {
		return nil, model.NewNotFoundError("community request", requestID)
	}
	if r.Status != model.RequestPending {
		return nil, model.NewValidationError("request already " + string(r.Status))
	}
	return r, nil
}

func (s *stubRequestStore) Approve(_ context.Context, requestID string, reviewerID uint64) (*model.Community, *model.CommunityRequest, error) {
	r, err := s.pending(requestID)
	if err != nil {
		return nil, nil, err
	}
	r.Status = model.RequestApproved
	r.ReviewerID = &reviewerID
	s.approved = append(s.approved, requestID)
	return &model.Community{ID: r.Name, CreatorID: r.RequesterID, NumberOfMembers: 1, PrivacyType: r.PrivacyType}, r, nil
}

func (s *stubRequestStore) Reject(_ context.Context, requestID string, reviewerID uint64) (*model.CommunityRequest, error) {
	r, err := s.pending(requestID)
	if err != nil {
		return nil, err
	}
	r.Status = model.RequestRejected
	r.ReviewerID = &reviewerID
	s.rejected = append(s.rejected, requestID)
	return r, nil
}

type memObjects struct {
	objects map[string][]byte
	deleted []string
	fail    error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) Upload(_ context.Context, path, _ string, data []byte) (string, error) {
	if m.fail != nil {
		return "", m.fail
	}
	m.objects[path] = data
	return "https://storage.test/" + path, nil
}

func (m *memObjects) Delete(_ context.Context, path string) error {
	delete(m.objects, path)
	m.deleted = append(m.deleted, path)
	return nil
}

type recordingNotifier struct {
	calls []bool
}

func (n *recordingNotifier) RequestReviewed(_ context.Context, _ model.CommunityRequest, approved bool) error {
	n.calls = append(n.calls, approved)
	return nil
}

type memPosts struct {
	posts   map[string]*model.Post
	finds   int
	created []string
}

func newMemPosts(posts ...model.Post) *memPosts {
	m := &memPosts{posts: map[string]*model.Post{}}
	for i := range posts {
		p := posts[i]
		m.posts[p.ID] = &p
	}
	return m
}

func (m *memPosts) Create(_ context.Context, post *model.Post) error {
	cp := *post
	m.posts[post.ID] = &cp
	m.created = append(m.created, post.ID)
	return nil
}

func (m *memPosts) FindByID(_ context.Context, id string) (*model.Post, error) {
	m.finds++
	p, ok := m.posts[id]
	if !ok {
		return nil, model.NewNotFoundError("post", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) ListByCommunityCursor(_ context.Context, communityID, _ string, _ time.Time, limit int) ([]model.Post, error) {
	var list []model.Post
	for _, p := range m.posts {
		if p.CommunityID == communityID && len(list) < limit {
			list = append(list, *p)
		}
	}
	return list, nil
}

func (m *memPosts) DeleteOwned(_ context.Context, postID string, operatorID uint64) (*model.Post, error) {
	p, ok := m.posts[postID]
	if !ok {
		return nil, model.NewNotFoundError("post", postID)
	}
	if p.CreatorID != operatorID {
		return nil, model.NewUnauthorizedError("only the author can delete this post")
	}
	delete(m.posts, postID)
	return p, nil
}

func (m *memPosts) UpdateImageURL(_ context.Context, postID, url string) error {
	if p, ok := m.posts[postID]; ok {
		p.ImageURL = url
	}
	return nil
}

type memComments struct {
	comments map[string]*model.Comment
}

func (m *memComments) Create(_ context.Context, c *model.Comment) error {
	if m.comments == nil {
		m.comments = map[string]*model.Comment{}
	}
	cp := *c
	m.comments[c.ID] = &cp
	return nil
}

func (m *memComments) Delete(_ context.Context, commentID string, operatorID uint64) (*model.Comment, error) {
	c, ok := m.comments[commentID]
	if !ok {
		return nil, model.NewNotFoundError("comment", commentID)
	}
	if c.CreatorID != operatorID {
		return nil, model.NewUnauthorizedError("only the author can delete this comment")
	}
	delete(m.comments, commentID)
	return c, nil
}

func (m *memComments) ListByPost(_ context.Context, postID string, _ int) ([]model.Comment, error) {
	var list []model.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			list = append(list, *c)
		}
	}
	return list, nil
}

type memUsers struct {
	byID  map[uint64]*model.User
	next  uint64
	roles map[uint64]int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]*model.User{}, roles: map[uint64]int{}}
}

func (m *memUsers) Create(_ context.Context, user *model.User) error {
	for _, u := range m.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return errors.New("duplicate user")
		}
	}
	m.next++
	user.ID = m.next
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.byID {
		if u.Username == username || u.Email == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) FindByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) MarkEmailVerified(_ context.Context, userID uint64) error {
	m.byID[userID].EmailVerified = true
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, user *model.User, newPassword string) error {
	m.byID[user.ID].Password = newPassword
	return nil
}

func (m *memUsers) UpdateRole(_ context.Context, userID uint64, role int) error {
	m.byID[userID].Role = role
	m.roles[userID] = role
	return nil
}

type memCodes struct {
	pending   map[string]string
	confirmed map[string]string
}

func newMemCodes() *memCodes {
	return &memCodes{pending: map[string]string{}, confirmed: map[string]string{}}
}

func (m *memCodes) SetPending(_ context.Context, scope, email, code string) error {
	m.pending[scope+":"+email] = code
	return nil
}

func (m *memCodes) Confirm(_ context.Context, scope, email string) error {
	code, ok := m.pending[scope+":"+email]
	if !ok {
		return errors.New("no pending code")
	}
	delete(m.pending, scope+":"+email)
	m.confirmed[scope+":"+email] = code
	return nil
}

func (m *memCodes) DeletePending(_ context.Context, scope, email string) error {
	delete(m.pending, scope+":"+email)
	return nil
}

func (m *memCodes) Consume(_ context.Context, scope, email, code string) (bool, error) {
	want, ok := m.confirmed[scope+":"+email]
	if !ok || want != code {
		return false, nil
	}
	delete(m.confirmed, scope+":"+email)
	return true, nil
}

// mailbox 记录发出的邮件，code 取正文里的 6 位数字
type mailbox struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

type sentMail struct {
	to, subject, html string
}

func (o *mailbox) send(_ context.Context, to, subject, html string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.sent = append(o.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

func (o *mailbox) lastCode() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return ""
	}
	return mailCode.FindString(o.sent[len(o.sent)-1].html)
}

var mailCode = regexp.MustCompile(`\d{6}`)

type memTokens struct {
	tokens  map[uint64]string
	extends int
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: map[uint64]string{}}
}

func (m *memTokens) AddUserToken(_ context.Context, userID uint64, token string) error {
	m.tokens[userID] = token
	return nil
}

func (m *memTokens) GetUserToken(_ context.Context, userID uint64) (string, error) {
	t, ok := m.tokens[userID]
	if !ok {
		return "", errors.New("token not found")
	}
	return t, nil
}

func (m *memTokens) ExtendUserToken(context.Context, uint64) error {
	m.extends++
	return nil
}

func (m *memTokens) DeleteUserToken(_ context.Context, userID uint64) error {
	delete(m.tokens, userID)
	return nil
}

type memArticles struct {
	likes map[string]map[uint64]bool
	saved map[uint64][]model.SavedArticle
}

func newMemArticles() *memArticles {
	return &memArticles{likes: map[string]map[uint64]bool{}, saved: map[uint64][]model.SavedArticle{}}
}

func (m *memArticles) Like(_ context.Context, userID uint64, articleID string) (bool, error) {
	if m.likes[articleID] == nil {
		m.likes[articleID] = map[uint64]bool{}
	}
	if m.likes[articleID][userID] {
		return false, nil
	}
	m.likes[articleID][userID] = true
	return true, nil
}

func (m *memArticles) Unlike(_ context.Context, userID uint64, articleID string) (bool, error) {
	if !m.likes[articleID][userID] {
		return false, nil
	}
	delete(m.likes[articleID], userID)
	return true, nil
}

func (m *memArticles) LikeCount(_ context.Context, articleID string) (int64, error) {
	return int64(len(m.likes[articleID])), nil
}

func (m *memArticles) Save(_ context.Context, s *model.SavedArticle) error {
	list := m.saved[s.UserID]
	for i := range list {
		if list[i].ArticleID == s.ArticleID {
			list[i] = *s
			return nil
		}
	}
	m.saved[s.UserID] = append(list, *s)
	return nil
}

func (m *memArticles) Unsave(_ context.Context, userID uint64, articleID string) error {
	list := m.saved[userID][:0]
	for _, s := range m.saved[userID] {
		if s.ArticleID != articleID {
			list = append(list, s)
		}
	}
	m.saved[userID] = list
	return nil
}

func (m *memArticles) ListSaved(_ context.Context, userID uint64) ([]model.SavedArticle, error) {
	return m.saved[userID], nil
}
