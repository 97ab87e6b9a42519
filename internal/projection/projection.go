// Package projection 保存每个登录会话的本地视图：当前社区、已加入社区、
// 选中的帖子、帖子列表和投票列表。只在账本事务成功后由各引擎更新，
// 不是权威数据，刷新时整体覆盖。
package projection

import (
	"sync"

	"Med_Community/internal/model"
)

type Projection struct {
	mu sync.RWMutex

	userID           uint64
	currentCommunity *model.Community
	snippets         []model.CommunitySnippet
	snippetsFetched  bool
	selectedPost     *model.Post
	posts            []model.Post
	votes            []model.PostVote
}

// Snapshot 某一时刻的只读副本
type Snapshot struct {
	UserID           uint64                   `json:"userId"`
	CurrentCommunity *model.Community         `json:"currentCommunity,omitempty"`
	Snippets         []model.CommunitySnippet `json:"mySnippets"`
	SnippetsFetched  bool                     `json:"snippetsFetched"`
	SelectedPost     *model.Post              `json:"selectedPost,omitempty"`
	Posts            []model.Post             `json:"posts"`
	Votes            []model.PostVote         `json:"postVotes"`
}

func New(userID uint64) *Projection {
	return &Projection{userID: userID}
}

func (p *Projection) UserID() uint64 {
	return p.userID
}

func (p *Projection) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		UserID:           p.userID,
		CurrentCommunity: cloneCommunity(p.currentCommunity),
		Snippets:         append([]model.CommunitySnippet{}, p.snippets...),
		SnippetsFetched:  p.snippetsFetched,
		SelectedPost:     clonePost(p.selectedPost),
		Posts:            append([]model.Post{}, p.posts...),
		Votes:            append([]model.PostVote{}, p.votes...),
	}
}

// Reset 登出时清空
func (p *Projection) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentCommunity = nil
	p.snippets = nil
	p.snippetsFetched = false
	p.selectedPost = nil
	p.posts = nil
	p.votes = nil
}

func (p *Projection) SetCurrentCommunity(c model.Community) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentCommunity = &c
}

// ResetCurrentCommunity 离开社区页面时调用
func (p *Projection) ResetCurrentCommunity() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentCommunity = nil
}

func (p *Projection) CurrentCommunity() (model.Community, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.currentCommunity == nil {
		return model.Community{}, false
	}
	return *p.currentCommunity, true
}

func (p *Projection) SetSnippets(list []model.CommunitySnippet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snippets = append([]model.CommunitySnippet{}, list...)
	p.snippetsFetched = true
}

func (p *Projection) Snippets() []model.CommunitySnippet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.CommunitySnippet{}, p.snippets...)
}

func (p *Projection) SnippetsFetched() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snippetsFetched
}

// IsMember 按本地 snippet 判断是否已加入
func (p *Projection) IsMember(communityID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snippetIndex(communityID) >= 0
}

func (p *Projection) SetPosts(list []model.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append([]model.Post{}, list...)
}

func (p *Projection) Posts() []model.Post {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.Post{}, p.posts...)
}

func (p *Projection) SetVotes(list []model.PostVote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.votes = append([]model.PostVote{}, list...)
}

func (p *Projection) Votes() []model.PostVote {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.PostVote{}, p.votes...)
}

func (p *Projection) SelectPost(post model.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selectedPost = &post
}

func (p *Projection) SelectedPost() (model.Post, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.selectedPost == nil {
		return model.Post{}, false
	}
	return *p.selectedPost, true
}

func (p *Projection) snippetIndex(communityID string) int {
	for i := range p.snippets {
		if p.snippets[i].CommunityID == communityID {
			return i
		}
	}
	return -1
}

func cloneCommunity(c *model.Community) *model.Community {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func clonePost(post *model.Post) *model.Post {
	if post == nil {
		return nil
	}
	cp := *post
	return &cp
}
