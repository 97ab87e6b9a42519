package projection

import "Med_Community/internal/model"

// ApplyVote 把一次已提交的投票结果同步到帖子列表、选中帖子和投票列表
func (p *Projection) ApplyVote(userID uint64, out model.VoteOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.posts {
		if p.posts[i].ID == out.PostID {
			p.posts[i].VoteStatus += out.Delta
		}
	}
	if p.selectedPost != nil && p.selectedPost.ID == out.PostID {
		p.selectedPost.VoteStatus += out.Delta
	}

	idx := -1
	for i := range p.votes {
		if p.votes[i].PostID == out.PostID {
			idx = i
			break
		}
	}
	switch out.Action {
	case model.VoteCreated:
		v := model.PostVote{UserID: userID, PostID: out.PostID, CommunityID: out.CommunityID, VoteValue: out.Value}
		if idx >= 0 {
			p.votes[idx] = v
		} else {
			p.votes = append(p.votes, v)
		}
	case model.VoteRemoved:
		if idx >= 0 {
			p.votes = append(p.votes[:idx], p.votes[idx+1:]...)
		}
	case model.VoteFlipped:
		if idx >= 0 {
			p.votes[idx].VoteValue = out.Value
		} else {
			p.votes = append(p.votes, model.PostVote{UserID: userID, PostID: out.PostID, CommunityID: out.CommunityID, VoteValue: out.Value})
		}
	}
}

// ApplyMembership 加入时追加（或替换）snippet，退出时移除；当前社区的成员数同步增减
func (p *Projection) ApplyMembership(out model.MembershipOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	communityID := out.Snippet.CommunityID
	idx := p.snippetIndex(communityID)
	if out.Joined {
		if idx >= 0 {
			p.snippets[idx] = out.Snippet
		} else {
			p.snippets = append(p.snippets, out.Snippet)
		}
	} else if idx >= 0 {
		p.snippets = append(p.snippets[:idx], p.snippets[idx+1:]...)
	}

	if out.Changed && p.currentCommunity != nil && p.currentCommunity.ID == communityID {
		p.currentCommunity.NumberOfMembers += out.Delta
		if p.currentCommunity.NumberOfMembers < 0 {
			p.currentCommunity.NumberOfMembers = 0
		}
	}
}

// ApplyCommunityImage 更新当前社区和对应 snippet 的头像
func (p *Projection) ApplyCommunityImage(communityID, url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentCommunity != nil && p.currentCommunity.ID == communityID {
		p.currentCommunity.ImageURL = url
	}
	if idx := p.snippetIndex(communityID); idx >= 0 {
		p.snippets[idx].ImageURL = url
	}
}

// ApplyCommentDelta 评论增删后同步帖子评论数
func (p *Projection) ApplyCommentDelta(postID string, delta int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.posts {
		if p.posts[i].ID == postID {
			p.posts[i].NumberOfComments = max(0, p.posts[i].NumberOfComments+delta)
		}
	}
	if p.selectedPost != nil && p.selectedPost.ID == postID {
		p.selectedPost.NumberOfComments = max(0, p.selectedPost.NumberOfComments+delta)
	}
}

// ApplyPostCreated 新帖放到列表最前
func (p *Projection) ApplyPostCreated(post model.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append([]model.Post{post}, p.posts...)
}

// ApplyPostDeleted 从列表、选中帖子和投票里移除
func (p *Projection) ApplyPostDeleted(postID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	posts := p.posts[:0]
	for _, post := range p.posts {
		if post.ID != postID {
			posts = append(posts, post)
		}
	}
	p.posts = posts

	votes := p.votes[:0]
	for _, v := range p.votes {
		if v.PostID != postID {
			votes = append(votes, v)
		}
	}
	p.votes = votes

	if p.selectedPost != nil && p.selectedPost.ID == postID {
		p.selectedPost = nil
	}
}
