package projection

import "sync"

// Registry 按用户管理会话视图，由 main 创建后注入各个服务
type Registry struct {
	mu       sync.Mutex
	sessions map[uint64]*Projection
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint64]*Projection)}
}

// Open 登录时创建新的会话视图，旧视图直接丢弃
func (r *Registry) Open(userID uint64) *Projection {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := New(userID)
	r.sessions[userID] = p
	return p
}

// Get 取已有会话，不存在时懒创建（如服务重启后 token 仍然有效）
func (r *Registry) Get(userID uint64) *Projection {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.sessions[userID]
	if !ok {
		p = New(userID)
		r.sessions[userID] = p
	}
	return p
}

// Lookup 只查不建
func (r *Registry) Lookup(userID uint64) (*Projection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.sessions[userID]
	return p, ok
}

// Close 登出时清空 snippet 和投票并移除会话
func (r *Registry) Close(userID uint64) {
	r.mu.Lock()
	p, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()
	if ok {
		p.Reset()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
