// Package session implements the per-chat command state machine.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/media"
	"github.com/jehaby/smarthomebot/internal/settings"
	"github.com/jehaby/smarthomebot/internal/state"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, t *media.Task) error
	Enabled(c media.Category) bool
}

type JobScheduler interface {
	Set(chatID int64, secs int, cameras []media.Camera)
	Cancel(chatID int64)
}

type Options struct {
	// Authorized is the static allow-list; it doubles as the recipient list.
	Authorized   []int64
	Cameras      []media.Camera
	AudioEnabled bool
	IdleTimeout  time.Duration // zero disables expiry
}

type Deps struct {
	Sender    chat.Sender
	State     *state.Shared
	Queue     Enqueuer
	Scheduler JobScheduler
	Settings  *settings.Map
}

// Manager routes inbound messages to one Session per authorized chat.
type Manager struct {
	opt        Options
	deps       Deps
	authorized map[int64]bool

	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewManager(opt Options, deps Deps) *Manager {
	auth := make(map[int64]bool, len(opt.Authorized))
	for _, id := range opt.Authorized {
		auth[id] = true
	}
	return &Manager{opt: opt, deps: deps, authorized: auth, sessions: make(map[int64]*Session)}
}

// Dispatch handles one inbound message or callback. Unauthorized chats get a
// refusal and never get a session.
func (m *Manager) Dispatch(ctx context.Context, in chat.Inbound) {
	if !m.authorized[in.ChatID] {
		slog.Warn("unauthorized access", "chat_id", in.ChatID, "from", in.From)
		if err := m.deps.Sender.SendText(ctx, in.ChatID, msgUnauthorized); err != nil {
			slog.Error("reply failed", "chat_id", in.ChatID, "err", err)
		}
		return
	}

	for {
		s := m.session(in.ChatID)
		s.mu.Lock()
		if s.state == stateClosed {
			// expired between lookup and lock; open a fresh one
			s.mu.Unlock()
			continue
		}
		m.touch(s)
		s.handle(ctx, in)
		s.mu.Unlock()
		return
	}
}

// session returns the chat's session, opening it if needed.
func (m *Manager) session(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		return s
	}
	s := &Session{chatID: chatID, m: m}
	s.open()
	m.sessions[chatID] = s
	return s
}

// touch restarts the idle timer. Called with s.mu held.
func (m *Manager) touch(s *Session) {
	if m.opt.IdleTimeout <= 0 {
		return
	}
	if s.idle == nil {
		s.idle = time.AfterFunc(m.opt.IdleTimeout, func() { m.expire(s) })
		return
	}
	s.idle.Reset(m.opt.IdleTimeout)
}

func (m *Manager) expire(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return
	}
	s.reply(context.Background(), msgExpired)
	m.closeLocked(s)
}

// closeLocked closes s and forgets it. Called with s.mu held. The job is
// cancelled before the session leaves the map so a successor's job is never
// the one cancelled.
func (m *Manager) closeLocked(s *Session) {
	s.close()
	m.mu.Lock()
	if m.sessions[s.chatID] == s {
		delete(m.sessions, s.chatID)
	}
	m.mu.Unlock()
}

// Close ends the chat's session, if open.
func (m *Manager) Close(chatID int64) {
	m.mu.Lock()
	s, ok := m.sessions[chatID]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m.closeLocked(s)
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Close(id)
	}
}

// Active reports whether chatID has an open session.
func (m *Manager) Active(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[chatID]
	return ok
}

func (m *Manager) broadcast(ctx context.Context, text string) {
	for _, id := range m.opt.Authorized {
		if err := m.deps.Sender.SendText(ctx, id, text); err != nil {
			slog.Error("broadcast failed", "chat_id", id, "err", err)
		}
	}
}

func (m *Manager) camera(name string) (media.Camera, bool) {
	for _, c := range m.opt.Cameras {
		if c.Name == name {
			return c, true
		}
	}
	return media.Camera{}, false
}
