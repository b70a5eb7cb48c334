package web

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
)

const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// FailedQuestionsMessage is shown in place of an answer when the lookup fails.
const FailedQuestionsMessage = "Failed to fetch questions."

type Message struct {
	Role    string
	Content string
}

// FormatQuestions renders a question set the way the chat shows it: every
// technical question, then every behavioral one, separated by blank lines.
func FormatQuestions(qs *models.QuestionSet) string {
	if qs == nil {
		return ""
	}
	lines := make([]string, 0, len(qs.Technical)+len(qs.Behavioral))
	for i, q := range qs.Technical {
		lines = append(lines, fmt.Sprintf("Technical %d: %s", i+1, q))
	}
	for i, q := range qs.Behavioral {
		lines = append(lines, fmt.Sprintf("Behavioral %d: %s", i+1, q))
	}
	return strings.Join(lines, "\n\n")
}

type chat struct {
	msgs []Message
	seen time.Time
}

// chatStore keeps the last max messages of each browser session in memory.
// Chats idle for longer than idle are dropped, and at most sessions chats are
// held; the least recently used one goes first.
type chatStore struct {
	mu       sync.Mutex
	max      int
	sessions int
	idle     time.Duration
	now      func() time.Time
	chats    map[string]*chat
}

func newChatStore(max, sessions int, idle time.Duration, now func() time.Time) *chatStore {
	if max <= 0 {
		max = 20
	}
	if sessions <= 0 {
		sessions = 1000
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &chatStore{max: max, sessions: sessions, idle: idle, now: now, chats: map[string]*chat{}}
}

func (c *chatStore) append(id string, msgs ...Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.expire(now)

	ch, ok := c.chats[id]
	if !ok {
		if len(c.chats) >= c.sessions {
			c.evictOldest()
		}
		ch = &chat{}
		c.chats[id] = ch
	}
	h := append(ch.msgs, msgs...)
	if len(h) > c.max {
		h = append([]Message(nil), h[len(h)-c.max:]...)
	}
	ch.msgs, ch.seen = h, now
}

func (c *chatStore) history(id string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.chats[id]
	if !ok {
		return nil
	}
	now := c.now()
	if now.Sub(ch.seen) > c.idle {
		delete(c.chats, id)
		return nil
	}
	ch.seen = now
	return append([]Message(nil), ch.msgs...)
}

func (c *chatStore) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chats)
}

// expire drops idle chats. Callers hold mu.
func (c *chatStore) expire(now time.Time) {
	for id, ch := range c.chats {
		if now.Sub(ch.seen) > c.idle {
			delete(c.chats, id)
		}
	}
}

func (c *chatStore) evictOldest() {
	var oldest string
	var at time.Time
	for id, ch := range c.chats {
		if oldest == "" || ch.seen.Before(at) {
			oldest, at = id, ch.seen
		}
	}
	delete(c.chats, oldest)
}

func (c *chatStore) clear(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.chats, id)
}
