package service

import (
	"strings"
	"sync"
	"time"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

type pendingReply struct {
	text string
	due  time.Time
}

// replyQueue is an unbounded FIFO of bot replies with a single consumer.
type replyQueue struct {
	mu     sync.Mutex
	items  []pendingReply
	signal chan struct{}
	closed bool
}

func newReplyQueue() *replyQueue {
	return &replyQueue{signal: make(chan struct{}, 1)}
}

func (q *replyQueue) push(r pendingReply) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, r)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *replyQueue) pop() (pendingReply, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return pendingReply{}, false
	}
	r := q.items[0]
	q.items = q.items[1:]
	return r, true
}

func (q *replyQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
}

// SendChat appends the user's message and schedules the bot reply. The
// reply is computed from the run active at send time and delivered after
// the copilot delay, in send order. Blank messages are ignored.
func (s *Service) SendChat(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	now := time.Now()
	s.store.AppendChat(domain.ChatMessage{Role: domain.ChatRoleUser, Text: text, At: now})

	reply := s.responder.Reply(text, s.store.Run())
	s.chat.push(pendingReply{text: reply, due: now.Add(s.config.CopilotDelay)})
	return true
}

// deliverReplies is the single consumer of the reply queue.
func (s *Service) deliverReplies() {
	for {
		r, ok := s.chat.pop()
		if !ok {
			select {
			case <-s.ctx.Done():
				return
			case <-s.chat.signal:
				continue
			}
		}

		if wait := time.Until(r.due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		s.store.AppendChat(domain.ChatMessage{Role: domain.ChatRoleBot, Text: r.text, At: time.Now()})
	}
}
