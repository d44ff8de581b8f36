// Package service orchestrates analysis runs, dependent actions and the
// copilot conversation on top of the console state.
package service

import (
	"context"
	"sync"

	"github.com/xiaot623/gogo/nexus/internal/adapter/backend"
	"github.com/xiaot623/gogo/nexus/internal/config"
	"github.com/xiaot623/gogo/nexus/internal/copilot"
	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/policy"
	"github.com/xiaot623/gogo/nexus/internal/repository"
	"github.com/xiaot623/gogo/nexus/internal/state"
)

// Notifier receives transient operator notices.
type Notifier interface {
	Notify(n domain.Notice)
}

type nopNotifier struct{}

func (nopNotifier) Notify(domain.Notice) {}

type Service struct {
	store        *state.Store
	backend      backend.Backend
	journal      repository.Journal
	config       *config.Config
	policyEngine *policy.Engine
	notifier     Notifier
	responder    copilot.Responder

	// ctx bounds every background task; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	runMu     sync.Mutex
	cancelRun context.CancelFunc

	chat *replyQueue
}

func New(store *state.Store, b backend.Backend, journal repository.Journal, cfg *config.Config, policyEngine *policy.Engine) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:        store,
		backend:      b,
		journal:      journal,
		config:       cfg,
		policyEngine: policyEngine,
		notifier:     nopNotifier{},
		responder:    copilot.Scripted,
		ctx:          ctx,
		cancel:       cancel,
		chat:         newReplyQueue(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliverReplies()
	}()
	return s
}

// SetNotifier sets the receiver of operator notices. It must be called
// before the service starts any run or action.
func (s *Service) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// SetResponder replaces the copilot reply function; nil restores the
// built-in script. Replies are computed inside SendChat, so it must not be
// called concurrently with SendChat.
func (s *Service) SetResponder(r copilot.Responder) {
	if r == nil {
		r = copilot.Scripted
	}
	s.responder = r
}

// Store returns the state container the service mutates.
func (s *Service) Store() *state.Store {
	return s.store
}

// Backend returns the analysis backend client.
func (s *Service) Backend() backend.Backend {
	return s.backend
}

// Close cancels in-flight work and waits for background tasks to finish.
func (s *Service) Close() {
	s.cancel()
	s.chat.close()
	s.wg.Wait()
}

func (s *Service) notify(level domain.NoticeLevel, message, runID string) {
	s.notifier.Notify(domain.NewNotice(level, message, runID))
}
