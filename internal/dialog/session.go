package dialog

import (
	"sync"

	"github.com/sandevgo/govorun/internal/config"
	"github.com/sandevgo/govorun/internal/facts"
)

// Session binds one interlocutor to their dialogue history and fact
// store view. The mutex serializes turns: the pipeline is not
// re-entrant per interlocutor.
type Session struct {
	mu sync.Mutex

	Interlocutor string
	Profile      *config.Profile
	History      *History
	Facts        *facts.Store
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Registry maps interlocutors to sessions for the process lifetime.
// Entries are created lazily on first contact and never evicted;
// real deployments need an expiry policy on top.
type Registry struct {
	mu       sync.RWMutex
	profile  *config.Profile
	store    *facts.Catalog
	sessions map[string]*Session
}

func NewRegistry(profile *config.Profile, store *facts.Catalog) *Registry {
	return &Registry{
		profile:  profile,
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for interlocutor, creating it on first contact.
func (r *Registry) Get(interlocutor string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[interlocutor]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[interlocutor]; ok {
		return s
	}
	s = &Session{
		Interlocutor: interlocutor,
		Profile:      r.profile,
		History:      NewHistory(interlocutor),
		Facts:        r.store.ForInterlocutor(interlocutor),
	}
	r.sessions[interlocutor] = s
	return s
}
