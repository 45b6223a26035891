package api

import (
	"sync"

	"github.com/marcus/bujo/internal/bujo"
	"github.com/marcus/bujo/internal/journal"
)

// JournalPool keeps one open journal per user so that every request for a
// user shares the same store and its write lock.
type JournalPool struct {
	mu       sync.RWMutex
	journals map[string]*bujo.Journal
	app      *bujo.App
	usersDir string
}

// NewJournalPool creates a pool that stores user journals under usersDir.
func NewJournalPool(app *bujo.App, usersDir string) *JournalPool {
	return &JournalPool{
		journals: make(map[string]*bujo.Journal),
		app:      app,
		usersDir: usersDir,
	}
}

// Get returns the journal for userID, opening it lazily and creating its
// directories if needed.
func (p *JournalPool) Get(userID string) (*bujo.Journal, error) {
	p.mu.RLock()
	j, ok := p.journals[userID]
	p.mu.RUnlock()
	if ok {
		return j, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if j, ok := p.journals[userID]; ok {
		return j, nil
	}

	dirs, err := journal.UserDirs(p.usersDir, userID)
	if err != nil {
		return nil, err
	}
	j, err = p.app.ForUser(dirs)
	if err != nil {
		return nil, err
	}
	p.journals[userID] = j
	return j, nil
}

// Len returns the number of open journals.
func (p *JournalPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.journals)
}
