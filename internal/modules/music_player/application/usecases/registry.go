package usecases

import (
	"context"
	"errors"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
)

// SessionRegistry maps guilds to their Scheduler.
// It is safe for concurrent use.
type SessionRegistry struct {
	mu            sync.RWMutex
	sessions      map[snowflake.ID]*Scheduler
	engineFactory ports.AudioEngineFactory
	defaultVolume int
}

// NewSessionRegistry creates a new SessionRegistry.
func NewSessionRegistry(engineFactory ports.AudioEngineFactory, defaultVolume int) *SessionRegistry {
	return &SessionRegistry{
		sessions:      make(map[snowflake.ID]*Scheduler),
		engineFactory: engineFactory,
		defaultVolume: defaultVolume,
	}
}

// Get returns the scheduler for the guild, or nil if none exists.
func (r *SessionRegistry) Get(guildID snowflake.ID) *Scheduler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[guildID]
}

// GetOrCreate returns the guild's scheduler, creating one bound to binding and
// sink if none exists. The returned bool reports whether a scheduler was
// created. A binding passed for an existing session is not started.
func (r *SessionRegistry) GetOrCreate(
	guildID snowflake.ID,
	binding ports.VoiceBinding,
	sink ports.LogSink,
) (*Scheduler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s, false
	}

	s := NewScheduler(SchedulerConfig{
		GuildID:       guildID,
		Binding:       binding,
		Sink:          sink,
		DefaultVolume: r.defaultVolume,
	}, r.engineFactory, r.remove)
	r.sessions[guildID] = s

	if binding != nil {
		binding.Start(s)
	}

	return s, true
}

// remove deletes the entry for s if it is still the registered scheduler.
func (r *SessionRegistry) remove(s *Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[s.GuildID()]; ok && current == s {
		delete(r.sessions, s.GuildID())
	}
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll disconnects every session.
func (r *SessionRegistry) CloseAll(ctx context.Context) error {
	r.mu.RLock()
	sessions := lo.Values(r.sessions)
	r.mu.RUnlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// lookupSession returns the guild's scheduler, redirecting its notifications
// to notificationChannelID when that is non-zero.
func lookupSession(
	registry *SessionRegistry,
	sinks ports.LogSinkProvider,
	guildID, notificationChannelID snowflake.ID,
) (*Scheduler, error) {
	s := registry.Get(guildID)
	if s == nil {
		return nil, ErrNotConnected
	}

	if notificationChannelID != 0 && sinks != nil {
		s.SetLogSink(sinks.SinkFor(guildID, notificationChannelID))
	}

	return s, nil
}
