package usecases

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

const DefaultPageSize = 10

// QueueAddInput contains the input for the QueueAdd use case.
type QueueAddInput struct {
	GuildID               snowflake.ID
	Tracks                []*domain.Track
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero

	// Session pins the add to a scheduler obtained earlier, e.g. from Join.
	// If that scheduler has been disconnected since, Add fails with
	// ErrSessionClosed instead of enqueueing onto a newer session.
	Session *Scheduler
}

// QueueAddOutput contains the result of the QueueAdd use case.
type QueueAddOutput struct {
	Position int // 0-indexed position of the first added track (0 = now playing)
	Count    int
}

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID               snowflake.ID
	Page                  int          // 1-indexed page number
	PageSize              int          // Items per page (optional, defaults to 10)
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	CurrentTrack *domain.Track
	Tracks       []*domain.Track
	TotalTracks  int
	CurrentPage  int
	TotalPages   int
	PageStart    int // queue position of Tracks[0]
}

// QueueRemoveInput contains the input for the QueueRemove use case.
type QueueRemoveInput struct {
	GuildID               snowflake.ID
	Position              int          // 0-indexed position in queue (position 0 should be handled by Skip)
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueRemoveOutput contains the result of the QueueRemove use case.
type QueueRemoveOutput struct {
	RemovedTrack *domain.Track
}

// QueueClearInput contains the input for the QueueClear use case.
type QueueClearInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueClearOutput contains the result of the QueueClear use case.
type QueueClearOutput struct {
	ClearedCount int
}

// QueueService handles queue operations.
type QueueService struct {
	registry *SessionRegistry
	sinks    ports.LogSinkProvider
}

// NewQueueService creates a new QueueService.
func NewQueueService(registry *SessionRegistry, sinks ports.LogSinkProvider) *QueueService {
	return &QueueService{
		registry: registry,
		sinks:    sinks,
	}
}

// Add appends tracks to the queue. Playback starts if the queue was empty.
func (q *QueueService) Add(input QueueAddInput) (*QueueAddOutput, error) {
	session := input.Session
	if session == nil {
		var err error
		session, err = lookupSession(q.registry, q.sinks, input.GuildID, input.NotificationChannelID)
		if err != nil {
			return nil, err
		}
	}

	position, err := session.EnqueueMany(input.Tracks)
	if err != nil {
		return nil, err
	}

	return &QueueAddOutput{
		Position: position,
		Count:    len(input.Tracks),
	}, nil
}

// List returns the current queue with pagination.
func (q *QueueService) List(input QueueListInput) (*QueueListOutput, error) {
	session, err := lookupSession(q.registry, q.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	// Validate and set defaults
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}

	allTracks := session.Queue()

	// Separate current track (Queue[0]) from queued tracks (Queue[1:])
	var currentTrack *domain.Track
	var queuedTracks []*domain.Track
	if len(allTracks) > 0 {
		currentTrack = allTracks[0]
		queuedTracks = allTracks[1:]
	}

	// Pagination applies to queued tracks only
	totalTracks := len(queuedTracks)
	totalPages := (totalTracks + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	// Clamp page to valid range
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, totalTracks)

	var pageTracks []*domain.Track
	if start < totalTracks {
		pageTracks = queuedTracks[start:end]
	}

	return &QueueListOutput{
		CurrentTrack: currentTrack,
		Tracks:       pageTracks,
		TotalTracks:  totalTracks,
		CurrentPage:  page,
		TotalPages:   totalPages,
		PageStart:    start + 1,
	}, nil
}

// Remove removes a track from the queue at the given position.
// Position 0 should be handled by Skip (current track requires playback control).
func (q *QueueService) Remove(input QueueRemoveInput) (*QueueRemoveOutput, error) {
	session, err := lookupSession(q.registry, q.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	if len(session.Queue()) <= 1 {
		return nil, ErrQueueEmpty
	}
	if input.Position < 0 {
		return nil, ErrInvalidPosition
	}

	track, err := session.RemoveAt(input.Position)
	if err != nil {
		return nil, err
	}

	return &QueueRemoveOutput{
		RemovedTrack: track,
	}, nil
}

// Clear clears all queued tracks (keeps current track at Queue[0]).
func (q *QueueService) Clear(input QueueClearInput) (*QueueClearOutput, error) {
	session, err := lookupSession(q.registry, q.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	count, err := session.ClearUpcoming()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNothingToClear
	}

	return &QueueClearOutput{
		ClearedCount: count,
	}, nil
}
