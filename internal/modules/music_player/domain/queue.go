package domain

// Queue is the ordered list of tracks for a session.
// Index 0 is the track now playing; it stays in the queue until playback of
// it ends, so Len counts the current track plus the upcoming ones.
// Queue is not safe for concurrent use; the owning scheduler serializes access.
type Queue struct {
	tracks []*Track
}

// NewQueue creates a new empty Queue.
func NewQueue() *Queue {
	return &Queue{
		tracks: make([]*Track, 0),
	}
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// Len returns the number of tracks, including the current one.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Head returns the track now playing, or nil if the queue is empty.
func (q *Queue) Head() *Track {
	if q.IsEmpty() {
		return nil
	}
	return q.tracks[0]
}

// Append adds tracks to the tail of the queue, preserving their order.
// Returns true if the queue was empty before the call.
func (q *Queue) Append(tracks ...*Track) bool {
	wasEmpty := q.IsEmpty()
	q.tracks = append(q.tracks, tracks...)
	return wasEmpty
}

// GetAt returns the track at index, or nil if out of bounds.
func (q *Queue) GetAt(index int) *Track {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	return q.tracks[index]
}

// RemoveHead removes and returns the current track.
func (q *Queue) RemoveHead() *Track {
	if q.IsEmpty() {
		return nil
	}
	head := q.tracks[0]
	q.tracks[0] = nil
	q.tracks = q.tracks[1:]
	return head
}

// ReplaceHead swaps the current track for t. No-op on an empty queue.
func (q *Queue) ReplaceHead(t *Track) {
	if q.IsEmpty() {
		return
	}
	q.tracks[0] = t
}

// RemoveUpcoming removes the upcoming tracks at indices [1, end) and returns
// them. end is clamped to the queue length.
func (q *Queue) RemoveUpcoming(end int) []*Track {
	end = min(end, len(q.tracks))
	if end <= 1 {
		return nil
	}

	removed := make([]*Track, end-1)
	copy(removed, q.tracks[1:end])
	q.tracks = append(q.tracks[:1], q.tracks[end:]...)
	return removed
}

// RemoveAt removes and returns the track at index, or nil if out of bounds.
func (q *Queue) RemoveAt(index int) *Track {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	track := q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	return track
}

// Upcoming returns a copy of the tracks after the current one.
func (q *Queue) Upcoming() []*Track {
	if len(q.tracks) <= 1 {
		return []*Track{}
	}
	result := make([]*Track, len(q.tracks)-1)
	copy(result, q.tracks[1:])
	return result
}

// List returns a copy of all tracks in the queue.
func (q *Queue) List() []*Track {
	result := make([]*Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// Clear removes all tracks and returns how many were removed.
func (q *Queue) Clear() int {
	n := len(q.tracks)
	q.tracks = make([]*Track, 0)
	return n
}
