package domain

import "testing"

func TestTrackEndReason_MayReplay(t *testing.T) {
	tests := []struct {
		reason TrackEndReason
		want   bool
	}{
		{reason: TrackEndFinished, want: true},
		{reason: TrackEndLoadFailed, want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			if got := tt.reason.MayReplay(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
