package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResidentStatus_IsFinal(t *testing.T) {
	tests := []struct {
		status ResidentStatus
		want   bool
	}{
		{ResidentStatusWaiting, false},
		{ResidentStatusModeration, false},
		{ResidentStatusAccept, true},
		{ResidentStatusRefuse, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsFinal())
		})
	}
}

func TestJoinRequest_IsExpired(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  JoinRequest
		want bool
	}{
		{"fresh", JoinRequest{CreatedAt: now.Add(-time.Hour)}, false},
		{"stale", JoinRequest{CreatedAt: now.Add(-49 * time.Hour)}, true},
		{"stale but processed", JoinRequest{CreatedAt: now.Add(-49 * time.Hour), Processed: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.IsExpired(now, 48*time.Hour))
		})
	}
}

func TestResidentFields_IsEmpty(t *testing.T) {
	assert.True(t, ResidentFields{}.IsEmpty())

	status := ResidentStatusModeration
	assert.True(t, ResidentFields{OnlyIfStatus: &status}.IsEmpty(), "guard alone is not an update")
	assert.False(t, ResidentFields{Status: &status}.IsEmpty())
}
