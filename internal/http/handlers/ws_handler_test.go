package handlers

import (
	"testing"

	"github.com/crowdfund/backend/internal/events"
	"github.com/stretchr/testify/assert"
)

func TestEventPID(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		wantPID int64
		wantOK  bool
	}{
		{"decoded json", map[string]any{"pId": float64(7)}, 7, true},
		{"published locally", map[string]any{"pId": int64(3)}, 3, true},
		{"missing", map[string]any{"amount": 1.5}, 0, false},
		{"wrong type", map[string]any{"pId": "7"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid, ok := eventPID(events.Event{Payload: tt.payload})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPID, pid)
		})
	}
}
