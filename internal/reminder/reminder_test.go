package reminder

import (
	"testing"

	"github.com/pdiddy/mail-agent/pkg/types"
)

func TestForEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType types.EventType
		want      []types.Reminder
	}{
		{
			name:      "exam",
			eventType: types.EventExam,
			want: []types.Reminder{
				{Method: "email", Minutes: 2880},
				{Method: "popup", Minutes: 60},
			},
		},
		{
			name:      "deadline",
			eventType: types.EventDeadline,
			want: []types.Reminder{
				{Method: "email", Minutes: 1440},
				{Method: "popup", Minutes: 60},
			},
		},
		{
			name:      "meeting",
			eventType: types.EventMeeting,
			want: []types.Reminder{
				{Method: "popup", Minutes: 10},
			},
		},
		{
			name:      "unknown falls back to meeting rules",
			eventType: types.EventType("workshop"),
			want: []types.Reminder{
				{Method: "popup", Minutes: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForEvent(tt.eventType)
			if len(got) != len(tt.want) {
				t.Fatalf("ForEvent(%s) returned %d reminders, want %d", tt.eventType, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("reminder %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
