// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reminder maps event categories to notification lead times.
package reminder

import "github.com/pdiddy/mail-agent/pkg/types"

// Methods accepted by the downstream calendar API.
const (
	MethodEmail = "email"
	MethodPopup = "popup"
)

// ForEvent returns the ordered reminder overrides for an event category.
// Exams notify two days out by email plus an hour-before popup; deadlines
// one day out plus the popup. Everything else, meetings included, gets a
// ten-minute popup.
func ForEvent(eventType types.EventType) []types.Reminder {
	switch eventType {
	case types.EventExam:
		return []types.Reminder{
			{Method: MethodEmail, Minutes: 2 * 24 * 60},
			{Method: MethodPopup, Minutes: 60},
		}
	case types.EventDeadline:
		return []types.Reminder{
			{Method: MethodEmail, Minutes: 24 * 60},
			{Method: MethodPopup, Minutes: 60},
		}
	default:
		return []types.Reminder{
			{Method: MethodPopup, Minutes: 10},
		}
	}
}
