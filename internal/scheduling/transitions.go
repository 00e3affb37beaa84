package scheduling

import "github.com/Freeeeeet/coach_scheduler/internal/model"

var sessionTransitions = map[model.SessionStatus][]model.SessionStatus{
	model.SessionStatusScheduled: {
		model.SessionStatusInProgress,
		model.SessionStatusCompleted,
		model.SessionStatusCancelled,
		model.SessionStatusNoShow,
	},
	model.SessionStatusInProgress: {
		model.SessionStatusCompleted,
	},
}

// CanTransition проверяет переход статуса сессии. Из терминальных статусов переходов нет
func CanTransition(from, to model.SessionStatus) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
