package scheduling

import "github.com/Freeeeeet/coach_scheduler/internal/model"

// Action действие над сессией или её артефактами
type Action string

const (
	ActionBook              Action = "book"
	ActionView              Action = "view"
	ActionStart             Action = "start"
	ActionComplete          Action = "complete"
	ActionCancel            Action = "cancel"
	ActionReschedule        Action = "reschedule"
	ActionNoShow            Action = "no_show"
	ActionEditNotes         Action = "edit_notes"
	ActionCreateActionItem  Action = "create_action_item"
	ActionEditActionItem    Action = "edit_action_item"
	ActionDeleteActionItem  Action = "delete_action_item"
	ActionToggleActionItem  Action = "toggle_action_item"
	ActionCreateReview      Action = "create_review"
	ActionEditReviewComment Action = "edit_review_comment"
	ActionRespondReview     Action = "respond_review"
	ActionSetAvailability   Action = "set_availability"
)

var (
	coachOnly  = []model.Role{model.RoleCoach}
	menteeOnly = []model.Role{model.RoleMentee}
	bothSides  = []model.Role{model.RoleCoach, model.RoleMentee}
)

// policy единственное место, где описано кто что может делать
var policy = map[Action][]model.Role{
	ActionBook:              menteeOnly,
	ActionView:              bothSides,
	ActionStart:             coachOnly,
	ActionComplete:          coachOnly,
	ActionCancel:            bothSides,
	ActionReschedule:        bothSides,
	ActionNoShow:            {model.RoleCoach, model.RoleSystem},
	ActionEditNotes:         coachOnly,
	ActionCreateActionItem:  coachOnly,
	ActionEditActionItem:    coachOnly,
	ActionDeleteActionItem:  coachOnly,
	ActionToggleActionItem:  bothSides,
	ActionCreateReview:      menteeOnly,
	ActionEditReviewComment: menteeOnly,
	ActionRespondReview:     coachOnly,
	ActionSetAvailability:   coachOnly,
}

// Allowed проверяет роль по таблице политик
func Allowed(action Action, role model.Role) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}

// CanPerform проверяет роль и то, что участник действует от своей стороны сессии.
// Системный участник не привязан к сторонам
func CanPerform(action Action, actor model.Actor, coachID, menteeID int64) bool {
	if !Allowed(action, actor.Role) {
		return false
	}
	switch actor.Role {
	case model.RoleSystem:
		return true
	case model.RoleCoach:
		return actor.UserID != 0 && actor.UserID == coachID
	case model.RoleMentee:
		return actor.UserID != 0 && actor.UserID == menteeID
	}
	return false
}
