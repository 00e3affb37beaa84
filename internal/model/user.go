package model

import "time"

// Role роль участника, которую выдаёт сервис аккаунтов
type Role string

const (
	RoleCoach  Role = "coach"
	RoleMentee Role = "mentee"
	RoleSystem Role = "system" // фоновые задачи движка
)

func (r Role) Valid() bool {
	switch r {
	case RoleCoach, RoleMentee, RoleSystem:
		return true
	}
	return false
}

type User struct {
	ID         int64     `json:"id"`
	Role       Role      `json:"role"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	TelegramID *int64    `json:"telegram_id"` // указатель - может быть nil до привязки
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName возвращает имя для сообщений
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// Actor аутентифицированный участник запроса
type Actor struct {
	UserID int64
	Role   Role
}

// SystemActor используется reconciler'ом и воркерами
func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}
