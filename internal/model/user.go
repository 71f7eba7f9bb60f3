package model

import "time"

type User struct {
	ID           int64      `json:"id"`
	Login        string     `json:"login"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"` // null = ещё ни разу не входил
}

// Profile — публичные поля пользователя. password_hash наружу не отдаётся никогда.
type Profile struct {
	ID          int64      `json:"id"`
	Login       string     `json:"login"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) ToProfile() Profile {
	return Profile{
		ID:          u.ID,
		Login:       u.Login,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
