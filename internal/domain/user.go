package domain

import "time"

type User struct {
	ID           int64
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	Language     string
	IsBlocked    bool
	IsAdmin      bool
	CreatedAt    time.Time
	LastActivity time.Time
}

func (u *User) Lang() string {
	if u.Language == "" {
		return "ru"
	}
	return u.Language
}
