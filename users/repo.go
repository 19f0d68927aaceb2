package users

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

type UserRepo interface {
	Upsert(user *User) error
	Delete(email string) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
	List(offset, limit int) ([]*User, error)
	SetBlocked(email string, blocked bool) error
	RecordLogin(email string, at time.Time) error
}
