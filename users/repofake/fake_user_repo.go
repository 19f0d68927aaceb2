package fakeuserrepo

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-dash-session/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

// FakeUserRepo keeps users in memory. Emails are matched case-insensitively.
// Returned users are copies.
type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	u := *user
	ur.users[u.ID] = &u
	ur.emailIds[emailKey(u.Email)] = u.ID
	return nil
}

func (ur *FakeUserRepo) Delete(email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	userID, ok := ur.emailIds[emailKey(email)]
	if !ok {
		return users.ErrNotFound
	}
	delete(ur.emailIds, emailKey(email))
	delete(ur.users, userID)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[emailKey(email)]
	if !ok {
		return nil, users.ErrNotFound
	}
	u := *ur.users[id]
	return &u, nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (ur *FakeUserRepo) List(offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		u := *v
		userList = append(userList, &u)
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].Email < userList[j].Email
	})

	if offset >= len(userList) {
		return nil, nil
	}
	end := len(userList)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return userList[offset:end], nil
}

func (ur *FakeUserRepo) SetBlocked(email string, blocked bool) error {
	return ur.update(email, func(u *users.User) {
		u.Blocked = blocked
	})
}

func (ur *FakeUserRepo) RecordLogin(email string, at time.Time) error {
	return ur.update(email, func(u *users.User) {
		u.LastLogin = at
	})
}

func (ur *FakeUserRepo) update(email string, fn func(u *users.User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id, ok := ur.emailIds[emailKey(email)]
	if !ok {
		return users.ErrNotFound
	}
	fn(ur.users[id])
	return nil
}
