package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, copyUser(*u))
	}
	return users
}

func copyUser(usr user.User) user.User {
	if usr.IsActive != nil {
		active := *usr.IsActive
		usr.IsActive = &active
	}
	if usr.Roles != nil {
		usr.Roles = append([]string{}, usr.Roles...)
	}
	return usr
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}

	for _, usr := range repo.db.users {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.users {
		if (usr.Username != "" && u.Username == usr.Username) || u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}

	usr.ID = uuid.New().String()
	stored := copyUser(usr)
	repo.db.users[usr.ID] = &stored
	return copyUser(usr), nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var users []user.User
	for _, u := range repo.query() {
		if filter == nil || matchesFilter(u, *filter) {
			users = append(users, u)
		}
	}
	sortUsers(users, ordering)
	return users, nil
}

func matchesFilter(u user.User, filter user.QueryFilter) bool {
	// users with search keyword matching any Name, Username or Email ?
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(u.Username), search) ||
			strings.Contains(strings.ToLower(u.Email), search) ||
			strings.Contains(strings.ToLower(u.Name), search)) {
			return false
		}
	}
	// users with any of the specified roles
	if len(filter.Roles) > 0 {
		var found bool
		for _, r := range filter.Roles {
			if u.RoleStartsWith(r) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && u.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	return true
}

// sortUsers orders by the supported fields; unknown fields are ignored, ties fall back to created_at.
func sortUsers(users []user.User, ordering []core.DBOrdering) {
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "name":
				cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
			case "username":
				cmp = strings.Compare(a.Username, b.Username)
			case "email":
				cmp = strings.Compare(a.Email, b.Email)
			case "created_at":
				cmp = compareTime(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
			case "last_login":
				cmp = compareTime(a.LastLogin.UnixNano(), b.LastLogin.UnixNano())
			}
			if cmp != 0 {
				if ord.Ascending {
					return cmp < 0
				}
				return cmp > 0
			}
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func compareTime(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return copyUser(*usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if email != "" {
		for _, usr := range repo.db.users {
			if usr.Email == email {
				return copyUser(*usr), nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if username != "" {
		for _, usr := range repo.db.users {
			if usr.Username == username || usr.Email == username {
				return copyUser(*usr), nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	stored := copyUser(usr)
	repo.db.users[usr.ID] = &stored
	return copyUser(usr), nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
		for classID, enrolled := range repo.db.enrollments {
			repo.db.enrollments[classID] = withoutStudent(enrolled, id)
		}
	}
	return nil
}
