package fakeuserrepo

import (
	"errors"
	"strings"
	"sync"

	"github.com/jrsteele09/storefront-admin/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	accounts map[int64]*users.Account
	emailIds map[string]int64 // email to account id
	nextID   int64
	lock     sync.RWMutex
}

func NewFakeUserRepo() users.Repo {
	return &FakeUserRepo{
		accounts: make(map[int64]*users.Account),
		emailIds: make(map[string]int64),
	}
}

func (ur *FakeUserRepo) Upsert(account *users.Account) error {
	if account.Email == "" {
		return errors.New("email is required")
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	email := strings.ToLower(account.Email)
	if account.ID == 0 {
		if id, ok := ur.emailIds[email]; ok {
			account.ID = id
		} else {
			ur.nextID++
			account.ID = ur.nextID
		}
	}
	if account.ID > ur.nextID {
		ur.nextID = account.ID
	}
	ur.accounts[account.ID] = account
	ur.emailIds[email] = account.ID
	return nil
}

func (ur *FakeUserRepo) Delete(email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email = strings.ToLower(email)
	id, ok := ur.emailIds[email]
	if !ok {
		return errors.New("not found")
	}
	delete(ur.emailIds, email)
	delete(ur.accounts, id)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[strings.ToLower(email)]
	if !ok {
		return nil, errors.New("not found")
	}
	return ur.accounts[id], nil
}

func (ur *FakeUserRepo) GetByID(id int64) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	account, ok := ur.accounts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return account, nil
}
