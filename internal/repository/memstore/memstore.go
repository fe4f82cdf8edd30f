package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
)

var (
	_ repository.CardStore = (*CardStore)(nil)
	_ repository.UserStore = (*UserStore)(nil)
)

var errNegativeBalance = errors.New("check constraint violation: balance must not be negative")

// CardStore is an in-process repository.CardStore with the same semantics as
// repository.CardRepository: unique card numbers, optimistic versions, serialized
// transactions that commit or roll back as a unit.
type CardStore struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	nextID int64
	cards  map[int64]models.Card

	// UpdateHook, when set, runs before every Update and aborts it on error.
	UpdateHook func(card models.Card) error
}

// NewCardStore returns an empty store
func NewCardStore() *CardStore {
	return &CardStore{cards: make(map[int64]models.Card)}
}

// Put stores card as-is, bypassing validation. Used to seed fixtures
func (s *CardStore) Put(card models.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card.ID == 0 {
		s.nextID++
		card.ID = s.nextID
	} else if card.ID > s.nextID {
		s.nextID = card.ID
	}
	s.cards[card.ID] = card
}

// Get returns the stored form of a card, without decryption
func (s *CardStore) Get(id int64) (models.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	return c, ok
}

func (s *CardStore) view() *memCardView {
	return &memCardView{root: s, read: s.cards, write: s.cards}
}

func (s *CardStore) locked(fn func(v *memCardView) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.view())
}

func (s *CardStore) Create(ctx context.Context, card *models.Card) error {
	return s.locked(func(v *memCardView) error { return v.create(card) })
}

func (s *CardStore) Update(ctx context.Context, card *models.Card) error {
	return s.locked(func(v *memCardView) error { return v.update(card) })
}

func (s *CardStore) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	var out *models.Card
	err := s.locked(func(v *memCardView) (err error) { out, err = v.find(id, nil); return })
	return out, err
}

func (s *CardStore) FindByIDForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	return s.FindByID(ctx, id)
}

func (s *CardStore) FindByIDAndUser(ctx context.Context, id, userID int64) (*models.Card, error) {
	var out *models.Card
	err := s.locked(func(v *memCardView) (err error) { out, err = v.find(id, &userID); return })
	return out, err
}

func (s *CardStore) FindByIDAndUserForUpdate(ctx context.Context, id, userID int64) (*models.Card, error) {
	return s.FindByIDAndUser(ctx, id, userID)
}

func (s *CardStore) FindByUser(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.Card], error) {
	return s.Search(ctx, userID, models.CardFilter{}, page)
}

func (s *CardStore) FindAll(ctx context.Context, page models.PageRequest) (models.Page[models.Card], error) {
	var out models.Page[models.Card]
	err := s.locked(func(v *memCardView) error {
		out = paginate(v.filter(func(models.Card) bool { return true }), page)
		return nil
	})
	return out, err
}

func (s *CardStore) FindAllByUser(ctx context.Context, userID int64) ([]models.Card, error) {
	var out []models.Card
	err := s.locked(func(v *memCardView) error {
		out = v.filter(func(c models.Card) bool { return c.UserID == userID })
		return nil
	})
	return out, err
}

func (s *CardStore) Search(ctx context.Context, userID int64, filter models.CardFilter, page models.PageRequest) (models.Page[models.Card], error) {
	var out models.Page[models.Card]
	err := s.locked(func(v *memCardView) error {
		out = paginate(v.filter(searchPredicate(userID, filter)), page)
		return nil
	})
	return out, err
}

func (s *CardStore) BalanceByIDAndUser(ctx context.Context, id, userID int64) (decimal.Decimal, error) {
	card, err := s.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return card.Balance, nil
}

func (s *CardStore) ExistsByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error) {
	var exists bool
	err := s.locked(func(v *memCardView) error {
		exists = v.numberTaken(encryptedNumber)
		return nil
	})
	return exists, err
}

func (s *CardStore) UpdateStatus(ctx context.Context, id int64, status models.CardStatus) error {
	return s.locked(func(v *memCardView) error { return v.updateStatus(id, status) })
}

func (s *CardStore) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	var n int64
	err := s.locked(func(v *memCardView) error {
		n = v.expireOverdue(today)
		return nil
	})
	return n, err
}

func (s *CardStore) Delete(ctx context.Context, id int64) error {
	return s.locked(func(v *memCardView) error { return v.delete(id) })
}

// WithTx serializes transactions. Writes are staged and applied on success;
// a row changed outside the transaction since it was read fails the commit.
func (s *CardStore) WithTx(ctx context.Context, fn func(tx repository.CardStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{root: s, staged: make(map[int64]models.Card), deleted: make(map[int64]bool), seen: make(map[int64]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// memCardView holds the row logic shared by the root store and transactions.
// Callers hold root.mu.
type memCardView struct {
	root  *CardStore
	read  map[int64]models.Card
	write map[int64]models.Card
	tx    *memTx
}

func (v *memCardView) get(id int64) (models.Card, bool) {
	if v.tx != nil {
		if v.tx.deleted[id] {
			return models.Card{}, false
		}
		if c, ok := v.tx.staged[id]; ok {
			return c, true
		}
	}
	c, ok := v.read[id]
	if ok && v.tx != nil {
		if _, tracked := v.tx.seen[id]; !tracked {
			v.tx.seen[id] = c.Version
		}
	}
	return c, ok
}

func (v *memCardView) put(c models.Card) {
	if v.tx != nil {
		v.tx.staged[c.ID] = c
		delete(v.tx.deleted, c.ID)
		return
	}
	v.write[c.ID] = c
}

func (v *memCardView) all() []models.Card {
	ids := make(map[int64]struct{})
	for id := range v.read {
		ids[id] = struct{}{}
	}
	if v.tx != nil {
		for id := range v.tx.staged {
			ids[id] = struct{}{}
		}
	}
	out := make([]models.Card, 0, len(ids))
	for id := range ids {
		if c, ok := v.get(id); ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *memCardView) filter(keep func(models.Card) bool) []models.Card {
	var out []models.Card
	for _, c := range v.all() {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (v *memCardView) numberTaken(encryptedNumber string) bool {
	for _, c := range v.all() {
		if c.EncryptedNumber == encryptedNumber {
			return true
		}
	}
	return false
}

func (v *memCardView) create(card *models.Card) error {
	if v.numberTaken(card.EncryptedNumber) {
		return repository.ErrDuplicateCardNumber
	}
	if card.Balance.IsNegative() {
		return errNegativeBalance
	}
	v.root.nextID++
	now := time.Now().UTC()
	card.ID = v.root.nextID
	card.Version = 0
	card.CreatedAt, card.UpdatedAt = now, now

	stored := *card
	stored.Number, stored.HolderName = "", ""
	v.put(stored)
	return nil
}

func (v *memCardView) update(card *models.Card) error {
	if hook := v.root.UpdateHook; hook != nil {
		if err := hook(*card); err != nil {
			return err
		}
	}
	stored, ok := v.get(card.ID)
	if !ok || stored.Version != card.Version {
		return repository.ErrStaleCard
	}
	if card.Balance.IsNegative() {
		return errNegativeBalance
	}
	stored.EncryptedHolderName = card.EncryptedHolderName
	stored.Status = card.Status
	stored.Balance = card.Balance
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	v.put(stored)

	card.Version, card.UpdatedAt = stored.Version, stored.UpdatedAt
	return nil
}

func (v *memCardView) find(id int64, userID *int64) (*models.Card, error) {
	c, ok := v.get(id)
	if !ok || (userID != nil && c.UserID != *userID) {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (v *memCardView) updateStatus(id int64, status models.CardStatus) error {
	c, ok := v.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	v.put(c)
	return nil
}

func (v *memCardView) expireOverdue(today time.Time) int64 {
	var n int64
	for _, c := range v.all() {
		if c.Status != models.CardStatusExpired && c.IsPastExpiry(today) {
			c.Status = models.CardStatusExpired
			c.Version++
			c.UpdatedAt = time.Now().UTC()
			v.put(c)
			n++
		}
	}
	return n
}

func (v *memCardView) delete(id int64) error {
	if _, ok := v.get(id); !ok {
		return repository.ErrNotFound
	}
	if v.tx != nil {
		delete(v.tx.staged, id)
		v.tx.deleted[id] = true
		return nil
	}
	delete(v.write, id)
	return nil
}

type memTx struct {
	root    *CardStore
	staged  map[int64]models.Card
	deleted map[int64]bool
	seen    map[int64]int64 // version of each committed row when first read
}

func (t *memTx) locked(fn func(v *memCardView) error) error {
	t.root.mu.Lock()
	defer t.root.mu.Unlock()
	return fn(&memCardView{root: t.root, read: t.root.cards, tx: t})
}

func (t *memTx) commit() error {
	t.root.mu.Lock()
	defer t.root.mu.Unlock()

	for id, version := range t.seen {
		_, touched := t.staged[id]
		if !touched && !t.deleted[id] {
			continue
		}
		if current, ok := t.root.cards[id]; ok && current.Version != version {
			return repository.ErrStaleCard
		}
	}
	for id := range t.deleted {
		delete(t.root.cards, id)
	}
	for id, c := range t.staged {
		t.root.cards[id] = c
	}
	return nil
}

func (t *memTx) Create(ctx context.Context, card *models.Card) error {
	return t.locked(func(v *memCardView) error { return v.create(card) })
}

func (t *memTx) Update(ctx context.Context, card *models.Card) error {
	return t.locked(func(v *memCardView) error { return v.update(card) })
}

func (t *memTx) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	var out *models.Card
	err := t.locked(func(v *memCardView) (err error) { out, err = v.find(id, nil); return })
	return out, err
}

func (t *memTx) FindByIDForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	return t.FindByID(ctx, id)
}

func (t *memTx) FindByIDAndUser(ctx context.Context, id, userID int64) (*models.Card, error) {
	var out *models.Card
	err := t.locked(func(v *memCardView) (err error) { out, err = v.find(id, &userID); return })
	return out, err
}

func (t *memTx) FindByIDAndUserForUpdate(ctx context.Context, id, userID int64) (*models.Card, error) {
	return t.FindByIDAndUser(ctx, id, userID)
}

func (t *memTx) FindByUser(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.Card], error) {
	return t.Search(ctx, userID, models.CardFilter{}, page)
}

func (t *memTx) FindAll(ctx context.Context, page models.PageRequest) (models.Page[models.Card], error) {
	var out models.Page[models.Card]
	err := t.locked(func(v *memCardView) error {
		out = paginate(v.filter(func(models.Card) bool { return true }), page)
		return nil
	})
	return out, err
}

func (t *memTx) FindAllByUser(ctx context.Context, userID int64) ([]models.Card, error) {
	var out []models.Card
	err := t.locked(func(v *memCardView) error {
		out = v.filter(func(c models.Card) bool { return c.UserID == userID })
		return nil
	})
	return out, err
}

func (t *memTx) Search(ctx context.Context, userID int64, filter models.CardFilter, page models.PageRequest) (models.Page[models.Card], error) {
	var out models.Page[models.Card]
	err := t.locked(func(v *memCardView) error {
		out = paginate(v.filter(searchPredicate(userID, filter)), page)
		return nil
	})
	return out, err
}

func (t *memTx) BalanceByIDAndUser(ctx context.Context, id, userID int64) (decimal.Decimal, error) {
	card, err := t.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return card.Balance, nil
}

func (t *memTx) ExistsByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error) {
	var exists bool
	err := t.locked(func(v *memCardView) error {
		exists = v.numberTaken(encryptedNumber)
		return nil
	})
	return exists, err
}

func (t *memTx) UpdateStatus(ctx context.Context, id int64, status models.CardStatus) error {
	return t.locked(func(v *memCardView) error { return v.updateStatus(id, status) })
}

func (t *memTx) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	var n int64
	err := t.locked(func(v *memCardView) error {
		n = v.expireOverdue(today)
		return nil
	})
	return n, err
}

func (t *memTx) Delete(ctx context.Context, id int64) error {
	return t.locked(func(v *memCardView) error { return v.delete(id) })
}

func (t *memTx) WithTx(ctx context.Context, fn func(tx repository.CardStore) error) error {
	return fn(t)
}

func searchPredicate(userID int64, filter models.CardFilter) func(models.Card) bool {
	return func(c models.Card) bool {
		if c.UserID != userID {
			return false
		}
		if filter.CardID != nil && c.ID != *filter.CardID {
			return false
		}
		if filter.Last4 != nil && c.Last4 != *filter.Last4 {
			return false
		}
		if filter.Status != nil && c.Status != *filter.Status {
			return false
		}
		return true
	}
}

func paginate[T any](items []T, req models.PageRequest) models.Page[T] {
	req = req.Normalize()
	total := int64(len(items))
	start := req.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + req.Size
	if end > len(items) {
		end = len(items)
	}
	page := make([]T, end-start)
	copy(page, items[start:end])
	return models.NewPage(page, req, total)
}

// UserStore is an in-process repository.UserStore
type UserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User
}

// NewUserStore returns an empty store
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]models.User)}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PhoneNumber == user.PhoneNumber {
			return repository.ErrDuplicatePhone
		}
	}
	s.nextID++
	now := time.Now().UTC()
	user.ID = s.nextID
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.FirstName, stored.LastName, stored.Email = user.FirstName, user.LastName, user.Email
	stored.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = stored
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (s *UserStore) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) FindAll(ctx context.Context, page models.PageRequest) (models.Page[models.User], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return paginate(users, page), nil
}

func (s *UserStore) ExistsByID(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *UserStore) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	_, err := s.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func cloneUser(u models.User) models.User {
	u.Roles = append([]string(nil), u.Roles...)
	return u
}
