package memory

import (
	"LinkLoom-Backend/internal/domain"
	"LinkLoom-Backend/internal/repository"
	"context"
	"fmt"
	"sync"
	"time"
)

// Storage is a mutex-guarded in-memory implementation of repository.Storage.
// It mirrors the storage-level guarantees of the GORM backend: one uniqueness
// namespace across both code columns (deleted codes stay reserved) and atomic
// click increments.
type Storage struct {
	mu           sync.RWMutex
	linksByID    map[int64]*domain.Link
	linksByCode  map[int64]struct{} // ids of non-deleted links, kept for iteration order independence
	codes        map[string]int64   // code -> link id, includes deleted records
	deleted      map[int64]bool
	clickEvents  []*domain.ClickEvent
	usersByEmail map[string]*domain.User
	usersByID    map[int64]*domain.User
	subTypes     map[int16]*domain.SubscriptionType
	linkCounter  int64
	userCounter  int64
	eventCounter int64
}

// New creates an empty in-memory storage seeded with the default plan tiers.
func New() *Storage {
	s := &Storage{
		linksByID:    make(map[int64]*domain.Link),
		linksByCode:  make(map[int64]struct{}),
		codes:        make(map[string]int64),
		deleted:      make(map[int64]bool),
		usersByEmail: make(map[string]*domain.User),
		usersByID:    make(map[int64]*domain.User),
		subTypes:     make(map[int16]*domain.SubscriptionType),
	}

	s.subTypes[1] = &domain.SubscriptionType{ID: 1, Name: "free", DisplayName: "Free Plan", CustomSlugs: false, IsActive: true}
	s.subTypes[2] = &domain.SubscriptionType{ID: 2, Name: "pro", DisplayName: "Pro Plan", CustomSlugs: true, APIAccess: true, IsActive: true}
	return s
}

// --- User Methods ---

func (s *Storage) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userCounter++
	user.ID = s.userCounter
	user.CreatedAt = time.Now()
	if user.SubscriptionTypeID == 0 {
		user.SubscriptionTypeID = 1
	}
	user.IsActive = true
	s.usersByEmail[user.Email] = user
	s.usersByID[user.ID] = user
	return nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.usersByEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *Storage) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.usersByID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *Storage) UpdateUserLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LastLoginAt = &at
	return nil
}

func (s *Storage) GetSubscriptionType(_ context.Context, id int16) (*domain.SubscriptionType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.subTypes[id]
	if !ok {
		return nil, fmt.Errorf("subscription type %d not found", id)
	}
	return st, nil
}

// --- Link Methods ---

func (s *Storage) InsertLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := link.Code().Value
	if _, taken := s.codes[code]; taken {
		return repository.ErrDuplicateCode
	}

	s.linkCounter++
	link.ID = s.linkCounter
	link.CreatedAt = time.Now()
	s.linksByID[link.ID] = link
	s.linksByCode[link.ID] = struct{}{}
	s.codes[code] = link.ID
	return nil
}

func (s *Storage) FindByCode(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.codes[code]
	if !ok || s.deleted[id] {
		return nil, repository.ErrCodeNotFound
	}
	return snapshot(s.linksByID[id]), nil
}

func (s *Storage) FindByID(_ context.Context, id int64) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.linksByID[id]
	if !ok || s.deleted[id] {
		return nil, repository.ErrLinkNotFound
	}
	return snapshot(link), nil
}

// snapshot copies a record before it leaves the store lock. Callers read
// fields like ClickCount while the accounting workers keep mutating the
// interior record, so handing out the stored pointer would race.
func snapshot(link *domain.Link) *domain.Link {
	cp := *link
	return &cp
}

func (s *Storage) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Deleted records keep their codes reserved, so no deleted[] check here.
	_, ok := s.codes[code]
	return ok, nil
}

func (s *Storage) DeleteLink(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.linksByID[id]; !ok || s.deleted[id] {
		return repository.ErrLinkNotFound
	}
	s.deleted[id] = true
	delete(s.linksByCode, id)
	return nil
}

func (s *Storage) ListUserLinks(_ context.Context, userID int64) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var userLinks []*domain.Link
	for id := range s.linksByCode {
		link := s.linksByID[id]
		if link.UserID != nil && *link.UserID == userID {
			userLinks = append(userLinks, snapshot(link))
		}
	}
	return userLinks, nil
}

func (s *Storage) SetQRAssetRef(_ context.Context, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.linksByID[id]
	if !ok || s.deleted[id] {
		return repository.ErrLinkNotFound
	}
	link.QRAssetRef = &ref
	return nil
}

// --- Click Accounting ---

func (s *Storage) IncrementClickCount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.linksByID[id]
	if !ok || s.deleted[id] {
		return repository.ErrLinkNotFound
	}
	link.ClickCount++
	return nil
}

func (s *Storage) CreateClickEvent(_ context.Context, event *domain.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventCounter++
	event.ID = s.eventCounter
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	s.clickEvents = append(s.clickEvents, event)
	return nil
}

func (s *Storage) ClicksByDevice(_ context.Context, linkID int64) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clicksByDevice := make(map[string]int64)
	for _, event := range s.clickEvents {
		if event.LinkID == linkID {
			clicksByDevice[event.GetDeviceType()]++
		}
	}
	return clicksByDevice, nil
}

// ClickEventCount reports the number of logged events for a link. Test helper.
func (s *Storage) ClickEventCount(linkID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, event := range s.clickEvents {
		if event.LinkID == linkID {
			n++
		}
	}
	return n
}
