package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"securechat/backend/internal/models"
)

// DefaultKey is the record key under which the whole database is stored.
const DefaultKey = "KV_DATA_V1"

// ErrUsernameTaken is returned by AddUser when the username already exists.
var ErrUsernameTaken = errors.New("username taken")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Storage interface {
	Load() (*models.Database, error)
	Save(db *models.Database) error

	GetUsers() ([]models.User, error)
	GetUser(id string) (*models.User, error)
	FindUserByCredentials(username, password string) (*models.User, error)
	AddUser(user models.User) error
	UpdateUser(user models.User) error
	ModifyUser(id string, fn func(u *models.User)) (*models.User, error)
	DeleteUser(id string) error

	GetMessages(userID, contactID string) ([]models.Message, error)
	AddMessage(msg models.Message) error

	SendFriendRequest(fromID, toID string) error
	GetFriendRequests(userID string) ([]models.FriendRequest, error)
	GetFriendRequest(id string) (*models.FriendRequest, error)
	AcceptFriendRequest(id string) error
}

// Service is the persisted store: every operation loads the whole record from
// the KV backend and mutations write it back wholesale.
//
// Mutations run under mu, so they are atomic with respect to other callers of
// the same Service. Separate processes sharing one backend still race and the
// last writer wins.
type Service struct {
	KV  KV
	Key string
	Ctx context.Context

	AdminUsername string
	AdminPassword string

	mu sync.Mutex
}

// NewStorageService Constructor
func NewStorageService(kv KV, key string) *Service {
	if key == "" {
		key = DefaultKey
	}
	return &Service{
		KV:  kv,
		Key: key,
		Ctx: context.Background(),
	}
}

// Load returns the current record, seeding and persisting the bootstrap record
// when nothing has been stored yet.
func (s *Service) Load() (*models.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the whole record.
func (s *Service) Save(db *models.Database) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(db)
}

func (s *Service) load() (*models.Database, error) {
	raw, err := s.KV.Get(s.Ctx, s.Key)
	if errors.Is(err, ErrNotFound) {
		db := models.Bootstrap(s.AdminUsername, s.AdminPassword)
		if err := s.save(db); err != nil {
			return nil, err
		}
		log.Printf("INFO: Seeded %s with bootstrap data.", s.Key)
		return db, nil
	}
	if err != nil {
		return nil, err
	}

	var db models.Database
	if err := json.Unmarshal(raw, &db); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", s.Key, err)
	}
	db.Normalize()
	return &db, nil
}

func (s *Service) save(db *models.Database) error {
	db.Normalize()
	raw, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", s.Key, err)
	}
	return s.KV.Put(s.Ctx, s.Key, raw)
}

// update is the read-modify-write primitive. fn reports whether it changed the
// record; unchanged records are not written back.
func (s *Service) update(fn func(db *models.Database) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load()
	if err != nil {
		return err
	}
	changed, err := fn(db)
	if err != nil || !changed {
		return err
	}
	return s.save(db)
}

// GetUsers returns a snapshot of the user collection.
func (s *Service) GetUsers() ([]models.User, error) {
	db, err := s.Load()
	if err != nil {
		return nil, err
	}
	return db.Users, nil
}

// GetUser returns the user with the given ID, or nil when absent.
func (s *Service) GetUser(id string) (*models.User, error) {
	db, err := s.Load()
	if err != nil {
		return nil, err
	}
	if i := db.FindUser(id); i >= 0 {
		u := db.Users[i]
		return &u, nil
	}
	return nil, nil
}

// FindUserByCredentials returns the user whose username and password both match, or nil.
func (s *Service) FindUserByCredentials(username, password string) (*models.User, error) {
	db, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, u := range db.Users {
		if u.Username == username && u.Password == password {
			return &u, nil
		}
	}
	return nil, nil
}

// AddUser appends a user. Fails with ErrUsernameTaken, without writing, when
// the username is already present.
func (s *Service) AddUser(user models.User) error {
	return s.update(func(db *models.Database) (bool, error) {
		for _, u := range db.Users {
			if u.Username == user.Username {
				return false, ErrUsernameTaken
			}
		}
		db.Users = append(db.Users, user)
		return true, nil
	})
}

// UpdateUser replaces the stored user with the same ID. Unknown IDs are ignored.
// Username uniqueness is not re-checked.
func (s *Service) UpdateUser(user models.User) error {
	return s.update(func(db *models.Database) (bool, error) {
		i := db.FindUser(user.ID)
		if i < 0 {
			return false, nil
		}
		db.Users[i] = user
		return true, nil
	})
}

// ModifyUser applies fn to the stored user with the given ID and saves the
// result in one atomic step, so fields fn leaves alone keep whatever a
// concurrent writer stored. It returns the updated user, or nil when absent.
func (s *Service) ModifyUser(id string, fn func(u *models.User)) (*models.User, error) {
	var out *models.User
	err := s.update(func(db *models.Database) (bool, error) {
		i := db.FindUser(id)
		if i < 0 {
			return false, nil
		}
		fn(&db.Users[i])
		u := db.Users[i]
		out = &u
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes the user. Their messages and friend requests are left in place.
func (s *Service) DeleteUser(id string) error {
	return s.update(func(db *models.Database) (bool, error) {
		n := len(db.Users)
		db.Users = slices.DeleteFunc(db.Users, func(u models.User) bool { return u.ID == id })
		return len(db.Users) != n, nil
	})
}

// GetMessages returns the conversation between userID and contactID in either
// direction, ordered by timestamp.
func (s *Service) GetMessages(userID, contactID string) ([]models.Message, error) {
	db, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0)
	for _, m := range db.Messages {
		if m.Between(userID, contactID) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Message) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	return out, nil
}

// AddMessage appends a message unconditionally.
func (s *Service) AddMessage(msg models.Message) error {
	return s.update(func(db *models.Database) (bool, error) {
		db.Messages = append(db.Messages, msg)
		return true, nil
	})
}

// SendFriendRequest appends a pending request unless a request with the exact
// same (from, to) pair exists in any status. The reverse pair is not checked.
func (s *Service) SendFriendRequest(fromID, toID string) error {
	return s.update(func(db *models.Database) (bool, error) {
		for _, r := range db.FriendRequests {
			if r.FromUserID == fromID && r.ToUserID == toID {
				return false, nil
			}
		}
		db.FriendRequests = append(db.FriendRequests, models.FriendRequest{
			ID:         uuid.New().String(),
			FromUserID: fromID,
			ToUserID:   toID,
			Status:     models.FriendRequestPending,
		})
		return true, nil
	})
}

// GetFriendRequests returns the pending requests addressed to userID.
func (s *Service) GetFriendRequests(userID string) ([]models.FriendRequest, error) {
	db, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make([]models.FriendRequest, 0)
	for _, r := range db.FriendRequests {
		if r.ToUserID == userID && r.Status == models.FriendRequestPending {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetFriendRequest returns the request with the given ID, or nil.
func (s *Service) GetFriendRequest(id string) (*models.FriendRequest, error) {
	db, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, r := range db.FriendRequests {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

// AcceptFriendRequest marks the request accepted. Unknown IDs are ignored.
func (s *Service) AcceptFriendRequest(id string) error {
	return s.update(func(db *models.Database) (bool, error) {
		for i := range db.FriendRequests {
			if db.FriendRequests[i].ID == id {
				db.FriendRequests[i].Status = models.FriendRequestAccepted
				return true, nil
			}
		}
		return false, nil
	})
}
