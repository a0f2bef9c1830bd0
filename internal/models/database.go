package models

// Default bootstrap credentials for the administrator account.
const (
	DefaultAdminID       = "admin-id"
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "12345"
)

// Database is the whole persisted record: every collection, read and written as one unit.
type Database struct {
	Users          []User          `json:"users"`
	Messages       []Message       `json:"messages"`
	FriendRequests []FriendRequest `json:"friendRequests"`
}

// Bootstrap returns the seed record: a single offline administrator and empty collections.
func Bootstrap(adminUsername, adminPassword string) *Database {
	if adminUsername == "" {
		adminUsername = DefaultAdminUsername
	}
	if adminPassword == "" {
		adminPassword = DefaultAdminPassword
	}
	return &Database{
		Users: []User{{
			ID:        DefaultAdminID,
			Username:  adminUsername,
			Password:  adminPassword,
			Role:      RoleAdmin,
			CreatedAt: NowMillis(),
		}},
		Messages:       []Message{},
		FriendRequests: []FriendRequest{},
	}
}

// Normalize replaces nil collections with empty ones so that a record
// serializes identically whether it was freshly built or decoded.
func (db *Database) Normalize() {
	if db.Users == nil {
		db.Users = []User{}
	}
	if db.Messages == nil {
		db.Messages = []Message{}
	}
	if db.FriendRequests == nil {
		db.FriendRequests = []FriendRequest{}
	}
}

// FindUser returns the index of the user with the given ID, or -1.
func (db *Database) FindUser(id string) int {
	for i := range db.Users {
		if db.Users[i].ID == id {
			return i
		}
	}
	return -1
}

// Admin returns the first user with the ADMIN role.
func (db *Database) Admin() (User, bool) {
	for _, u := range db.Users {
		if u.IsAdmin() {
			return u, true
		}
	}
	return User{}, false
}
