// Package jsondb is a small document store: users and contacts live in memory and,
// when a file name is given, are written to a JSON file after every mutation.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

// JSONDB keeps every document in Cache. The zero value is not usable; see New.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the on-disk layout.
type CacheStruct struct {
	Users    map[string]*storedUser    `json:"users"`
	Contacts map[string]*storedContact `json:"contacts"`
	Seq      int64                     `json:"seq"`
}

// storedUser keeps the password hash, which models.User hides from JSON.
type storedUser struct {
	models.User
	PasswordHash string `json:"password"`
}

func (u *storedUser) toModel() *models.User {
	result := u.User
	result.Password = u.PasswordHash

	return &result
}

// storedContact remembers insertion order so equal timestamps still list newest-first.
type storedContact struct {
	models.Contact
	Seq int64 `json:"seq"`
}

// NewCache returns an empty cache.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:    map[string]*storedUser{},
		Contacts: map[string]*storedContact{},
	}
}

// New opens (or creates) the JSON file. An empty fileName keeps everything in memory.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}
	if fileName == "" {
		return db, nil
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
		}
		if err := writeToJSONFile(fileName, db.Cache); err != nil {
			return nil, err
		}
	}
	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*storedUser{}
	}
	if db.Cache.Contacts == nil {
		db.Cache.Contacts = map[string]*storedContact{}
	}

	return db, nil
}

func writeToJSONFile(fileName string, cache CacheStruct) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	tmpName := fileName + ".tmp"
	if err := os.WriteFile(tmpName, jsonData, 0o644); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	if err := os.Rename(tmpName, fileName); err != nil {
		return fmt.Errorf("error replacing file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// persist must be called with mu held for writing.
func (db *JSONDB) persist() error {
	if db.fileName == "" {
		return nil
	}

	return writeToJSONFile(db.fileName, db.Cache)
}

// persistOrRollback writes the cache and calls rollback when the write fails, so a
// failed mutation is never visible to later reads. mu must be held for writing.
func (db *JSONDB) persistOrRollback(rollback func()) error {
	if err := db.persist(); err != nil {
		rollback()
		return err
	}

	return nil
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.Cache.Users {
		if existing.Email == usr.Email {
			return models.ErrUserExists
		}
	}

	db.Cache.Users[usr.ID] = &storedUser{
		User:         *usr,
		PasswordHash: usr.Password,
	}

	return db.persistOrRollback(func() {
		delete(db.Cache.Users, usr.ID)
	})
}

func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, ok := db.Cache.Users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}

	return usr.toModel(), nil
}

func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, usr := range db.Cache.Users {
		if usr.Email == email {
			return usr.toModel(), nil
		}
	}

	return nil, models.ErrUserNotFound
}

func (db *JSONDB) InsertContact(ctx context.Context, contact *models.Contact) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.Cache.Seq++
	db.Cache.Contacts[contact.ID] = &storedContact{
		Contact: *contact,
		Seq:     db.Cache.Seq,
	}

	return db.persistOrRollback(func() {
		delete(db.Cache.Contacts, contact.ID)
		db.Cache.Seq--
	})
}

func (db *JSONDB) GetContactByID(ctx context.Context, contactID string) (*models.Contact, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, ok := db.Cache.Contacts[contactID]
	if !ok {
		return nil, models.ErrContactNotFound
	}
	result := stored.Contact

	return &result, nil
}

// GetContactsByOwner lists the owner's contacts, newest first.
func (db *JSONDB) GetContactsByOwner(ctx context.Context, ownerID string) ([]models.Contact, error) {
	db.mu.RLock()
	owned := funk.Filter(
		funk.Values(db.Cache.Contacts),
		func(stored *storedContact) bool { return stored.Owner == ownerID },
	).([]*storedContact)
	db.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].Date.Equal(owned[j].Date) {
			return owned[i].Date.After(owned[j].Date)
		}
		return owned[i].Seq > owned[j].Seq
	})

	result := make([]models.Contact, 0, len(owned))
	for _, stored := range owned {
		result = append(result, stored.Contact)
	}

	return result, nil
}

func (db *JSONDB) UpdateContact(ctx context.Context, contact *models.Contact) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	previous, ok := db.Cache.Contacts[contact.ID]
	if !ok {
		return models.ErrContactNotFound
	}

	// Stored entries are replaced, never modified, so readers holding a pointer from
	// GetContactsByOwner keep a consistent copy.
	db.Cache.Contacts[contact.ID] = &storedContact{
		Contact: *contact,
		Seq:     previous.Seq,
	}

	return db.persistOrRollback(func() {
		db.Cache.Contacts[contact.ID] = previous
	})
}

func (db *JSONDB) DeleteContact(ctx context.Context, contactID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	previous, ok := db.Cache.Contacts[contactID]
	if !ok {
		return models.ErrContactNotFound
	}
	delete(db.Cache.Contacts, contactID)

	return db.persistOrRollback(func() {
		db.Cache.Contacts[contactID] = previous
	})
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) GetNumberOfContacts(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Contacts)), nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.persist()
}
