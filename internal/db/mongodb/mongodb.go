// Package mongodb stores users and contacts in two MongoDB collections.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

const (
	defaultDatabaseName    = "contactkeeper"
	usersCollectionName    = "users"
	contactsCollectionName = "contacts"
	countersCollectionName = "counters"
	contactsCounterID      = "contacts"
)

// storedContact adds the insertion sequence used to order contacts sharing a date.
type storedContact struct {
	models.Contact `bson:",inline"`
	Seq            int64 `bson:"seq"`
}

type MongoDB struct {
	client            *mongo.Client
	users             *mongo.Collection
	contacts          *mongo.Collection
	counters          *mongo.Collection
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

type InitOption func(*initOptions)

// WithDBPreReset drops the database before the indexes are created. Meant for tests.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New connects to the server named by uri. The database name is taken from the URI
// path and defaults to "contactkeeper".
func New(
	ctx context.Context,
	uri string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*MongoDB, error) {
	initOpts := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(initOpts)
	}

	parsed, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `connstring.ParseAndValidate()` calling: %w", err)
	}
	databaseName := parsed.Database
	if databaseName == "" {
		databaseName = defaultDatabaseName
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctxWithTimeout, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `mongo.Connect()` calling: %w", err)
	}

	database := client.Database(databaseName)
	result := &MongoDB{
		client:            client,
		users:             database.Collection(usersCollectionName),
		contacts:          database.Collection(contactsCollectionName),
		counters:          database.Collection(countersCollectionName),
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if initOpts.DBPreReset {
		if err := database.Drop(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `database.Drop()` calling: %w", err)
		}
	}

	if err := result.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return result, nil
}

func (db *MongoDB) ensureIndexes(ctx context.Context) error {
	_, err := db.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("in internal/db/mongodb/mongodb.go/ensureIndexes(): error while `users.Indexes().CreateOne()` calling: %w", err)
	}

	_, err = db.contacts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}, {Key: "seq", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("in internal/db/mongodb/mongodb.go/ensureIndexes(): error while `contacts.Indexes().CreateOne()` calling: %w", err)
	}

	return nil
}

func (db *MongoDB) CreateUser(ctx context.Context, usr *models.User) error {
	_, err := db.users.InsertOne(ctx, usr)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrUserExists
		}
		return fmt.Errorf("in internal/db/mongodb/mongodb.go/CreateUser(): error while `users.InsertOne()` calling: %w", err)
	}

	return nil
}

func (db *MongoDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return db.findUser(ctx, bson.M{"_id": userID})
}

func (db *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.findUser(ctx, bson.M{"email": email})
}

func (db *MongoDB) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	usr := &models.User{}
	err := db.users.FindOne(ctx, filter).Decode(usr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/findUser(): error while `Decode()` calling: %w", err)
	}

	return usr, nil
}

// nextSeq atomically increments the contacts counter, so the sequence grows across
// every process sharing the database.
func (db *MongoDB) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}

	err := db.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": contactsCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("in internal/db/mongodb/mongodb.go/nextSeq(): error while `counters.FindOneAndUpdate()` calling: %w", err)
	}

	return counter.Seq, nil
}

func (db *MongoDB) InsertContact(ctx context.Context, contact *models.Contact) error {
	seq, err := db.nextSeq(ctx)
	if err != nil {
		return err
	}

	if _, err := db.contacts.InsertOne(ctx, storedContact{Contact: *contact, Seq: seq}); err != nil {
		return fmt.Errorf("in internal/db/mongodb/mongodb.go/InsertContact(): error while `contacts.InsertOne()` calling: %w", err)
	}

	return nil
}

func (db *MongoDB) GetContactByID(ctx context.Context, contactID string) (*models.Contact, error) {
	contact := &models.Contact{}
	err := db.contacts.FindOne(ctx, bson.M{"_id": contactID}).Decode(contact)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrContactNotFound
		}
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/GetContactByID(): error while `Decode()` calling: %w", err)
	}

	return contact, nil
}

// GetContactsByOwner lists the owner's contacts, newest first. Contacts sharing a date
// are ordered by insertion, later first.
func (db *MongoDB) GetContactsByOwner(ctx context.Context, ownerID string) ([]models.Contact, error) {
	cursor, err := db.contacts.Find(
		ctx,
		bson.M{"user": ownerID},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "seq", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/GetContactsByOwner(): error while `contacts.Find()` calling: %w", err)
	}

	result := []models.Contact{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/GetContactsByOwner(): error while `cursor.All()` calling: %w", err)
	}

	return result, nil
}

func (db *MongoDB) UpdateContact(ctx context.Context, contact *models.Contact) error {
	result, err := db.contacts.UpdateByID(ctx, contact.ID, bson.M{
		"$set": bson.M{
			"name":  contact.Name,
			"email": contact.Email,
			"phone": contact.Phone,
			"type":  contact.Type,
		},
	})
	if err != nil {
		return fmt.Errorf("in internal/db/mongodb/mongodb.go/UpdateContact(): error while `contacts.UpdateByID()` calling: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrContactNotFound
	}

	return nil
}

func (db *MongoDB) DeleteContact(ctx context.Context, contactID string) error {
	result, err := db.contacts.DeleteOne(ctx, bson.M{"_id": contactID})
	if err != nil {
		return fmt.Errorf("in internal/db/mongodb/mongodb.go/DeleteContact(): error while `contacts.DeleteOne()` calling: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrContactNotFound
	}

	return nil
}

func (db *MongoDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.users.CountDocuments(ctx, bson.M{})
}

func (db *MongoDB) GetNumberOfContacts(ctx context.Context) (int64, error) {
	return db.contacts.CountDocuments(ctx, bson.M{})
}

func (db *MongoDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.client.Ping(ctxWithTimeout, nil)
}

func (db *MongoDB) Close() error {
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), db.connectionTimeout)
	defer cancel()

	return db.client.Disconnect(ctxWithTimeout)
}
