// Package postgresdb provides a PostgreSQL-based implementation of the user and contact
// stores. The schema is managed by goose migrations embedded in the binary.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

const contactColumns = `id, user_id, name, email, phone, type, date`

// PostgresDB is a PostgreSQL-backed store. Every operation is a single statement;
// no multi-row transactions are needed.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type rowScanner interface {
	Scan(dest ...any) error
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table before migrating. Meant for tests.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New connects to PostgreSQL, applies the embedded migrations and returns the store.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := NewWithDB(database, connectionTimeout)

	if err := result.Ping(ctx); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w", err)
		}
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, result.database, "migrations"); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w", err)
	}

	return result, nil
}

// NewWithDB wraps an already opened connection without running migrations.
func NewWithDB(database *sql.DB, connectionTimeout time.Duration) *PostgresDB {
	return &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}
}

// CreateUser inserts a user; a duplicate email yields models.ErrUserExists.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *models.User) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (id, name, email, password, date) VALUES ($1, $2, $3, $4, $5)`,
		usr.ID,
		usr.Name,
		usr.Email,
		usr.Password,
		usr.Date,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ErrUserExists
		}
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/CreateUser(): error while `ExecContext()` calling: %w", err)
	}

	return nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return db.getUser(ctx, `SELECT id, name, email, password, date FROM users WHERE id = $1`, userID)
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, `SELECT id, name, email, password, date FROM users WHERE email = $1`, email)
}

func (db *PostgresDB) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	usr := &models.User{}
	err := db.database.QueryRowContext(ctx, query, arg).
		Scan(&usr.ID, &usr.Name, &usr.Email, &usr.Password, &usr.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/getUser(): error while `Scan()` calling: %w", err)
	}

	return usr, nil
}

func (db *PostgresDB) InsertContact(ctx context.Context, contact *models.Contact) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		contact.ID,
		contact.Owner,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Type,
		contact.Date,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/InsertContact(): error while `ExecContext()` calling: %w", err)
	}

	return nil
}

func scanContact(row rowScanner) (*models.Contact, error) {
	contact := &models.Contact{}
	err := row.Scan(
		&contact.ID,
		&contact.Owner,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.Type,
		&contact.Date,
	)
	if err != nil {
		return nil, err
	}

	return contact, nil
}

func (db *PostgresDB) GetContactByID(ctx context.Context, contactID string) (*models.Contact, error) {
	contact, err := scanContact(db.database.QueryRowContext(
		ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`,
		contactID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrContactNotFound
		}
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/GetContactByID(): error while `scanContact()` calling: %w", err)
	}

	return contact, nil
}

// GetContactsByOwner lists the owner's contacts, newest first.
func (db *PostgresDB) GetContactsByOwner(ctx context.Context, ownerID string) ([]models.Contact, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY date DESC, seq DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/GetContactsByOwner(): error while `QueryContext()` calling: %w", err)
	}
	defer rows.Close()

	result := []models.Contact{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *contact)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateContact overwrites the mutable fields. Owner and date never change.
func (db *PostgresDB) UpdateContact(ctx context.Context, contact *models.Contact) error {
	result, err := db.database.ExecContext(
		ctx,
		`UPDATE contacts SET name = $2, email = $3, phone = $4, type = $5 WHERE id = $1`,
		contact.ID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Type,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/UpdateContact(): error while `ExecContext()` calling: %w", err)
	}

	return expectOneRow(result)
}

func (db *PostgresDB) DeleteContact(ctx context.Context, contactID string) error {
	result, err := db.database.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, contactID)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/DeleteContact(): error while `ExecContext()` calling: %w", err)
	}

	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrContactNotFound
	}

	return nil
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (db *PostgresDB) GetNumberOfContacts(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM contacts`)
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return 0, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/count(): error while `Scan()` calling: %w", err)
	}

	return result, nil
}

// Ping verifies connectivity within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w", err)
	}
	return nil
}
