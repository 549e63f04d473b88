package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"fivebyfive/internal/models"
)

// Поддерживаемые драйверы БД
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrStoreUnavailable: хранилище не ответило или не приняло запись.
// Все ошибки БД оборачиваются в неё, чтобы вызывающий мог отличить их от ошибок ввода.
var ErrStoreUnavailable = errors.New("history store unavailable")

// Store: журнал тренировок, в который можно только дописывать
type Store interface {
	Append(ctx context.Context, entry models.Entry) (models.Entry, error)
	Latest(ctx context.Context) (*models.Entry, error)
	SecondToLatest(ctx context.Context) (*models.Entry, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]models.Entry, error)
}

// Repository содержит все репозитории
type Repository struct {
	Entry *EntryRepository
}

// New создаёт новый экземпляр Repository
func New(db *sql.DB, driver string) *Repository {
	return &Repository{
		Entry: NewEntryRepository(db, driver),
	}
}

// Open открывает пул соединений и проверяет, что БД отвечает
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite не любит параллельных писателей
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s: %w", driver, err)
	}
	return db, nil
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// rebind переписывает $1, $2... в ? для SQLite
func rebind(driver, query string) string {
	if driver != DriverSQLite {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?")
}

// unavailable оборачивает ошибку БД в ErrStoreUnavailable
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
