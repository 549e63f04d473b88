package repository

import (
	"context"
	"database/sql"
	"errors"

	"fivebyfive/internal/models"
)

const entryColumns = `id, date, type, ex1, ex1_addition, ex2, ex2_addition, ex3, ex3_addition`

// EntryRepository работает с таблицей entries.
// Порядок записей определяется только id, дата на него не влияет.
type EntryRepository struct {
	db     *sql.DB
	driver string
}

// NewEntryRepository создаёт репозиторий истории тренировок
func NewEntryRepository(db *sql.DB, driver string) *EntryRepository {
	return &EntryRepository{db: db, driver: driver}
}

// Append добавляет запись и возвращает её с присвоенным id
func (r *EntryRepository) Append(ctx context.Context, entry models.Entry) (models.Entry, error) {
	query := rebind(r.driver, `
		INSERT INTO entries (date, type, ex1, ex1_addition, ex2, ex2_addition, ex3, ex3_addition)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		entry.Date.UTC(), string(entry.Type),
		entry.Ex1, entry.Ex1Addition,
		entry.Ex2, entry.Ex2Addition,
		entry.Ex3, entry.Ex3Addition,
	).Scan(&entry.ID)
	if err != nil {
		return models.Entry{}, unavailable("inserting entry", err)
	}
	return entry, nil
}

// Latest возвращает последнюю запись или nil, если истории нет
func (r *EntryRepository) Latest(ctx context.Context) (*models.Entry, error) {
	return r.nthFromEnd(ctx, 0)
}

// SecondToLatest возвращает предпоследнюю запись или nil, если записей меньше двух
func (r *EntryRepository) SecondToLatest(ctx context.Context) (*models.Entry, error) {
	return r.nthFromEnd(ctx, 1)
}

func (r *EntryRepository) nthFromEnd(ctx context.Context, offset int) (*models.Entry, error) {
	query := rebind(r.driver, `
		SELECT `+entryColumns+`
		FROM entries
		ORDER BY id DESC
		LIMIT 1 OFFSET $1`)

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, offset))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("reading entry", err)
	}
	return entry, nil
}

// Count возвращает количество записей
func (r *EntryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, unavailable("counting entries", err)
	}
	return n, nil
}

// List возвращает всю историю в порядке добавления
func (r *EntryRepository) List(ctx context.Context) ([]models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY id`)
	if err != nil {
		return nil, unavailable("listing entries", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, unavailable("scanning entry", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating entries", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var e models.Entry
	var typ string
	err := row.Scan(
		&e.ID, &e.Date, &typ,
		&e.Ex1, &e.Ex1Addition,
		&e.Ex2, &e.Ex2Addition,
		&e.Ex3, &e.Ex3Addition,
	)
	if err != nil {
		return nil, err
	}
	if e.Type, err = models.ParseSessionType(typ); err != nil {
		return nil, err
	}
	return &e, nil
}
