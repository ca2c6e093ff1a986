// Package repository is the Postgres data access layer of the portal.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrNotFound     = errors.New("RESOURCE_NOT_FOUND")
	ErrDuplicate    = errors.New("DUPLICATE_RECORD")
	ErrStaleStatus  = errors.New("STALE_STATUS")
	ErrCourtBooked  = errors.New("COURT_CONFLICT")
	ErrQueryFailed  = errors.New("QUERY_EXECUTION_FAILED")
	ErrInsertFailed = errors.New("DATABASE_INSERT_FAILED")
)

const uniqueViolation = "23505"

// Repository owns every table of the portal schema.
type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *sql.DB { return r.db }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func wrapInsert(err error, what string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s already exists", ErrDuplicate, what)
	}
	return fmt.Errorf("%w: insert %s: %v", ErrInsertFailed, what, err)
}

func expectOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrQueryFailed, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
	}
	return nil
}

// where accumulates positional predicates.
type where struct {
	clauses []string
	args    []interface{}
}

// add appends a clause whose placeholders are written as $%[1]d.
func (w *where) add(clause string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}
