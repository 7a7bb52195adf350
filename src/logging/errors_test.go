package logging

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, true},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, true},
		{"mysql syntax", &mysql.MySQLError{Number: 1064}, false},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, true},
		{"pg unique", &pgconn.PgError{Code: "23505"}, false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"plain", errors.New("record not found"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !IsDuplicateKey(&mysql.MySQLError{Number: 1062}) {
		t.Fatal("mysql 1062 is a duplicate")
	}
	if !IsDuplicateKey(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("pg 23505 is a duplicate")
	}
	if !IsDuplicateKey(errors.New("UNIQUE constraint failed: submissions.gig_id")) {
		t.Fatal("sqlite unique constraint is a duplicate")
	}
	if IsDuplicateKey(errors.New("no such table")) || IsDuplicateKey(nil) {
		t.Fatal("unexpected duplicate")
	}
}
