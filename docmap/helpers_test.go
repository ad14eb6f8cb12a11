package docmap

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/docmap/docmap/docmap/storage/postgres"
	"github.com/docmap/docmap/docmap/storage/sqlite"
)

type Status int

const (
	Active Status = iota
	Inactive
)

func (s Status) String() string {
	switch s {
	case Active:
		return "Active"
	case Inactive:
		return "Inactive"
	default:
		return "Unknown"
	}
}

type Address struct {
	City   string
	Street string
}

type User struct {
	Id       string
	Name     string
	Age      int
	Active   bool
	Address  Address
	Status   Status
	Joined   time.Time
	FullName string `json:"-"`
}

type Order struct {
	Id       int64
	Customer string
	Total    float64
}

type Ticket struct {
	Id    uuid.UUID
	Title string
}

func userMapping() *MappingBuilder[User] {
	return For[User]().
		StringID("Id", func(u *User) string { return u.Id }, func(u *User, id string) { u.Id = id }).
		Searchable("Name", KindString).
		Searchable("Age", KindInt).
		Searchable("Active", KindBool).
		Searchable("Address.City", KindString).
		Enum("Status", "Active", "Inactive").
		Computed("FullName")
}

func orderMapping() *MappingBuilder[Order] {
	return For[Order]().
		Int64ID("Id", func(o *Order) int64 { return o.Id }, func(o *Order, id int64) { o.Id = id }).
		Duplicate("Customer", KindString).
		Searchable("Total", KindFloat).
		Index("Customer")
}

func ticketMapping() *MappingBuilder[Ticket] {
	return For[Ticket]().
		UUIDID("Id", func(t *Ticket) uuid.UUID { return t.Id }, func(t *Ticket, id uuid.UUID) { t.Id = id }).
		Searchable("Title", KindString)
}

// recordingLogger keeps the DDL statements the schema executes.
type recordingLogger struct {
	NopLogger
	mu  sync.Mutex
	ddl []string
}

func (l *recordingLogger) InfoCtx(_ context.Context, msg string, args ...any) {
	if msg != "ddl" {
		return
	}
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == "sql" {
			l.mu.Lock()
			l.ddl = append(l.ddl, args[i+1].(string))
			l.mu.Unlock()
		}
	}
}

func (l *recordingLogger) statements() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ddl...)
}

// openSQLite opens a connected schema on a fresh database file.
func openSQLite(t *testing.T, configure func(*StoreOptions), regs ...Registration) (*DocumentSchema, *recordingLogger) {
	t.Helper()
	return openSQLiteAt(t, filepath.Join(t.TempDir(), "docmap.db"), configure, regs...)
}

func openSQLiteAt(t *testing.T, path string, configure func(*StoreOptions), regs ...Registration) (*DocumentSchema, *recordingLogger) {
	t.Helper()
	log := &recordingLogger{}
	opts := DefaultStoreOptions()
	opts.Logger = log
	if configure != nil {
		configure(&opts)
	}
	s, err := Open(context.Background(), sqlite.New(path), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Register(regs...))
	return s, log
}

// offlinePostgres builds a schema that renders Postgres SQL without a server.
func offlinePostgres(t *testing.T, configure func(*StoreOptions), regs ...Registration) *DocumentSchema {
	t.Helper()
	opts := DefaultStoreOptions()
	if configure != nil {
		configure(&opts)
	}
	s, err := NewDocumentSchema(postgres.New("postgres://unused", "public"), opts)
	require.NoError(t, err)
	require.NoError(t, s.Register(regs...))
	return s
}
