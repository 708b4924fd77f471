package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/dbx"
	"github.com/dmitrijs2005/docseal/internal/server/models"
	"github.com/dmitrijs2005/docseal/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docseal/internal/server/repositories/pending"
	"github.com/dmitrijs2005/docseal/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	createErr error
	existsErr error
	getErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byEmail: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, common.ErrConflict
	}
	cp := *u
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = time.Now()
	f.byEmail[u.Email] = &cp
	return &cp, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) Exists(ctx context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.byEmail[email]
	return ok, nil
}

type fakePendingRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.PendingRegistration
	upsertErr error
	deleteErr error
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{rows: map[string]*models.PendingRegistration{}}
}

func (f *fakePendingRepo) Upsert(ctx context.Context, p *models.PendingRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *p
	f.rows[p.Email] = &cp
	return nil
}

func (f *fakePendingRepo) Get(ctx context.Context, email string) (*models.PendingRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePendingRepo) Delete(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, email)
	return nil
}

func (f *fakePendingRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, p := range f.rows {
		if p.Expired(now) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

func (f *fakePendingRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeDocumentsRepo struct {
	mu        sync.Mutex
	docs      []*models.Document
	createErr error
	getErr    error
}

func (f *fakeDocumentsRepo) Create(ctx context.Context, d *models.Document) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := *d
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now().Add(time.Duration(len(f.docs)) * time.Second)
	f.docs = append(f.docs, &cp)
	return &cp, nil
}

func (f *fakeDocumentsRepo) ListByRecipient(ctx context.Context, recipientID string) ([]models.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.DocumentSummary, 0)
	for _, d := range f.docs {
		if d.RecipientID == recipientID {
			out = append(out, models.DocumentSummary{
				ID: d.ID, OriginalFileName: d.OriginalFileName, SenderID: d.SenderID, Size: d.Size, CreatedAt: d.CreatedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeDocumentsRepo) Get(ctx context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, d := range f.docs {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	p *fakePendingRepo
	d *fakeDocumentsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), p: newFakePendingRepo(), d: &fakeDocumentsRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository           { return m.u }
func (m *fakeRepoManager) Pending(db dbx.DBTX) pending.Repository       { return m.p }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documents.Repository   { return m.d }

type fakeSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (f *fakeSender) SendCode(ctx context.Context, to, code string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.codes == nil {
		f.codes = map[string]string{}
	}
	f.codes[to] = code
	return nil
}

func (f *fakeSender) code(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[to]
}
