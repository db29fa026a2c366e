package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

var errInjected = errors.New("injected failure")

// ---------- worksheets ----------

type memWorksheets struct {
	mu        sync.Mutex
	rows      map[domain.WorksheetID]domain.Worksheet
	createErr error
	deleteErr error
	setErr    error
}

func newMemWorksheets() *memWorksheets {
	return &memWorksheets{rows: map[domain.WorksheetID]domain.Worksheet{}}
}

func (m *memWorksheets) Close()                     {}
func (m *memWorksheets) Ping(context.Context) error { return nil }

func (m *memWorksheets) CreateWorksheet(_ context.Context, w domain.Worksheet) (domain.Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return domain.Worksheet{}, m.createErr
	}
	m.rows[w.ID] = w
	return w, nil
}

func (m *memWorksheets) WorksheetByID(_ context.Context, id domain.WorksheetID) (domain.Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.rows[id]
	if !ok {
		return domain.Worksheet{}, domain.ErrNotFound
	}
	return w, nil
}

func (m *memWorksheets) ListWorksheets(_ context.Context, f domain.ListFilter, s domain.ListSort) ([]domain.Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Worksheet
	for _, w := range m.rows {
		if f.Subject != "" && w.Subject != f.Subject {
			continue
		}
		if f.UploaderID != nil && w.UploaderID != *f.UploaderID {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(w.Title), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch s {
		case domain.SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case domain.SortMostDownloaded:
			if a.DownloadCount != b.DownloadCount {
				return a.DownloadCount > b.DownloadCount
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID.String() < b.ID.String()
	})
	if len(out) > f.EffectiveLimit() {
		out = out[:f.EffectiveLimit()]
	}
	return out, nil
}

func (m *memWorksheets) DeleteWorksheet(_ context.Context, id domain.WorksheetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memWorksheets) SetDownloadCount(_ context.Context, id domain.WorksheetID, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	w, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	w.DownloadCount = n
	m.rows[id] = w
	return nil
}

func (m *memWorksheets) UploaderStats(_ context.Context, uploader domain.UserID) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var uploads, downloads int64
	for _, w := range m.rows {
		if w.UploaderID == uploader {
			uploads++
			downloads += w.DownloadCount
		}
	}
	return uploads, downloads, nil
}

func (m *memWorksheets) SubjectCounts(context.Context) (map[domain.SubjectID]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.SubjectID]int64{}
	for _, w := range m.rows {
		out[w.Subject]++
	}
	return out, nil
}

func (m *memWorksheets) put(w domain.Worksheet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[w.ID] = w
}

func (m *memWorksheets) count(id domain.WorksheetID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].DownloadCount
}

// atomicWorksheets добавляет атомарный инкремент, как у Postgres.
type atomicWorksheets struct {
	*memWorksheets
	increments int
}

func (a *atomicWorksheets) IncrementDownloadCount(_ context.Context, id domain.WorksheetID) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.rows[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	w.DownloadCount++
	a.rows[id] = w
	a.increments++
	return w.DownloadCount, nil
}

// ---------- downloads ----------

type downloadKey struct {
	ws   domain.WorksheetID
	user domain.UserID
}

type memDownloads struct {
	mu   sync.Mutex
	rows map[downloadKey]time.Time
	err  error
}

func newMemDownloads() *memDownloads {
	return &memDownloads{rows: map[downloadKey]time.Time{}}
}

func (m *memDownloads) UpsertDownload(_ context.Context, ws domain.WorksheetID, user domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows[downloadKey{ws, user}] = time.Now()
	return nil
}

func (m *memDownloads) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ---------- permissions ----------

type memPermissions struct {
	mu      sync.Mutex
	rows    []domain.UserPermission
	lookErr error
	now     time.Time
}

func newMemPermissions() *memPermissions {
	return &memPermissions{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memPermissions) PermissionByUserID(_ context.Context, id domain.UserID) (domain.UserPermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookErr != nil {
		return domain.UserPermission{}, m.lookErr
	}
	for _, p := range m.rows {
		if p.UserID == id {
			return p, nil
		}
	}
	return domain.UserPermission{}, domain.ErrNotFound
}

func (m *memPermissions) PermissionByEmail(_ context.Context, email string) (domain.UserPermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookErr != nil {
		return domain.UserPermission{}, m.lookErr
	}
	for _, p := range m.rows {
		if p.Email == email {
			return p, nil
		}
	}
	return domain.UserPermission{}, domain.ErrNotFound
}

func (m *memPermissions) UpsertPermission(_ context.Context, p domain.UserPermission) (domain.UserPermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(time.Second)
	for i, r := range m.rows {
		if (p.UserID != uuid.Nil && r.UserID == p.UserID) || r.Email == p.Email {
			if r.UserID == uuid.Nil {
				r.UserID = p.UserID
			}
			r.Email = p.Email
			r.CanUpload = p.CanUpload
			r.GrantedBy = p.GrantedBy
			r.UpdatedAt = m.now
			m.rows[i] = r
			return r, nil
		}
	}
	p.ID = uuid.New()
	p.CreatedAt, p.UpdatedAt = m.now, m.now
	m.rows = append(m.rows, p)
	return p, nil
}

func (m *memPermissions) SetCanUpload(_ context.Context, userID domain.UserID, email string, can bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for i, r := range m.rows {
		if (userID != uuid.Nil && r.UserID == userID) || r.Email == email {
			m.rows[i].CanUpload = can
			found = true
		}
	}
	return found, nil
}

func (m *memPermissions) AttachUserID(_ context.Context, email string, userID domain.UserID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.Email == email && r.UserID == uuid.Nil {
			m.rows[i].UserID = userID
			return true, nil
		}
	}
	return false, nil
}

func (m *memPermissions) InsertPermissionIfAbsent(_ context.Context, p domain.UserPermission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == p.UserID || r.Email == p.Email {
			return false, nil
		}
	}
	m.now = m.now.Add(time.Second)
	p.ID = uuid.New()
	p.CreatedAt, p.UpdatedAt = m.now, m.now
	m.rows = append(m.rows, p)
	return true, nil
}

func (m *memPermissions) ListPermissions(context.Context) ([]domain.UserPermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.UserPermission(nil), m.rows...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---------- profiles ----------

type memProfiles struct {
	rows  []domain.Profile
	calls int
	mu    sync.Mutex
}

func (m *memProfiles) ProfileByID(_ context.Context, id domain.UserID) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, p := range m.rows {
		if p.UserID == id {
			return p, nil
		}
	}
	return domain.Profile{}, domain.ErrNotFound
}

func (m *memProfiles) ProfileByEmail(_ context.Context, email string) (domain.Profile, error) {
	for _, p := range m.rows {
		if domain.NormalizeEmail(p.Email) == email {
			return p, nil
		}
	}
	return domain.Profile{}, domain.ErrNotFound
}

func (m *memProfiles) ListProfiles(context.Context) ([]domain.Profile, error) {
	return append([]domain.Profile(nil), m.rows...), nil
}

// ---------- blobs ----------

type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	getErr    error
	deleteErr error
	urlErr    error
	deletes   []string
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: map[string][]byte{}} }

func (m *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memBlobs) Get(_ context.Context, key string) (io.ReadCloser, domain.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, domain.BlobInfo{}, m.getErr
	}
	b, ok := m.objects[key]
	if !ok {
		return nil, domain.BlobInfo{}, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), domain.BlobInfo{Size: int64(len(b))}, nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, key)
	return nil
}

func (m *memBlobs) PublicURL(_ context.Context, key string) (string, error) {
	if m.urlErr != nil {
		return "", m.urlErr
	}
	return "https://files.example.com/worksheets/" + key, nil
}

func (m *memBlobs) Ping(context.Context) error { return nil }

func (m *memBlobs) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memBlobs) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// ---------- cache ----------

type memCache struct {
	mu   sync.Mutex
	kv   map[string][]byte
	gets int
}

func newMemCache() *memCache { return &memCache{kv: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.kv[key], nil
}

func (c *memCache) Set(_ context.Context, key string, val []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv[key] = val
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.kv, k)
	}
	return nil
}

func (c *memCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(string(c.kv[key]), 10, 64)
	n++
	c.kv[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (c *memCache) Ping(context.Context) error { return nil }
func (c *memCache) Close()                     {}

// ---------- helpers ----------

const adminEmail = "Admin@Example.com"

func identity(email string) domain.Identity {
	return domain.Identity{UserID: uuid.New(), Email: email, DisplayName: strings.Split(email, "@")[0]}
}

type allowAll struct{}

func (allowAll) CanUpload(context.Context, domain.UserID, string) bool { return true }
