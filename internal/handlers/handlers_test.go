package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/sharestore/sharestore/internal/auth"
	"github.com/sharestore/sharestore/internal/config"
	"github.com/sharestore/sharestore/internal/middleware"
	"github.com/sharestore/sharestore/internal/models"
	"github.com/sharestore/sharestore/internal/repository"
)

const testSecret = "test-secret"

// memStore is an in-memory stand-in for the three repositories. Methods
// mirror the SQL layer's behavior, including the visibility/sharing-flag
// lockstep and cascade deletes.
type memStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*models.User
	files      map[uuid.UUID]*models.File
	shares     map[uuid.UUID]*models.Share
	recipients map[uuid.UUID]map[uuid.UUID]bool // share ID -> recipient set
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[uuid.UUID]*models.User),
		files:      make(map[uuid.UUID]*models.File),
		shares:     make(map[uuid.UUID]*models.Share),
		recipients: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *memStore) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return repository.ErrUsernameTaken
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	for fid, f := range m.files {
		if f.UserID == id {
			m.deleteFileLocked(fid)
		}
	}
	for _, set := range m.recipients {
		delete(set, id)
	}
	return nil
}

// fileStore half

type memFiles struct{ *memStore }

func (m *memFiles) Create(ctx context.Context, file *models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *file
	m.files[file.ID] = &cp
	return nil
}

func (m *memFiles) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, nil
}

func (m *memFiles) list(filter func(*models.File) bool) []models.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.File
	for _, f := range m.files {
		if filter(f) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out
}

func (m *memFiles) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.File, error) {
	return m.list(func(f *models.File) bool { return f.UserID == ownerID }), nil
}

func (m *memFiles) ListShared(ctx context.Context, ownerID uuid.UUID) ([]models.File, error) {
	return m.list(func(f *models.File) bool { return f.UserID == ownerID && f.SharingEnabled }), nil
}

func (m *memFiles) ListAccessible(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	return m.list(func(f *models.File) bool {
		if f.Visibility == models.VisibilityEveryone && f.UserID != userID {
			return true
		}
		return f.Visibility == models.VisibilityRestricted && m.isRecipientLocked(f.ID, userID)
	}), nil
}

func (m *memFiles) ListSharedWith(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	return m.list(func(f *models.File) bool {
		return f.Visibility == models.VisibilityRestricted && m.isRecipientLocked(f.ID, userID)
	}), nil
}

func (m *memFiles) SetVisibility(ctx context.Context, id uuid.UUID, v models.Visibility) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[id]; ok {
		f.Visibility = v
		f.SharingEnabled = v.Shared()
	}
	return nil
}

func (m *memFiles) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteFileLocked(id)
	return nil
}

func (m *memStore) deleteFileLocked(id uuid.UUID) {
	delete(m.files, id)
	for sid, s := range m.shares {
		if s.FileID == id {
			delete(m.shares, sid)
			delete(m.recipients, sid)
		}
	}
}

// caller must hold mu
func (m *memStore) isRecipientLocked(fileID, userID uuid.UUID) bool {
	for sid, s := range m.shares {
		if s.FileID == fileID {
			return m.recipients[sid][userID]
		}
	}
	return false
}

// shareStore half

type memShares struct{ *memStore }

func (m *memShares) GetByFileID(ctx context.Context, fileID uuid.UUID) (*models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shares {
		if s.FileID == fileID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memShares) GetOrCreate(ctx context.Context, fileID, senderID uuid.UUID) (*models.Share, error) {
	if existing, _ := m.GetByFileID(ctx, fileID); existing != nil {
		return existing, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	share := &models.Share{ID: uuid.New(), FileID: fileID, SenderID: senderID, CreatedAt: time.Now()}
	m.shares[share.ID] = share
	m.recipients[share.ID] = make(map[uuid.UUID]bool)
	cp := *share
	return &cp, nil
}

func (m *memShares) AddRecipient(ctx context.Context, shareID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recipients[shareID][userID] {
		return false, nil
	}
	m.recipients[shareID][userID] = true
	return true, nil
}

func (m *memShares) RemoveRecipient(ctx context.Context, shareID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recipients[shareID][userID] {
		return false, nil
	}
	delete(m.recipients[shareID], userID)
	return true, nil
}

func (m *memShares) RecipientIDs(ctx context.Context, fileID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for sid, s := range m.shares {
		if s.FileID == fileID {
			for id := range m.recipients[sid] {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (m *memShares) RecipientUsernames(ctx context.Context, fileID uuid.UUID) ([]string, error) {
	ids, _ := m.RecipientIDs(ctx, fileID)
	m.mu.Lock()
	defer m.mu.Unlock()
	usernames := []string{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			usernames = append(usernames, u.Username)
		}
	}
	sort.Strings(usernames)
	return usernames, nil
}

func (m *memShares) DeleteByFileID(ctx context.Context, fileID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, s := range m.shares {
		if s.FileID == fileID {
			delete(m.shares, sid)
			delete(m.recipients, sid)
		}
	}
	return nil
}

// fakeObjects is an in-memory object store.
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	putErr  error
	getErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(ctx context.Context, userID uuid.UUID, reader io.Reader, size int64, contentType string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("user_uploads/%s/%s", userID, uuid.New())
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return key, nil
}

func (f *fakeObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	data, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

// fakeRelay records relay invocations.
type fakeRelay struct {
	mu    sync.Mutex
	calls []relayCall
}

type relayCall struct {
	filename string
	payload  []byte
	uploader string
}

func (f *fakeRelay) Relay(ctx context.Context, filename string, payload []byte, uploader string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, relayCall{filename: filename, payload: payload, uploader: uploader})
}

// fakeRevoker records revoked token IDs and serves the middleware check.
type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newFakeRevoker() *fakeRevoker { return &fakeRevoker{revoked: make(map[string]bool)} }

func (f *fakeRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

// testEnv wires the handlers into a router exactly as cmd/server does,
// with fakes behind the store interfaces.
type testEnv struct {
	store   *memStore
	objects *fakeObjects
	relay   *fakeRelay
	revoker *fakeRevoker
	router  *gin.Engine
	cfg     *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		store:   newMemStore(),
		objects: newFakeObjects(),
		relay:   &fakeRelay{},
		revoker: newFakeRevoker(),
		cfg: &config.Config{
			JWTSecret:      testSecret,
			MaxFileSize:    1 << 20,
			NotifyUsername: "phil",
		},
	}

	users := env.store
	files := &memFiles{env.store}
	shares := &memShares{env.store}

	authHandler := NewAuthHandler(users, files, env.objects, env.revoker, env.cfg)
	fileHandler := NewFileHandler(files, shares, env.objects, env.relay, env.cfg.MaxFileSize)
	shareHandler := NewShareHandler(files, shares, users)

	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.Auth(env.cfg, env.revoker))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.POST("/auth/password", authHandler.ChangePassword)
		protected.DELETE("/auth/account", authHandler.DeleteAccount)

		protected.POST("/files", fileHandler.Upload)
		protected.GET("/files", fileHandler.List)
		protected.GET("/files/accessible", fileHandler.ListAccessible)
		protected.GET("/files/shared", fileHandler.ListShared)
		protected.GET("/files/shared-with-me", fileHandler.ListSharedWithMe)
		protected.GET("/files/:id", fileHandler.Get)
		protected.GET("/files/:id/download", fileHandler.Download)
		protected.DELETE("/files/:id", fileHandler.Delete)

		protected.PUT("/files/:id/permissions", shareHandler.SetPermissions)
		protected.DELETE("/files/:id/permissions", shareHandler.RevokePermission)
		protected.GET("/files/:id/recipients", shareHandler.ListRecipients)
	}

	env.router = router
	return env
}

// seedUser creates a user directly in the store with a working password.
func (env *testEnv) seedUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, env.store.Create(context.Background(), user))
	return user
}

// seedFile creates a file row and its stored object directly.
func (env *testEnv) seedFile(t *testing.T, owner *models.User, name string, v models.Visibility, content []byte) *models.File {
	t.Helper()
	key, err := env.objects.Put(context.Background(), owner.ID, bytes.NewReader(content), int64(len(content)), "application/octet-stream")
	require.NoError(t, err)
	file := &models.File{
		ID:             uuid.New(),
		UserID:         owner.ID,
		Name:           name,
		Size:           int64(len(content)),
		MimeType:       "application/octet-stream",
		StorageKey:     key,
		Visibility:     v,
		SharingEnabled: v.Shared(),
		UploadedAt:     time.Now(),
	}
	files := &memFiles{env.store}
	require.NoError(t, files.Create(context.Background(), file))
	return file
}

func (env *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := auth.NewToken(user, testSecret)
	require.NoError(t, err)
	return token
}

// request performs a JSON request, optionally authenticated as user.
func (env *testEnv) request(t *testing.T, method, path string, body interface{}, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	token := ""
	if as != nil {
		token = env.token(t, as)
	}
	return env.requestWithToken(t, method, path, body, token)
}

func (env *testEnv) requestWithToken(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// upload performs a multipart upload of named payloads as user.
func (env *testEnv) upload(t *testing.T, as *models.User, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.token(t, as))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
