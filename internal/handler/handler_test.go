package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cloudvault/internal/auth"
	"cloudvault/internal/domain"
	"cloudvault/internal/service"
	"cloudvault/internal/storage"
)

type memUsers struct {
	users map[string]*domain.User
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}
	return u, nil
}

func (m *memUsers) FindIDByUsername(_ context.Context, username string) (int64, error) {
	u, ok := m.users[username]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}
	return u.ID, nil
}

type memCatalog struct {
	mu      sync.Mutex
	nextID  int64
	owners  map[string]int64
	records []*domain.FileInfo
}

func (c *memCatalog) findLiveLocked(ownerID int64, filename string) *domain.FileInfo {
	for _, rec := range c.records {
		if rec.OwnerID == ownerID && rec.Filename == filename && rec.DeletedAt == nil {
			return rec
		}
	}
	return nil
}

func (c *memCatalog) FindLive(_ context.Context, owner, filename string) (*domain.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.findLiveLocked(c.owners[owner], filename)
	if rec == nil {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (c *memCatalog) ListLive(_ context.Context, owner string, limit int) ([]domain.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.FileInfo
	for _, rec := range c.records {
		if rec.OwnerID == c.owners[owner] && rec.DeletedAt == nil {
			out = append(out, *rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (c *memCatalog) ListAll(_ context.Context, owner string) ([]domain.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.FileInfo
	for _, rec := range c.records {
		if rec.OwnerID == c.owners[owner] {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (c *memCatalog) MarkDeleted(_ context.Context, owner, filename string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var affected int64
	now := time.Now()
	for _, rec := range c.records {
		if rec.OwnerID == c.owners[owner] && rec.Filename == filename && rec.DeletedAt == nil {
			deletedAt := now
			rec.DeletedAt = &deletedAt
			affected++
		}
	}
	return affected, nil
}

func (c *memCatalog) Rename(_ context.Context, owner, oldName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ownerID := c.owners[owner]
	rec := c.findLiveLocked(ownerID, oldName)
	if rec == nil {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, oldName)
	}
	if c.findLiveLocked(ownerID, newName) != nil {
		return fmt.Errorf("%w: %s", domain.ErrFileAlreadyExists, newName)
	}
	rec.Filename = newName
	return nil
}

func (c *memCatalog) Insert(_ context.Context, info *domain.FileInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	info.ID = c.nextID
	info.CreatedAt = time.Now()
	cp := *info
	c.records = append(c.records, &cp)
	return nil
}

type memTokenRegistry struct {
	mu     sync.Mutex
	tokens map[string]*domain.RegisteredToken
}

func (r *memTokenRegistry) Save(_ context.Context, token *domain.RegisteredToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = token
	return nil
}

func (r *memTokenRegistry) Exists(_ context.Context, tokenValue string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[tokenValue]
	return ok, nil
}

func (r *memTokenRegistry) DeleteByLoginAndToken(_ context.Context, login, tokenValue string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[tokenValue]; ok && t.Login == login {
		delete(r.tokens, tokenValue)
	}
	return nil
}

// newTestServer собирает приложение так же, как main, но с хранилищем
// во временном каталоге и каталогом в памяти.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &memUsers{users: map[string]*domain.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: string(hash), Enabled: true, Authorities: []string{"files:read", "files:write"}},
	}}
	catalog := &memCatalog{owners: map[string]int64{"alice": 1}}
	registry := &memTokenRegistry{tokens: make(map[string]*domain.RegisteredToken)}

	blobs, err := storage.NewFileSystemStorage(t.TempDir())
	require.NoError(t, err)

	codec, err := auth.NewJWTCodec([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	registrar := service.NewTokenRegistrar(codec, registry)
	introspector := auth.NewIntrospector(registrar, codec)
	loginService := service.NewLoginService(users, registrar)
	fileService := service.NewFileService(users, catalog, blobs)

	loginHandler := NewLoginHandler(loginService, "Authorization")
	fileHandler := NewFileHandler(fileService)

	r := chi.NewRouter()
	r.Post("/login", loginHandler.Login)
	r.Group(func(r chi.Router) {
		r.Use(Authenticator(introspector, "Authorization"))
		r.Post("/logout", loginHandler.Logout)
		r.Get("/list", fileHandler.List)
		r.Route("/file", func(r chi.Router) {
			r.Get("/", fileHandler.Download)
			r.Post("/", fileHandler.Upload)
			r.Put("/", fileHandler.Rename)
			r.Delete("/", fileHandler.Delete)
		})
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func doLogin(t *testing.T, ts *httptest.Server, login, password string) (*http.Response, string) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"login": login, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp, ""
	}

	var parsed map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp, parsed["auth-token"]
}

func doRequest(t *testing.T, method, url, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func uploadFile(t *testing.T, ts *httptest.Server, token, filename, hash string, data []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	url := ts.URL + "/file?filename=" + filename
	if hash != "" {
		url += "&hash=" + hash
	}
	return doRequest(t, http.MethodPost, url, token, &buf, mw.FormDataContentType())
}

func listFiles(t *testing.T, ts *httptest.Server, token string) (*http.Response, []fileInfoResponse) {
	t.Helper()

	resp := doRequest(t, http.MethodGet, ts.URL+"/list", token, nil, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	var infos []fileInfoResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	return resp, infos
}

func TestEndToEndScenario(t *testing.T) {
	ts := newTestServer(t)

	// Вход
	resp, token := doLogin(t, ts, "alice", "s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, token)

	// Загрузка 18 байт без хеша
	payload := []byte("eighteen bytes....")
	require.Len(t, payload, 18)
	resp = uploadFile(t, ts, token, "x.dat", "", payload)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, infos := listFiles(t, ts, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []fileInfoResponse{{Filename: "x.dat", Size: 18}}, infos)

	// Переименование
	body, _ := json.Marshal(renameRequest{Filename: "y.dat"})
	resp = doRequest(t, http.MethodPut, ts.URL+"/file?filename=x.dat", token, bytes.NewReader(body), "application/json")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, infos = listFiles(t, ts, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []fileInfoResponse{{Filename: "y.dat", Size: 18}}, infos)

	// Удаление
	resp = doRequest(t, http.MethodDelete, ts.URL+"/file?filename=y.dat", token, nil, "")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, infos = listFiles(t, ts, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, infos)

	// Выход: токен отозван, повторный запрос не проходит
	resp = doRequest(t, http.MethodPost, ts.URL+"/logout", token, nil, "")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = listFiles(t, ts, token)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doLogin(t, ts, "alice", "wrong-password")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Неизвестный пользователь неотличим от неверного пароля
	resp, _ = doLogin(t, ts, "mallory", "s3cret")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin_Validation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doLogin(t, ts, "ab", "s3cret")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doLogin(t, ts, "alice", "ab")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/list", "", nil, "")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/list", "garbage-token", nil, "")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestList_InvalidLimit(t *testing.T) {
	ts := newTestServer(t)

	_, token := doLogin(t, ts, "alice", "s3cret")

	for _, limit := range []string{"0", "-1", "abc"} {
		resp := doRequest(t, http.MethodGet, ts.URL+"/list?limit="+limit, token, nil, "")
		resp.Body.Close()
		require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "limit=%s", limit)
	}
}

func TestDownload_MultipartBody(t *testing.T) {
	ts := newTestServer(t)

	_, token := doLogin(t, ts, "alice", "s3cret")

	payload := []byte("file content here")
	resp := uploadFile(t, ts, token, "doc.txt", "cafebabe", payload)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/file?filename=doc.txt", token, nil, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	parts := map[string][]byte{}
	mr := multipart.NewReader(resp.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		parts[part.FormName()] = data
	}

	require.Equal(t, payload, parts["file"])
	// Переданный при загрузке хеш возвращается как есть
	require.Equal(t, []byte("cafebabe"), parts["hash"])
}

func TestDownload_Missing(t *testing.T) {
	ts := newTestServer(t)

	_, token := doLogin(t, ts, "alice", "s3cret")

	resp := doRequest(t, http.MethodGet, ts.URL+"/file?filename=ghost.txt", token, nil, "")
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFile_FilenameValidation(t *testing.T) {
	ts := newTestServer(t)

	_, token := doLogin(t, ts, "alice", "s3cret")

	for _, bad := range []string{"", "a/b.txt", `a\b`, "a:b", "a*b", "a?b", "a<b", "a>b", "a|b"} {
		resp := doRequest(t, http.MethodGet, ts.URL+"/file?filename="+url.QueryEscape(bad), token, nil, "")
		resp.Body.Close()
		require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "filename=%q", bad)
	}
}

func TestRename_Conflict(t *testing.T) {
	ts := newTestServer(t)

	_, token := doLogin(t, ts, "alice", "s3cret")

	resp := uploadFile(t, ts, token, "a.txt", "", []byte("aa"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = uploadFile(t, ts, token, "b.txt", "", []byte("bb"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := json.Marshal(renameRequest{Filename: "b.txt"})
	resp = doRequest(t, http.MethodPut, ts.URL+"/file?filename=a.txt", token, bytes.NewReader(body), "application/json")
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpload_Supersedes(t *testing.T) {
	ts := newTestServer(t)

	_, token := doLogin(t, ts, "alice", "s3cret")

	resp := uploadFile(t, ts, token, "x.dat", "", []byte("version one"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = uploadFile(t, ts, token, "x.dat", "", []byte("v2"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, infos := listFiles(t, ts, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []fileInfoResponse{{Filename: "x.dat", Size: 2}}, infos)
}

func TestErrorResponseShape(t *testing.T) {
	ts := newTestServer(t)

	fetchError := func() ErrorResponse {
		body, err := json.Marshal(map[string]string{"login": "alice", "password": "wrong-password"})
		require.NoError(t, err)

		resp, err := http.Post(ts.URL+"/login", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var parsed ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
		return parsed
	}

	first := fetchError()
	second := fetchError()

	require.NotEmpty(t, first.Message)
	// Идентификаторы ошибок монотонно растут
	require.Greater(t, second.ID, first.ID)
}
