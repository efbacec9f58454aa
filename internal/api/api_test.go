package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vertex_games/internal/config"
	"vertex_games/internal/domain"
	"vertex_games/internal/middleware"
	"vertex_games/internal/service"
	"vertex_games/internal/storage"
	"vertex_games/internal/testutil"
	"vertex_games/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type APITestSuite struct {
	suite.Suite
	router     *gin.Engine
	uploadDir  string
	adminToken string
}

func (s *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	db := testutil.OpenTestDB(s.T())
	s.uploadDir = s.T().TempDir()
	blobs, err := storage.NewLocalStore(s.uploadDir, "/uploads")
	s.Require().NoError(err)
	cache := utils.NewMemoryCache(time.Minute)

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		UploadDir:     s.uploadDir,
		CORSOrigins:   []string{"http://localhost:5173"},
		AuthRateLimit: 1000,
		AuthRateBurst: 1000,
	}
	auth := service.NewAuthService(db, cfg.JWTSecret).WithBcryptCost(bcrypt.MinCost)
	_, err = auth.ProvisionAdmin(context.Background(), "root", "rootpass")
	s.Require().NoError(err)

	s.router, err = NewRouter(Server{
		Config:  cfg,
		DB:      db,
		Auth:    auth,
		Catalog: service.NewCatalogService(db, blobs, cache),
		Reviews: service.NewReviewService(db, cache),
		Metrics: middleware.NewMetrics(),
	})
	s.Require().NoError(err)
	s.adminToken = s.login("root", "rootpass").Token
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) decode(w *httptest.ResponseRecorder, dest any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func (s *APITestSuite) login(username, password string) service.LoginResult {
	w := s.do(http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": password})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var res service.LoginResult
	s.decode(w, &res)
	return res
}

func (s *APITestSuite) register(username, password string) domain.Identity {
	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"username": username, "password": password})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		User domain.Identity `json:"user"`
	}
	s.decode(w, &res)
	return res.User
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

// multipartRequest builds a form with the given fields and, when withImage is set, an image file
func (s *APITestSuite) multipartRequest(method, path, token string, fields map[string][]string, withImage bool) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, values := range fields {
		for _, v := range values {
			s.Require().NoError(mw.WriteField(k, v))
		}
	}
	if withImage {
		fw, err := mw.CreateFormFile("image", "cover.png")
		s.Require().NoError(err)
		_, err = fw.Write(pngBytes(s.T()))
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) createGame(title string, featured bool) domain.Game {
	w := s.multipartRequest(http.MethodPost, "/games", s.adminToken, map[string][]string{
		"title":        {title},
		"description":  {"d"},
		"category":     {"VR"},
		"technologies": {"Unity", "C#"},
		"featured":     {fmt.Sprint(featured)},
	}, true)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var g domain.Game
	s.decode(w, &g)
	return g
}

func (s *APITestSuite) TestScenario() {
	alice := s.register("alice", "secret1")
	s.Equal("alice", alice.Username)
	s.Equal(domain.RoleUser, alice.Role)

	res := s.login("alice", "secret1")
	s.NotEmpty(res.Token)
	s.Equal(domain.RoleUser, res.User.Role)

	game := s.createGame("Quest", false)
	s.Equal(uint(1), game.ID)
	s.True(strings.HasPrefix(game.ImageURL, "/uploads/"))
	s.Equal([]string{"Unity", "C#"}, game.Technologies)

	w := s.do(http.MethodPost, "/reviews", res.Token, gin.H{"gameId": game.ID, "userId": alice.ID, "rating": 4})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/reviews", res.Token, gin.H{"gameId": game.ID, "userId": alice.ID, "rating": 5})
	s.Equal(http.StatusConflict, w.Code)
	s.Contains(w.Body.String(), "error")

	w = s.do(http.MethodGet, "/reviews/game/1", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var list []struct {
		Rating  int     `json:"rating"`
		Comment *string `json:"comment"`
		User    struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"user"`
	}
	s.decode(w, &list)
	s.Require().Len(list, 1)
	s.Equal(4, list[0].Rating)
	s.Nil(list[0].Comment)
	s.Equal(alice.ID, list[0].User.ID)
	s.Equal("alice", list[0].User.Username)
	s.Empty(list[0].User.Password)
	s.NotContains(w.Body.String(), "password")

	w = s.do(http.MethodGet, "/reviews/game/1/summary", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"gameId":1,"count":1,"average":4}`, w.Body.String())
}

func (s *APITestSuite) TestLoginResponseShape() {
	s.register("alice", "secret1")
	w := s.do(http.MethodPost, "/auth/login", "", gin.H{"username": "alice", "password": "secret1"})
	s.Require().Equal(http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	s.decode(w, &body)
	s.Contains(body, "access_token")
	s.Contains(body, "user")
	s.NotContains(body, "token")
}

func (s *APITestSuite) TestCreateGameTechnologiesAsJSON() {
	w := s.multipartRequest(http.MethodPost, "/games", s.adminToken, map[string][]string{
		"title":        {"Quest"},
		"description":  {"d"},
		"category":     {"VR"},
		"technologies": {`["Unity","C#, .NET"]`},
	}, true)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var g domain.Game
	s.decode(w, &g)
	s.Equal([]string{"Unity", "C#, .NET"}, g.Technologies)

	w = s.multipartRequest(http.MethodPost, "/games", s.adminToken, map[string][]string{
		"title":        {"Broken"},
		"description":  {"d"},
		"category":     {"VR"},
		"technologies": {`["Unity",`},
	}, true)
	s.Equal(http.StatusBadRequest, w.Code)

	// JSON list in a multipart patch
	w = s.multipartRequest(http.MethodPatch, fmt.Sprintf("/games/%d", g.ID), s.adminToken, map[string][]string{
		"technologies": {`["Unreal"]`},
	}, false)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var patched domain.Game
	s.decode(w, &patched)
	s.Equal([]string{"Unreal"}, patched.Technologies)
}

func TestFormListCommaSeparated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("technologies=Unity,C%23"))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	list, err := formList(c, "technologies")
	require.NoError(t, err)
	require.Equal(t, []string{"Unity", "C#"}, list)
}

func (s *APITestSuite) TestAuthErrors() {
	s.register("alice", "secret1")

	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"username": "alice", "password": "secret2"})
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/auth/register", "", gin.H{"username": "bob", "password": "123"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/register", "", gin.H{"password": "secret1"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"username": "alice", "password": "nope-nope"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.JSONEq(`{"error":"invalid credentials"}`, w.Body.String())
}

func (s *APITestSuite) TestMe() {
	s.register("alice", "secret1")
	tok := s.login("alice", "secret1").Token

	w := s.do(http.MethodGet, "/auth/me", tok, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"username":"alice"`)

	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/auth/me", "", nil).Code)
}

func (s *APITestSuite) TestGameMutationsRequireAdmin() {
	s.register("alice", "secret1")
	userToken := s.login("alice", "secret1").Token
	fields := map[string][]string{"title": {"T"}, "description": {"d"}, "category": {"VR"}}

	s.Equal(http.StatusUnauthorized, s.multipartRequest(http.MethodPost, "/games", "", fields, true).Code)
	s.Equal(http.StatusForbidden, s.multipartRequest(http.MethodPost, "/games", userToken, fields, true).Code)

	game := s.createGame("Quest", false)
	path := fmt.Sprintf("/games/%d", game.ID)
	s.Equal(http.StatusForbidden, s.do(http.MethodPatch, path, userToken, gin.H{"title": "x"}).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, path, userToken, nil).Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodDelete, path, "", nil).Code)
}

func (s *APITestSuite) TestCreateGameValidation() {
	w := s.multipartRequest(http.MethodPost, "/games", s.adminToken, map[string][]string{
		"title": {"T"}, "description": {"d"}, "category": {"VR"},
	}, false)
	s.Equal(http.StatusBadRequest, w.Code)
	s.JSONEq(`{"error":"image is required"}`, w.Body.String())

	w = s.multipartRequest(http.MethodPost, "/games", s.adminToken, map[string][]string{
		"description": {"d"}, "category": {"VR"},
	}, true)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.multipartRequest(http.MethodPost, "/games", s.adminToken, map[string][]string{
		"title": {"T"}, "description": {"d"}, "category": {"VR"}, "featured": {"maybe"},
	}, true)
	s.Equal(http.StatusBadRequest, w.Code)

	// No orphaned uploads from rejected requests
	entries, err := os.ReadDir(s.uploadDir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *APITestSuite) TestGameReads() {
	s.Equal("[]", s.do(http.MethodGet, "/games", "", nil).Body.String())

	a := s.createGame("A", true)
	b := s.createGame("B", false)

	var all []domain.Game
	s.decode(s.do(http.MethodGet, "/games", "", nil), &all)
	s.Require().Len(all, 2)
	s.Equal(b.ID, all[0].ID)

	var featured []domain.Game
	s.decode(s.do(http.MethodGet, "/games/featured", "", nil), &featured)
	s.Require().Len(featured, 1)
	s.Equal(a.ID, featured[0].ID)

	w := s.do(http.MethodGet, fmt.Sprintf("/games/%d", a.ID), "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/games/999", "", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/games/abc", "", nil).Code)

	// Uploaded image is served
	img := s.do(http.MethodGet, a.ImageURL, "", nil)
	s.Equal(http.StatusOK, img.Code)
	_, err := os.Stat(filepath.Join(s.uploadDir, filepath.Base(a.ImageURL)))
	s.NoError(err)
}

func (s *APITestSuite) TestPatchGame() {
	game := s.createGame("Old", false)
	path := fmt.Sprintf("/games/%d", game.ID)

	w := s.do(http.MethodPatch, path, s.adminToken, gin.H{"title": "New", "featured": true})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated domain.Game
	s.decode(w, &updated)
	s.Equal("New", updated.Title)
	s.True(updated.Featured)
	s.Equal("d", updated.Description)
	s.Equal([]string{"Unity", "C#"}, updated.Technologies)
	s.Equal(game.ImageURL, updated.ImageURL)

	s.Equal(http.StatusNotFound, s.do(http.MethodPatch, "/games/999", s.adminToken, gin.H{"title": "x"}).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPatch, path, s.adminToken, gin.H{"title": ""}).Code)

	// Multipart patch with a replacement image
	w = s.multipartRequest(http.MethodPatch, path, s.adminToken, map[string][]string{"category": {"AR"}}, true)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var replaced domain.Game
	s.decode(w, &replaced)
	s.Equal("AR", replaced.Category)
	s.Equal("New", replaced.Title)
	s.NotEqual(game.ImageURL, replaced.ImageURL)
	_, err := os.Stat(filepath.Join(s.uploadDir, filepath.Base(game.ImageURL)))
	s.True(os.IsNotExist(err))
}

func (s *APITestSuite) TestDeleteGameCascades() {
	alice := s.register("alice", "secret1")
	tok := s.login("alice", "secret1").Token
	game := s.createGame("Quest", false)

	w := s.do(http.MethodPost, "/reviews", tok, gin.H{"gameId": game.ID, "rating": 5, "comment": "great"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var review struct {
		ID     uint `json:"id"`
		UserID uint `json:"userId"`
	}
	s.decode(w, &review)
	s.Equal(alice.ID, review.UserID)

	path := fmt.Sprintf("/games/%d", game.ID)
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, path, s.adminToken, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, path, s.adminToken, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, "", nil).Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/reviews/game/%d", game.ID), "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("[]", w.Body.String())
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/reviews/%d", review.ID), "", nil).Code)
}

func (s *APITestSuite) TestCreateReviewErrors() {
	alice := s.register("alice", "secret1")
	bob := s.register("bob", "secret1")
	tok := s.login("alice", "secret1").Token
	game := s.createGame("Quest", false)

	// Anonymous without userId
	w := s.do(http.MethodPost, "/reviews", "", gin.H{"gameId": game.ID, "rating": 4})
	s.Equal(http.StatusBadRequest, w.Code)

	for _, rating := range []int{0, 6} {
		w = s.do(http.MethodPost, "/reviews", tok, gin.H{"gameId": game.ID, "rating": rating})
		s.Equal(http.StatusBadRequest, w.Code, "rating %d", rating)
	}
	w = s.do(http.MethodPost, "/reviews", tok, gin.H{"gameId": game.ID, "rating": 4.5})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/reviews", tok, gin.H{"gameId": game.ID, "rating": 4, "comment": "  "})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/reviews", tok, gin.H{"gameId": 999, "rating": 4})
	s.Equal(http.StatusNotFound, w.Code)

	// Cannot impersonate another user
	w = s.do(http.MethodPost, "/reviews", tok, gin.H{"gameId": game.ID, "userId": bob.ID, "rating": 4})
	s.Equal(http.StatusForbidden, w.Code)

	// Anonymous body userId is accepted
	w = s.do(http.MethodPost, "/reviews", "", gin.H{"gameId": game.ID, "userId": alice.ID, "rating": 3})
	s.Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/reviews", "bad-token", gin.H{"gameId": game.ID, "rating": 3})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestGetReview() {
	s.register("alice", "secret1")
	tok := s.login("alice", "secret1").Token
	game := s.createGame("Quest", false)
	w := s.do(http.MethodPost, "/reviews", tok, gin.H{"gameId": game.ID, "rating": 2})
	s.Require().Equal(http.StatusCreated, w.Code)
	var created struct {
		ID uint `json:"id"`
	}
	s.decode(w, &created)

	w = s.do(http.MethodGet, fmt.Sprintf("/reviews/%d", created.ID), "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var got struct {
		Rating int `json:"rating"`
		User   struct {
			Username string `json:"username"`
		} `json:"user"`
		Game struct {
			Title string `json:"title"`
		} `json:"game"`
	}
	s.decode(w, &got)
	s.Equal(2, got.Rating)
	s.Equal("alice", got.User.Username)
	s.Equal("Quest", got.Game.Title)

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/reviews/999", "", nil).Code)
}

func (s *APITestSuite) TestHealthAndMetrics() {
	w := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "vertex_games_http_requests_total")
}

func (s *APITestSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/games", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestFormBool(t *testing.T) {
	b, err := formBool("")
	require.NoError(t, err)
	require.False(t, b)
	b, err = formBool("true")
	require.NoError(t, err)
	require.True(t, b)
	_, err = formBool("yes please")
	require.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusFor(domain.KindValidation))
	require.Equal(t, http.StatusUnauthorized, statusFor(domain.KindUnauthorized))
	require.Equal(t, http.StatusForbidden, statusFor(domain.KindForbidden))
	require.Equal(t, http.StatusNotFound, statusFor(domain.KindNotFound))
	require.Equal(t, http.StatusConflict, statusFor(domain.KindConflict))
	require.Equal(t, http.StatusInternalServerError, statusFor(0))
}
