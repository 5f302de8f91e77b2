package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/pkg/auth"
	"github.com/farmlink/farmlink/pkg/config"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		Auth: config.AuthConfig{
			Secret:            "test-secret",
			AccessTTL:         time.Hour,
			RefreshTTL:        24 * time.Hour,
			MinPasswordLength: 8,
		},
		Uploads: config.UploadsConfig{
			Dir:           t.TempDir(),
			MaxImageSize:  1200,
			MaxAvatarSize: 512,
		},
	}

	tokens := auth.NewTokenIssuer(&cfg.Auth)
	router := NewRouter(&db.DB{DB: gdb}, nil, tokens, cfg)

	engine := gin.New()
	router.SetupRoutes(engine)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}

func registerUser(t *testing.T, engine *gin.Engine, username string) (string, string) {
	t.Helper()

	w, resp := doJSON(t, engine, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "passw0rd1",
		"user_type": "farmer",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Register returned %d: %v", w.Code, resp)
	}

	token, _ := resp["access_token"].(string)
	user, _ := resp["user"].(map[string]interface{})
	publicID, _ := user["public_id"].(string)
	if token == "" || publicID == "" {
		t.Fatalf("Register response missing token or public_id: %v", resp)
	}
	return token, publicID
}

func TestRegisterLoginMe(t *testing.T) {
	engine := newTestServer(t)

	token, _ := registerUser(t, engine, "alice")

	w, resp := doJSON(t, engine, http.MethodGet, "/api/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Me returned %d: %v", w.Code, resp)
	}
	user, _ := resp["user"].(map[string]interface{})
	if user["username"] != "alice" {
		t.Errorf("Me returned username %v, want alice", user["username"])
	}
	if _, exposed := user["password_hash"]; exposed {
		t.Error("Me response exposes password hash")
	}

	w, resp = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "passw0rd1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Login returned %d: %v", w.Code, resp)
	}
	if resp["access_token"] == "" || resp["refresh_token"] == "" {
		t.Errorf("Login response missing tokens: %v", resp)
	}
}

func TestRegisterValidation(t *testing.T) {
	engine := newTestServer(t)
	registerUser(t, engine, "alice")

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{
			name: "missing username",
			body: gin.H{"email": "x@example.com", "password": "passw0rd1", "user_type": "farmer"},
			want: http.StatusBadRequest,
		},
		{
			name: "invalid email",
			body: gin.H{"username": "bob", "email": "not-an-email", "password": "passw0rd1", "user_type": "farmer"},
			want: http.StatusBadRequest,
		},
		{
			name: "weak password",
			body: gin.H{"username": "bob", "email": "bob@example.com", "password": "short", "user_type": "farmer"},
			want: http.StatusBadRequest,
		},
		{
			name: "duplicate email",
			body: gin.H{"username": "bob", "email": "alice@example.com", "password": "passw0rd1", "user_type": "farmer"},
			want: http.StatusConflict,
		},
		{
			name: "duplicate username",
			body: gin.H{"username": "alice", "email": "bob@example.com", "password": "passw0rd1", "user_type": "farmer"},
			want: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := doJSON(t, engine, http.MethodPost, "/api/auth/register", "", tt.body)
			if w.Code != tt.want {
				t.Errorf("Register returned %d, want %d: %v", w.Code, tt.want, resp)
			}
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	engine := newTestServer(t)
	registerUser(t, engine, "alice")

	w, _ := doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrongpass1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Login with wrong password returned %d, want 401", w.Code)
	}

	w, _ = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "nobody@example.com",
		"password": "passw0rd1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Login with unknown email returned %d, want 401", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	engine := newTestServer(t)

	w, _ := doJSON(t, engine, http.MethodGet, "/api/auth/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Missing token returned %d, want 401", w.Code)
	}

	w, _ = doJSON(t, engine, http.MethodGet, "/api/auth/me", "garbage-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Invalid token returned %d, want 401", w.Code)
	}

	// A refresh token must not pass the access-token middleware.
	registerUser(t, engine, "alice")
	w, resp := doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "passw0rd1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Login returned %d", w.Code)
	}
	refresh, _ := resp["refresh_token"].(string)

	w, _ = doJSON(t, engine, http.MethodGet, "/api/auth/me", refresh, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Refresh token on access route returned %d, want 401", w.Code)
	}

	w, resp = doJSON(t, engine, http.MethodPost, "/api/auth/refresh", refresh, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Refresh returned %d: %v", w.Code, resp)
	}
	if resp["access_token"] == "" {
		t.Error("Refresh response missing access token")
	}
}

func TestRequestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	engine := newTestServer(t)

	w, _ := doJSON(t, engine, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Health returned %d", w.Code)
	}

	var found bool
	for _, span := range recorder.Ended() {
		if span.Name() == "GET /health" {
			found = true
		}
	}
	if !found {
		t.Error("No span recorded for GET /health")
	}
}

func TestFollowToggleAndSelfFollow(t *testing.T) {
	engine := newTestServer(t)

	aliceToken, alicePublicID := registerUser(t, engine, "alice")
	_, bobPublicID := registerUser(t, engine, "bob")

	w, resp := doJSON(t, engine, http.MethodPost, "/api/follows/"+alicePublicID+"/follow", aliceToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Self-follow returned %d, want 400: %v", w.Code, resp)
	}

	w, resp = doJSON(t, engine, http.MethodPost, "/api/follows/"+bobPublicID+"/follow", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Follow returned %d: %v", w.Code, resp)
	}
	if resp["is_following"] != true {
		t.Errorf("First toggle is_following = %v, want true", resp["is_following"])
	}
	if resp["follower_count"] != float64(1) {
		t.Errorf("Follower count = %v, want 1", resp["follower_count"])
	}

	w, resp = doJSON(t, engine, http.MethodPost, "/api/follows/"+bobPublicID+"/follow", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Unfollow returned %d: %v", w.Code, resp)
	}
	if resp["is_following"] != false {
		t.Errorf("Second toggle is_following = %v, want false", resp["is_following"])
	}
	if resp["follower_count"] != float64(0) {
		t.Errorf("Follower count after unfollow = %v, want 0", resp["follower_count"])
	}

	w, _ = doJSON(t, engine, http.MethodPost, "/api/follows/no-such-user/follow", aliceToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Follow of unknown user returned %d, want 404", w.Code)
	}
}

func TestMessageFlow(t *testing.T) {
	engine := newTestServer(t)

	aliceToken, alicePublicID := registerUser(t, engine, "alice")
	bobToken, bobPublicID := registerUser(t, engine, "bob")

	w, resp := doJSON(t, engine, http.MethodPost, "/api/messages/send", aliceToken, gin.H{
		"receiver_id": alicePublicID,
		"content":     "note to self",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Self-message returned %d, want 400: %v", w.Code, resp)
	}

	w, resp = doJSON(t, engine, http.MethodPost, "/api/messages/send", aliceToken, gin.H{
		"receiver_id": bobPublicID,
		"content":     "hello bob",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Send returned %d: %v", w.Code, resp)
	}

	w, resp = doJSON(t, engine, http.MethodGet, "/api/messages/unread/count", bobToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Unread count returned %d", w.Code)
	}
	if resp["unread_count"] != float64(1) {
		t.Errorf("Unread count = %v, want 1", resp["unread_count"])
	}

	// Reading the thread marks the incoming message read.
	w, resp = doJSON(t, engine, http.MethodGet, "/api/messages/user/"+alicePublicID, bobToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("List messages returned %d: %v", w.Code, resp)
	}
	messages, _ := resp["messages"].([]interface{})
	if len(messages) != 1 {
		t.Fatalf("Got %d messages, want 1", len(messages))
	}

	w, resp = doJSON(t, engine, http.MethodGet, "/api/messages/unread/count", bobToken, nil)
	if resp["unread_count"] != float64(0) {
		t.Errorf("Unread count after reading = %v, want 0", resp["unread_count"])
	}

	w, resp = doJSON(t, engine, http.MethodGet, "/api/messages/conversations", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Conversations returned %d: %v", w.Code, resp)
	}
	conversations, _ := resp["conversations"].([]interface{})
	if len(conversations) != 1 {
		t.Fatalf("Got %d conversations, want 1", len(conversations))
	}
}

func TestCommentAndLikeFlow(t *testing.T) {
	engine := newTestServer(t)

	aliceToken, _ := registerUser(t, engine, "alice")
	bobToken, _ := registerUser(t, engine, "bob")

	form := "title=Crop rotation&content=Alternating legumes and grains&category=farming&tags=soil, rotation"
	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewBufferString(form))
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create post returned %d: %s", w.Code, w.Body.String())
	}
	var created map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode create response: %v", err)
	}
	post, _ := created["post"].(map[string]interface{})
	postID, _ := post["public_id"].(string)
	if postID == "" {
		t.Fatalf("Create post response missing public_id: %v", created)
	}
	tags, _ := post["tags"].([]interface{})
	if len(tags) != 2 || tags[0] != "soil" || tags[1] != "rotation" {
		t.Errorf("Tags = %v, want [soil rotation]", tags)
	}

	wr, resp := doJSON(t, engine, http.MethodPost, "/api/posts/"+postID+"/like", bobToken, nil)
	if wr.Code != http.StatusOK {
		t.Fatalf("Like returned %d: %v", wr.Code, resp)
	}
	if resp["is_liked"] != true || resp["like_count"] != float64(1) {
		t.Errorf("Like response = %v, want is_liked true like_count 1", resp)
	}

	wr, resp = doJSON(t, engine, http.MethodPost, "/api/posts/"+postID+"/like", bobToken, nil)
	if resp["is_liked"] != false || resp["like_count"] != float64(0) {
		t.Errorf("Unlike response = %v, want is_liked false like_count 0", resp)
	}

	wr, resp = doJSON(t, engine, http.MethodPost, "/api/comments/post/"+postID, bobToken, gin.H{
		"content": "Great writeup",
	})
	if wr.Code != http.StatusCreated {
		t.Fatalf("Comment returned %d: %v", wr.Code, resp)
	}

	wr, resp = doJSON(t, engine, http.MethodGet, "/api/posts/"+postID, "", nil)
	if wr.Code != http.StatusOK {
		t.Fatalf("Get post returned %d", wr.Code)
	}
	fetched, _ := resp["post"].(map[string]interface{})
	if fetched["comment_count"] != float64(1) {
		t.Errorf("Comment count = %v, want 1", fetched["comment_count"])
	}

	// Bob cannot delete Alice's post.
	wr, _ = doJSON(t, engine, http.MethodDelete, "/api/posts/"+postID, bobToken, nil)
	if wr.Code != http.StatusForbidden {
		t.Errorf("Delete by non-owner returned %d, want 403", wr.Code)
	}

	wr, _ = doJSON(t, engine, http.MethodDelete, "/api/posts/"+postID, aliceToken, nil)
	if wr.Code != http.StatusOK {
		t.Errorf("Delete by owner returned %d, want 200", wr.Code)
	}
}

func TestCommunityFlow(t *testing.T) {
	engine := newTestServer(t)

	aliceToken, _ := registerUser(t, engine, "alice")
	bobToken, _ := registerUser(t, engine, "bob")

	createCommunity := func(form string) map[string]interface{} {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/api/communities", bytes.NewBufferString(form))
		req.Header.Set("Authorization", "Bearer "+aliceToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("Create community returned %d: %s", w.Code, w.Body.String())
		}
		var created map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
			t.Fatalf("Failed to decode create response: %v", err)
		}
		community, _ := created["community"].(map[string]interface{})
		return community
	}

	community := createCommunity("name=Organic Growers&description=Tips for organic farming&category=organic")
	createCommunity("name=Dairy Collective&category=livestock")
	communityID, _ := community["public_id"].(string)
	if community["member_count"] != float64(1) {
		t.Errorf("Member count after create = %v, want 1 (admin enrolled)", community["member_count"])
	}

	wr, resp := doJSON(t, engine, http.MethodPost, "/api/communities/"+communityID+"/join", bobToken, nil)
	if wr.Code != http.StatusOK {
		t.Fatalf("Join returned %d: %v", wr.Code, resp)
	}
	if resp["is_member"] != true || resp["member_count"] != float64(2) {
		t.Errorf("Join response = %v, want is_member true member_count 2", resp)
	}

	wr, resp = doJSON(t, engine, http.MethodPost, "/api/communities/"+communityID+"/join", bobToken, nil)
	if resp["is_member"] != false || resp["member_count"] != float64(1) {
		t.Errorf("Leave response = %v, want is_member false member_count 1", resp)
	}

	wr, resp = doJSON(t, engine, http.MethodGet, "/api/communities?search=organic", "", nil)
	if wr.Code != http.StatusOK {
		t.Fatalf("List communities returned %d", wr.Code)
	}
	listed, _ := resp["communities"].([]interface{})
	if len(listed) != 1 {
		t.Errorf("Search matched %d communities, want 1", len(listed))
	}

	// Category filters by exact match.
	wr, resp = doJSON(t, engine, http.MethodGet, "/api/communities?category=livestock", "", nil)
	if wr.Code != http.StatusOK {
		t.Fatalf("List communities returned %d", wr.Code)
	}
	listed, _ = resp["communities"].([]interface{})
	if len(listed) != 1 {
		t.Fatalf("Category filter matched %d communities, want 1", len(listed))
	}
	match, _ := listed[0].(map[string]interface{})
	if match["name"] != "Dairy Collective" || match["category"] != "livestock" {
		t.Errorf("Category filter returned %v, want Dairy Collective/livestock", match)
	}
}
