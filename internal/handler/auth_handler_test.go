package handler

import (
	"net/http"
	"testing"

	"coffeeshop-service/internal/model"
	"coffeeshop-service/internal/testutil"
	"coffeeshop-service/pkg/jwtutil"

	"gorm.io/gorm"
)

func TestRegister_CreatesUser(t *testing.T) {
	testutil.OpenTestDB(t)
	testutil.InitTestJWT(t)

	c, rec := newJSONContext(t, http.MethodPost,
		`{"username":"alice","email":"alice@example.com","password":"secret1","role":"user"}`)
	if err := Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)

	body := decodeBody(t, rec)
	if body["message"] != "User created successfully" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	user, ok := body["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected user in response, got %v", body)
	}
	if user["role"] != "USER" {
		t.Fatalf("role not normalized, got %v", user["role"])
	}
	if _, leaked := user["password"]; leaked {
		t.Fatalf("password leaked in response")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	testutil.OpenTestDB(t)
	testutil.InitTestJWT(t)
	seedUser(t, "alice", "secret1", model.RoleUser)

	c, rec := newJSONContext(t, http.MethodPost,
		`{"username":"alice","password":"another1"}`)
	if err := Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	expectStatus(t, rec, http.StatusConflict)
}

func TestRegister_ConcurrentDuplicateMapsToConflict(t *testing.T) {
	db := testutil.OpenTestDB(t)
	testutil.InitTestJWT(t)

	// Simulate a registration racing past the duplicate pre-check: the
	// conflicting row is inserted just before the handler's own insert, so
	// the unique username index is what reports the duplicate.
	hooked := false
	err := db.Callback().Create().Before("gorm:create").Register("conflicting_registration", func(tx *gorm.DB) {
		if hooked {
			return
		}
		if _, ok := tx.Statement.Dest.(*model.User); !ok {
			return
		}
		hooked = true
		conflicting := model.User{Username: "eve", Password: "x", Role: model.RoleUser}
		if err := db.Create(&conflicting).Error; err != nil {
			t.Errorf("insert conflicting user: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register create hook: %v", err)
	}

	c, rec := newJSONContext(t, http.MethodPost,
		`{"username":"eve","password":"secret1"}`)
	if err := Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	expectStatus(t, rec, http.StatusConflict)
	if decodeBody(t, rec)["error"] != "User with this username already exists" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRegister_MissingPassword(t *testing.T) {
	testutil.OpenTestDB(t)
	testutil.InitTestJWT(t)

	c, rec := newJSONContext(t, http.MethodPost, `{"username":"bob"}`)
	if err := Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestLogin_RoundTripTokenCarriesRole(t *testing.T) {
	testutil.OpenTestDB(t)
	testutil.InitTestJWT(t)
	user := seedUser(t, "carol", "secret1", model.RoleAdmin)

	c, rec := newJSONContext(t, http.MethodPost,
		`{"username":"carol","password":"secret1"}`)
	if err := Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	if body["role"] != model.RoleAdmin {
		t.Fatalf("expected role in response, got %v", body["role"])
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("expected token in response")
	}

	claims, err := jwtutil.ValidateToken(token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != model.RoleAdmin {
		t.Fatalf("token claims mismatch: %+v", claims)
	}
}

func TestLogin_UniformErrorForBadCredentials(t *testing.T) {
	testutil.OpenTestDB(t)
	testutil.InitTestJWT(t)
	seedUser(t, "dave", "secret1", model.RoleUser)

	// Wrong password
	c, rec := newJSONContext(t, http.MethodPost,
		`{"username":"dave","password":"wrong"}`)
	if err := Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	expectStatus(t, rec, http.StatusBadRequest)
	wrongPassword := decodeBody(t, rec)["error"]

	// Nonexistent username
	c, rec = newJSONContext(t, http.MethodPost,
		`{"username":"nobody","password":"secret1"}`)
	if err := Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	expectStatus(t, rec, http.StatusBadRequest)
	noUser := decodeBody(t, rec)["error"]

	if wrongPassword != noUser {
		t.Fatalf("credential errors differ: %v vs %v", wrongPassword, noUser)
	}
	if wrongPassword != "Invalid username or password" {
		t.Fatalf("unexpected credential error: %v", wrongPassword)
	}
}

func TestLogout(t *testing.T) {
	testutil.OpenTestDB(t)
	testutil.InitTestJWT(t)

	c, rec := newJSONContext(t, http.MethodPost, "")
	asIdentity(c, 1, model.RoleUser)
	if err := Logout(c); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
	if decodeBody(t, rec)["message"] != "Logout successful" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
