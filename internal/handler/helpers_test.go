package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"coffeeshop-service/internal/model"
	"coffeeshop-service/pkg/database"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// newJSONContext builds an Echo context around a JSON request body
func newJSONContext(t *testing.T, method, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// asIdentity attaches an authenticated identity to the context the way the
// Authenticate middleware does
func asIdentity(c echo.Context, userID uint, role string) {
	c.Set("user_id", userID)
	c.Set("role", role)
}

// decodeBody unmarshals the recorded JSON response into a generic map
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

// decodeInto unmarshals the recorded JSON response into the given value
func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// seedUser inserts a user with a bcrypt-hashed password and returns it
func seedUser(t *testing.T, username, password, role string) model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := model.User{Username: username, Password: string(hash), Role: role}
	if err := database.GetDB().Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// seedCatalog inserts a category with one product and returns both
func seedCatalog(t *testing.T, categoryName, productName string, price float64) (model.Category, model.Product) {
	t.Helper()
	category := model.Category{Name: categoryName}
	if err := database.GetDB().Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	product := model.Product{Name: productName, Price: price, CategoryID: category.ID}
	if err := database.GetDB().Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return category, product
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
