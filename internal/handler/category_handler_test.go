package handler

import (
	"fmt"
	"net/http"
	"testing"

	"coffeeshop-service/internal/model"
	"coffeeshop-service/internal/testutil"
	"coffeeshop-service/pkg/database"
)

func TestCreateCategory(t *testing.T) {
	testutil.OpenTestDB(t)

	c, rec := newJSONContext(t, http.MethodPost, `{"name":"Напитки"}`)
	if err := CreateCategory(c); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)

	body := decodeBody(t, rec)
	if body["name"] != "Напитки" {
		t.Fatalf("expected name echoed, got %v", body["name"])
	}
}

func TestCreateCategory_DuplicateName(t *testing.T) {
	testutil.OpenTestDB(t)
	seedCatalog(t, "Напитки", "Капучино", 5.99)

	c, rec := newJSONContext(t, http.MethodPost, `{"name":"Напитки"}`)
	if err := CreateCategory(c); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	expectStatus(t, rec, http.StatusConflict)
}

func TestCreateCategory_MissingName(t *testing.T) {
	testutil.OpenTestDB(t)

	c, rec := newJSONContext(t, http.MethodPost, `{}`)
	if err := CreateCategory(c); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestGetCategory_NonNumericID(t *testing.T) {
	testutil.OpenTestDB(t)

	c, rec := newJSONContext(t, http.MethodGet, "")
	c.SetParamNames("id")
	c.SetParamValues("abc")
	if err := GetCategory(c); err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestGetCategory_NotFound(t *testing.T) {
	testutil.OpenTestDB(t)

	c, rec := newJSONContext(t, http.MethodGet, "")
	c.SetParamNames("id")
	c.SetParamValues("999")
	if err := GetCategory(c); err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	expectStatus(t, rec, http.StatusNotFound)
}

func TestUpdateCategory_RenameConflict(t *testing.T) {
	testutil.OpenTestDB(t)
	first, _ := seedCatalog(t, "Напитки", "Капучино", 5.99)
	other := model.Category{Name: "Десерты"}
	if err := database.GetDB().Create(&other).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	c, rec := newJSONContext(t, http.MethodPut, `{"name":"Десерты"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(first.ID))
	if err := UpdateCategory(c); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	expectStatus(t, rec, http.StatusConflict)
}

func TestDeleteCategory_CascadesToProducts(t *testing.T) {
	testutil.OpenTestDB(t)
	category, product := seedCatalog(t, "Напитки", "Капучино", 5.99)

	c, rec := newJSONContext(t, http.MethodDelete, "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(category.ID))
	if err := DeleteCategory(c); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	// The category's products must be gone too
	c, rec = newJSONContext(t, http.MethodGet, "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	if err := GetProduct(c); err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	expectStatus(t, rec, http.StatusNotFound)

	var count int64
	database.GetDB().Model(&model.Product{}).Where("category_id = ?", category.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected no products left for category, found %d", count)
	}
}
