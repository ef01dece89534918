package handler

import (
	"fmt"
	"net/http"
	"testing"

	"coffeeshop-service/internal/model"
	"coffeeshop-service/internal/testutil"
	"coffeeshop-service/pkg/database"
)

func TestCreateProduct(t *testing.T) {
	testutil.OpenTestDB(t)
	category := model.Category{Name: "Напитки"}
	if err := database.GetDB().Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	body := fmt.Sprintf(`{"name":"Капучино","price":5.99,"categoryId":%d}`, category.ID)
	c, rec := newJSONContext(t, http.MethodPost, body)
	if err := CreateProduct(c); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)

	resp := decodeBody(t, rec)
	if resp["name"] != "Капучино" {
		t.Fatalf("expected name echoed, got %v", resp["name"])
	}
	if uint(resp["categoryId"].(float64)) != category.ID {
		t.Fatalf("expected categoryId %d echoed, got %v", category.ID, resp["categoryId"])
	}
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	testutil.OpenTestDB(t)

	c, rec := newJSONContext(t, http.MethodPost,
		`{"name":"Капучино","price":5.99,"categoryId":42}`)
	if err := CreateProduct(c); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestCreateProduct_NonPositivePrice(t *testing.T) {
	testutil.OpenTestDB(t)
	category := model.Category{Name: "Напитки"}
	if err := database.GetDB().Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	for _, body := range []string{
		fmt.Sprintf(`{"name":"Капучино","price":0,"categoryId":%d}`, category.ID),
		fmt.Sprintf(`{"name":"Капучино","price":-1.5,"categoryId":%d}`, category.ID),
	} {
		c, rec := newJSONContext(t, http.MethodPost, body)
		if err := CreateProduct(c); err != nil {
			t.Fatalf("CreateProduct: %v", err)
		}
		expectStatus(t, rec, http.StatusBadRequest)
	}
}

func TestUpdateProduct(t *testing.T) {
	testutil.OpenTestDB(t)
	category, product := seedCatalog(t, "Напитки", "Капучино", 5.99)

	body := fmt.Sprintf(`{"name":"Капучино","price":6.49,"categoryId":%d}`, category.ID)
	c, rec := newJSONContext(t, http.MethodPut, body)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	if err := UpdateProduct(c); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	var updated model.Product
	if err := database.GetDB().First(&updated, product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if updated.Price != 6.49 {
		t.Fatalf("price not persisted, got %v", updated.Price)
	}
}

func TestUpdateProduct_NonNumericID(t *testing.T) {
	testutil.OpenTestDB(t)

	c, rec := newJSONContext(t, http.MethodPut, `{"name":"x","price":1,"categoryId":1}`)
	c.SetParamNames("id")
	c.SetParamValues("latte")
	if err := UpdateProduct(c); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	testutil.OpenTestDB(t)

	c, rec := newJSONContext(t, http.MethodDelete, "")
	c.SetParamNames("id")
	c.SetParamValues("123")
	if err := DeleteProduct(c); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	expectStatus(t, rec, http.StatusNotFound)
}

func TestListProducts_DoesNotMutate(t *testing.T) {
	testutil.OpenTestDB(t)
	seedCatalog(t, "Напитки", "Капучино", 5.99)

	for i := 0; i < 2; i++ {
		c, rec := newJSONContext(t, http.MethodGet, "")
		if err := ListProducts(c); err != nil {
			t.Fatalf("ListProducts: %v", err)
		}
		expectStatus(t, rec, http.StatusOK)
	}

	var count int64
	database.GetDB().Model(&model.Product{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 product after repeated GETs, got %d", count)
	}
}
