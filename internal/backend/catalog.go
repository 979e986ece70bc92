package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID    ID                  `json:"productId"`
	ProductName  string              `json:"productName"`
	Description  string              `json:"description,omitempty"`
	Image        string              `json:"image,omitempty"`
	Price        decimal.Decimal     `json:"price"`
	SpecialPrice decimal.NullDecimal `json:"specialPrice"`
	Discount     decimal.NullDecimal `json:"discount"`
	Quantity     int                 `json:"quantity,omitempty"`
}

type Category struct {
	CategoryID   ID     `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

type ProductPage struct {
	Content       []Product `json:"content"`
	TotalPages    int       `json:"total_pages"`
	TotalElements int       `json:"total_elements"`
}

// SearchParams mirror the backend's search endpoint query.
type SearchParams struct {
	Keyword    string
	CategoryID string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	PageNumber int
	PageSize   int
	SortBy     string
	SortOrder  string
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	if p.Keyword != "" {
		v.Set("keyword", p.Keyword)
	}
	if p.CategoryID != "" {
		v.Set("categoryId", p.CategoryID)
	}
	if p.MinPrice != nil {
		v.Set("minPrice", p.MinPrice.String())
	}
	if p.MaxPrice != nil {
		v.Set("maxPrice", p.MaxPrice.String())
	}
	v.Set("pageNumber", strconv.Itoa(max(p.PageNumber, 0)))
	if p.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}
	if p.SortOrder != "" {
		v.Set("sortOrder", p.SortOrder)
	}
	return v
}

type pagedProducts struct {
	Embedded struct {
		ProductDTOList []Product `json:"productDTOList"`
	} `json:"_embedded"`
	Page *struct {
		TotalPages    int `json:"totalPages"`
		TotalElements int `json:"totalElements"`
	} `json:"page"`
}

// SearchProducts queries the public search endpoint. The backend answers with a
// HATEOAS paged model; a page without metadata counts as one page.
func (c *Client) SearchProducts(ctx context.Context, params SearchParams) (ProductPage, error) {
	const op = "search products"
	data, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/public/products/search",
		query:  params.values(),
	})
	if err != nil {
		return ProductPage{}, err
	}

	var dto pagedProducts
	if err := json.Unmarshal(data, &dto); err != nil {
		return ProductPage{}, fmt.Errorf("%s: decode: %w", op, err)
	}

	page := ProductPage{
		Content:       dto.Embedded.ProductDTOList,
		TotalPages:    1,
		TotalElements: len(dto.Embedded.ProductDTOList),
	}
	if page.Content == nil {
		page.Content = []Product{}
	}
	if dto.Page != nil {
		if dto.Page.TotalPages > 0 {
			page.TotalPages = dto.Page.TotalPages
		}
		if dto.Page.TotalElements > 0 {
			page.TotalElements = dto.Page.TotalElements
		}
	}
	return page, nil
}

func (c *Client) ListProducts(ctx context.Context, params SearchParams) ([]Product, error) {
	const op = "list products"
	data, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/products",
		query:  params.values(),
	})
	if err != nil {
		return nil, err
	}

	var dto pagedProducts
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	if dto.Embedded.ProductDTOList == nil {
		return []Product{}, nil
	}
	return dto.Embedded.ProductDTOList, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	const op = "get product"
	data, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/products/" + segment(productID),
	})
	if err != nil {
		return nil, err
	}

	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return &p, nil
}

// ListCategories accepts both the HATEOAS collection and a plain JSON array.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	const op = "list categories"
	data, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/public/categories",
	})
	if err != nil {
		return nil, err
	}

	var plain []Category
	if err := json.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}

	var dto struct {
		Embedded struct {
			CategoryDTOList []Category `json:"categoryDTOList"`
		} `json:"_embedded"`
		Content []Category `json:"content"`
	}
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	if dto.Embedded.CategoryDTOList != nil {
		return dto.Embedded.CategoryDTOList, nil
	}
	if dto.Content != nil {
		return dto.Content, nil
	}
	return []Category{}, nil
}
