package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"glow-llm/internal/domain"
)

// CatalogRepository expone las consultas de solo lectura sobre el catalogo externo.
// El motor nunca fabrica registros: todo producto devuelto sale de aqui.
type CatalogRepository interface {
	GetByID(ctx context.Context, id string) (domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	GetEmbedding(ctx context.Context, id string) (pgvector.Vector, error)
	SearchNearest(ctx context.Context, embedding pgvector.Vector, floor float64, limit int) ([]domain.ProductMatch, error)
	FullTextSearch(ctx context.Context, query string, limit int) ([]domain.Product, error)
	FindBySkinTypes(ctx context.Context, skinTypes []string, maxPrice float64, limit int) ([]domain.Product, error)
	FindByConcerns(ctx context.Context, concerns []string, maxPrice float64, limit int) ([]domain.Product, error)
	FindByName(ctx context.Context, name, brand string, limit int) ([]domain.Product, error)
	TopRatedByCategory(ctx context.Context, category string, maxPrice float64, limit int) ([]domain.Product, error)
	TopRatedBySkinType(ctx context.Context, skinType string, categories []string, limit int) ([]domain.Product, error)
}

const productColumns = `id, name, brand, category, price, skin_types, concerns, hair_types, description, rating, image_url, purchase_link, retailer`

type PgCatalogRepository struct {
	pool *pgxpool.Pool
}

func NewPgCatalogRepository(pool *pgxpool.Pool) *PgCatalogRepository {
	return &PgCatalogRepository{pool: pool}
}

func (r *PgCatalogRepository) GetByID(ctx context.Context, id string) (domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return domain.Product{}, err
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return domain.Product{}, err
	}
	if len(products) == 0 {
		return domain.Product{}, fmt.Errorf("product %s not found", id)
	}
	return products[0], nil
}

func (r *PgCatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *PgCatalogRepository) GetEmbedding(ctx context.Context, id string) (pgvector.Vector, error) {
	var embedding pgvector.Vector
	err := r.pool.QueryRow(ctx, `SELECT embedding FROM products WHERE id = $1`, id).Scan(&embedding)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("get embedding: %w", err)
	}
	return embedding, nil
}

// SearchNearest busca por vecino mas cercano con piso de similitud.
// La similitud se deriva de la distancia coseno: 1 - (embedding <=> query).
func (r *PgCatalogRepository) SearchNearest(ctx context.Context, embedding pgvector.Vector, floor float64, limit int) ([]domain.ProductMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT ` + productColumns + `, 1 - (embedding <=> $1) AS similarity
		FROM products
		WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, embedding, floor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.ProductMatch
	for rows.Next() {
		m, err := scanProductMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *PgCatalogRepository) FullTextSearch(ctx context.Context, textQuery string, limit int) ([]domain.Product, error) {
	if strings.TrimSpace(textQuery) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE to_tsvector('english', name || ' ' || brand || ' ' || coalesce(description, '')) @@ websearch_to_tsquery('english', $1)
		ORDER BY rating DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, textQuery, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *PgCatalogRepository) FindBySkinTypes(ctx context.Context, skinTypes []string, maxPrice float64, limit int) ([]domain.Product, error) {
	if len(skinTypes) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE skin_types && $1 AND price <= $2
		ORDER BY rating DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, skinTypes, maxPrice, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *PgCatalogRepository) FindByConcerns(ctx context.Context, concerns []string, maxPrice float64, limit int) ([]domain.Product, error) {
	if len(concerns) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE concerns && $1 AND price <= $2
		ORDER BY rating DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, concerns, maxPrice, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

// FindByName busca por substring case-insensitive en nombre, marca y descripcion.
func (r *PgCatalogRepository) FindByName(ctx context.Context, name, brand string, limit int) ([]domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	pattern := "%" + name + "%"
	args := []interface{}{pattern}
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE (name ILIKE $1 OR brand ILIKE $1 OR description ILIKE $1)
	`
	if brand = strings.TrimSpace(brand); brand != "" {
		query += ` AND brand ILIKE $2`
		args = append(args, "%"+brand+"%")
	}
	query += fmt.Sprintf(` ORDER BY rating DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *PgCatalogRepository) TopRatedByCategory(ctx context.Context, category string, maxPrice float64, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 3
	}
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE category = $1 AND price <= $2
		ORDER BY rating DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, category, maxPrice, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *PgCatalogRepository) TopRatedBySkinType(ctx context.Context, skinType string, categories []string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 5
	}
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE skin_types && $1 AND category = ANY($2)
		ORDER BY rating DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, []string{skinType}, categories, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows pgxRows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func scanProduct(rows pgxRows) (domain.Product, error) {
	var p domain.Product
	err := rows.Scan(
		&p.ID,
		&p.Name,
		&p.Brand,
		&p.Category,
		&p.Price,
		&p.SkinTypes,
		&p.Concerns,
		&p.HairTypes,
		&p.Description,
		&p.Rating,
		&p.ImageURL,
		&p.PurchaseLink,
		&p.Retailer,
	)
	return p, err
}

func scanProductMatch(rows pgxRows) (domain.ProductMatch, error) {
	var m domain.ProductMatch
	err := rows.Scan(
		&m.ID,
		&m.Name,
		&m.Brand,
		&m.Category,
		&m.Price,
		&m.SkinTypes,
		&m.Concerns,
		&m.HairTypes,
		&m.Description,
		&m.Rating,
		&m.ImageURL,
		&m.PurchaseLink,
		&m.Retailer,
		&m.Similarity,
	)
	m.Similarity = domain.ClampSimilarity(m.Similarity)
	return m, err
}

// pgxRows is a minimal interface to allow scanning from pgx rows and simplify testing.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}
