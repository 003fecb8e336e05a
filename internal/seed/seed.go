package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	SKU         string
	Name        string
	Description string
	Price       string
	Currency    string
	CoverURL    string
}

// Apply inserts the e-book catalog for manual testing. Idempotent via
// ON CONFLICT on the SKU.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []productSeed{
		{
			SKU:         "EBOOK-FUNNEL-01",
			Name:        "The Launch Playbook",
			Description: "Step-by-step guide to launching a digital product",
			Price:       "27.00",
			Currency:    "USD",
			CoverURL:    "/covers/launch-playbook.jpg",
		},
		{
			SKU:         "EBOOK-FUNNEL-02",
			Name:        "The Launch Playbook: Workbook Edition",
			Description: "Companion workbook with exercises and templates",
			Price:       "47.00",
			Currency:    "USD",
			CoverURL:    "/covers/launch-workbook.jpg",
		},
		{
			SKU:         "EBOOK-FUNNEL-BUNDLE",
			Name:        "Playbook + Workbook Bundle",
			Description: "Both editions at a bundle price",
			Price:       "59.00",
			Currency:    "USD",
			CoverURL:    "/covers/launch-bundle.jpg",
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (sku, name, description, price, currency, cover_url)
VALUES ($1, $2, NULLIF($3, ''), $4::numeric, $5, NULLIF($6, ''))
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency,
    cover_url = EXCLUDED.cover_url
`
	_, err := pool.Exec(ctx, q, p.SKU, p.Name, p.Description, p.Price, p.Currency, p.CoverURL)
	return err
}
