package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go-paystack-sync/internal/features/document"
	"go-paystack-sync/pkg/utils"
)

// SeedEntry is one document to create unless a document with the same match field exists.
type SeedEntry struct {
	Collection string            `json:"collection"`
	Match      string            `json:"match"`
	Data       document.Document `json:"data"`
}

func readEntries(path string) ([]SeedEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []SeedEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

// SeedDocuments creates missing entries through the document service, so synced
// collections go through the same outbound hooks as API writes.
func SeedDocuments(ctx context.Context, docs document.DocumentService, entries []SeedEntry) (created, skipped int, err error) {
	for _, e := range entries {
		if e.Match != "" {
			n, err := docs.Count(ctx, e.Collection, map[string]any{e.Match: e.Data[e.Match]})
			if err != nil {
				return created, skipped, fmt.Errorf("count %s: %w", e.Collection, err)
			}
			if n > 0 {
				skipped++
				continue
			}
		}
		if _, err := docs.Create(ctx, e.Collection, e.Data.Clone()); err != nil {
			return created, skipped, fmt.Errorf("create %s: %w", e.Collection, err)
		}
		created++
	}
	return created, skipped, nil
}

// IssueToken mints a JWT for the seeded customer with the given email, for calling the
// authenticated endpoints in development. SetSecret must have been called first.
func IssueToken(ctx context.Context, docs document.DocumentService, collection, email string, ttl time.Duration) (string, error) {
	res, err := docs.Find(ctx, collection, map[string]any{"email": email}, 1)
	if err != nil {
		return "", fmt.Errorf("find %s %s: %w", collection, email, err)
	}
	if len(res.Docs) == 0 {
		return "", fmt.Errorf("no %s with email %s: %w", collection, email, document.ErrNotFound)
	}
	return utils.GenerateToken(res.Docs[0].ID(), []string{"admin"}, ttl)
}
