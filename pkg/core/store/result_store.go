// Package store checkpoints finished companies so an interrupted run can
// resume without scraping or prompting again.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/crsdvaibhav/neufin-assignment/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultStore is a hybrid store: Postgres (primary) + file system
// (fallback/local).
type ResultStore struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewResultStore uses pool when non-nil, otherwise JSON files under dir.
func NewResultStore(pool *pgxpool.Pool, dir string) (*ResultStore, error) {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "screener", "results")
	}
	if pool == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint dir: %w", err)
		}
	}
	return &ResultStore{pool: pool, fileDir: dir}, nil
}

// Fingerprint hashes everything that changes the meaning of a stored result
// (periods, prompt versions, model).
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Get returns the stored result or nil on a miss.
func (s *ResultStore) Get(ctx context.Context, company, fingerprint string) (*models.CompanyResult, error) {
	if s.pool != nil {
		var data []byte
		err := s.pool.QueryRow(ctx,
			`SELECT data FROM summary_results WHERE company = $1 AND fingerprint = $2`,
			company, fingerprint,
		).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read checkpoint: %w", err)
		}
		return decode(data)
	}

	data, err := os.ReadFile(s.path(company, fingerprint))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return decode(data)
}

// Save stores r under its company and fingerprint, replacing older data.
func (s *ResultStore) Save(ctx context.Context, r *models.CompanyResult) error {
	if r.SavedAt.IsZero() {
		r.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if s.pool != nil {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO summary_results (company, fingerprint, run_id, data)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (company, fingerprint)
			DO UPDATE SET
				run_id = EXCLUDED.run_id,
				data = EXCLUDED.data,
				updated_at = NOW()`,
			r.Company, r.Fingerprint, r.RunID, data,
		)
		if err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		return nil
	}

	// write-then-rename so a crash never leaves a truncated checkpoint
	path := s.path(r.Company, r.Fingerprint)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *ResultStore) path(company, fingerprint string) string {
	return filepath.Join(s.fileDir, safeName(company)+"_"+fingerprint+".json")
}

func decode(data []byte) (*models.CompanyResult, error) {
	var r models.CompanyResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint: %w", err)
	}
	return &r, nil
}

// safeName keeps letters and digits, folding everything else to '-'.
func safeName(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(sb.String(), "-")
	if out == "" {
		out = "company"
	}
	// distinct names can fold to the same slug
	return out + "-" + Fingerprint(name)[:6]
}
