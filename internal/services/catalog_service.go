package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AbogiC/kostum-resonanz/internal/apperror"
	"github.com/AbogiC/kostum-resonanz/internal/auth"
	"github.com/AbogiC/kostum-resonanz/internal/database"
	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CatalogServiceProvider defines the interface for catalog services.
type CatalogServiceProvider interface {
	ListCostumes(ctx context.Context, filter models.CostumeFilter) ([]models.Costume, error)
	GetCostumeByID(ctx context.Context, id string) (models.Costume, error)
	CreateCostume(ctx context.Context, actor models.Account, input models.CostumeInput) (models.Costume, error)
	UpdateCostume(ctx context.Context, actor models.Account, id string, input models.CostumeInput) (models.Costume, error)
	DeleteCostume(ctx context.Context, actor models.Account, id string) error
}

// CatalogService provides business logic for costume management.
type CatalogService struct {
	db     *sql.DB
	events EventServiceProvider
	now    func() time.Time
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(db *sql.DB, events EventServiceProvider) *CatalogService {
	return &CatalogService{db: db, events: events, now: time.Now}
}

const costumeColumns = "id, name, description, category, sizes_json, images_json, price_per_day, available, created_at"

// scanCostume is a helper to scan a costume from a row or rows object.
func scanCostume(scanner interface{ Scan(...interface{}) error }) (models.Costume, error) {
	var (
		c         models.Costume
		createdAt string
	)
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Description, &c.Category,
		&c.SizesJSON, &c.ImagesJSON, &c.PricePerDay, &c.Available, &createdAt,
	)
	if err != nil {
		return c, err
	}
	if c.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return c, err
	}
	c.PrepareForAPI()
	return c, nil
}

// escapeLike escapes the LIKE wildcards in s for use with ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListCostumes returns the costumes matching filter, newest first.
func (s *CatalogService) ListCostumes(ctx context.Context, filter models.CostumeFilter) ([]models.Costume, error) {
	var (
		conds []string
		args  []interface{}
	)
	if category := strings.TrimSpace(filter.Category); category != "" {
		conds = append(conds, "category = ?")
		args = append(args, category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		conds = append(conds, `(lower(name) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	query := "SELECT " + costumeColumns + " FROM costumes"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query costumes: %w", err)
	}
	defer rows.Close()

	costumes := []models.Costume{}
	for rows.Next() {
		c, err := scanCostume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan costume: %w", err)
		}
		costumes = append(costumes, c)
	}
	return costumes, rows.Err()
}

// GetCostumeByID retrieves a single costume by its ID.
func (s *CatalogService) GetCostumeByID(ctx context.Context, id string) (models.Costume, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+costumeColumns+" FROM costumes WHERE id = ?", id)
	c, err := scanCostume(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Costume{}, apperror.NotFound("costume not found")
		}
		return models.Costume{}, fmt.Errorf("query costume: %w", err)
	}
	return c, nil
}

func validateCostume(input models.CostumeInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperror.InvalidArgument("name is required")
	}
	if input.PricePerDay < 0 {
		return apperror.InvalidArgument("price_per_day must not be negative")
	}
	return nil
}

// applyInput copies the mutable fields of input onto c.
func applyInput(c *models.Costume, input models.CostumeInput) {
	c.Name = strings.TrimSpace(input.Name)
	c.Description = input.Description
	c.Category = strings.TrimSpace(input.Category)
	c.Sizes = input.Sizes
	c.Images = input.Images
	c.PricePerDay = input.PricePerDay
	c.Available = true
	if input.Available != nil {
		c.Available = *input.Available
	}
	c.PrepareForSave()
}

// CreateCostume adds a new costume to the catalog.
func (s *CatalogService) CreateCostume(ctx context.Context, actor models.Account, input models.CostumeInput) (models.Costume, error) {
	if _, err := auth.RequireRole(actor, models.RoleAdmin); err != nil {
		return models.Costume{}, err
	}
	if err := validateCostume(input); err != nil {
		return models.Costume{}, err
	}

	c := models.Costume{ID: uuid.New().String(), CreatedAt: s.now().UTC()}
	applyInput(&c, input)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO costumes ("+costumeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Name, c.Description, c.Category, c.SizesJSON, c.ImagesJSON, c.PricePerDay, c.Available, database.FormatTime(c.CreatedAt),
	)
	if err != nil {
		return models.Costume{}, fmt.Errorf("insert costume: %w", err)
	}

	recordEvent(ctx, s.events, models.Event{
		Type:       EventCostumeCreate,
		Message:    fmt.Sprintf("Costume '%s' added to the catalog", c.Name),
		ActorEmail: actor.Email,
	})
	return c, nil
}

// UpdateCostume replaces the mutable fields of an existing costume. Existing
// bookings keep the name they were created with.
func (s *CatalogService) UpdateCostume(ctx context.Context, actor models.Account, id string, input models.CostumeInput) (models.Costume, error) {
	if _, err := auth.RequireRole(actor, models.RoleAdmin); err != nil {
		return models.Costume{}, err
	}
	if err := validateCostume(input); err != nil {
		return models.Costume{}, err
	}

	c, err := s.GetCostumeByID(ctx, id)
	if err != nil {
		return models.Costume{}, err
	}
	applyInput(&c, input)

	res, err := s.db.ExecContext(ctx,
		`UPDATE costumes SET name = ?, description = ?, category = ?, sizes_json = ?, images_json = ?,
		                     price_per_day = ?, available = ?
		 WHERE id = ?`,
		c.Name, c.Description, c.Category, c.SizesJSON, c.ImagesJSON, c.PricePerDay, c.Available, id,
	)
	if err != nil {
		return models.Costume{}, fmt.Errorf("update costume: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Costume{}, apperror.NotFound("costume not found")
	}

	recordEvent(ctx, s.events, models.Event{
		Type:       EventCostumeUpdate,
		Message:    fmt.Sprintf("Costume '%s' updated", c.Name),
		ActorEmail: actor.Email,
	})
	return c, nil
}

// DeleteCostume removes a costume from the catalog. Bookings that reference
// it are kept.
func (s *CatalogService) DeleteCostume(ctx context.Context, actor models.Account, id string) error {
	if _, err := auth.RequireRole(actor, models.RoleAdmin); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM costumes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete costume: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete costume: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("costume not found")
	}

	log.Info().Str("costume_id", id).Str("actor", actor.Email).Msg("Costume deleted")
	recordEvent(ctx, s.events, models.Event{
		Type:       EventCostumeDelete,
		Message:    fmt.Sprintf("Costume '%s' removed from the catalog", id),
		ActorEmail: actor.Email,
	})
	return nil
}
