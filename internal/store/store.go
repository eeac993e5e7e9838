// Package store persists imported recipes to SQLite. Only what the import
// pipeline writes lives here; the wider application schema is someone
// else's concern.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
	"github.com/ladle-dev/ladle/internal/units"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrNotFound = errors.New("recipe not found")

// resolveConcurrency bounds parallel ingredient get-or-create lookups.
const resolveConcurrency = 4

// Store wraps the recipe database.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for throwaway stores in tests.
func Open(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		// Ingredient resolution writes concurrently; wait out the write
		// lock instead of surfacing SQLITE_BUSY.
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("store opened", logging.Field{Key: "path", Value: path})
	return &Store{db: db, logger: logger.With(logging.Field{Key: "component", Value: "store"})}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for callers that need raw queries.
func (s *Store) DB() *sql.DB { return s.db }

// StoredRecipe is a persisted recipe row plus its ingredient links.
type StoredRecipe struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Recipe    model.PartialRecipe `json:"recipe"`
	CreatedAt time.Time           `json:"created_at"`
}

// SaveRecipe persists one recipe and its ingredient associations inside a
// transaction. Ingredient names are resolved to stable ids first
// (get-or-create, case-insensitive); those lookups are independent writes
// to distinct rows and run concurrently.
func (s *Store) SaveRecipe(ctx context.Context, userID string, r *model.PartialRecipe) (string, error) {
	if !r.Persistable() {
		return "", errors.New("recipe is not complete enough to persist: name and at least one instruction required")
	}

	ingredientIDs, err := s.resolveIngredients(ctx, r.Ingredients)
	if err != nil {
		return "", fmt.Errorf("resolve ingredients: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recipes (
			id, user_id, name, description, image_url,
			preparation_time, cooking_time, total_time, servings,
			calories, fat, protein, carbohydrates, fiber, sugar, sodium,
			category, cuisine, difficulty, skill_level,
			keywords, dietary_tags, equipment, instructions,
			is_private, source_url, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, userID, r.Name, r.Description, r.ImageURL,
		r.PreparationTime, r.CookingTime, r.TotalTime, r.Servings,
		r.Nutrition.Calories, r.Nutrition.Fat, r.Nutrition.Protein,
		r.Nutrition.Carbohydrates, r.Nutrition.Fiber, r.Nutrition.Sugar, r.Nutrition.Sodium,
		r.Category, r.Cuisine, r.Difficulty, r.SkillLevel,
		jsonArray(r.Keywords), jsonArray(r.DietaryTags), jsonArray(r.Equipment), jsonArray(r.Instructions),
		boolInt(true), // privacy-by-default on import
		r.SourceURL, now.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert recipe: %w", err)
	}

	for i, ing := range r.Ingredients {
		unit := ing.Unit
		if unit != "" && !units.IsValid(unit) {
			s.logger.Warn("dropping unknown unit",
				logging.Field{Key: "unit", Value: unit},
				logging.Field{Key: "ingredient", Value: ing.Name})
			unit = ""
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit, position)
			VALUES (?,?,?,?,?)`,
			id, ingredientIDs[i], ing.Quantity, unit, i)
		if err != nil {
			return "", fmt.Errorf("insert recipe ingredient %q: %w", ing.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("recipe saved",
		logging.Field{Key: "id", Value: id},
		logging.Field{Key: "name", Value: r.Name},
		logging.Field{Key: "ingredients", Value: len(r.Ingredients)})
	return id, nil
}

// resolveIngredients maps each ingredient ref to a stable ingredient id,
// inserting unseen names. Lookups run concurrently under a small semaphore;
// results keep input order.
func (s *Store) resolveIngredients(ctx context.Context, refs []model.IngredientRef) ([]string, error) {
	ids := make([]string, len(refs))
	errs := make([]error, len(refs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, resolveConcurrency)
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			ids[i], errs[i] = s.getOrCreateIngredient(ctx, name)
		}(i, ref.Name)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (s *Store) getOrCreateIngredient(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unknown"
	}

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM ingredients WHERE name = ? COLLATE NOCASE`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = uuid.New().String()
	_, err = s.db.ExecContext(ctx, `INSERT INTO ingredients (id, name) SELECT ?, ? WHERE NOT EXISTS
		(SELECT 1 FROM ingredients WHERE name = ? COLLATE NOCASE)`, id, name, name)
	if err != nil {
		return "", err
	}
	// A concurrent insert may have won the race; read back whichever row
	// ended up in the table.
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM ingredients WHERE name = ? COLLATE NOCASE`, name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// GetRecipe loads one stored recipe with its ingredients.
func (s *Store) GetRecipe(ctx context.Context, id string) (*StoredRecipe, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, image_url,
		       preparation_time, cooking_time, total_time, servings,
		       calories, fat, protein, carbohydrates, fiber, sugar, sodium,
		       category, cuisine, difficulty, skill_level,
		       keywords, dietary_tags, equipment, instructions,
		       is_private, source_url, created_at
		FROM recipes WHERE id = ?`, id)

	sr, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.name, ri.quantity, ri.unit
		FROM recipe_ingredients ri JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ? ORDER BY ri.position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ref model.IngredientRef
		if err := rows.Scan(&ref.Name, &ref.Quantity, &ref.Unit); err != nil {
			return nil, err
		}
		sr.Recipe.Ingredients = append(sr.Recipe.Ingredients, ref)
	}
	return sr, rows.Err()
}

// ListRecipes returns a user's recipes, newest first.
func (s *Store) ListRecipes(ctx context.Context, userID string, limit int) ([]StoredRecipe, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, image_url,
		       preparation_time, cooking_time, total_time, servings,
		       calories, fat, protein, carbohydrates, fiber, sugar, sodium,
		       category, cuisine, difficulty, skill_level,
		       keywords, dietary_tags, equipment, instructions,
		       is_private, source_url, created_at
		FROM recipes WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredRecipe
	for rows.Next() {
		sr, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sr)
	}
	return out, rows.Err()
}

// RecordImport appends one row to the import history.
func (s *Store) RecordImport(ctx context.Context, sourceURL, method string, confidence int, instructionsText, recipeID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imports (id, source_url, method, confidence, instructions_text, recipe_id, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		uuid.New().String(), sourceURL, method, confidence, instructionsText,
		sql.NullString{String: recipeID, Valid: recipeID != ""}, time.Now().UTC().Format(time.RFC3339))
	return err
}

// LastImportInstructions returns the instructions text of the most recent
// import for the URL, or "" if the URL was never imported.
func (s *Store) LastImportInstructions(ctx context.Context, sourceURL string) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `
		SELECT instructions_text FROM imports WHERE source_url = ?
		ORDER BY created_at DESC LIMIT 1`, sourceURL).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return text, err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRecipe(row rowScanner) (*StoredRecipe, error) {
	var sr StoredRecipe
	var keywords, dietaryTags, equipment, instructions, createdAt string
	var isPrivate int
	err := row.Scan(
		&sr.ID, &sr.UserID, &sr.Recipe.Name, &sr.Recipe.Description, &sr.Recipe.ImageURL,
		&sr.Recipe.PreparationTime, &sr.Recipe.CookingTime, &sr.Recipe.TotalTime, &sr.Recipe.Servings,
		&sr.Recipe.Nutrition.Calories, &sr.Recipe.Nutrition.Fat, &sr.Recipe.Nutrition.Protein,
		&sr.Recipe.Nutrition.Carbohydrates, &sr.Recipe.Nutrition.Fiber, &sr.Recipe.Nutrition.Sugar,
		&sr.Recipe.Nutrition.Sodium,
		&sr.Recipe.Category, &sr.Recipe.Cuisine, &sr.Recipe.Difficulty, &sr.Recipe.SkillLevel,
		&keywords, &dietaryTags, &equipment, &instructions,
		&isPrivate, &sr.Recipe.SourceURL, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	sr.Recipe.IsPrivate = isPrivate != 0
	sr.Recipe.Keywords = fromJSONArray(keywords)
	sr.Recipe.DietaryTags = fromJSONArray(dietaryTags)
	sr.Recipe.Equipment = fromJSONArray(equipment)
	sr.Recipe.Instructions = fromJSONArray(instructions)
	sr.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &sr, nil
}

func jsonArray(in []string) string {
	if in == nil {
		in = []string{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func fromJSONArray(in string) []string {
	var out []string
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
