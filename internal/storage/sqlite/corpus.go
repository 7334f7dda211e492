package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/storage/models"
	"github.com/intentbot/backend/pkg/logger"
)

// ErrIntentNotFound is returned by tag lookups on a missing intent;
// callers translate it to a 404.
var ErrIntentNotFound = sql.ErrNoRows

// ListIntents returns every corpus entry with patterns and responses in
// insertion order. Iteration order over intents is stable (by id), which
// the semantic matcher's tie-break relies on.
func (c *Client) ListIntents() ([]models.Intent, error) {
	rows, err := c.db.Query(`SELECT id, tag, created_at FROM intents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list intents: %w", err)
	}
	defer rows.Close()

	var intents []models.Intent
	for rows.Next() {
		var intent models.Intent
		var createdAt int64
		if err := rows.Scan(&intent.ID, &intent.Tag, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan intent row: %w", err)
		}
		intent.CreatedAt = time.Unix(createdAt, 0)
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate intents: %w", err)
	}

	for i := range intents {
		intents[i].Patterns, err = c.listTexts("patterns", intents[i].ID)
		if err != nil {
			return nil, err
		}
		intents[i].Responses, err = c.listTexts("responses", intents[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return intents, nil
}

func (c *Client) listTexts(table string, intentID int) ([]string, error) {
	query := fmt.Sprintf(`SELECT text FROM %s WHERE intent_id = ? ORDER BY position`, table)

	rows, err := c.db.Query(query, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

func (c *Client) GetIntent(tag string) (*models.Intent, error) {
	var intent models.Intent
	var createdAt int64

	err := c.db.QueryRow(`SELECT id, tag, created_at FROM intents WHERE tag = ?`, tag).
		Scan(&intent.ID, &intent.Tag, &createdAt)
	if err != nil {
		return nil, err
	}
	intent.CreatedAt = time.Unix(createdAt, 0)

	if intent.Patterns, err = c.listTexts("patterns", intent.ID); err != nil {
		return nil, err
	}
	if intent.Responses, err = c.listTexts("responses", intent.ID); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreateIntent inserts a new corpus entry. The tag must be unused and
// the entry must carry at least one pattern and one response.
func (c *Client) CreateIntent(intent *models.Intent) error {
	if err := validateIntent(intent); err != nil {
		return err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO intents (tag, created_at) VALUES (?, ?)`,
		intent.Tag, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert intent %q: %w", intent.Tag, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read intent id: %w", err)
	}

	if err := insertTexts(tx, "patterns", id, intent.Patterns); err != nil {
		return err
	}
	if err := insertTexts(tx, "responses", id, intent.Responses); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit intent: %w", err)
	}

	logger.Info("Intent created",
		zap.String("tag", intent.Tag),
		zap.Int("patterns", len(intent.Patterns)),
		zap.Int("responses", len(intent.Responses)),
	)
	return nil
}

// UpdateIntent replaces the patterns and/or responses of an existing
// entry. Nil slices leave the corresponding set untouched.
func (c *Client) UpdateIntent(tag string, patterns, responses []string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRow(`SELECT id FROM intents WHERE tag = ?`, tag).Scan(&id); err != nil {
		return err
	}

	if patterns != nil {
		if len(patterns) == 0 {
			return fmt.Errorf("intent %q must keep at least one pattern", tag)
		}
		if _, err := tx.Exec(`DELETE FROM patterns WHERE intent_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear patterns: %w", err)
		}
		if err := insertTexts(tx, "patterns", id, patterns); err != nil {
			return err
		}
	}

	if responses != nil {
		if len(responses) == 0 {
			return fmt.Errorf("intent %q must keep at least one response", tag)
		}
		if _, err := tx.Exec(`DELETE FROM responses WHERE intent_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear responses: %w", err)
		}
		if err := insertTexts(tx, "responses", id, responses); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit intent update: %w", err)
	}

	logger.Info("Intent updated", zap.String("tag", tag))
	return nil
}

func (c *Client) DeleteIntent(tag string) error {
	res, err := c.db.Exec(`DELETE FROM intents WHERE tag = ?`, tag)
	if err != nil {
		return fmt.Errorf("failed to delete intent %q: %w", tag, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrIntentNotFound
	}

	logger.Info("Intent deleted", zap.String("tag", tag))
	return nil
}

// ImportCorpus replaces the whole corpus in one transaction, used for
// JSON training-data import.
func (c *Client) ImportCorpus(intents []models.Intent) error {
	for i := range intents {
		if err := validateIntent(&intents[i]); err != nil {
			return err
		}
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM intents`); err != nil {
		return fmt.Errorf("failed to clear corpus: %w", err)
	}

	now := time.Now().Unix()
	for _, intent := range intents {
		res, err := tx.Exec(`INSERT INTO intents (tag, created_at) VALUES (?, ?)`, intent.Tag, now)
		if err != nil {
			return fmt.Errorf("failed to insert intent %q: %w", intent.Tag, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read intent id: %w", err)
		}
		if err := insertTexts(tx, "patterns", id, intent.Patterns); err != nil {
			return err
		}
		if err := insertTexts(tx, "responses", id, intent.Responses); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit corpus import: %w", err)
	}

	logger.Info("Corpus imported", zap.Int("intents", len(intents)))
	return nil
}

func insertTexts(tx *sql.Tx, table string, intentID int64, texts []string) error {
	query := fmt.Sprintf(`INSERT INTO %s (intent_id, text, position) VALUES (?, ?, ?)`, table)
	for i, text := range texts {
		if _, err := tx.Exec(query, intentID, text, i); err != nil {
			return fmt.Errorf("failed to insert %s row: %w", table, err)
		}
	}
	return nil
}

func validateIntent(intent *models.Intent) error {
	if intent.Tag == "" {
		return fmt.Errorf("intent tag must not be empty")
	}
	if len(intent.Patterns) == 0 {
		return fmt.Errorf("intent %q has no patterns", intent.Tag)
	}
	if len(intent.Responses) == 0 {
		return fmt.Errorf("intent %q has no responses", intent.Tag)
	}
	return nil
}
