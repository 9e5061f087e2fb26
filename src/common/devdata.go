package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"

	"natours/src/models"
	"natours/src/types"
)

var ErrNotDevelopment = errors.New("dev data can only be changed when API_ENV=development")

// userFixture carries the already hashed password, which models.User never
// decodes from JSON.
type userFixture struct {
	models.User
	Password string `json:"password"`
}

// ImportDevData loads tours.json, users.json and reviews.json from dir.
// Documents are inserted as they are, without validation, and the id
// sequences are moved past the imported ids.
func ImportDevData(db *gorm.DB, env types.Environment, dir string) error {
	if env != types.Development {
		return ErrNotDevelopment
	}
	var tours []models.Tour
	if err := readFixtures(filepath.Join(dir, "tours.json"), &tours); err != nil {
		return err
	}
	var fixtures []userFixture
	if err := readFixtures(filepath.Join(dir, "users.json"), &fixtures); err != nil {
		return err
	}
	users := make([]models.User, len(fixtures))
	for i, f := range fixtures {
		users[i] = f.User
		users[i].Password = f.Password
		users[i].Active = true
	}
	var reviews []models.Review
	if err := readFixtures(filepath.Join(dir, "reviews.json"), &reviews); err != nil {
		return err
	}

	err := db.Session(&gorm.Session{SkipHooks: true}).Transaction(func(tx *gorm.DB) error {
		if err := insert(tx, "users", users); err != nil {
			return err
		}
		if err := insert(tx, "tours", tours); err != nil {
			return err
		}
		if err := insert(tx, "reviews", reviews); err != nil {
			return err
		}
		for _, table := range []string{"users", "tours", "reviews"} {
			if err := tx.Exec(fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 1)) FROM %[1]s`, table)).Error; err != nil {
				return fmt.Errorf("%s sequence: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[DevData] Error importing: %s\n", err.Error())
		return err
	}
	log.Printf("[DevData] Imported %d tours, %d users, %d reviews\n", len(tours), len(users), len(reviews))
	return nil
}

// DeleteDevData empties the domain tables.
func DeleteDevData(db *gorm.DB, env types.Environment) error {
	if env != types.Development {
		return ErrNotDevelopment
	}
	err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Booking{}, &models.Review{}, &models.Tour{}, &models.User{}} {
			if err := tx.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[DevData] Error deleting: %s\n", err.Error())
		return err
	}
	log.Println("[DevData] Deleted bookings, reviews, tours and users")
	return nil
}

func insert[T any](tx *gorm.DB, table string, docs []T) error {
	if len(docs) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(&docs, 100).Error; err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}
	return nil
}

func readFixtures(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsArray() {
		return fmt.Errorf("%s: expected a JSON array", filepath.Base(path))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
