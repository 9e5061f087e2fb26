package common

import (
	"log"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"natours/src/models"
)

// BackfillTourSlugs derives the slug of every tour stored without one and
// returns how many were updated.
func BackfillTourSlugs(db *gorm.DB) (int, error) {
	n := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		var tours []models.Tour
		if err := tx.
			Model(&models.Tour{}).
			Select("id", "name").
			Where("slug IS NULL OR slug = ''").
			Find(&tours).
			Error; err != nil {
			return err
		}
		for _, tour := range tours {
			if err := tx.
				Model(&models.Tour{}).
				Where("id = ?", tour.ID).
				Update("slug", slug.Make(tour.Name)).
				Error; err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		log.Printf("[Tours] Error backfilling slugs: %s\n", err.Error())
		return 0, err
	}
	return n, nil
}
