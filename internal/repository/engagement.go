package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// toggleMembership flips one (entity, user) membership row inside tx. It removes the
// row matched by cond when present, otherwise inserts row. added reports the new state.
func toggleMembership(tx *gorm.DB, model, row interface{}, cond map[string]interface{}) (added bool, err error) {
	res := tx.Where(cond).Delete(model)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return false, err
	}
	return true, nil
}

// membersByParent loads user ids of a membership table grouped by parent id, oldest first.
func membersByParent(db *gorm.DB, model interface{}, parentColumn string, parentIDs []uint) (map[uint][]string, error) {
	out := make(map[uint][]string, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ParentID uint
		UserID   string
	}
	err := db.Model(model).
		Select(parentColumn+" AS parent_id, user_id").
		Where(parentColumn+" IN ?", parentIDs).
		Order("created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ParentID] = append(out[row.ParentID], row.UserID)
	}
	return out, nil
}
