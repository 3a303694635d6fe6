package ledger

import (
	"errors"
	"fmt"

	"coldstore-backend/internal/models"

	"gorm.io/gorm"
)

// NextGatePassNo issues the next gate pass number for a store and pass type
// inside the caller's transaction, so the number and the pass commit (or roll
// back) together. The UI usually prefills the number from the counter; a
// client-supplied number is accepted only if it is strictly greater than the
// last one issued, and the counter jumps forward to it. The counter row
// carries the same optimistic version guard as the buckets.
func NextGatePassNo(tx *gorm.DB, storeID uint, passType models.PassType, requested int64) (int64, error) {
	var counter models.GatePassCounter
	err := tx.Where(models.GatePassCounter{StoreID: storeID, PassType: passType}).
		FirstOrCreate(&counter).Error
	if err != nil {
		// Two first writers racing on counter creation trip the unique
		// index; a retry finds the row the winner created.
		return 0, fmt.Errorf("%w: gate pass counter (%s): %v", ErrConflict, passType, err)
	}

	no := counter.LastNo + 1
	if requested > 0 {
		if requested <= counter.LastNo {
			return 0, fmt.Errorf("%w: gate pass number %d already issued for %s passes (last is %d)",
				ErrInvalidInput, requested, passType, counter.LastNo)
		}
		no = requested
	}

	res := tx.Model(&models.GatePassCounter{}).
		Where("id = ? AND version = ?", counter.ID, counter.Version).
		Updates(map[string]any{
			"last_no": no,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: gate pass counter (%s)", ErrConflict, passType)
	}
	return no, nil
}

// PeekGatePassNo returns the number the next pass of this type would get,
// without issuing it. Informational only; creation still goes through
// NextGatePassNo.
func PeekGatePassNo(db *gorm.DB, storeID uint, passType models.PassType) (int64, error) {
	var counter models.GatePassCounter
	err := db.Where("store_id = ? AND pass_type = ?", storeID, passType).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.LastNo + 1, nil
}
