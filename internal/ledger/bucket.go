package ledger

import (
	"errors"
	"fmt"

	"coldstore-backend/internal/models"

	"gorm.io/gorm"
)

// BucketRef addresses a live bucket by its natural key. Kind is the tag that
// decides which table the key resolves against (grading vs storage buckets).
type BucketRef struct {
	Kind       models.BucketKind
	GatePassID uint
	Size       string
}

func (r BucketRef) String() string {
	return fmt.Sprintf("%s gate pass %d, size %s", r.Kind, r.GatePassID, r.Size)
}

// liveBucket is the engine's uniform view over the two bucket tables.
// Snapshots are taken from this view; debits and credits go back to the
// concrete table through applyDelta.
type liveBucket struct {
	Ref             BucketRef
	ID              uint
	InitialQuantity float64
	CurrentQuantity float64
	Version         int64
	WeightPerBagKg  float64
	Chamber         string // storage buckets only
	Floor           string
	Row             string
}

func loadBucket(tx *gorm.DB, ref BucketRef) (*liveBucket, error) {
	switch ref.Kind {
	case models.BucketKindGrading:
		var b models.GradingBucket
		err := tx.Where("grading_gate_pass_id = ? AND size = ?", ref.GatePassID, ref.Size).First(&b).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bucket (%s)", ErrNotFound, ref)
		}
		if err != nil {
			return nil, err
		}
		return &liveBucket{
			Ref:             ref,
			ID:              b.ID,
			InitialQuantity: b.InitialQuantity,
			CurrentQuantity: b.CurrentQuantity,
			Version:         b.Version,
			WeightPerBagKg:  b.WeightPerBagKg,
		}, nil

	case models.BucketKindStorage:
		var b models.StorageBucket
		err := tx.Where("storage_gate_pass_id = ? AND size = ?", ref.GatePassID, ref.Size).First(&b).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bucket (%s)", ErrNotFound, ref)
		}
		if err != nil {
			return nil, err
		}
		return &liveBucket{
			Ref:             ref,
			ID:              b.ID,
			InitialQuantity: b.InitialQuantity,
			CurrentQuantity: b.CurrentQuantity,
			Version:         b.Version,
			WeightPerBagKg:  b.WeightPerBagKg,
			Chamber:         b.Chamber,
			Floor:           b.Floor,
			Row:             b.Row,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown bucket kind %q", ErrInvalidInput, ref.Kind)
	}
}

func loadBucketByID(tx *gorm.DB, kind models.BucketKind, id uint) (*liveBucket, error) {
	switch kind {
	case models.BucketKindGrading:
		var b models.GradingBucket
		err := tx.First(&b, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: grading bucket %d", ErrNotFound, id)
		}
		if err != nil {
			return nil, err
		}
		return &liveBucket{
			Ref:             BucketRef{Kind: kind, GatePassID: b.GradingGatePassID, Size: b.Size},
			ID:              b.ID,
			InitialQuantity: b.InitialQuantity,
			CurrentQuantity: b.CurrentQuantity,
			Version:         b.Version,
			WeightPerBagKg:  b.WeightPerBagKg,
		}, nil

	case models.BucketKindStorage:
		var b models.StorageBucket
		err := tx.First(&b, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: storage bucket %d", ErrNotFound, id)
		}
		if err != nil {
			return nil, err
		}
		return &liveBucket{
			Ref:             BucketRef{Kind: kind, GatePassID: b.StorageGatePassID, Size: b.Size},
			ID:              b.ID,
			InitialQuantity: b.InitialQuantity,
			CurrentQuantity: b.CurrentQuantity,
			Version:         b.Version,
			WeightPerBagKg:  b.WeightPerBagKg,
			Chamber:         b.Chamber,
			Floor:           b.Floor,
			Row:             b.Row,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown bucket kind %q", ErrInvalidInput, kind)
	}
}

// applyDelta moves a bucket's balance by delta (negative = debit) with an
// optimistic version guard. Zero rows affected means someone else touched the
// bucket since it was read; the whole transaction gets retried.
func applyDelta(tx *gorm.DB, b *liveBucket, delta float64) error {
	var target any
	switch b.Ref.Kind {
	case models.BucketKindGrading:
		target = &models.GradingBucket{}
	case models.BucketKindStorage:
		target = &models.StorageBucket{}
	default:
		return fmt.Errorf("%w: unknown bucket kind %q", ErrInvalidInput, b.Ref.Kind)
	}

	res := tx.Model(target).
		Where("id = ? AND version = ?", b.ID, b.Version).
		Updates(map[string]any{
			"current_quantity": gorm.Expr("current_quantity + ?", delta),
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: bucket (%s)", ErrConflict, b.Ref)
	}
	b.CurrentQuantity += delta
	b.Version++
	return nil
}
