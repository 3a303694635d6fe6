package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"coldstore-backend/internal/database"
	"coldstore-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedDefaultStore(db))
	return db
}

type fixture struct {
	db      *gorm.DB
	eng     *Engine
	store   models.Store
	farmer  models.Farmer
	grader  models.Employee
	lot     models.IncomingGatePass
	grading models.GradingGatePass
}

// newFixture builds the state after intake and grading: a lot of 100 bags,
// graded into Medium 100 at 50kg per bag.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: newTestDB(t)}
	f.eng = NewEngine(f.db, 3)

	require.NoError(t, f.db.First(&f.store).Error)

	f.farmer = models.Farmer{Name: "Ramesh Kumar", Village: "Bilari", FatherName: "Suresh Kumar"}
	require.NoError(t, f.db.Create(&f.farmer).Error)
	f.grader = models.Employee{Name: "Mohan Lal", Role: "grader"}
	require.NoError(t, f.db.Create(&f.grader).Error)

	f.lot = models.IncomingGatePass{
		StoreID:      f.store.ID,
		GatePassNo:   1,
		FarmerID:     f.farmer.ID,
		Variety:      "Chipsona 1",
		BagsReceived: 100,
		Status:       models.LotStatusOpen,
	}
	require.NoError(t, f.db.Create(&f.lot).Error)

	f.grading = models.GradingGatePass{
		StoreID:            f.store.ID,
		GatePassNo:         1,
		IncomingGatePassID: f.lot.ID,
		GradedByID:         f.grader.ID,
		Date:               time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Variety:            "Chipsona 1",
		AllocationStatus:   models.AllocationStatusUnallocated,
		Buckets: []models.GradingBucket{{
			Size:            "Medium",
			BagType:         "Jute",
			WeightPerBagKg:  50,
			InitialQuantity: 100,
			CurrentQuantity: 100,
		}},
	}
	require.NoError(t, f.db.Create(&f.grading).Error)
	return f
}

func (f *fixture) gradingRef(size string) BucketRef {
	return BucketRef{Kind: models.BucketKindGrading, GatePassID: f.grading.ID, Size: size}
}

// allocateToStorage runs the storage stage against the fixture: create the
// pass, debit the grading bucket, create the produced placement row.
func (f *fixture) allocateToStorage(t *testing.T, size string, qty float64) (models.StorageGatePass, *Result) {
	t.Helper()
	var pass models.StorageGatePass
	var res *Result
	err := f.eng.WithRetry(context.Background(), func(tx *gorm.DB) error {
		no, err := NextGatePassNo(tx, f.store.ID, models.PassTypeStorage, 0)
		if err != nil {
			return err
		}
		pass = models.StorageGatePass{
			StoreID:    f.store.ID,
			GatePassNo: no,
			Date:       time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
			Variety:    f.grading.Variety,
		}
		if err := tx.Create(&pass).Error; err != nil {
			return err
		}
		res, err = f.eng.Allocate(tx, Consumer{Kind: models.ConsumerKindStorage, ID: pass.ID},
			[]Request{{Source: f.gradingRef(size), Quantity: qty}})
		if err != nil {
			return err
		}
		bucket := models.StorageBucket{
			StorageGatePassID: pass.ID,
			Size:              size,
			Chamber:           "A",
			Floor:             "1",
			Row:               "3",
			WeightPerBagKg:    res.Buckets[0].WeightPerBagKg,
			InitialQuantity:   qty,
			CurrentQuantity:   qty,
		}
		return tx.Create(&bucket).Error
	})
	require.NoError(t, err)
	return pass, res
}

func (f *fixture) allocateToNikasi(t *testing.T, source BucketRef, qty float64) (models.NikasiGatePass, *Result) {
	t.Helper()
	var pass models.NikasiGatePass
	var res *Result
	err := f.eng.WithRetry(context.Background(), func(tx *gorm.DB) error {
		no, err := NextGatePassNo(tx, f.store.ID, models.PassTypeNikasi, 0)
		if err != nil {
			return err
		}
		pass = models.NikasiGatePass{
			StoreID:    f.store.ID,
			GatePassNo: no,
			Date:       time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			Variety:    f.grading.Variety,
		}
		if err := tx.Create(&pass).Error; err != nil {
			return err
		}
		res, err = f.eng.Allocate(tx, Consumer{Kind: models.ConsumerKindNikasi, ID: pass.ID},
			[]Request{{Source: source, Quantity: qty}})
		return err
	})
	require.NoError(t, err)
	return pass, res
}

func (f *fixture) gradingBucket(t *testing.T, size string) models.GradingBucket {
	t.Helper()
	var b models.GradingBucket
	require.NoError(t, f.db.Where("grading_gate_pass_id = ? AND size = ?", f.grading.ID, size).First(&b).Error)
	return b
}

func (f *fixture) storageBucket(t *testing.T, passID uint, size string) models.StorageBucket {
	t.Helper()
	var b models.StorageBucket
	require.NoError(t, f.db.Where("storage_gate_pass_id = ? AND size = ?", passID, size).First(&b).Error)
	return b
}

func TestAllocateDebitsSourceAndRecordsLineage(t *testing.T) {
	f := newFixture(t)

	pass, res := f.allocateToStorage(t, "Medium", 40)

	b := f.gradingBucket(t, "Medium")
	assert.Equal(t, 60.0, b.CurrentQuantity)
	assert.Equal(t, 100.0, b.InitialQuantity)

	require.Len(t, res.Buckets, 1)
	assert.Equal(t, 100.0, res.Buckets[0].PriorQuantity)
	assert.Equal(t, 50.0, res.Buckets[0].WeightPerBagKg)
	assert.NotEmpty(t, res.CorrelationID)

	require.Len(t, res.Snapshots, 1)
	snap := res.Snapshots[0]
	assert.Equal(t, string(models.ConsumerKindStorage), snap.OwnerType)
	assert.Equal(t, pass.ID, snap.OwnerID)
	assert.Equal(t, 100.0, snap.InitialQuantity)
	assert.Equal(t, 100.0, snap.CurrentQuantity) // pre-debit state

	var edges []models.Allocation
	require.NoError(t, f.db.Find(&edges).Error)
	require.Len(t, edges, 1)
	assert.Equal(t, 40.0, edges[0].Quantity)
	assert.Equal(t, models.BucketKindGrading, edges[0].SourceKind)
	assert.Equal(t, b.ID, edges[0].SourceBucketID)
	assert.Equal(t, pass.ID, edges[0].ConsumerID)

	var gp models.GradingGatePass
	require.NoError(t, f.db.First(&gp, f.grading.ID).Error)
	assert.Equal(t, models.AllocationStatusPartial, gp.AllocationStatus)
}

func TestAllocateEdgeSumMatchesBucketMovement(t *testing.T) {
	f := newFixture(t)
	f.allocateToStorage(t, "Medium", 40)
	f.allocateToStorage(t, "Medium", 25)

	b := f.gradingBucket(t, "Medium")

	var debited float64
	require.NoError(t, f.db.Model(&models.Allocation{}).
		Where("source_kind = ? AND source_bucket_id = ?", models.BucketKindGrading, b.ID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&debited).Error)

	assert.Equal(t, b.InitialQuantity-b.CurrentQuantity, debited)
}

func TestAllocateInsufficientQuantityLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)

	err := f.eng.WithRetry(context.Background(), func(tx *gorm.DB) error {
		_, err := f.eng.Allocate(tx, Consumer{Kind: models.ConsumerKindNikasi, ID: 99},
			[]Request{{Source: f.gradingRef("Medium"), Quantity: 120}})
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.Contains(t, err.Error(), "has 100 bags, requested 120 (short 20)")

	b := f.gradingBucket(t, "Medium")
	assert.Equal(t, 100.0, b.CurrentQuantity)

	var edges, snaps int64
	require.NoError(t, f.db.Model(&models.Allocation{}).Count(&edges).Error)
	require.NoError(t, f.db.Model(&models.GatePassSnapshot{}).Count(&snaps).Error)
	assert.Zero(t, edges)
	assert.Zero(t, snaps)
}

func TestAllocateRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	consumer := Consumer{Kind: models.ConsumerKindStorage, ID: 5}

	run := func(reqs []Request) error {
		return f.eng.WithRetry(context.Background(), func(tx *gorm.DB) error {
			_, err := f.eng.Allocate(tx, consumer, reqs)
			return err
		})
	}

	assert.ErrorIs(t, run(nil), ErrInvalidInput)
	assert.ErrorIs(t, run([]Request{{Source: f.gradingRef("Medium"), Quantity: 0}}), ErrInvalidInput)
	assert.ErrorIs(t, run([]Request{{Source: f.gradingRef("Medium"), Quantity: -5}}), ErrInvalidInput)
	assert.ErrorIs(t, run([]Request{
		{Source: f.gradingRef("Medium"), Quantity: 10},
		{Source: f.gradingRef("Medium"), Quantity: 20},
	}), ErrInvalidInput)
	assert.ErrorIs(t, run([]Request{{Source: f.gradingRef("Seed"), Quantity: 10}}), ErrNotFound)

	// A storage pass can never source itself.
	assert.ErrorIs(t, run([]Request{{
		Source:   BucketRef{Kind: models.BucketKindStorage, GatePassID: consumer.ID, Size: "Medium"},
		Quantity: 10,
	}}), ErrInvalidInput)
}

func TestSequentialDoubleSpendIsRejected(t *testing.T) {
	f := newFixture(t)
	f.allocateToStorage(t, "Medium", 60)

	err := f.eng.WithRetry(context.Background(), func(tx *gorm.DB) error {
		_, err := f.eng.Allocate(tx, Consumer{Kind: models.ConsumerKindNikasi, ID: 7},
			[]Request{{Source: f.gradingRef("Medium"), Quantity: 60}})
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientQuantity)

	b := f.gradingBucket(t, "Medium")
	assert.Equal(t, 40.0, b.CurrentQuantity)
}

func TestApplyDeltaStaleVersionConflicts(t *testing.T) {
	f := newFixture(t)

	b, err := loadBucket(f.db, f.gradingRef("Medium"))
	require.NoError(t, err)

	// Another writer touches the bucket after our read.
	require.NoError(t, f.db.Model(&models.GradingBucket{}).
		Where("id = ?", b.ID).
		Update("version", gorm.Expr("version + 1")).Error)

	err = applyDelta(f.db, b, -10)
	require.ErrorIs(t, err, ErrConflict)

	fresh := f.gradingBucket(t, "Medium")
	assert.Equal(t, 100.0, fresh.CurrentQuantity)
}

func TestWithRetryRetriesConflictsOnly(t *testing.T) {
	f := newFixture(t)

	attempts := 0
	err := f.eng.WithRetry(context.Background(), func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("%w: bucket contended", ErrConflict)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = f.eng.WithRetry(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return fmt.Errorf("%w: bad payload", ErrInvalidInput)
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, attempts)

	attempts = 0
	err = f.eng.WithRetry(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return fmt.Errorf("%w: never resolves", ErrConflict)
	})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 4, attempts) // initial + MaxRetries
}

func TestFullStatusAfterCompleteAllocation(t *testing.T) {
	f := newFixture(t)
	f.allocateToStorage(t, "Medium", 100)

	var gp models.GradingGatePass
	require.NoError(t, f.db.First(&gp, f.grading.ID).Error)
	assert.Equal(t, models.AllocationStatusFull, gp.AllocationStatus)
}

func TestReleaseFromNikasiCreditsStorageOnly(t *testing.T) {
	f := newFixture(t)

	// Medium 100 -> 40 into storage, 25 of those issued via nikasi.
	storagePass, _ := f.allocateToStorage(t, "Medium", 40)
	storageRef := BucketRef{Kind: models.BucketKindStorage, GatePassID: storagePass.ID, Size: "Medium"}
	_, nikasiRes := f.allocateToNikasi(t, storageRef, 25)

	sb := f.storageBucket(t, storagePass.ID, "Medium")
	require.Equal(t, 15.0, sb.CurrentQuantity)

	// Release 10: the storage bucket gets them back, grading is untouched.
	rel, err := f.eng.Release(context.Background(), nikasiRes.Buckets[0].AllocationID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, rel.Released)
	assert.Equal(t, 25.0, rel.CurrentQuantity)
	assert.Equal(t, storageRef, rel.Source)

	sb = f.storageBucket(t, storagePass.ID, "Medium")
	assert.Equal(t, 25.0, sb.CurrentQuantity)
	gb := f.gradingBucket(t, "Medium")
	assert.Equal(t, 60.0, gb.CurrentQuantity)

	var credit models.Allocation
	require.NoError(t, f.db.Where("reversal_of_id = ?", nikasiRes.Buckets[0].AllocationID).First(&credit).Error)
	assert.Equal(t, -10.0, credit.Quantity)
	assert.Equal(t, models.ConsumerKindRelease, credit.ConsumerKind)
}

func TestReleaseCannotExceedNetAllocated(t *testing.T) {
	f := newFixture(t)
	storagePass, _ := f.allocateToStorage(t, "Medium", 40)
	_, nikasiRes := f.allocateToNikasi(t,
		BucketRef{Kind: models.BucketKindStorage, GatePassID: storagePass.ID, Size: "Medium"}, 25)
	allocID := nikasiRes.Buckets[0].AllocationID

	_, err := f.eng.Release(context.Background(), allocID, 10)
	require.NoError(t, err)

	// 15 remain on the allocation after the first release.
	_, err = f.eng.Release(context.Background(), allocID, 20)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.eng.Release(context.Background(), allocID, 15)
	require.NoError(t, err)

	sb := f.storageBucket(t, storagePass.ID, "Medium")
	assert.Equal(t, 40.0, sb.CurrentQuantity)
}

func TestReleaseRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	_, res := f.allocateToStorage(t, "Medium", 40)
	allocID := res.Buckets[0].AllocationID

	_, err := f.eng.Release(context.Background(), allocID, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.eng.Release(context.Background(), allocID, -3)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.eng.Release(context.Background(), 9999, 5)
	assert.ErrorIs(t, err, ErrNotFound)

	// A credit edge is not itself releasable.
	_, err = f.eng.Release(context.Background(), allocID, 10)
	require.NoError(t, err)
	var credit models.Allocation
	require.NoError(t, f.db.Where("reversal_of_id = ?", allocID).First(&credit).Error)
	_, err = f.eng.Release(context.Background(), credit.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReleaseFromStorageDebitsProducedBucket(t *testing.T) {
	f := newFixture(t)
	storagePass, res := f.allocateToStorage(t, "Medium", 40)

	rel, err := f.eng.Release(context.Background(), res.Buckets[0].AllocationID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, rel.Released)

	gb := f.gradingBucket(t, "Medium")
	assert.Equal(t, 70.0, gb.CurrentQuantity)
	sb := f.storageBucket(t, storagePass.ID, "Medium")
	assert.Equal(t, 30.0, sb.CurrentQuantity)

	var gp models.GradingGatePass
	require.NoError(t, f.db.First(&gp, f.grading.ID).Error)
	assert.Equal(t, models.AllocationStatusPartial, gp.AllocationStatus)
}

func TestReleaseFailsWhenProducedBucketAlreadyIssued(t *testing.T) {
	f := newFixture(t)
	storagePass, res := f.allocateToStorage(t, "Medium", 40)
	f.allocateToNikasi(t,
		BucketRef{Kind: models.BucketKindStorage, GatePassID: storagePass.ID, Size: "Medium"}, 35)

	// Only 5 bags are left in the placement; releasing 10 from the
	// grading->storage allocation would double-count the issued bags.
	_, err := f.eng.Release(context.Background(), res.Buckets[0].AllocationID, 10)
	require.ErrorIs(t, err, ErrInvalidInput)

	gb := f.gradingBucket(t, "Medium")
	assert.Equal(t, 60.0, gb.CurrentQuantity)
	sb := f.storageBucket(t, storagePass.ID, "Medium")
	assert.Equal(t, 5.0, sb.CurrentQuantity)
}

func TestReleaseAllRestoresUnallocatedStatus(t *testing.T) {
	f := newFixture(t)
	_, res := f.allocateToStorage(t, "Medium", 100)

	_, err := f.eng.Release(context.Background(), res.Buckets[0].AllocationID, 100)
	require.NoError(t, err)

	var gp models.GradingGatePass
	require.NoError(t, f.db.First(&gp, f.grading.ID).Error)
	assert.Equal(t, models.AllocationStatusUnallocated, gp.AllocationStatus)

	gb := f.gradingBucket(t, "Medium")
	assert.Equal(t, 100.0, gb.CurrentQuantity)
}
