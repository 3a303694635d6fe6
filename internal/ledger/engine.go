package ledger

import (
	"context"
	"errors"
	"fmt"

	"coldstore-backend/internal/metrics"
	"coldstore-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Engine implements the shared allocation algorithm used by the storage and
// nikasi stages: validate against a consistent read of every referenced
// bucket, snapshot, debit, append edges — all inside one transaction.
// Optimistic version guards on the bucket rows turn concurrent overdraw
// attempts into conflicts; the whole transaction is retried a bounded number
// of times before the conflict is surfaced to the caller.
type Engine struct {
	DB         *gorm.DB
	MaxRetries int
}

func NewEngine(db *gorm.DB, maxRetries int) *Engine {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Engine{DB: db, MaxRetries: maxRetries}
}

// WithRetry runs fn in a transaction, retrying from scratch on ErrConflict.
// Any other error rolls back and returns immediately, so a failed allocation
// never leaves partial state behind.
func (e *Engine) WithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= e.MaxRetries; attempt++ {
		err = e.DB.WithContext(ctx).Transaction(fn)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
		metrics.AllocationConflicts.Inc()
	}
	return err
}

// Consumer identifies the gate pass an allocation is charged to.
type Consumer struct {
	Kind models.ConsumerKind
	ID   uint
}

// Request asks for quantity bags out of one source bucket.
type Request struct {
	Source   BucketRef
	Quantity float64
}

// AllocatedBucket reports one executed debit: the pre-allocation state of the
// source (what the snapshot captured) plus the created edge.
type AllocatedBucket struct {
	Source          BucketRef
	SourceBucketID  uint
	AllocationID    uint
	Quantity        float64
	InitialQuantity float64 // source, at allocation time
	PriorQuantity   float64 // source currentQuantity before the debit
	WeightPerBagKg  float64
	Chamber         string // source location, storage sources only
	Floor           string
	Row             string
}

type Result struct {
	CorrelationID string
	Buckets       []AllocatedBucket
	Snapshots     []models.GatePassSnapshot
}

// Allocate validates and executes every request against the given
// transaction. Callers create the consumer record and any produced buckets in
// the same transaction, then let WithRetry commit the lot atomically.
func (e *Engine) Allocate(tx *gorm.DB, consumer Consumer, reqs []Request) (*Result, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no allocations requested", ErrInvalidInput)
	}

	// Resolve and validate everything before any mutation. A request list
	// that references the same bucket twice is malformed (the UI sends one
	// row per cell) and would defeat the single consistent read per bucket.
	seen := make(map[BucketRef]bool, len(reqs))
	buckets := make([]*liveBucket, 0, len(reqs))
	for _, req := range reqs {
		if req.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for bucket (%s), got %g", ErrInvalidInput, req.Source, req.Quantity)
		}
		if seen[req.Source] {
			return nil, fmt.Errorf("%w: duplicate allocation for bucket (%s)", ErrInvalidInput, req.Source)
		}
		seen[req.Source] = true

		if consumer.Kind == models.ConsumerKindStorage &&
			req.Source.Kind == models.BucketKindStorage &&
			req.Source.GatePassID == consumer.ID {
			return nil, fmt.Errorf("%w: allocation source and target resolve to the same bucket (%s)", ErrInvalidInput, req.Source)
		}

		b, err := loadBucket(tx, req.Source)
		if err != nil {
			return nil, err
		}
		if req.Quantity > b.CurrentQuantity {
			return nil, fmt.Errorf("%w: bucket (%s) has %g bags, requested %g (short %g)",
				ErrInsufficientQuantity, req.Source, b.CurrentQuantity, req.Quantity, req.Quantity-b.CurrentQuantity)
		}
		buckets = append(buckets, b)
	}

	res := &Result{CorrelationID: uuid.NewString()}
	for i, req := range reqs {
		b := buckets[i]

		snap := models.GatePassSnapshot{
			OwnerType:        string(consumer.Kind),
			OwnerID:          consumer.ID,
			SourceKind:       b.Ref.Kind,
			SourceGatePassID: b.Ref.GatePassID,
			Size:             b.Ref.Size,
			InitialQuantity:  b.InitialQuantity,
			CurrentQuantity:  b.CurrentQuantity,
			Chamber:          b.Chamber,
			Floor:            b.Floor,
			Row:              b.Row,
		}
		if err := tx.Create(&snap).Error; err != nil {
			return nil, err
		}

		prior := b.CurrentQuantity
		if err := applyDelta(tx, b, -req.Quantity); err != nil {
			return nil, err
		}

		edge := models.Allocation{
			CorrelationID:  res.CorrelationID,
			SourceKind:     b.Ref.Kind,
			SourceBucketID: b.ID,
			ConsumerKind:   consumer.Kind,
			ConsumerID:     consumer.ID,
			Quantity:       req.Quantity,
		}
		if err := tx.Create(&edge).Error; err != nil {
			return nil, err
		}

		res.Snapshots = append(res.Snapshots, snap)
		res.Buckets = append(res.Buckets, AllocatedBucket{
			Source:          b.Ref,
			SourceBucketID:  b.ID,
			AllocationID:    edge.ID,
			Quantity:        req.Quantity,
			InitialQuantity: b.InitialQuantity,
			PriorQuantity:   prior,
			WeightPerBagKg:  b.WeightPerBagKg,
			Chamber:         b.Chamber,
			Floor:           b.Floor,
			Row:             b.Row,
		})
	}

	if err := refreshGradingStatus(tx, buckets); err != nil {
		return nil, err
	}

	metrics.Allocations.WithLabelValues(string(consumer.Kind)).Inc()
	return res, nil
}

type ReleaseResult struct {
	CorrelationID   string
	Source          BucketRef
	Released        float64
	CurrentQuantity float64 // source balance after the credit
}

// Release undoes part of an allocation (the UI's quick remove). It appends a
// credit edge restoring amount to the immediate source bucket — never
// anything further upstream. When the released allocation produced a storage
// bucket, that bucket is debited by the same amount in the same transaction,
// so quantity stays conserved across the lineage; the release fails if the
// produced bucket no longer holds that much (already issued via nikasi).
func (e *Engine) Release(ctx context.Context, allocationID uint, amount float64) (*ReleaseResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: release quantity must be positive, got %g", ErrInvalidInput, amount)
	}

	var res *ReleaseResult
	err := e.WithRetry(ctx, func(tx *gorm.DB) error {
		var alloc models.Allocation
		err := tx.First(&alloc, "id = ?", allocationID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: allocation %d", ErrNotFound, allocationID)
		}
		if err != nil {
			return err
		}
		if alloc.ConsumerKind == models.ConsumerKindRelease || alloc.Quantity <= 0 {
			return fmt.Errorf("%w: allocation %d is not a releasable debit", ErrInvalidInput, allocationID)
		}

		// Net still allocated = original debit plus all credits against it
		// (credits carry negative quantity).
		var credited float64
		err = tx.Model(&models.Allocation{}).
			Where("reversal_of_id = ?", alloc.ID).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&credited).Error
		if err != nil {
			return err
		}
		net := alloc.Quantity + credited
		if amount > net {
			return fmt.Errorf("%w: release of %g exceeds the %g still allocated for allocation %d", ErrInvalidInput, amount, net, alloc.ID)
		}

		source, err := loadBucketByID(tx, alloc.SourceKind, alloc.SourceBucketID)
		if err != nil {
			return err
		}

		// A credit can never push the balance past initialQuantity.
		credit := amount
		if source.CurrentQuantity+credit > source.InitialQuantity {
			credit = source.InitialQuantity - source.CurrentQuantity
		}

		correlationID := uuid.NewString()

		if alloc.ConsumerKind == models.ConsumerKindStorage {
			// The debit created a placement row that is itself allocatable;
			// shrink it so the released bags are not spendable twice.
			produced, err := loadBucket(tx, BucketRef{
				Kind:       models.BucketKindStorage,
				GatePassID: alloc.ConsumerID,
				Size:       source.Ref.Size,
			})
			if err != nil {
				return err
			}
			if amount > produced.CurrentQuantity {
				return fmt.Errorf("%w: cannot release %g, only %g left in storage bucket (%s); the rest was issued downstream",
					ErrInvalidInput, amount, produced.CurrentQuantity, produced.Ref)
			}
			if err := applyDelta(tx, produced, -amount); err != nil {
				return err
			}
			edge := models.Allocation{
				CorrelationID:  correlationID,
				SourceKind:     models.BucketKindStorage,
				SourceBucketID: produced.ID,
				ConsumerKind:   models.ConsumerKindRelease,
				ConsumerID:     alloc.ID,
				Quantity:       amount,
			}
			if err := tx.Create(&edge).Error; err != nil {
				return err
			}
		}

		if err := applyDelta(tx, source, credit); err != nil {
			return err
		}
		creditEdge := models.Allocation{
			CorrelationID:  correlationID,
			SourceKind:     source.Ref.Kind,
			SourceBucketID: source.ID,
			ConsumerKind:   models.ConsumerKindRelease,
			ConsumerID:     alloc.ID,
			Quantity:       -credit,
			ReversalOfID:   &alloc.ID,
		}
		if err := tx.Create(&creditEdge).Error; err != nil {
			return err
		}

		if err := refreshGradingStatus(tx, []*liveBucket{source}); err != nil {
			return err
		}

		res = &ReleaseResult{
			CorrelationID:   correlationID,
			Source:          source.Ref,
			Released:        credit,
			CurrentQuantity: source.CurrentQuantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Releases.Inc()
	return res, nil
}

// refreshGradingStatus recomputes the allocationStatus of every grading gate
// pass whose buckets were touched.
func refreshGradingStatus(tx *gorm.DB, touched []*liveBucket) error {
	passIDs := make(map[uint]bool)
	for _, b := range touched {
		if b.Ref.Kind == models.BucketKindGrading {
			passIDs[b.Ref.GatePassID] = true
		}
	}

	for passID := range passIDs {
		var totals struct {
			Current float64
			Initial float64
		}
		err := tx.Model(&models.GradingBucket{}).
			Where("grading_gate_pass_id = ?", passID).
			Select("COALESCE(SUM(current_quantity), 0) AS current, COALESCE(SUM(initial_quantity), 0) AS initial").
			Scan(&totals).Error
		if err != nil {
			return err
		}

		status := models.AllocationStatusPartial
		switch {
		case totals.Current == totals.Initial:
			status = models.AllocationStatusUnallocated
		case totals.Current == 0:
			status = models.AllocationStatusFull
		}

		err = tx.Model(&models.GradingGatePass{}).
			Where("id = ?", passID).
			Update("allocation_status", status).Error
		if err != nil {
			return err
		}
	}
	return nil
}
