package models

import "time"

type BucketKind string

const (
	BucketKindGrading BucketKind = "grading"
	BucketKindStorage BucketKind = "storage"
)

type ConsumerKind string

const (
	ConsumerKindStorage ConsumerKind = "storage"
	ConsumerKindNikasi  ConsumerKind = "nikasi"
	ConsumerKindRelease ConsumerKind = "release" // credit edge from a quick remove
)

// Allocation: append-only edge of the lineage graph. Positive Quantity is a
// debit against the source bucket, negative a credit (release). A bucket's
// CurrentQuantity always equals InitialQuantity minus the sum of its edges.
// Edges are never updated or deleted.
type Allocation struct {
	ID            uint       `gorm:"primaryKey"`
	CorrelationID string     `gorm:"size:36;index;not null"` // uuid, one per allocate/release call
	SourceKind    BucketKind `gorm:"size:10;index:idx_alloc_source;not null"`
	SourceBucketID uint      `gorm:"index:idx_alloc_source;not null"`
	ConsumerKind  ConsumerKind `gorm:"size:10;index:idx_alloc_consumer;not null"`
	ConsumerID    uint         `gorm:"index:idx_alloc_consumer;not null"`
	Quantity      float64      `gorm:"not null"` // negative = credit
	ReversalOfID  *uint        `gorm:"index"`    // set on credits, points at the debited edge
	CreatedAt     time.Time
}
