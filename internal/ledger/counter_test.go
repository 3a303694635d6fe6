package ledger

import (
	"testing"

	"coldstore-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextGatePassNoIsMonotonicPerStoreAndType(t *testing.T) {
	db := newTestDB(t)
	var store models.Store
	require.NoError(t, db.First(&store).Error)

	for want := int64(1); want <= 3; want++ {
		no, err := NextGatePassNo(db, store.ID, models.PassTypeGrading, 0)
		require.NoError(t, err)
		assert.Equal(t, want, no)
	}

	// Other pass types run their own sequence.
	no, err := NextGatePassNo(db, store.ID, models.PassTypeStorage, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), no)
}

func TestNextGatePassNoAcceptsForwardJumpOnly(t *testing.T) {
	db := newTestDB(t)
	var store models.Store
	require.NoError(t, db.First(&store).Error)

	no, err := NextGatePassNo(db, store.ID, models.PassTypeIncoming, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), no)

	// The counter jumped; the sequence continues from there.
	no, err = NextGatePassNo(db, store.ID, models.PassTypeIncoming, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(11), no)

	// Re-using an issued number is rejected.
	_, err = NextGatePassNo(db, store.ID, models.PassTypeIncoming, 11)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = NextGatePassNo(db, store.ID, models.PassTypeIncoming, 4)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPeekGatePassNoDoesNotIssue(t *testing.T) {
	db := newTestDB(t)
	var store models.Store
	require.NoError(t, db.First(&store).Error)

	no, err := PeekGatePassNo(db, store.ID, models.PassTypeNikasi)
	require.NoError(t, err)
	assert.Equal(t, int64(1), no)

	// Peeking twice returns the same number.
	no, err = PeekGatePassNo(db, store.ID, models.PassTypeNikasi)
	require.NoError(t, err)
	assert.Equal(t, int64(1), no)

	issued, err := NextGatePassNo(db, store.ID, models.PassTypeNikasi, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), issued)

	no, err = PeekGatePassNo(db, store.ID, models.PassTypeNikasi)
	require.NoError(t, err)
	assert.Equal(t, int64(2), no)
}
