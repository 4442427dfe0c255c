package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"venue-presence-api/internal/domain"
)

// mockMetricsRecorder is a mock implementation of MetricsRecorder for testing
type mockMetricsRecorder struct {
	queries   []queryRecord
	dbStats   []sql.DBStats
	statsCall int
}

type queryRecord struct {
	operation string
	table     string
	duration  time.Duration
	err       error
}

func (m *mockMetricsRecorder) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	m.queries = append(m.queries, queryRecord{
		operation: operation,
		table:     table,
		duration:  duration,
		err:       err,
	})
}

func (m *mockMetricsRecorder) UpdateDBStats(stats interface{}) {
	if dbStats, ok := stats.(sql.DBStats); ok {
		m.dbStats = append(m.dbStats, dbStats)
		m.statsCall++
	}
}

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err, "Failed to open test database")

	err = db.AutoMigrate(&domain.PresenceRecord{})
	require.NoError(t, err, "Failed to migrate presence model")

	return db
}

func newTestRecord() domain.PresenceRecord {
	return domain.PresenceRecord{
		UserID:   uuid.New(),
		VenueID:  uuid.New(),
		LastSeen: time.Now().UTC(),
	}
}

func TestRegisterMetricsCallbacks_Query(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}

	RegisterMetricsCallbacks(db, recorder)

	record := newTestRecord()
	err := db.Create(&record).Error
	require.NoError(t, err)

	// Clear previous records
	recorder.queries = nil

	var result domain.PresenceRecord
	err = db.First(&result).Error
	require.NoError(t, err)

	require.Len(t, recorder.queries, 1, "Expected one query to be recorded")

	query := recorder.queries[0]
	assert.Equal(t, "select", query.operation, "Operation should be 'select'")
	assert.Equal(t, "presence_records", query.table, "Table should be 'presence_records'")
	assert.Greater(t, query.duration, time.Duration(0), "Duration should be greater than 0")
	assert.NoError(t, query.err, "Query should not have error")
}

func TestRegisterMetricsCallbacks_Create(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}

	RegisterMetricsCallbacks(db, recorder)

	record := newTestRecord()
	err := db.Create(&record).Error
	require.NoError(t, err)

	require.Len(t, recorder.queries, 1, "Expected one query to be recorded")

	query := recorder.queries[0]
	assert.Equal(t, "insert", query.operation, "Operation should be 'insert'")
	assert.Equal(t, "presence_records", query.table, "Table should be 'presence_records'")
	assert.Greater(t, query.duration, time.Duration(0), "Duration should be greater than 0")
	assert.NoError(t, query.err, "Query should not have error")
}

func TestRegisterMetricsCallbacks_Update(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}

	RegisterMetricsCallbacks(db, recorder)

	record := newTestRecord()
	err := db.Create(&record).Error
	require.NoError(t, err)

	recorder.queries = nil

	err = db.Model(&record).Update("wants_to_buy", true).Error
	require.NoError(t, err)

	require.Len(t, recorder.queries, 1, "Expected one query to be recorded")

	query := recorder.queries[0]
	assert.Equal(t, "update", query.operation, "Operation should be 'update'")
	assert.Equal(t, "presence_records", query.table, "Table should be 'presence_records'")
	assert.NoError(t, query.err, "Query should not have error")
}

func TestRegisterMetricsCallbacks_Delete(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}

	RegisterMetricsCallbacks(db, recorder)

	record := newTestRecord()
	err := db.Create(&record).Error
	require.NoError(t, err)

	recorder.queries = nil

	err = db.Where("user_id = ? AND venue_id = ?", record.UserID, record.VenueID).
		Delete(&domain.PresenceRecord{}).Error
	require.NoError(t, err)

	require.Len(t, recorder.queries, 1, "Expected one query to be recorded")

	query := recorder.queries[0]
	assert.Equal(t, "delete", query.operation, "Operation should be 'delete'")
	assert.Equal(t, "presence_records", query.table, "Table should be 'presence_records'")
	assert.NoError(t, query.err, "Query should not have error")
}

func TestRegisterMetricsCallbacks_QueryError(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}

	RegisterMetricsCallbacks(db, recorder)

	// Query that will fail (no matching row)
	var result domain.PresenceRecord
	err := db.First(&result, "user_id = ?", uuid.New()).Error
	require.Error(t, err, "Expected query to fail")

	require.Len(t, recorder.queries, 1, "Expected one query to be recorded")

	query := recorder.queries[0]
	assert.Equal(t, "select", query.operation, "Operation should be 'select'")
	assert.Greater(t, query.duration, time.Duration(0), "Duration should be greater than 0")
	assert.Error(t, query.err, "Query should have error")
}

func TestRegisterMetricsCallbacks_MultipleOperations(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}

	RegisterMetricsCallbacks(db, recorder)

	record := newTestRecord()

	err := db.Create(&record).Error
	require.NoError(t, err)

	var result domain.PresenceRecord
	err = db.First(&result, "user_id = ?", record.UserID).Error
	require.NoError(t, err)

	err = db.Model(&record).Update("wants_to_receive", true).Error
	require.NoError(t, err)

	err = db.Where("user_id = ? AND venue_id = ?", record.UserID, record.VenueID).
		Delete(&domain.PresenceRecord{}).Error
	require.NoError(t, err)

	require.Len(t, recorder.queries, 4, "Expected four operations to be recorded")

	operations := []string{}
	for _, q := range recorder.queries {
		operations = append(operations, q.operation)
	}
	assert.Equal(t, []string{"insert", "select", "update", "delete"}, operations)
}
