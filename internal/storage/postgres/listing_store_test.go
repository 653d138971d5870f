package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
)

var day = time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

func sampleRecord(id crawler.ListingID) crawler.Record {
	return crawler.Record{
		Platform: "jumpit",
		JobID:    id,
		Company:  "Acme",
		Title:    "Backend",
		Body:     crawler.JoinBody("A", "", "C"),
		URL:      "https://www.jumpit.co.kr/position/1",
	}
}

func expectInsert(mock pgxmock.PgxPoolIface, rec crawler.Record, rows int64) {
	mock.ExpectExec("INSERT INTO job_postings").
		WithArgs(rec.Platform, int64(rec.JobID), rec.Company, rec.Title, rec.Body, rec.URL, "2024-03-08").
		WillReturnResult(pgxmock.NewResult("INSERT", rows))
}

func TestInsertListingsSkipsDuplicates(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "job_postings")
	require.NoError(t, err)

	rec := sampleRecord(1)
	mock.ExpectBegin()
	expectInsert(mock, rec, 1)
	expectInsert(mock, rec, 0)
	mock.ExpectCommit()

	result, err := store.InsertListings(context.Background(), []crawler.Record{rec, rec}, day)
	require.NoError(t, err)
	assert.Equal(t, crawler.InsertResult{Inserted: 1, Skipped: 1}, result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertListingsRollsBackOnError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "job_postings")
	require.NoError(t, err)

	mock.ExpectBegin()
	expectInsert(mock, sampleRecord(1), 1)
	mock.ExpectExec("INSERT INTO job_postings").
		WithArgs("jumpit", int64(2), "Acme", "Backend", crawler.JoinBody("A", "", "C"), "https://www.jumpit.co.kr/position/1", "2024-03-08").
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	_, err = store.InsertListings(context.Background(), []crawler.Record{sampleRecord(1), sampleRecord(2)}, day)
	require.ErrorContains(t, err, "insert listing 2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertListingsBeginFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "job_postings")
	require.NoError(t, err)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
	_, err = store.InsertListings(context.Background(), []crawler.Record{sampleRecord(1)}, day)
	require.ErrorContains(t, err, "begin transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertListingsEmptyBatchCommits(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "job_postings")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	result, err := store.InsertListings(context.Background(), nil, day)
	require.NoError(t, err)
	assert.Zero(t, result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "job_postings; DROP TABLE x")
	require.Error(t, err)
	_, err = NewWithPool(mock, "")
	require.Error(t, err)
	_, err = NewWithPool(nil, "job_postings")
	require.Error(t, err)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Table: "job_postings"})
	require.Error(t, err)
}
