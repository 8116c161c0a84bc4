package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"rental-escrow-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewReasonRepository(db)
	ctx := context.Background()

	t.Run("System reason has no author", func(t *testing.T) {
		ra := &domain.ReasonAttachment{RentalID: 2, Category: domain.ReasonCategoryRejection, Code: domain.ReasonListingUnavailable, Feedback: "another request was approved"}
		mock.ExpectQuery("INSERT INTO reason_attachments").
			WithArgs(int32(2), domain.ReasonCategoryRejection, domain.ReasonListingUnavailable, "another request was approved", nil, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

		require.NoError(t, repo.Attach(ctx, ra))
		assert.Equal(t, int32(11), ra.ID)
	})

	t.Run("List", func(t *testing.T) {
		author := int32(3)
		rows := sqlmock.NewRows([]string{"id", "rental_id", "category", "code", "feedback", "author_id", "created_at"}).
			AddRow(11, 2, "REJECTION", "LISTING_UNAVAILABLE", "another request was approved", nil, time.Now()).
			AddRow(12, 2, "CANCELLATION", "CHANGE_OF_PLANS", "no longer needed", author, time.Now())
		mock.ExpectQuery("SELECT (.+) FROM reason_attachments WHERE rental_id = \\$1 ORDER BY id").
			WithArgs(int32(2)).
			WillReturnRows(rows)

		reasons, err := repo.ListByRental(ctx, 2)
		require.NoError(t, err)
		require.Len(t, reasons, 2)
		assert.Nil(t, reasons[0].AuthorID)
		assert.Equal(t, domain.ReasonCategoryCancellation, reasons[1].Category)
		assert.Equal(t, author, *reasons[1].AuthorID)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrations_DeclareExclusivityIndexes(t *testing.T) {
	content, err := migrationFS.ReadFile("migrations/001_rental_escrow.sql")
	require.NoError(t, err)
	schema := string(content)

	for _, index := range []string{
		"uq_payment_requests_pending",
		"uq_schedules_selected",
		"uq_handover_disputes_pending",
		"uq_rental_disputes_open",
	} {
		assert.True(t, strings.Contains(schema, "CREATE UNIQUE INDEX IF NOT EXISTS "+index), index)
	}
}

func TestMigrate_SkipsAppliedFiles(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT filename FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"filename"}).AddRow("001_rental_escrow.sql"))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
