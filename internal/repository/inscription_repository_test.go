package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munivet/campo-api/internal/models"
)

func newInscriptionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestInscriptionRepositoryListByCampaign(t *testing.T) {
	db, mock, cleanup := newInscriptionMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "campaign_id", "contact_name", "phone", "address", "ci", "pet_count", "lat", "lng", "attended", "created_by", "created_at", "updated_at"}).
		AddRow("i1", "c1", "María Flores", "77712345", "Calle 9", "9876543", 2, -17.79, -63.17, false, "", time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, campaign_id, contact_name, .* FROM inscriptions WHERE campaign_id = \\$1 ORDER BY created_at ASC").
		WithArgs("c1").
		WillReturnRows(rows)

	inscriptions, err := repo.ListByCampaign(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, inscriptions, 1)
	assert.Equal(t, "María Flores", inscriptions[0].ContactName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newInscriptionMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectExec("INSERT INTO inscriptions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	inscription := &models.Inscription{CampaignID: "c1", ContactName: "María Flores", Phone: "77712345", PetCount: 2}
	require.NoError(t, repo.Create(context.Background(), inscription))
	assert.NotEmpty(t, inscription.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryExistsByPhone(t *testing.T) {
	db, mock, cleanup := newInscriptionMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM inscriptions WHERE campaign_id = \\$1 AND phone = \\$2").
		WithArgs("c1", "77712345").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByPhone(context.Background(), "c1", "77712345")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryMarkAttended(t *testing.T) {
	db, mock, cleanup := newInscriptionMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectExec("UPDATE inscriptions SET attended = TRUE, updated_at = \\$1 WHERE id = \\$2").
		WithArgs(sqlmock.AnyArg(), "i1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkAttended(context.Background(), "i1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryCountPending(t *testing.T) {
	db, mock, cleanup := newInscriptionMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM inscriptions WHERE campaign_id = \\$1 AND attended = FALSE").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.CountPending(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
