package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Contest{},
		&models.ContestParticipant{},
	))
	return db
}

func intPtr(v int) *int { return &v }

func TestListFinalizableSelectsEndedContestsWithUnrankedParticipants(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContestRepository(db)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	ended := models.Contest{Title: "Ended", StartAt: now.Add(-3 * time.Hour), EndAt: now.Add(-time.Hour)}
	running := models.Contest{Title: "Running", StartAt: now.Add(-time.Hour), EndAt: now.Add(time.Hour)}
	settled := models.Contest{Title: "Settled", StartAt: now.Add(-5 * time.Hour), EndAt: now.Add(-4 * time.Hour)}
	require.NoError(t, db.Create(&ended).Error)
	require.NoError(t, db.Create(&running).Error)
	require.NoError(t, db.Create(&settled).Error)

	require.NoError(t, db.Create(&models.ContestParticipant{ContestID: ended.ID, UserID: 1, JoinedAt: now}).Error)
	require.NoError(t, db.Create(&models.ContestParticipant{ContestID: running.ID, UserID: 1, JoinedAt: now}).Error)
	require.NoError(t, db.Create(&models.ContestParticipant{ContestID: settled.ID, UserID: 1, Rank: intPtr(1), JoinedAt: now}).Error)

	contests, err := repo.ListFinalizable(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, contests, 1)
	require.Equal(t, ended.ID, contests[0].ID)
}

func TestListFinalizableKeepsPartiallyRankedContests(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContestRepository(db)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	contest := models.Contest{Title: "Partial", StartAt: now.Add(-3 * time.Hour), EndAt: now.Add(-time.Hour)}
	require.NoError(t, db.Create(&contest).Error)
	require.NoError(t, db.Create(&models.ContestParticipant{ContestID: contest.ID, UserID: 1, Rank: intPtr(1), JoinedAt: now}).Error)
	require.NoError(t, db.Create(&models.ContestParticipant{ContestID: contest.ID, UserID: 2, JoinedAt: now}).Error)

	contests, err := repo.ListFinalizable(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, contests, 1)
}

func TestListParticipantsOrdersByJoinTimeThenUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContestRepository(db)
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	contest := models.Contest{Title: "Order", StartAt: base, EndAt: base.Add(2 * time.Hour)}
	require.NoError(t, db.Create(&contest).Error)

	require.NoError(t, db.Create(&models.ContestParticipant{ContestID: contest.ID, UserID: 3, JoinedAt: base.Add(time.Minute)}).Error)
	require.NoError(t, db.Create(&models.ContestParticipant{ContestID: contest.ID, UserID: 1, JoinedAt: base.Add(2 * time.Minute)}).Error)
	require.NoError(t, db.Create(&models.ContestParticipant{ContestID: contest.ID, UserID: 2, JoinedAt: base.Add(time.Minute)}).Error)

	participants, err := repo.ListParticipants(context.Background(), contest.ID)
	require.NoError(t, err)
	require.Len(t, participants, 3)
	require.Equal(t, uint(2), participants[0].UserID)
	require.Equal(t, uint(3), participants[1].UserID)
	require.Equal(t, uint(1), participants[2].UserID)
}

func TestApplyFinalizationPersistsRanksAndCredits(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContestRepository(db)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	user := models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "x", Score: 10}
	require.NoError(t, db.Create(&user).Error)

	contest := models.Contest{Title: "Final", StartAt: now.Add(-2 * time.Hour), EndAt: now.Add(-time.Hour)}
	require.NoError(t, db.Create(&contest).Error)
	require.NoError(t, db.Create(&models.ContestParticipant{ContestID: contest.ID, UserID: user.ID, TotalScore: 80, JoinedAt: now}).Error)

	err := repo.ApplyFinalization(context.Background(), []RankUpdate{
		{ContestID: contest.ID, UserID: user.ID, Rank: 1, Credit: 80, Credited: true},
	})
	require.NoError(t, err)

	participant, err := repo.GetParticipant(context.Background(), contest.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, participant.Rank)
	require.Equal(t, 1, *participant.Rank)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	require.Equal(t, 90, reloaded.Score)
}
