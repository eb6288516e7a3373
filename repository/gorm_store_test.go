package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ehudso7/climate-guardian/models"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(gdb), mock
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{gorm.ErrRecordNotFound, ErrNotFound},
		{gorm.ErrDuplicatedKey, ErrDuplicate},
		{&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry"}, ErrDuplicate},
		{fmt.Errorf("insert: %w", &mysqldrv.MySQLError{Number: 1062}), ErrDuplicate},
		{&mysqldrv.MySQLError{Number: 1213, Message: "Deadlock found"}, ErrConflict},
		{&mysqldrv.MySQLError{Number: 1205, Message: "Lock wait timeout"}, ErrConflict},
		{ErrConflict, ErrConflict},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, translate(tc.in), tc.want, tc.in.Error())
	}

	other := errors.New("connection refused")
	assert.Equal(t, other, translate(other))
	assert.NoError(t, translate(nil))
}

func TestProgressForUpdateLocksRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT \\* FROM `user_progress` WHERE user_id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_points", "level", "current_streak"}).AddRow(7, 420, 3, 2))

	p, err := s.ProgressForUpdate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), p.UserID)
	assert.Equal(t, 420, p.TotalPoints)
	assert.Equal(t, 3, p.Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT \\* FROM `user_progress`").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := s.Progress(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignmentDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO `user_missions`").
		WillReturnError(&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry for key idx_user_mission_date"})

	err := s.CreateAssignment(context.Background(), &models.UserMission{UserID: 1, MissionID: 2, Status: models.AssignmentPending})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUserBadgeReportsInsertion(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO `user_badges`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("INSERT INTO `user_badges`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.InsertUserBadge(context.Background(), &models.UserBadge{UserID: 1, BadgeID: 2})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.InsertUserBadge(context.Background(), &models.UserBadge{UserID: 1, BadgeID: 2})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddDailyProgressUpserts(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO `daily_progress`.*ON DUPLICATE KEY UPDATE.*`co2_saved`=co2_saved \\+ \\?").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.AddDailyProgress(context.Background(), 1, day, 2.6, 1, 20))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionDeadlockIsConflict(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `user_progress` SET").
		WillReturnError(&mysqldrv.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	err := s.Transaction(context.Background(), func(tx Tx) error {
		return tx.SaveProgress(context.Background(), &models.UserProgress{UserID: 1, Level: 1})
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionCommits(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Transaction(context.Background(), func(tx Tx) error {
		return tx.SetPremium(context.Background(), 3, true)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTotalsAggregates(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(total_co2_saved\\),0\\) AS co2").
		WillReturnRows(sqlmock.NewRows([]string{"co2", "missions", "trees"}).AddRow(12.5, 9, 2))

	tot, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), tot.Users)
	assert.InDelta(t, 12.5, tot.CO2Saved, 1e-9)
	assert.Equal(t, int64(9), tot.MissionsCompleted)
	assert.Equal(t, int64(2), tot.TreesPlanted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissionIDsAssignedBetween(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT `mission_id` FROM `user_missions` WHERE user_id = \\? AND assigned_date >= \\? AND assigned_date <= \\?").
		WillReturnRows(sqlmock.NewRows([]string{"mission_id"}).AddRow(4).AddRow(6))

	ids, err := s.MissionIDsAssignedBetween(context.Background(), 1, day.AddDate(0, 0, -7), day)
	require.NoError(t, err)
	assert.Equal(t, []uint{4, 6}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
