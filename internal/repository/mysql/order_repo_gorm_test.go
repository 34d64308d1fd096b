package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:          "order-1",
		OrderNumber: "ORD-TEST-00001",
		UserID:      "user-1",
		Subtotal:    40000,
		Total:       45500,
		Status:      domain.OrderStatusPending,
	}
}

// A later line item losing the stock race must roll back decrements already
// applied for earlier items, and the order insert must never run.
func TestOrderRepo_Create_RollsBackOnLaterItemConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE variants").
		WithArgs(2, "product-1", "42", "black", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE variants").
		WithArgs(1, "product-2", "43", "white", 1).
		WillReturnResult(sqlmock.NewResult(0, 0)) // guard refused: stock < quantity
	mock.ExpectRollback()

	err := repo.Create(context.Background(), testOrder(), []repository.StockDeduction{
		{ProductID: "product-1", ProductName: "Air Strider", Size: "42", Color: "black", Quantity: 2},
		{ProductID: "product-2", ProductName: "Cloud Runner", Size: "43", Color: "white", Quantity: 1},
	})

	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Cloud Runner")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Create_CommitsDecrementsAndInsert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE variants").
		WithArgs(2, "product-1", "42", "black", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `orders`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), testOrder(), []repository.StockDeduction{
		{ProductID: "product-1", ProductName: "Air Strider", Size: "42", Color: "black", Quantity: 2},
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Create_FirstItemConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE variants").
		WithArgs(5, "product-1", "42", "black", 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), testOrder(), []repository.StockDeduction{
		{ProductID: "product-1", ProductName: "Air Strider", Size: "42", Color: "black", Quantity: 5},
	})

	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}
