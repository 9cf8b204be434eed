package session

import (
	"context"
	"testing"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intent struct {
	UserID    int64  `json:"user_id"`
	PackageID int64  `json:"package_id"`
	Price     string `json:"price"`
}

func TestPut(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, "checkout", 15*time.Minute)

	mock.ExpectSet("checkout:tok1", `{"user_id":7,"package_id":2,"price":"5000"}`, 15*time.Minute).SetVal("OK")

	err := store.Put(context.Background(), "tok1", intent{UserID: 7, PackageID: 2, Price: "5000"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPutError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, "checkout", time.Minute)

	mock.ExpectSet("checkout:tok1", `{"user_id":7,"package_id":0,"price":""}`, time.Minute).SetErr(assert.AnError)

	err := store.Put(context.Background(), "tok1", intent{UserID: 7})
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, "checkout", time.Minute)

	mock.ExpectGet("checkout:tok1").SetVal(`{"user_id":7,"package_id":2,"price":"5000"}`)

	var got intent
	require.NoError(t, store.Get(context.Background(), "tok1", &got))
	assert.Equal(t, intent{UserID: 7, PackageID: 2, Price: "5000"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, "checkout", time.Minute)

	mock.ExpectGet("checkout:gone").RedisNil()

	var got intent
	err := store.Get(context.Background(), "gone", &got)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTake(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, "checkout", time.Minute)

	mock.ExpectGetDel("checkout:tok1").SetVal(`{"user_id":7,"package_id":2,"price":"5000"}`)
	// второй раз ключа уже нет
	mock.ExpectGetDel("checkout:tok1").RedisNil()

	var got intent
	require.NoError(t, store.Take(context.Background(), "tok1", &got))
	assert.Equal(t, int64(2), got.PackageID)

	assert.ErrorIs(t, store.Take(context.Background(), "tok1", &got), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTakeCorrupt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, "checkout", time.Minute)

	mock.ExpectGetDel("checkout:tok1").SetVal(`{not json`)

	var got intent
	err := store.Take(context.Background(), "tok1", &got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestTouch(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, "checkout", time.Minute)

	mock.ExpectExpire("checkout:tok1", time.Minute).SetVal(true)
	mock.ExpectExpire("checkout:gone", time.Minute).SetVal(false)

	assert.NoError(t, store.Touch(context.Background(), "tok1"))
	assert.ErrorIs(t, store.Touch(context.Background(), "gone"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, "checkout", time.Minute)

	mock.ExpectDel("checkout:tok1").SetVal(1)

	assert.NoError(t, store.Delete(context.Background(), "tok1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
