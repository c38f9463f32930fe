package db

import (
	"context"
	"os"
	"testing"
	"time"

	m "financebladi/internal/model"

	"cloud.google.com/go/civil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

/*
export TEST_MYSQL_USER="" TEST_MYSQL_PWD="" TEST_MYSQL_IP="" TEST_MYSQL_PORT="" TEST_MYSQL_SCHEME=""
export TEST_REDIS_IP="" TEST_REDIS_PORT=""
지정 시에만 실제 DB 테스트 수행
*/
func liveStorage(t *testing.T) *Storage {
	t.Helper()

	user := os.Getenv("TEST_MYSQL_USER")
	if user == "" {
		t.Skip("TEST_MYSQL_USER not set")
	}
	mc := NewMysqlConfig(user, os.Getenv("TEST_MYSQL_PWD"), os.Getenv("TEST_MYSQL_IP"), os.Getenv("TEST_MYSQL_PORT"), os.Getenv("TEST_MYSQL_SCHEME"))

	stg, err := NewStorage(mc, nil)
	require.NoError(t, err)
	t.Cleanup(func() { stg.Close() })
	return stg
}

func TestStorageWithoutBackends(t *testing.T) {
	ctx := context.Background()

	stg, err := NewStorage(nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, stg.SaveDailyRecord(ctx, &m.DailyRecord{}), ErrNoDatabase)
	_, err = stg.RetrieveRecentRecords(ctx, 5)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = stg.RetrieveDailyRecord(ctx, civil.DateOf(time.Now()))
	assert.ErrorIs(t, err, ErrNoDatabase)

	assert.True(t, stg.RetreiveEventIsActive(1))
	assert.NoError(t, stg.UpdateEventIsActive(1, false))

	assert.Error(t, stg.SetCache(ctx, "k", []byte("v"), time.Minute))
	_, err = stg.GetCache(ctx, "k")
	assert.Error(t, err)

	assert.NoError(t, stg.Close())
}

func TestDsn(t *testing.T) {
	mc := NewMysqlConfig("bladi", "pw", "127.0.0.1", "3306", "financebladi")
	assert.Equal(t, "bladi:pw@tcp(127.0.0.1:3306)/financebladi?charset=utf8mb4&parseTime=True&loc=Local", stgDsn(mc))
}

func TestDailyRecord(t *testing.T) {
	stg := liveStorage(t)
	ctx := context.Background()

	date := civil.Date{Year: 2001, Month: time.January, Day: 2}
	rec := &m.DailyRecord{
		Date:   datatypes.Date(date.In(time.Local)),
		EurMad: 10.82,
		Bt2y:   2.5,
		Cells:  datatypes.JSON(`["2001-01-02 07:00:00"]`),
	}

	t.Run("저장", func(t *testing.T) {
		require.NoError(t, stg.SaveDailyRecord(ctx, rec))
	})

	t.Run("같은 날짜 갱신", func(t *testing.T) {
		again := *rec
		again.ID = 0
		again.Bt2y = 2.6
		require.NoError(t, stg.SaveDailyRecord(ctx, &again))

		got, err := stg.RetrieveDailyRecord(ctx, date)
		require.NoError(t, err)
		assert.Equal(t, 2.6, got.Bt2y)
	})

	t.Run("최근 조회", func(t *testing.T) {
		recs, err := stg.RetrieveRecentRecords(ctx, 3)
		require.NoError(t, err)
		assert.NotEmpty(t, recs)
		assert.LessOrEqual(t, len(recs), 3)
	})

	stg.db.Where("date = ?", rec.Date).Delete(&m.DailyRecord{})
}

func TestRedis(t *testing.T) {

	ip := os.Getenv("TEST_REDIS_IP")
	if ip == "" {
		t.Skip("TEST_REDIS_IP not set")
	}
	port := os.Getenv("TEST_REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	stg, err := NewStorage(nil, NewRedisConfig("", ip, port, 0))
	require.NoError(t, err)
	defer stg.Close()

	ctx := context.Background()

	t.Run("setAndGet", func(t *testing.T) {
		require.NoError(t, stg.SetCache(ctx, "financebladi:test", []byte("value"), time.Minute))

		v, err := stg.GetCache(ctx, "financebladi:test")
		assert.NoError(t, err)
		assert.Equal(t, []byte("value"), v)
	})

	t.Run("miss", func(t *testing.T) {
		_, err := stg.GetCache(ctx, "financebladi:none")
		assert.ErrorIs(t, err, redis.Nil)
	})
}
