package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	m "financebladi/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNoDatabase = errors.New("mysql storage not configured")

type Storage struct {
	db  *gorm.DB
	rds *redis.Client
	lg  zerolog.Logger
}

// mc, rc 둘 다 선택. nil 이면 해당 기능은 비활성
func NewStorage(mc *MysqlConfig, rc *RedisConfig, opts ...gorm.Option) (*Storage, error) {

	stg := &Storage{
		lg: zerolog.New(os.Stdout).With().Str("Module", "Storage").Timestamp().Logger(),
	}

	if mc != nil {
		sqlDB, err := sql.Open("mysql", stgDsn(mc))
		if err != nil {
			return nil, err
		}

		// Use a compatible writer for GORM's logger
		gormLogger := logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold: time.Second, // Slow SQL threshold
				LogLevel:      logger.Warn,
				Colorful:      false,
			},
		)

		opts = append([]gorm.Option{&gorm.Config{Logger: gormLogger}}, opts...)
		db, err := gorm.Open(mysql.New(mysql.Config{
			Conn: sqlDB,
		}), opts...)
		if err != nil {
			return nil, err
		}
		stg.db = db

		if err := stg.initTables(); err != nil {
			return nil, err
		}
	}

	if rc != nil {
		stg.rds = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", rc.ip, rc.port),
			Password: rc.password,
			DB:       rc.db, // memo. DB는 우선 0번 하나만 사용. 레디시는 0~15까지의 16개의 DB를 제공함.
		})
	}

	return stg, nil
}

type MysqlConfig struct {
	user     string
	password string
	ip       string
	port     string
	scheme   string
}

func NewMysqlConfig(user string, password string, ip string, port string, scheme string) *MysqlConfig {
	return &MysqlConfig{
		user:     user,
		password: password,
		ip:       ip,
		port:     port,
		scheme:   scheme,
	}
}

type RedisConfig struct {
	password string
	ip       string
	port     string
	db       int
}

func NewRedisConfig(password string, ip string, port string, db int) *RedisConfig {
	return &RedisConfig{
		password: password,
		ip:       ip,
		port:     port,
		db:       db,
	}
}

func stgDsn(conf *MysqlConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", conf.user, conf.password, conf.ip, conf.port, conf.scheme)
}

func (s *Storage) initTables() error {
	if err := s.db.AutoMigrate(&m.DailyRecord{}, &m.Event{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	var errs []error
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if s.rds != nil {
		errs = append(errs, s.rds.Close())
	}
	return errors.Join(errs...)
}
