package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	financebladi "financebladi"
	"financebladi/app/handler"
	"financebladi/bot"
	"financebladi/config"
	"financebladi/export"
	"financebladi/internal/cache"
	"financebladi/internal/db"
	"financebladi/scrape"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envPath    string
	conf       *config.Config
	lg         = zerolog.New(os.Stdout).With().Str("Module", "Main").Timestamp().Logger()
)

var rootCmd = &cobra.Command{
	Use:           "finance-bladi",
	Short:         "Daily Moroccan market data batch",
	Long:          `BKAM 환율, 국채 곡선, MASI, 인산염, 해외 지표를 모아 Google Sheets 와 로컬 백업에 기록한다.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {

		// .env 는 있을 때만
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envPath, err)
		}

		var err error
		conf, err = config.NewConfig(configPath)
		if err != nil {
			return err
		}

		/*
			memo.
			zerolog.SetGlobalLevel()는 이후에 생성되는 모든 zerolog.Logger의 로그 레벨을 설정함.
			gorm 은 별도 logger 를 사용하므로 영향 없음.
		*/
		level, err := conf.LogLevel()
		if err != nil {
			lg.Warn().Err(err).Msg("invalid log level. using info")
		}
		zerolog.SetGlobalLevel(level)
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config yaml overlaid on the defaults")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "dotenv file")

	rootCmd.AddCommand(runCmd, scheduleCmd, serveCmd, curveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		lg.Error().Err(err).Msg("finance-bladi failed")
		os.Exit(1)
	}
}

// 실행에 필요한 구성요소 묶음
type components struct {
	fb       *financebladi.FinanceBladi
	local    *export.LocalStore
	stg      *db.Storage
	history  handler.RecordRetriever // db 미설정 시 nil
	sheetErr error                   // 시트가 켜져 있으나 연결 실패
}

func (c *components) Close() {
	if c.stg != nil {
		if err := c.stg.Close(); err != nil {
			lg.Warn().Err(err).Msg("storage close failed")
		}
	}
}

func setup(ctx context.Context, ch chan<- string) (*components, error) {

	comp := &components{}

	var mc *db.MysqlConfig
	if conf.DbEnabled() {
		mc = db.NewMysqlConfig(conf.Db.User, conf.Db.Password, conf.Db.IP, conf.Db.Port, conf.Db.Scheme)
	}
	var rc *db.RedisConfig
	if conf.RedisEnabled() {
		rc = db.NewRedisConfig(conf.Redis.Password, conf.Redis.IP, conf.Redis.Port, conf.Redis.DB)
	}
	if mc != nil || rc != nil {
		stg, err := db.NewStorage(mc, rc)
		if err != nil {
			return nil, err
		}
		comp.stg = stg
	}

	mem := cache.NewMemory(conf.Scrape.CacheTTL, 10*time.Minute)
	var fetchCache cache.Cache = mem
	if rc != nil {
		fetchCache = cache.NewLayered(mem, comp.stg)
	}

	opts := append(conf.ScraperOptions(), scrape.WithCache(fetchCache, conf.Scrape.CacheTTL))
	sc, err := scrape.NewScraper(opts...)
	if err != nil {
		comp.Close()
		return nil, err
	}

	local, err := export.NewLocalStore(conf.Storage.DataDir, export.WithParquet(conf.Storage.Parquet))
	if err != nil {
		comp.Close()
		return nil, err
	}
	comp.local = local

	fbConf := financebladi.FinanceBladiConfig{
		Scraper:     sc,
		Local:       local,
		Sources:     conf.EnabledSources(),
		Concurrency: conf.Scrape.Concurrency,
		Schedules: financebladi.Schedules{
			Daily: conf.Schedule.Daily,
			Curve: conf.Schedule.Curve,
		},
		Channel: ch,
	}

	// 인터페이스에 nil 포인터가 들어가지 않도록 설정된 것만 할당
	if conf.Sheets.Enabled {
		sheet, err := newSheetExporter(ctx)
		if err != nil {
			lg.Error().Err(err).Msg("Google Sheets not available. continuing with local backup only")
			comp.sheetErr = err
		} else {
			fbConf.Sheet = sheet
		}
	}
	if mc != nil {
		fbConf.Storage = comp.stg
		comp.history = comp.stg
	}

	comp.fb = financebladi.NewFinanceBladi(fbConf)
	return comp, nil
}

func newSheetExporter(ctx context.Context) (*export.SheetExporter, error) {
	creds, err := conf.SheetsCredentials()
	if err != nil {
		return nil, err
	}
	return export.NewSheetExporter(ctx, conf.Sheets.SpreadsheetId, conf.Sheets.SheetName, creds)
}

// 텔레그램 미설정이면 nil
func newTeleBot() *bot.TeleBot {
	botConf, err := conf.BotConfig()
	if err != nil {
		lg.Info().Err(err).Msg("telegram disabled")
		return nil
	}
	teleBot, err := bot.NewTeleBot(botConf)
	if err != nil {
		lg.Error().Err(err).Msg("telegram bot init failed")
		return nil
	}
	return teleBot
}
