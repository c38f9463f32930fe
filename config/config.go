package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"financebladi/bot"
	m "financebladi/internal/model"
	"financebladi/internal/util"
	"financebladi/scrape"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configByte []byte

var ErrNoCredentials = errors.New("no google credentials configured")

type Config struct {
	Log string `yaml:"log" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	App struct {
		Port         int    `yaml:"port" validate:"min=1,max=65535"`
		AllowOrigins string `yaml:"allowOrigins"`
	} `yaml:"app"`
	Telegram struct {
		ChatId string `yaml:"chatId" validate:"omitempty,numeric"`
		Token  string `yaml:"token"`
	} `yaml:"telegram"`

	Db struct {
		User     string `yaml:"user"`
		Password string `yaml:"pwd"`
		IP       string `yaml:"ip"`
		Port     string `yaml:"port"`
		Scheme   string `yaml:"scheme"`
	} `yaml:"db"`

	Redis struct {
		IP       string `yaml:"ip"`
		Port     string `yaml:"port"`
		Password string `yaml:"pwd"`
		DB       int    `yaml:"db" validate:"min=0,max=15"`
	} `yaml:"redis"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		SpreadsheetId   string `yaml:"spreadsheetId" validate:"required_if=Enabled true"`
		SheetName       string `yaml:"sheetName" validate:"required"`
		Credentials     string `yaml:"credentials"`
		CredentialsFile string `yaml:"credentialsFile"`
	} `yaml:"sheets"`

	Storage struct {
		DataDir string `yaml:"dataDir" validate:"required"`
		Parquet bool   `yaml:"parquet"`
	} `yaml:"storage"`

	Scrape struct {
		Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
		Delay           time.Duration `yaml:"delay" validate:"gte=0"`
		Concurrency     int           `yaml:"concurrency" validate:"min=1"`
		Workers         int           `yaml:"workers" validate:"min=1"`
		CacheTTL        time.Duration `yaml:"cacheTTL" validate:"gte=0"`
		Headless        bool          `yaml:"headless"`
		AlphaVantageKey string        `yaml:"alphaVantageKey"`
	} `yaml:"scrape"`

	Modules map[string]Module `yaml:"modules" validate:"dive,keys,source,endkeys"`

	Schedule struct {
		Daily string `yaml:"daily" validate:"required"`
		Curve string `yaml:"curve"`
	} `yaml:"schedule"`

	// 복호화 키. 환경변수 FINANCE_BLADI_KEY 로만 전달
	Key string `yaml:"-"`
}

type Module struct {
	Enabled bool `yaml:"enabled"`
	Retries int  `yaml:"retries" validate:"min=1,max=10"`
}

// 기본 설정 위에 path 의 yaml 을 덮어쓰고, 환경변수를 마지막으로 적용
func NewConfig(path string) (*Config, error) {

	var ConfigInfo Config = Config{}

	err := yaml.Unmarshal(configByte, &ConfigInfo)
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &ConfigInfo); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	if err := decode(&ConfigInfo); err != nil {
		return nil, err
	}

	overrideFromEnv(&ConfigInfo)

	if err := validCheck(&ConfigInfo); err != nil {
		return nil, err
	}

	return &ConfigInfo, nil
}

func (c Config) LogLevel() (zerolog.Level, error) {

	level, err := zerolog.ParseLevel(c.Log)
	if err != nil {
		return zerolog.InfoLevel, err // Default로는 Info 레벨 설정
	}

	return level, nil
}

func (c Config) BotConfig() (*bot.TeleBotConfig, error) {

	if c.Telegram.Token == "" {
		return nil, errors.New("telegram token 미존재")
	}

	chatId, err := strconv.ParseInt(c.Telegram.ChatId, 10, 64)
	if err != nil {
		return nil, err
	}

	return &bot.TeleBotConfig{
		Token:  c.Telegram.Token,
		ChatId: chatId,
		Port:   c.App.Port,
	}, nil
}

func (c Config) DbEnabled() bool {
	return c.Db.User != ""
}

func (c Config) RedisEnabled() bool {
	return c.Redis.IP != ""
}

func (c Config) Dsn() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", c.Db.User, c.Db.Password, c.Db.IP, c.Db.Port, c.Db.Scheme)
}

// 설정에 없는 모듈은 활성, 3회 시도
func (c Config) Module(src m.Source) Module {
	if mod, ok := c.Modules[src.String()]; ok {
		return mod
	}
	return Module{Enabled: true, Retries: 3}
}

func (c Config) EnabledSources() []m.Source {
	sources := make([]m.Source, 0, len(m.Sources()))
	for _, src := range m.Sources() {
		if c.Module(src).Enabled {
			sources = append(sources, src)
		}
	}
	return sources
}

func (c Config) ScraperOptions() []scrape.Option {
	opts := []scrape.Option{
		scrape.WithTimeout(c.Scrape.Timeout),
		scrape.WithDelay(c.Scrape.Delay),
		scrape.WithWorkers(c.Scrape.Workers),
		scrape.WithHeadless(c.Scrape.Headless),
		scrape.WithAlphaVantageKey(c.Scrape.AlphaVantageKey),
	}
	for _, src := range m.Sources() {
		opts = append(opts, scrape.WithRetries(src, c.Module(src).Retries))
	}
	return opts
}

/*
서비스 계정 JSON 반환.
credentials 값이 JSON 이면 그대로, 복호화 키가 있으면 AES 복호화, 아니면 base64 로 간주.
값이 비어 있으면 credentialsFile 을 읽는다.
*/
func (c Config) SheetsCredentials() ([]byte, error) {

	raw := strings.TrimSpace(c.Sheets.Credentials)
	if raw == "" {
		if c.Sheets.CredentialsFile == "" {
			return nil, ErrNoCredentials
		}
		b, err := os.ReadFile(c.Sheets.CredentialsFile)
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCredentials
		}
		return b, err
	}

	if strings.HasPrefix(raw, "{") {
		return []byte(raw), nil
	}

	if c.Key != "" {
		plain, err := util.Decrypt([]byte(c.Key), raw)
		if err != nil {
			return nil, fmt.Errorf("decrypt credentials: %w", err)
		}
		return []byte(plain), nil
	}

	if err := util.Decode(&raw); err != nil {
		return nil, fmt.Errorf("credentials are neither json nor base64: %w", err)
	}
	return []byte(raw), nil
}

func decode(conf *Config) error {
	for _, s := range []*string{&conf.Telegram.ChatId, &conf.Telegram.Token, &conf.Db.Password, &conf.Redis.Password} {
		if err := util.Decode(s); err != nil {
			return err
		}
	}
	return nil
}

// FINANCE_BLADI_<SECTION>_<KEY>. 기존 배포에서 쓰던 SPREADSHEET_ID, GOOGLE_CREDENTIALS, EXPLORER_DATA_DIR 도 인식
func overrideFromEnv(conf *Config) {

	v := viper.New()
	v.SetEnvPrefix("FINANCE_BLADI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("sheets.spreadsheetid", "FINANCE_BLADI_SHEETS_SPREADSHEETID", "SPREADSHEET_ID")
	_ = v.BindEnv("sheets.credentials", "FINANCE_BLADI_SHEETS_CREDENTIALS", "GOOGLE_CREDENTIALS")
	_ = v.BindEnv("storage.datadir", "FINANCE_BLADI_STORAGE_DATADIR", "EXPLORER_DATA_DIR")

	strs := map[string]*string{
		"log":                    &conf.Log,
		"app.alloworigins":       &conf.App.AllowOrigins,
		"key":                    &conf.Key,
		"telegram.chatid":        &conf.Telegram.ChatId,
		"telegram.token":         &conf.Telegram.Token,
		"db.user":                &conf.Db.User,
		"db.pwd":                 &conf.Db.Password,
		"db.ip":                  &conf.Db.IP,
		"db.port":                &conf.Db.Port,
		"db.scheme":              &conf.Db.Scheme,
		"redis.ip":               &conf.Redis.IP,
		"redis.port":             &conf.Redis.Port,
		"redis.pwd":              &conf.Redis.Password,
		"sheets.spreadsheetid":   &conf.Sheets.SpreadsheetId,
		"sheets.sheetname":       &conf.Sheets.SheetName,
		"sheets.credentials":     &conf.Sheets.Credentials,
		"sheets.credentialsfile": &conf.Sheets.CredentialsFile,
		"storage.datadir":        &conf.Storage.DataDir,
		"scrape.alphavantagekey": &conf.Scrape.AlphaVantageKey,
		"schedule.daily":         &conf.Schedule.Daily,
		"schedule.curve":         &conf.Schedule.Curve,
	}
	for k, p := range strs {
		if v.IsSet(k) {
			*p = v.GetString(k)
		}
	}

	ints := map[string]*int{
		"app.port":           &conf.App.Port,
		"redis.db":           &conf.Redis.DB,
		"scrape.concurrency": &conf.Scrape.Concurrency,
		"scrape.workers":     &conf.Scrape.Workers,
	}
	for k, p := range ints {
		if v.IsSet(k) {
			*p = v.GetInt(k)
		}
	}

	bools := map[string]*bool{
		"sheets.enabled":  &conf.Sheets.Enabled,
		"storage.parquet": &conf.Storage.Parquet,
		"scrape.headless": &conf.Scrape.Headless,
	}
	for k, p := range bools {
		if v.IsSet(k) {
			*p = v.GetBool(k)
		}
	}

	durations := map[string]*time.Duration{
		"scrape.timeout":  &conf.Scrape.Timeout,
		"scrape.delay":    &conf.Scrape.Delay,
		"scrape.cachettl": &conf.Scrape.CacheTTL,
	}
	for k, p := range durations {
		if v.IsSet(k) {
			*p = v.GetDuration(k)
		}
	}
}

func validCheck(conf *Config) error {

	validate := validator.New()
	err := validate.RegisterValidation("source", func(fl validator.FieldLevel) bool {
		return m.IsValidSource(fl.Field().String())
	})
	if err != nil {
		return err
	}

	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
