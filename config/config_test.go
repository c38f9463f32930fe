package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	m "financebladi/internal/model"
	"financebladi/internal/util"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {

	t.Run("기본 설정", func(t *testing.T) {
		conf, err := NewConfig("")
		require.NoError(t, err)

		level, err := conf.LogLevel()
		assert.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, level)

		assert.Equal(t, "Finance Bladi", conf.Sheets.SheetName)
		assert.Equal(t, 30*time.Second, conf.Scrape.Timeout)
		assert.Equal(t, 2, conf.Module(m.TradingEconomics).Retries)
		assert.Len(t, conf.EnabledSources(), 5)
		assert.Len(t, conf.ScraperOptions(), 10)
		assert.Equal(t, "0 0 7 * * *", conf.Schedule.Daily)
		assert.False(t, conf.DbEnabled())
		assert.False(t, conf.RedisEnabled())
	})

	t.Run("파일 덮어쓰기", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		yml := `
log: debug
telegram:
  chatId: ` + util.Encode("-100123") + `
  token: ` + util.Encode("123:abc") + `
db:
  user: bladi
modules:
  yahoo_markets:
    enabled: false
    retries: 1
`
		require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

		conf, err := NewConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", conf.Log)
		assert.True(t, conf.DbEnabled())
		assert.Contains(t, conf.Dsn(), "bladi:@tcp(127.0.0.1:3306)/financebladi")
		assert.False(t, conf.Module(m.YahooMarkets).Enabled)
		assert.True(t, conf.Module(m.BkamForex).Enabled, "untouched modules keep defaults")
		assert.Len(t, conf.EnabledSources(), 4)

		bc, err := conf.BotConfig()
		require.NoError(t, err)
		assert.Equal(t, int64(-100123), bc.ChatId)
		assert.Equal(t, "123:abc", bc.Token)
		assert.Equal(t, 8080, bc.Port)
	})

	t.Run("환경변수", func(t *testing.T) {
		t.Setenv("SPREADSHEET_ID", "sheet-from-env")
		t.Setenv("EXPLORER_DATA_DIR", "/tmp/bladi")
		t.Setenv("FINANCE_BLADI_APP_PORT", "9090")
		t.Setenv("FINANCE_BLADI_SCRAPE_HEADLESS", "true")
		t.Setenv("FINANCE_BLADI_SCRAPE_TIMEOUT", "45s")
		t.Setenv("FINANCE_BLADI_REDIS_IP", "10.0.0.2")

		conf, err := NewConfig("")
		require.NoError(t, err)

		assert.Equal(t, "sheet-from-env", conf.Sheets.SpreadsheetId)
		assert.Equal(t, "/tmp/bladi", conf.Storage.DataDir)
		assert.Equal(t, 9090, conf.App.Port)
		assert.True(t, conf.Scrape.Headless)
		assert.Equal(t, 45*time.Second, conf.Scrape.Timeout)
		assert.True(t, conf.RedisEnabled())
	})

	t.Run("검증 실패", func(t *testing.T) {
		cases := map[string]string{
			"모듈 이름":    "modules:\n  bloomberg:\n    enabled: true\n    retries: 1\n",
			"재시도 횟수":   "modules:\n  bkam_forex:\n    enabled: true\n    retries: 0\n",
			"로그 레벨":    "log: verbose\n",
			"포트":       "app:\n  port: 0\n",
			"시트 id 누락": "sheets:\n  spreadsheetId: \"\"\n",
		}
		for name, yml := range cases {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

			_, err := NewConfig(path)
			assert.Error(t, err, name)
		}
	})

	t.Run("잘못된 base64", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: \"%%%\"\n"), 0o600))

		_, err := NewConfig(path)
		assert.Error(t, err)
	})

	t.Run("없는 파일", func(t *testing.T) {
		_, err := NewConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestSheetsCredentials(t *testing.T) {

	const creds = `{"type":"service_account","project_id":"bladi"}`

	conf, err := NewConfig("")
	require.NoError(t, err)

	t.Run("JSON 그대로", func(t *testing.T) {
		c := *conf
		c.Sheets.Credentials = "  " + creds
		b, err := c.SheetsCredentials()
		require.NoError(t, err)
		assert.JSONEq(t, creds, string(b))
	})

	t.Run("base64", func(t *testing.T) {
		c := *conf
		c.Sheets.Credentials = util.Encode(creds)
		b, err := c.SheetsCredentials()
		require.NoError(t, err)
		assert.JSONEq(t, creds, string(b))
	})

	t.Run("AES", func(t *testing.T) {
		key := "0123456789abcdef"
		enc, err := util.Encrypt([]byte(key), creds)
		require.NoError(t, err)

		c := *conf
		c.Sheets.Credentials = enc
		c.Key = key
		b, err := c.SheetsCredentials()
		require.NoError(t, err)
		assert.JSONEq(t, creds, string(b))
	})

	t.Run("파일", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.json")
		require.NoError(t, os.WriteFile(path, []byte(creds), 0o600))

		c := *conf
		c.Sheets.CredentialsFile = path
		b, err := c.SheetsCredentials()
		require.NoError(t, err)
		assert.JSONEq(t, creds, string(b))
	})

	t.Run("없음", func(t *testing.T) {
		c := *conf
		c.Sheets.CredentialsFile = filepath.Join(t.TempDir(), "none.json")
		_, err := c.SheetsCredentials()
		assert.ErrorIs(t, err, ErrNoCredentials)

		c.Sheets.CredentialsFile = ""
		_, err = c.SheetsCredentials()
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}
