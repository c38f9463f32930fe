package bot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// 텔레그램 메시지 길이 제한
const maxMessageLen = 4096

const helpMessage = `조회 명령 목록
/latest : 최근 수집 결과
/curve : 국채 곡선과 2/5/10 년 금리
/history : 최근 7 일 이력
/events : 등록 이벤트
/run : 일일 배치 즉시 실행`

type TeleBot struct {
	bot     *tgbotapi.BotAPI
	chatId  int64
	updates tgbotapi.UpdatesChannel
	api     *resty.Client
	lg      zerolog.Logger
}

type TeleBotConfig struct {
	Token  string
	ChatId int64
	Port   int // 대시보드 API 포트
}

func NewTeleBot(conf *TeleBotConfig) (*TeleBot, error) {

	bot, err := tgbotapi.NewBotAPI(conf.Token) // memo. Go automatically dereferences struct pointers when accessing fields
	if err != nil {
		return nil, err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	return &TeleBot{
		bot:     bot,
		chatId:  conf.ChatId,
		updates: updates,
		api:     newAPIClient(fmt.Sprintf("http://localhost:%d", conf.Port)),
		lg:      zerolog.New(os.Stdout).With().Str("Module", "TeleBot").Timestamp().Logger(),
	}, nil
}

func newAPIClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Minute).
		SetHeader("Content-Type", "application/json")
}

// ch 로 들어오는 메시지를 전송하고, 명령은 대시보드 API 로 중계
func (t TeleBot) Run(ch chan string) {
	t.SendMessage("LAUNCHED SUCCESSFULLY")

	go func() {
		t.communicate(ch)
	}()

	for msg := range ch {
		t.SendMessage(msg)
		t.lg.Info().Msg(msg)
	}
}

func (t TeleBot) SendMessage(msg string) {
	for _, chunk := range split(msg, maxMessageLen) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatId, chunk)); err != nil {
			t.lg.Error().Err(err).Msg("failed to send message")
		}
	}
}

func (t TeleBot) communicate(ch chan string) {

	for update := range t.updates {
		if update.Message == nil || update.Message.Chat == nil || update.Message.Chat.ID != t.chatId {
			continue
		}
		txt := strings.TrimSpace(update.Message.Text)
		if txt == "" || txt[0] != '/' {
			continue
		}
		// /run 은 배치가 끝날 때까지 걸리므로 따로 처리
		go func() {
			ch <- reply(t.api, txt)
		}()
	}
}

func reply(api *resty.Client, txt string) string {

	switch cmd, _, _ := strings.Cut(txt, " "); cmd {
	case "/help", "/start":
		return helpMessage
	case "/latest":
		return get(api, "/api/latest")
	case "/curve":
		return get(api, "/api/curve")
	case "/history":
		return get(api, "/api/history?days=7")
	case "/events":
		return get(api, "/events")
	case "/run":
		resp, err := api.R().SetBody(map[string]uint{"id": 1}).Post("/events/launch")
		if err != nil {
			return err.Error()
		}
		return resp.String()
	default:
		return get(api, txt)
	}
}

func get(api *resty.Client, path string) string {

	resp, err := api.R().Get(path)
	if err != nil {
		return err.Error()
	}
	if resp.IsError() {
		return fmt.Sprintf("%d %s", resp.StatusCode(), resp.String())
	}

	out, err := indent(resp.Body())
	if err != nil {
		return resp.String()
	}
	return out
}

// memo. 단순 MarshalIndent 사용하면, &을 \u0026로 바꿔버림.
func indent(body []byte) (string, error) {

	var jsonData interface{}
	if err := json.Unmarshal(body, &jsonData); err != nil {
		return "", err
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false) // Disable HTML escaping
	encoder.SetIndent("", "\t")
	if err := encoder.Encode(jsonData); err != nil {
		return "", err
	}

	return buffer.String(), nil
}

func split(msg string, n int) []string {
	if len(msg) <= n {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > n {
		cut := strings.LastIndex(msg[:n], "\n")
		if cut <= 0 {
			cut = n
			for cut > 0 && !utf8.RuneStart(msg[cut]) {
				cut--
			}
		}
		chunks = append(chunks, msg[:cut])
		msg = strings.TrimPrefix(msg[cut:], "\n")
	}
	if msg != "" {
		chunks = append(chunks, msg)
	}
	return chunks
}
