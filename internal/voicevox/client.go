package voicevox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultTimeout ограничивает время одного запроса к движку
const DefaultTimeout = 30 * time.Second

// maxErrorBody ограничивает размер тела ответа, попадающего в текст ошибки
const maxErrorBody = 512

// MetricsRecorder принимает измерения обращений к движку
type MetricsRecorder interface {
	RecordEngineRequest(endpoint, status string, duration time.Duration)
	RecordSpeakerCache(hit bool)
}

// ClientConfig содержит параметры клиента VOICEVOX
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Metrics MetricsRecorder
}

// Client представляет клиент для работы с HTTP API движка VOICEVOX
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    MetricsRecorder

	// Список голосов загружается один раз за время жизни клиента
	speakersMu sync.Mutex
	speakers   []Speaker
}

// NewClient создает новый клиент VOICEVOX
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// BaseURL возвращает адрес движка
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveSpeaker возвращает ID стиля по имени голоса, составному имени или числовому ID.
// Числовой идентификатор (допускается ведущий "+") возвращается без проверки по списку голосов.
func (c *Client) ResolveSpeaker(ctx context.Context, identifier string) (int, error) {
	if id, err := strconv.ParseUint(strings.TrimPrefix(identifier, "+"), 10, 32); err == nil {
		return int(id), nil
	}

	speakers, err := c.FetchSpeakers(ctx)
	if err != nil {
		return 0, err
	}

	for _, speaker := range speakers {
		if speaker.Name == identifier && len(speaker.Styles) > 0 {
			return speaker.Styles[0].ID, nil
		}

		for _, style := range speaker.Styles {
			if speaker.Label(style) == identifier {
				return style.ID, nil
			}
		}
	}

	return 0, &SpeakerNotFoundError{Identifier: identifier}
}

// FetchSpeakers загружает список голосов. Повторные вызовы возвращают кэш.
func (c *Client) FetchSpeakers(ctx context.Context) ([]Speaker, error) {
	c.speakersMu.Lock()
	defer c.speakersMu.Unlock()

	if c.speakers != nil {
		c.recordCache(true)
		return append([]Speaker(nil), c.speakers...), nil
	}
	c.recordCache(false)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/speakers", nil)
	if err != nil {
		return nil, &TransportError{Operation: "fetch speakers", Err: err}
	}

	body, err := c.do(req, "speakers", "fetch speakers")
	if err != nil {
		return nil, err
	}

	speakers := []Speaker{}
	if err := json.Unmarshal(body, &speakers); err != nil {
		return nil, &SerializationError{Operation: "decode speakers", Err: err}
	}
	if speakers == nil {
		speakers = []Speaker{}
	}

	c.logger.Info("загружен список голосов", zap.Int("count", len(speakers)))
	c.speakers = speakers

	return append([]Speaker(nil), speakers...), nil
}

// CreateAudioQuery запрашивает у движка AudioQuery для текста
func (c *Client) CreateAudioQuery(ctx context.Context, text string, speakerID int) (*AudioQuery, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("speaker", strconv.Itoa(speakerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio_query?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Operation: "create audio query", Err: err}
	}

	c.logger.Debug("создание audio query",
		zap.Int("speaker_id", speakerID),
		zap.Int("text_length", len([]rune(text))))

	body, err := c.do(req, "audio_query", "create audio query")
	if err != nil {
		return nil, err
	}

	var query AudioQuery
	if err := json.Unmarshal(body, &query); err != nil {
		return nil, &SerializationError{Operation: "decode audio query", Err: err}
	}

	return &query, nil
}

// Synthesize отправляет AudioQuery на синтез и возвращает WAV без изменений
func (c *Client) Synthesize(ctx context.Context, query *AudioQuery, speakerID int) ([]byte, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, &SerializationError{Operation: "encode audio query", Err: err}
	}

	params := url.Values{}
	params.Set("speaker", strconv.Itoa(speakerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesis?"+params.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Operation: "synthesize audio", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	c.logger.Debug("синтез аудио", zap.Int("speaker_id", speakerID))

	audioData, err := c.do(req, "synthesis", "synthesize audio")
	if err != nil {
		return nil, err
	}

	c.logger.Info("аудио успешно синтезировано", zap.Int("audio_size", len(audioData)))

	return audioData, nil
}

// SaveAudio записывает аудио в файл как есть, создавая или перезаписывая его.
// Данные пишутся во временный файл рядом с path и переименовываются, поэтому
// при ошибке записи path не остается частично записанным.
func (c *Client) SaveAudio(audioData []byte, path string) error {
	c.logger.Debug("сохранение аудио", zap.String("path", path))

	if err := writeFileAtomic(path, audioData, 0644); err != nil {
		return &IOError{Path: path, Err: err}
	}

	c.logger.Info("аудио сохранено",
		zap.String("path", path),
		zap.Int("audio_size", len(audioData)))
	return nil
}

// do выполняет запрос ровно один раз и возвращает тело успешного ответа
func (c *Client) do(req *http.Request, endpoint, operation string) ([]byte, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordRequest(endpoint, "error", time.Since(start))
		return nil, &TransportError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.recordRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, &TransportError{Operation: operation, Err: fmt.Errorf("ошибка чтения ответа: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("движок вернул ошибку",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode))
		return nil, &EngineAPIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
		}
	}

	return body, nil
}

func (c *Client) recordRequest(endpoint, status string, duration time.Duration) {
	c.logger.Debug("запрос к движку",
		zap.String("endpoint", endpoint),
		zap.String("status", status),
		zap.Duration("duration", duration))
	if c.metrics != nil {
		c.metrics.RecordEngineRequest(endpoint, status, duration)
	}
}

func (c *Client) recordCache(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordSpeakerCache(hit)
	}
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// truncate обрезает s до limit байт, не разрывая UTF-8 символ
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
