package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics содержит все метрики одного запуска voxmix
type Metrics struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// Счетчики
	engineRequests *prometheus.CounterVec
	speakerCache   *prometheus.CounterVec
	synthesis      *prometheus.CounterVec

	// Гистограммы
	engineRequestDuration *prometheus.HistogramVec
	audioBytes            prometheus.Histogram

	// Мьютекс для thread-safety
	mu sync.Mutex
}

// New создает новый экземпляр метрик с собственным реестром
func New(logger *zap.Logger) *Metrics {
	m := &Metrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),

		// Счетчики запросов к движку
		engineRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxmix_engine_requests_total",
				Help: "Количество запросов к движку VOICEVOX",
			},
			[]string{"endpoint", "status"}, // endpoint: speakers, audio_query, synthesis; status: HTTP код или error
		),

		// Счетчики кэша голосов
		speakerCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxmix_speaker_cache_total",
				Help: "Обращения к кэшу списка голосов",
			},
			[]string{"result"}, // hit, miss
		),

		// Счетчики синтеза
		synthesis: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxmix_synthesis_total",
				Help: "Количество запусков синтеза речи",
			},
			[]string{"status"}, // success, failed
		),

		// Гистограмма времени ответа движка
		engineRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voxmix_engine_request_duration_seconds",
				Help:    "Время ответа движка VOICEVOX в секундах",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		// Гистограмма размера аудио
		audioBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voxmix_synthesis_audio_bytes",
				Help:    "Размер синтезированного WAV в байтах",
				Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
			},
		),
	}

	// Регистрируем все метрики
	m.registry.MustRegister(
		m.engineRequests,
		m.speakerCache,
		m.synthesis,
		m.engineRequestDuration,
		m.audioBytes,
	)

	return m
}

// IncrementCounter увеличивает счетчик
func (m *Metrics) IncrementCounter(name string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var counter *prometheus.CounterVec

	switch name {
	case "voxmix_engine_requests_total":
		counter = m.engineRequests
	case "voxmix_speaker_cache_total":
		counter = m.speakerCache
	case "voxmix_synthesis_total":
		counter = m.synthesis
	default:
		m.logger.Error("неизвестная метрика", zap.String("name", name))
		return
	}

	counter.WithLabelValues(labels...).Inc()
	m.logger.Debug("метрика увеличена", zap.String("metric", name), zap.Strings("labels", labels))
}

// ObserveHistogram добавляет наблюдение в гистограмму
func (m *Metrics) ObserveHistogram(name string, value float64, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch name {
	case "voxmix_engine_request_duration_seconds":
		m.engineRequestDuration.WithLabelValues(labels...).Observe(value)
	case "voxmix_synthesis_audio_bytes":
		m.audioBytes.Observe(value)
	default:
		m.logger.Error("неизвестная гистограмма", zap.String("name", name))
		return
	}

	m.logger.Debug("гистограмма обновлена", zap.String("metric", name), zap.Float64("value", value))
}

// RecordEngineRequest записывает запрос к движку
func (m *Metrics) RecordEngineRequest(endpoint, status string, duration time.Duration) {
	m.IncrementCounter("voxmix_engine_requests_total", endpoint, status)
	m.ObserveHistogram("voxmix_engine_request_duration_seconds", duration.Seconds(), endpoint)
}

// RecordSpeakerCache записывает обращение к кэшу голосов
func (m *Metrics) RecordSpeakerCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.IncrementCounter("voxmix_speaker_cache_total", result)
}

// RecordSynthesis записывает результат команды say
func (m *Metrics) RecordSynthesis(success bool, audioBytes int) {
	status := "success"
	if !success {
		status = "failed"
	}

	m.IncrementCounter("voxmix_synthesis_total", status)
	if success {
		m.ObserveHistogram("voxmix_synthesis_audio_bytes", float64(audioBytes))
	}
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile выгружает метрики в формате textfile collector node_exporter
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("ошибка записи метрик в %s: %w", path, err)
	}
	m.logger.Debug("метрики записаны", zap.String("path", path))
	return nil
}
