package say

import (
	"context"
	"time"

	"voxmix/internal/voicevox"

	"go.uber.org/zap"
)

// Engine описывает операции движка, нужные команде say
type Engine interface {
	ResolveSpeaker(ctx context.Context, identifier string) (int, error)
	CreateAudioQuery(ctx context.Context, text string, speakerID int) (*voicevox.AudioQuery, error)
	Synthesize(ctx context.Context, query *voicevox.AudioQuery, speakerID int) ([]byte, error)
	SaveAudio(audioData []byte, path string) error
}

// SynthesisRecorder принимает итог синтеза
type SynthesisRecorder interface {
	RecordSynthesis(success bool, audioBytes int)
}

// Params содержит параметры команды say
type Params struct {
	Text    string
	Speaker string
	Output  string
	Speed   float64
	Pitch   float64
	Volume  float64
}

// Result описывает успешный синтез
type Result struct {
	SpeakerID  int
	Output     string
	AudioBytes int
	Duration   time.Duration
}

// Validate проверяет параметры до обращения к движку. Возвращается первая ошибка.
func (p Params) Validate() error {
	if p.Text == "" {
		return &voicevox.InvalidParameterError{Message: "Text cannot be empty"}
	}
	if p.Speed <= 0 {
		return &voicevox.InvalidParameterError{Message: "Speed must be greater than 0"}
	}
	if p.Pitch <= 0 {
		return &voicevox.InvalidParameterError{Message: "Pitch must be greater than 0"}
	}
	if p.Volume <= 0 {
		return &voicevox.InvalidParameterError{Message: "Volume must be greater than 0"}
	}
	return nil
}

// Service выполняет синтез речи от текста до файла
type Service struct {
	engine  Engine
	metrics SynthesisRecorder
	logger  *zap.Logger
}

// NewService создает новый сервис синтеза. metrics может быть nil.
func NewService(engine Engine, metrics SynthesisRecorder, logger *zap.Logger) *Service {
	return &Service{
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
}

// Run выполняет шаги строго по порядку и останавливается на первой ошибке.
// Файл создается только после успешного ответа синтеза.
func (s *Service) Run(ctx context.Context, p Params) (*Result, error) {
	result, err := s.run(ctx, p)
	if s.metrics != nil {
		audioBytes := 0
		if result != nil {
			audioBytes = result.AudioBytes
		}
		s.metrics.RecordSynthesis(err == nil, audioBytes)
	}
	return result, err
}

func (s *Service) run(ctx context.Context, p Params) (*Result, error) {
	start := time.Now()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("определение голоса", zap.String("speaker", p.Speaker))
	speakerID, err := s.engine.ResolveSpeaker(ctx, p.Speaker)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("голос определен", zap.Int("speaker_id", speakerID))

	s.logger.Info("создание audio query", zap.String("text", p.Text))
	query, err := s.engine.CreateAudioQuery(ctx, p.Text, speakerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("применение параметров голоса",
		zap.Float64("speed", p.Speed),
		zap.Float64("pitch", p.Pitch),
		zap.Float64("volume", p.Volume))
	adjusted := voicevox.AdjustQuery(*query, p.Speed, p.Pitch, p.Volume)

	s.logger.Info("синтез аудио")
	audioData, err := s.engine.Synthesize(ctx, &adjusted, speakerID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.SaveAudio(audioData, p.Output); err != nil {
		return nil, err
	}

	result := &Result{
		SpeakerID:  speakerID,
		Output:     p.Output,
		AudioBytes: len(audioData),
		Duration:   time.Since(start),
	}

	s.logger.Info("синтез речи завершен",
		zap.String("output", result.Output),
		zap.Int("audio_size", result.AudioBytes),
		zap.Duration("duration", result.Duration))

	return result, nil
}
