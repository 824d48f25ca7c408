package voicevox

import "fmt"

// InvalidParameterError возвращается при проверке параметров до обращения к движку
type InvalidParameterError struct {
	Message string
}

func (e *InvalidParameterError) Error() string {
	return "Invalid parameter: " + e.Message
}

// SpeakerNotFoundError возвращается, когда имя голоса не найдено ни по одному правилу
type SpeakerNotFoundError struct {
	Identifier string
}

func (e *SpeakerNotFoundError) Error() string {
	return fmt.Sprintf("Speaker '%s' not found", e.Identifier)
}

// EngineAPIError возвращается, когда движок ответил неуспешным статусом
type EngineAPIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *EngineAPIError) Error() string {
	msg := fmt.Sprintf("VOICEVOX API error: failed to %s: %d", e.Operation, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// TransportError оборачивает сетевые ошибки
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP request failed: %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SerializationError оборачивает ошибки разбора и сериализации JSON
type SerializationError struct {
	Operation string
	Err       error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("JSON parsing failed: %s: %v", e.Operation, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// IOError оборачивает ошибки записи файла
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("IO error: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
