package voicevox

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Speaker представляет голос движка VOICEVOX (ответ /speakers)
type Speaker struct {
	Name   string  `json:"name"`
	UUID   string  `json:"speaker_uuid"`
	Styles []Style `json:"styles"`
}

// Style представляет стиль голоса; по ID движок синтезирует речь
type Style struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// Label возвращает составное имя стиля вида "四国めたん（あまあま）"
func (s Speaker) Label(style Style) string {
	return s.Name + "（" + style.Name + "）"
}

// ParsedUUID разбирает speaker_uuid
func (s Speaker) ParsedUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UUID)
}

// Mora представляет одну мору акцентной фразы
type Mora struct {
	Text            string   `json:"text"`
	Consonant       *string  `json:"consonant"`
	ConsonantLength *float64 `json:"consonant_length"`
	Vowel           string   `json:"vowel"`
	VowelLength     float64  `json:"vowel_length"`
	Pitch           float64  `json:"pitch"`

	extra map[string]json.RawMessage
}

var moraFields = []string{"text", "consonant", "consonant_length", "vowel", "vowel_length", "pitch"}

type plainMora Mora

// UnmarshalJSON разбирает известные поля и запоминает остальные
func (m *Mora) UnmarshalJSON(data []byte) error {
	var plain plainMora
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	extra, err := unknownFields(data, moraFields)
	if err != nil {
		return err
	}

	*m = Mora(plain)
	m.extra = extra
	return nil
}

// MarshalJSON сериализует известные поля вместе с сохраненными неизвестными
func (m Mora) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(plainMora(m))
	if err != nil {
		return nil, err
	}
	return mergeFields(data, m.extra)
}

// AccentPhrase представляет акцентную фразу
type AccentPhrase struct {
	Moras           []Mora `json:"moras"`
	Accent          int    `json:"accent"`
	PauseMora       *Mora  `json:"pause_mora"`
	IsInterrogative bool   `json:"is_interrogative"`

	extra map[string]json.RawMessage
}

var accentPhraseFields = []string{"moras", "accent", "pause_mora", "is_interrogative"}

type plainAccentPhrase AccentPhrase

// UnmarshalJSON разбирает известные поля и запоминает остальные
func (a *AccentPhrase) UnmarshalJSON(data []byte) error {
	var plain plainAccentPhrase
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	extra, err := unknownFields(data, accentPhraseFields)
	if err != nil {
		return err
	}

	*a = AccentPhrase(plain)
	a.extra = extra
	return nil
}

// MarshalJSON сериализует известные поля вместе с сохраненными неизвестными
func (a AccentPhrase) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(plainAccentPhrase(a))
	if err != nil {
		return nil, err
	}
	return mergeFields(data, a.extra)
}

// AudioQuery представляет запрос на синтез, построенный движком по тексту.
// Поля, которые клиент не моделирует, сохраняются и отправляются обратно без изменений
// на всех уровнях вложенности.
type AudioQuery struct {
	AccentPhrases      []AccentPhrase `json:"accent_phrases"`
	SpeedScale         float64        `json:"speedScale"`
	PitchScale         float64        `json:"pitchScale"`
	IntonationScale    float64        `json:"intonationScale"`
	VolumeScale        float64        `json:"volumeScale"`
	PrePhonemeLength   float64        `json:"prePhonemeLength"`
	PostPhonemeLength  float64        `json:"postPhonemeLength"`
	PauseLength        *float64       `json:"pauseLength"`
	PauseLengthScale   *float64       `json:"pauseLengthScale"`
	OutputSamplingRate int            `json:"outputSamplingRate"`
	OutputStereo       bool           `json:"outputStereo"`
	Kana               string         `json:"kana"`

	// Старые версии движка не присылают pauseLengthScale, в этом случае поле не отправляется
	hasPauseLengthScale bool
	extra               map[string]json.RawMessage
}

// audioQueryFields - поля AudioQuery, которые описаны в структуре
var audioQueryFields = []string{
	"accent_phrases", "speedScale", "pitchScale", "intonationScale", "volumeScale",
	"prePhonemeLength", "postPhonemeLength", "pauseLength", "pauseLengthScale",
	"outputSamplingRate", "outputStereo", "kana",
}

// plainAudioQuery не имеет методов, чтобы избежать рекурсии при (де)сериализации
type plainAudioQuery AudioQuery

// UnmarshalJSON разбирает известные поля и запоминает остальные
func (q *AudioQuery) UnmarshalJSON(data []byte) error {
	var plain plainAudioQuery
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return err
	}
	_, hasPauseLengthScale := present["pauseLengthScale"]

	extra, err := unknownFields(data, audioQueryFields)
	if err != nil {
		return err
	}

	*q = AudioQuery(plain)
	q.hasPauseLengthScale = hasPauseLengthScale
	q.extra = extra
	return nil
}

// MarshalJSON сериализует известные поля вместе с сохраненными неизвестными
func (q AudioQuery) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(plainAudioQuery(q))
	if err != nil {
		return nil, err
	}

	var omit []string
	if q.PauseLengthScale == nil && !q.hasPauseLengthScale {
		omit = append(omit, "pauseLengthScale")
	}
	return mergeFields(data, q.extra, omit...)
}

// unknownFields возвращает поля объекта, не входящие в known
func unknownFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, field := range known {
		delete(all, field)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// mergeFields добавляет extra в сериализованный объект и убирает поля omit.
// Известные поля имеют приоритет над сохраненными.
func mergeFields(data []byte, extra map[string]json.RawMessage, omit ...string) ([]byte, error) {
	if len(extra) == 0 && len(omit) == 0 {
		return data, nil
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, known := all[key]; !known {
			all[key] = value
		}
	}
	for _, key := range omit {
		delete(all, key)
	}
	return json.Marshal(all)
}
