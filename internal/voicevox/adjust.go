package voicevox

// PitchOffsetFactor переводит множитель высоты тона в смещение pitchScale
const PitchOffsetFactor = 0.15

// AdjustQuery применяет пользовательские параметры к AudioQuery.
// pitchScale у движка - смещение от 0.0, поэтому множитель 1.0 превращается в 0.0.
// Остальные поля возвращаются без изменений.
func AdjustQuery(query AudioQuery, speed, pitch, volume float64) AudioQuery {
	query.SpeedScale = speed
	query.PitchScale = (pitch - 1.0) * PitchOffsetFactor
	query.VolumeScale = volume
	return query
}
