package progress

import "errors"

var (
	// ErrNotInZone возвращается, когда сущность не привязана к этажу зоны.
	ErrNotInZone = errors.New("entity is not on a zone floor")
	// ErrInvalidLevel возвращается для отрицательного уровня.
	ErrInvalidLevel = errors.New("level must not be negative")
)
