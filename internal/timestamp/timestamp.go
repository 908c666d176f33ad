package timestamp

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Layout is the wall-clock format used as log-line prefix.
const Layout = "2006-01-02 15:04:05"

// Offset is the fixed offset applied before formatting.
const Offset = 9 * time.Hour

var zone = time.FixedZone("UTC+9", int(Offset/time.Second))

// Format returns t as "YYYY-MM-DD HH:MM:SS" at a fixed +09:00 offset,
// independent of the local time zone.
func Format(t time.Time) string {
	return t.In(zone).Format(Layout)
}

// Now formats the current instant.
func Now() string {
	return Format(time.Now())
}

// Encoder is a zap time encoder that writes Format(t).
func Encoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(Format(t))
}
