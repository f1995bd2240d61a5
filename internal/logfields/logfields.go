package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyItem       = "item"
	KeyItemType   = "item_type"
	KeyItemStatus = "item_status"
	KeyRoute      = "route"
	KeyPage       = "page"
	KeyPath       = "path"
	KeySource     = "source"
	KeyTarget     = "target"
	KeyMode       = "mode"
	KeyLanguage   = "language"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Item(uri string) slog.Attr       { return slog.String(KeyItem, uri) }
func ItemType(t string) slog.Attr     { return slog.String(KeyItemType, t) }
func ItemStatus(s string) slog.Attr   { return slog.String(KeyItemStatus, s) }
func Route(r string) slog.Attr        { return slog.String(KeyRoute, r) }
func Page(uri string) slog.Attr       { return slog.String(KeyPage, uri) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Target(p string) slog.Attr       { return slog.String(KeyTarget, p) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Language(code string) slog.Attr  { return slog.String(KeyLanguage, code) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
