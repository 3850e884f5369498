// Package notify is the short-lived message feed shown over the board:
// other players' actions and our own failed commands.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
	"github.com/DoyleJ11/krutagidon-client/internal/timeouts"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Notification struct {
	ID        uint64    `json:"id"`
	Level     Level     `json:"level"`
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Feed is append/expire only. Entries are never edited after Publish.
type Feed struct {
	printer *message.Printer
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	seq   uint64
	items []Notification
}

// NewFeed renders messages for locale ("en", "ru"; anything unknown falls
// back to English). A non-positive ttl uses timeouts.Notification.
func NewFeed(locale string, ttl time.Duration, logger *zap.Logger) *Feed {
	if ttl <= 0 {
		ttl = timeouts.Notification
	}
	return &Feed{
		printer: message.NewPrinter(matchLocale(locale)),
		ttl:     ttl,
		logger:  telemetry.OrNop(logger).Named("notify"),
		now:     time.Now,
	}
}

var supported = language.NewMatcher([]language.Tag{language.English, language.Russian})

func matchLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	_, idx, _ := supported.Match(tag)
	if idx == 1 {
		return language.Russian
	}
	return language.English
}

func (f *Feed) Publish(level Level, key string, args ...any) Notification {
	now := f.now()
	text := f.printer.Sprintf(key, args...)

	f.mu.Lock()
	f.seq++
	n := Notification{
		ID:        f.seq,
		Level:     level,
		Key:       key,
		Text:      text,
		CreatedAt: now,
		ExpiresAt: now.Add(f.ttl),
	}
	f.items = append(f.pruneLocked(now), n)
	f.mu.Unlock()

	f.logger.Debug("notification", zap.String("key", key), zap.String("level", string(level)), zap.String("text", text))
	return n
}

// Active returns the notifications that have not expired, oldest first.
func (f *Feed) Active() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = f.pruneLocked(f.now())
	return append([]Notification(nil), f.items...)
}

// Latest is the newest live notification; it is the one a single-line
// banner should show.
func (f *Feed) Latest() (Notification, bool) {
	active := f.Active()
	if len(active) == 0 {
		return Notification{}, false
	}
	return active[len(active)-1], true
}

func (f *Feed) pruneLocked(now time.Time) []Notification {
	kept := f.items[:0]
	for _, n := range f.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	return kept
}
