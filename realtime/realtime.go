// Package realtime fans row changes out over Redis pub/sub. Every change is
// published once on the table's event channel and once per filterable column,
// so a subscriber filtered on "restaurant_id=eq.<id>" only ever receives rows
// for that restaurant.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const schema = "public"

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

func (e EventType) Valid() bool {
	return e == EventInsert || e == EventUpdate || e == EventDelete
}

var ErrInvalidFilter = errors.New("invalid realtime filter")

// Change is one row event as delivered to subscribers
type Change struct {
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	Event           EventType       `json:"eventType"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// Filter is an equality predicate on one column; the zero value matches everything
type Filter struct {
	Column string
	Value  string
}

// ParseFilter accepts "" or "column=eq.value"
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return Filter{}, nil
	}
	col, rest, ok := strings.Cut(s, "=")
	if !ok || col == "" {
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	if !ok || val == "" {
		return Filter{}, fmt.Errorf("%w: only eq. is supported, got %q", ErrInvalidFilter, s)
	}
	return Filter{Column: col, Value: val}, nil
}

func (f Filter) IsZero() bool { return f.Column == "" }

func (f Filter) String() string {
	if f.IsZero() {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

// Channel names the pub/sub channel carrying table events matching f
func Channel(table string, event EventType, f Filter) string {
	ch := "realtime:" + schema + ":" + table + ":" + string(event)
	if !f.IsZero() {
		ch += ":" + f.String()
	}
	return ch
}

type Subscription interface {
	Unsubscribe() error
}

// Subscriber is implemented by Feed and by the HTTP client's SSE transport
type Subscriber interface {
	Subscribe(ctx context.Context, table string, event EventType, filter string, cb func(Change)) (Subscription, error)
}

type Feed struct {
	rdb        *redis.Client
	log        *slog.Logger
	filterable map[string][]string
}

// DefaultFilterColumns lists, per table, the columns subscribers may filter on
var DefaultFilterColumns = map[string][]string{
	"orders":     {"restaurant_id", "user_id", "driver_id"},
	"menu_items": {"restaurant_id"},
}

func NewFeed(rdb *redis.Client, log *slog.Logger) *Feed {
	return &Feed{rdb: rdb, log: log, filterable: DefaultFilterColumns}
}

// Filterable reports whether subscribers may filter table on column
func (f *Feed) Filterable(table, column string) bool {
	for _, c := range f.filterable[table] {
		if c == column {
			return true
		}
	}
	return false
}

// Publish encodes newRow (and oldRow, if any) and delivers it on every matching channel
func (f *Feed) Publish(ctx context.Context, table string, event EventType, newRow, oldRow any) error {
	change := Change{Schema: schema, Table: table, Event: event, CommitTimestamp: time.Now().UTC()}

	var columns map[string]any
	if newRow != nil {
		raw, err := json.Marshal(newRow)
		if err != nil {
			return fmt.Errorf("encode %s row: %w", table, err)
		}
		change.New = raw
		_ = json.Unmarshal(raw, &columns)
	}
	if oldRow != nil {
		raw, err := json.Marshal(oldRow)
		if err != nil {
			return fmt.Errorf("encode old %s row: %w", table, err)
		}
		change.Old = raw
		if columns == nil {
			_ = json.Unmarshal(raw, &columns)
		}
	}

	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}

	channels := []string{Channel(table, event, Filter{})}
	for _, col := range f.filterable[table] {
		if v, ok := columns[col].(string); ok && v != "" {
			channels = append(channels, Channel(table, event, Filter{Column: col, Value: v}))
		}
	}

	pipe := f.rdb.Pipeline()
	for _, ch := range channels {
		pipe.Publish(ctx, ch, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s %s: %w", table, event, err)
	}
	return nil
}

// Subscribe starts delivering changes to cb until the returned Subscription is released
func (f *Feed) Subscribe(ctx context.Context, table string, event EventType, filter string, cb func(Change)) (Subscription, error) {
	if !event.Valid() {
		return nil, fmt.Errorf("unknown event type %q", event)
	}
	flt, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	if !flt.IsZero() && !f.Filterable(table, flt.Column) {
		return nil, fmt.Errorf("%w: %s cannot be filtered on %s", ErrInvalidFilter, table, flt.Column)
	}

	channel := Channel(table, event, flt)
	ps := f.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	sub := &redisSubscription{ps: ps, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range ps.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				f.log.Warn("dropping undecodable change", "channel", channel, "error", err)
				continue
			}
			cb(change)
		}
	}()

	f.log.Debug("realtime subscription opened", "channel", channel)
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	done chan struct{}
	once sync.Once
	err  error
}

// Unsubscribe closes the subscription and waits for in-flight callbacks
func (s *redisSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.ps.Close()
		<-s.done
	})
	return s.err
}
