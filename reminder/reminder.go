// Package reminder raises alerts for notes whose reminder time has passed.
//
// Reminder records exist only in the local store, keyed by note id under
// "note_reminders". The poller reads the notes mirror written by the view
// state, so it sees whatever board the client last displayed.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"stickyboard/localstore"
	"stickyboard/models"

	"go.uber.org/zap"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultInitialDelay = 2 * time.Second
	DefaultCleanupDays  = 7

	subscriberBuffer = 16
)

// Record is the persisted state of one reminder.
type Record struct {
	ReminderAt        *time.Time `json:"reminderAt"`
	ReminderTriggered bool       `json:"reminderTriggered"`
	TriggeredAt       *time.Time `json:"triggeredAt"`
}

// Notifier shows a due reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, note models.Note) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, note models.Note) error

func (f NotifierFunc) Notify(ctx context.Context, note models.Note) error { return f(ctx, note) }

type Option func(*Service)

func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.initialDelay = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service owns the reminder records. mu serializes every read-modify-write of
// the records so a reminder fires at most once even when checks overlap.
type Service struct {
	store        localstore.Store
	interval     time.Duration
	initialDelay time.Duration
	now          func() time.Time
	notifier     Notifier
	log          *zap.Logger

	mu   sync.Mutex
	poke chan struct{}

	subsMu sync.Mutex
	subs   map[chan int64]struct{}
}

func New(store localstore.Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		interval:     DefaultInterval,
		initialDelay: DefaultInitialDelay,
		now:          time.Now,
		notifier:     NotifierFunc(func(context.Context, models.Note) error { return nil }),
		log:          zap.NewNop(),
		poke:         make(chan struct{}, 1),
		subs:         map[chan int64]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func decodeRecords(raw string, ok bool) (map[int64]Record, error) {
	records := map[int64]Record{}
	if !ok || raw == "" {
		return records, nil
	}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode reminders: %w", err)
	}
	return records, nil
}

func (s *Service) load(ctx context.Context) (map[int64]Record, error) {
	raw, ok, err := s.store.Get(ctx, localstore.KeyReminders)
	if err != nil {
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	return decodeRecords(raw, ok)
}

// update runs fn on the records and saves them when fn reports a change. Stores
// implementing localstore.Updater do the read and the write as one step, so
// another process sharing the store cannot slip a write in between.
func (s *Service) update(ctx context.Context, fn func(map[int64]Record) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply := func(raw string, ok bool) (string, bool, error) {
		records, err := decodeRecords(raw, ok)
		if err != nil {
			return "", false, err
		}
		if !fn(records) {
			return "", false, nil
		}
		out, err := json.Marshal(records)
		if err != nil {
			return "", false, fmt.Errorf("encode reminders: %w", err)
		}
		return string(out), true, nil
	}

	if u, ok := s.store.(localstore.Updater); ok {
		if err := u.Update(ctx, localstore.KeyReminders, apply); err != nil {
			return fmt.Errorf("update reminders: %w", err)
		}
		return nil
	}

	raw, ok, err := s.store.Get(ctx, localstore.KeyReminders)
	if err != nil {
		return fmt.Errorf("read reminders: %w", err)
	}
	next, changed, err := apply(raw, ok)
	if err != nil || !changed {
		return err
	}
	if err := s.store.Set(ctx, localstore.KeyReminders, next); err != nil {
		return fmt.Errorf("write reminders: %w", err)
	}
	return nil
}

// Set (re)arms the reminder of a note and asks the poller for an immediate check.
func (s *Service) Set(ctx context.Context, noteID int64, at time.Time) error {
	at = at.UTC()
	err := s.update(ctx, func(records map[int64]Record) bool {
		records[noteID] = Record{ReminderAt: &at}
		return true
	})
	if err != nil {
		return err
	}
	select {
	case s.poke <- struct{}{}:
	default:
	}
	return nil
}

func (s *Service) Remove(ctx context.Context, noteID int64) error {
	return s.update(ctx, func(records map[int64]Record) bool {
		if _, ok := records[noteID]; !ok {
			return false
		}
		delete(records, noteID)
		return true
	})
}

// Get returns a nil time when the note has no reminder.
func (s *Service) Get(ctx context.Context, noteID int64) (*time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	r, ok := records[noteID]
	if !ok {
		return nil, false, nil
	}
	return r.ReminderAt, r.ReminderTriggered, nil
}

// Reset clears the triggered state so the reminder can fire again.
func (s *Service) Reset(ctx context.Context, noteID int64) error {
	return s.update(ctx, func(records map[int64]Record) bool {
		r, ok := records[noteID]
		if !ok {
			return false
		}
		r.ReminderTriggered = false
		r.TriggeredAt = nil
		records[noteID] = r
		return true
	})
}

// Cleanup drops triggered reminders that fired more than daysOld days ago and
// returns how many were removed.
func (s *Service) Cleanup(ctx context.Context, daysOld int) (int, error) {
	if daysOld < 0 {
		daysOld = DefaultCleanupDays
	}
	cutoff := s.now().Add(-time.Duration(daysOld) * 24 * time.Hour)
	removed := 0
	err := s.update(ctx, func(records map[int64]Record) bool {
		for id, r := range records {
			if r.ReminderTriggered && r.TriggeredAt != nil && r.TriggeredAt.Before(cutoff) {
				delete(records, id)
				removed++
			}
		}
		return removed > 0
	})
	return removed, err
}

// List returns a copy of every record.
func (s *Service) List(ctx context.Context) (map[int64]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// mirroredNotes reads the notes mirror. A missing or unreadable mirror yields no notes.
func (s *Service) mirroredNotes(ctx context.Context) []models.Note {
	raw, ok, err := s.store.Get(ctx, localstore.KeyNotes)
	if err != nil {
		s.log.Warn("could not read notes mirror", zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		s.log.Debug("no notes mirrored yet")
		return nil
	}
	var notes []models.Note
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		s.log.Error("error parsing notes mirror", zap.Error(err))
		return nil
	}
	return notes
}

// Check fires every due, untriggered reminder once and returns the ids it fired.
// Due reminders are marked triggered before anyone is notified, so a failed
// notification or a concurrent check never fires the same reminder twice.
func (s *Service) Check(ctx context.Context) ([]int64, error) {
	notes := s.mirroredNotes(ctx)
	if len(notes) == 0 {
		return nil, nil
	}
	now := s.now()

	var due []models.Note
	err := s.update(ctx, func(records map[int64]Record) bool {
		due = due[:0]
		for _, note := range notes {
			r, ok := records[note.ID]
			if !ok || r.ReminderAt == nil || r.ReminderTriggered || r.ReminderAt.After(now) {
				continue
			}
			at := now.UTC()
			r.ReminderTriggered = true
			r.TriggeredAt = &at
			records[note.ID] = r
			note.ReminderAt = r.ReminderAt
			note.ReminderTriggered = true
			due = append(due, note)
		}
		return len(due) > 0
	})
	if err != nil || len(due) == 0 {
		return nil, err
	}

	fired := make([]int64, 0, len(due))
	for _, note := range due {
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.log.Warn("reminder notification failed", zap.Int64("note_id", note.ID), zap.Error(err))
		}
		fired = append(fired, note.ID)
	}
	sort.Slice(fired, func(i, j int) bool { return fired[i] < fired[j] })
	for _, id := range fired {
		s.log.Info("reminder triggered", zap.Int64("note_id", id))
		s.publish(id)
	}
	return fired, nil
}

// Subscribe delivers the id of every note whose reminder fires. Slow readers
// miss ids rather than stall the poller. The channel closes when ctx ends.
func (s *Service) Subscribe(ctx context.Context) <-chan int64 {
	ch := make(chan int64, subscriberBuffer)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subsMu.Lock()
		delete(s.subs, ch)
		s.subsMu.Unlock()
		close(ch)
	}()
	return ch
}

func (s *Service) publish(id int64) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- id:
		default:
			s.log.Warn("dropping reminder event for slow subscriber", zap.Int64("note_id", id))
		}
	}
}

// Run polls until ctx ends: once after the initial delay, then every interval,
// after every Set and whenever the store reports a change.
func (s *Service) Run(ctx context.Context) error {
	var changes <-chan struct{}
	if w, ok := s.store.(localstore.Watcher); ok {
		ch, err := w.Changes(ctx)
		if err != nil {
			s.log.Warn("store change feed unavailable, polling only", zap.Error(err))
		} else {
			changes = ch
		}
	}

	check := func(reason string) {
		if _, err := s.Check(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("reminder check failed", zap.String("reason", reason), zap.Error(err))
		}
	}

	initial := time.NewTimer(s.initialDelay)
	defer initial.Stop()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-initial.C:
			check("initial")
		case <-ticker.C:
			check("interval")
		case <-s.poke:
			check("set")
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			check("store change")
		}
	}
}
