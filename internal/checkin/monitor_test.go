package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu       sync.Mutex
	bookings []Booking
	marked   []int64
	loadErr  error
	markErr  map[int64]error
}

func (f *fakeStore) ReadyForCheckin(context.Context) ([]Booking, error) {
	return f.bookings, f.loadErr
}

func (f *fakeStore) MarkCheckinOpen(_ context.Context, id int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markErr[id]; err != nil {
		return err
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeNotifier struct {
	calls []string
	err   error
}

func (f *fakeNotifier) NotifyCheckinOpen(_ context.Context, b Booking, url string) error {
	f.calls = append(f.calls, b.Reference+" "+url)
	return f.err
}

func TestOpensAt(t *testing.T) {
	dep := time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)
	got, ok := OpensAt(Booking{DepartureAt: dep})
	if !ok || !got.Equal(dep.Add(-24*time.Hour)) {
		t.Errorf("OpensAt() = %v, %v", got, ok)
	}
	if _, ok := OpensAt(Booking{}); ok {
		t.Error("OpensAt() ok for a booking without departure")
	}
}

func TestCheckinURL(t *testing.T) {
	if CheckinURL(" ib ") != "https://www.iberia.com/es/check-in-online/" {
		t.Errorf("CheckinURL(ib) = %q", CheckinURL("ib"))
	}
	if CheckinURL("ZZ") != "" {
		t.Error("unknown airline returned a url")
	}
}

func TestScan(t *testing.T) {
	now := time.Date(2026, 7, 9, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{bookings: []Booking{
		{ID: 1, Reference: "OPEN1", AirlineCode: "VY", CustomerEmail: "a@example.com", DepartureAt: now.Add(23 * time.Hour)},
		{ID: 2, Reference: "LATER", CustomerEmail: "b@example.com", DepartureAt: now.Add(25 * time.Hour)},
		{ID: 3, Reference: "EXACT", AirlineCode: "ZZ", CustomerEmail: "c@example.com", DepartureAt: now.Add(24 * time.Hour)},
		{ID: 4, Reference: "NOEMAIL", DepartureAt: now},
		{ID: 5, Reference: "NODATE"},
	}}
	notifier := &fakeNotifier{}

	n, err := NewMonitor(store, notifier).Scan(context.Background(), now)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Scan() = %d, want 3", n)
	}
	if len(store.marked) != 3 || store.marked[0] != 1 || store.marked[1] != 3 || store.marked[2] != 4 {
		t.Errorf("marked = %v", store.marked)
	}
	if len(notifier.calls) != 2 {
		t.Fatalf("notifications = %v", notifier.calls)
	}
	if notifier.calls[0] != "OPEN1 https://www.vueling.com/es/gestiona-tu-reserva/check-in" {
		t.Errorf("first notification = %q", notifier.calls[0])
	}
}

func TestScanNotifyFailureKeepsMark(t *testing.T) {
	now := time.Date(2026, 7, 9, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{bookings: []Booking{
		{ID: 1, Reference: "R1", CustomerEmail: "a@example.com", DepartureAt: now},
	}}
	n, err := NewMonitor(store, &fakeNotifier{err: errors.New("smtp down")}).Scan(context.Background(), now)
	if err != nil || n != 1 {
		t.Fatalf("Scan() = %d, %v", n, err)
	}
}

func TestScanSkipsFailedMark(t *testing.T) {
	now := time.Date(2026, 7, 9, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{
		bookings: []Booking{
			{ID: 1, Reference: "R1", CustomerEmail: "a@example.com", DepartureAt: now},
			{ID: 2, Reference: "R2", DepartureAt: now},
		},
		markErr: map[int64]error{1: errors.New("deadlock")},
	}
	notifier := &fakeNotifier{}
	n, err := NewMonitor(store, notifier).Scan(context.Background(), now)
	if err != nil || n != 1 {
		t.Fatalf("Scan() = %d, %v", n, err)
	}
	if len(notifier.calls) != 0 {
		t.Errorf("notified an unmarked booking: %v", notifier.calls)
	}
}

func TestScanLoadError(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("db down")}
	if _, err := NewMonitor(store, nil).Scan(context.Background(), time.Now()); err == nil {
		t.Fatal("expected an error")
	}
}
