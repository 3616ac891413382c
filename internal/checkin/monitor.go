package checkin

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// WindowLead is how long before departure online check-in opens.
const WindowLead = 24 * time.Hour

type Booking struct {
	ID            int64
	Reference     string
	AirlineCode   string
	CustomerEmail string
	DepartureAt   time.Time
}

type BookingStore interface {
	ReadyForCheckin(ctx context.Context) ([]Booking, error)
	MarkCheckinOpen(ctx context.Context, id int64, note string) error
}

type Notifier interface {
	NotifyCheckinOpen(ctx context.Context, b Booking, checkinURL string) error
}

var checkinURLs = map[string]string{
	"IB": "https://www.iberia.com/es/check-in-online/",
	"VY": "https://www.vueling.com/es/gestiona-tu-reserva/check-in",
	"FR": "https://www.ryanair.com/es/es/check-in",
	"UX": "https://www.aireuropa.com/es/es/aea/gestiona-tu-reserva/check-in-online.html",
	"LH": "https://www.lufthansa.com/es/es/check-in-online",
	"KL": "https://www.klm.es/check-in",
	"AF": "https://wwws.airfrance.es/check-in",
	"BA": "https://www.britishairways.com/travel/olcilandingpageauthreq/public/en_gb",
	"TP": "https://www.flytap.com/es-es/check-in",
	"U2": "https://www.easyjet.com/es/checkin",
	"W6": "https://wizzair.com/es-es/informacion-y-servicios/check-in-y-embarque",
	"TK": "https://www.turkishairlines.com/es-int/flights/check-in/",
	"EK": "https://www.emirates.com/es/spanish/manage-booking/online-check-in/",
}

// CheckinURL returns the airline's online check-in page, or "" when unknown.
func CheckinURL(airlineCode string) string {
	return checkinURLs[strings.ToUpper(strings.TrimSpace(airlineCode))]
}

// OpensAt reports when check-in opens for the booking.
func OpensAt(b Booking) (time.Time, bool) {
	if b.DepartureAt.IsZero() {
		return time.Time{}, false
	}
	return b.DepartureAt.Add(-WindowLead), true
}

type Monitor struct {
	store    BookingStore
	notifier Notifier
}

func NewMonitor(store BookingStore, notifier Notifier) *Monitor {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Monitor{store: store, notifier: notifier}
}

// Scan marks every ready booking whose window has opened and notifies the
// customer. Notification failures are logged and do not undo the mark.
func (m *Monitor) Scan(ctx context.Context, now time.Time) (int, error) {
	bookings, err := m.store.ReadyForCheckin(ctx)
	if err != nil {
		return 0, fmt.Errorf("load bookings: %w", err)
	}

	now = now.UTC()
	opened := 0
	for _, b := range bookings {
		opens, ok := OpensAt(b)
		if !ok || now.Before(opens) {
			continue
		}

		note := fmt.Sprintf("[AUTO_CHECKIN] check-in window opened %s UTC", now.Format("02/01/2006 15:04"))
		if err := m.store.MarkCheckinOpen(ctx, b.ID, note); err != nil {
			log.Printf("[checkin] mark booking %s: %v", b.Reference, err)
			continue
		}
		opened++

		if b.CustomerEmail == "" {
			continue
		}
		if err := m.notifier.NotifyCheckinOpen(ctx, b, CheckinURL(b.AirlineCode)); err != nil {
			log.Printf("[checkin] notify booking %s: %v", b.Reference, err)
		}
	}

	if opened > 0 {
		log.Printf("[checkin] %d bookings moved to check-in open", opened)
	}
	return opened, nil
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) NotifyCheckinOpen(_ context.Context, b Booking, url string) error {
	if url == "" {
		url = "n/a"
	}
	log.Printf("[checkin] notify %s: booking %s check-in open, airline page %s", b.CustomerEmail, b.Reference, url)
	return nil
}
