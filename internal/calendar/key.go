package calendar

import (
	"fmt"
	"strings"

	"github.com/dharmasatrya/farebroker/internal/models"
)

// Route is a tracked origin/destination pair with its passenger mix.
type Route struct {
	Origin      string            `yaml:"origin"`
	Destination string            `yaml:"destination"`
	Passengers  models.Passengers `yaml:",inline"`
	CabinClass  models.CabinClass `yaml:"cabin"`
}

func DefaultRoute(origin, destination string) Route {
	return Route{
		Origin:      strings.ToUpper(origin),
		Destination: strings.ToUpper(destination),
		Passengers:  models.Passengers{Adults: 1},
		CabinClass:  models.CabinEconomy,
	}
}

func (r Route) String() string {
	return fmt.Sprintf("%s-%s %d/%d/%d %s", r.Origin, r.Destination,
		r.Passengers.Adults, r.Passengers.Children, r.Passengers.Infants, r.CabinClass)
}

// Key identifies one month of day prices for a route.
type Key struct {
	Route
	Year  int
	Month int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d:%d:%d:%d:%d:%s",
		k.Origin, k.Destination, k.Year, k.Month,
		k.Passengers.Adults, k.Passengers.Children, k.Passengers.Infants, k.CabinClass)
}

func KeyFor(req models.CalendarRequest) Key {
	return Key{
		Route: Route{
			Origin:      req.Origin,
			Destination: req.Destination,
			Passengers:  req.Passengers,
			CabinClass:  req.CabinClass,
		},
		Year:  req.Year,
		Month: req.Month,
	}
}
