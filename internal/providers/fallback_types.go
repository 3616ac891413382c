package providers

type FallbackOffer struct {
	ID                     string                    `json:"id"`
	Itineraries            []FallbackItinerary       `json:"itineraries"`
	Price                  FallbackPrice             `json:"price"`
	ValidatingAirlineCodes []string                  `json:"validatingAirlineCodes"`
	TravelerPricings       []FallbackTravelerPricing `json:"travelerPricings"`
}

type FallbackItinerary struct {
	Duration string            `json:"duration"`
	Segments []FallbackSegment `json:"segments"`
}

type FallbackSegment struct {
	Departure   FallbackEndpoint `json:"departure"`
	Arrival     FallbackEndpoint `json:"arrival"`
	CarrierCode string           `json:"carrierCode"`
	Number      string           `json:"number"`
	Duration    string           `json:"duration"`
	Aircraft    struct {
		Code string `json:"code"`
	} `json:"aircraft"`
}

type FallbackEndpoint struct {
	IATACode string `json:"iataCode"`
	At       string `json:"at"`
}

type FallbackPrice struct {
	GrandTotal string `json:"grandTotal"`
	Currency   string `json:"currency"`
}

type FallbackTravelerPricing struct {
	FareDetailsBySegment []FallbackFareDetail `json:"fareDetailsBySegment"`
}

type FallbackFareDetail struct {
	IncludedCheckedBags struct {
		Quantity *int `json:"quantity"`
		Weight   *int `json:"weight"`
	} `json:"includedCheckedBags"`
}
