package fetch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/spf13/cast"
)

const layoverMarker = "경유"

var pricePattern = regexp.MustCompile(`왕복\s*([\d,]+)원`)

// legMatcher holds the outbound and return leg patterns for one route.
type legMatcher struct {
	out  *regexp.Regexp
	back *regexp.Regexp
}

func legPattern(from, to string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)(\d{2}:\d{2})%s\s+(\d{2}:\d{2})%s`, regexp.QuoteMeta(from), regexp.QuoteMeta(to)))
}

func newLegMatcher(depart, arrive string) *legMatcher {
	return &legMatcher{out: legPattern(depart, arrive), back: legPattern(arrive, depart)}
}

// ParseFlightInfo extracts one round-trip offer from the text of a search
// result. Results with a layover or without both legs and a price are skipped.
func ParseFlightInfo(text, depart, arrive string) (models.Quote, bool) {
	return newLegMatcher(depart, arrive).parse(text)
}

func (lm *legMatcher) parse(text string) (models.Quote, bool) {
	if strings.Contains(text, layoverMarker) {
		return models.Quote{}, false
	}
	out := lm.out.FindStringSubmatch(text)
	if out == nil {
		return models.Quote{}, false
	}
	back := lm.back.FindStringSubmatch(text)
	if back == nil {
		return models.Quote{}, false
	}
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return models.Quote{}, false
	}
	price, err := cast.ToIntE(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || price <= 0 {
		return models.Quote{}, false
	}
	return models.Quote{
		DepartTime:   out[1],
		ArriveTime:   out[2],
		ReturnDepart: back[1],
		ReturnArrive: back[2],
		Price:        price,
	}, true
}

// SelectPrices picks the overall and the constraint-satisfying minimum from
// the scraped result texts.
//
// When quotes parse but none satisfies pref, the returned result still carries
// the overall minimum alongside ErrNoMatchingFlights.
func SelectPrices(texts []string, key models.MonitorKey, pref *models.UserPreference) (*models.FetchResult, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: search returned no items", ErrNoFlightData)
	}

	result := &models.FetchResult{SourceURL: key.SearchURL()}
	legs := newLegMatcher(key.Origin, key.Destination)
	parsed := 0
	for _, text := range texts {
		q, ok := legs.parse(text)
		if !ok {
			continue
		}
		parsed++

		if result.Overall == 0 || q.Price < result.Overall {
			result.Overall = q.Price
			result.OverallDetail = q.Detail()
		}
		if pref != nil && !pref.Allows(q.DepartTime, q.ReturnDepart) {
			continue
		}
		if result.Restricted == 0 || q.Price < result.Restricted {
			result.Restricted = q.Price
			result.RestrictedDetail = q.Detail()
		}
	}

	if parsed == 0 {
		return nil, fmt.Errorf("%w: %d items, none parseable", ErrNoFlightData, len(texts))
	}
	if result.Restricted == 0 {
		return result, fmt.Errorf("%w: %d quotes parsed", ErrNoMatchingFlights, parsed)
	}
	return result, nil
}
