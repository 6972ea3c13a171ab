package notify

import "github.com/lyw1217/flight-price-checker/internal/models"

type Line string

const (
	LineRestricted Line = "restricted"
	LineOverall    Line = "overall"
)

// Observation is one price line before and after a fetch. New is 0 when the
// fetch observed nothing for the line; Lowest is the all-time low so far.
type Observation struct {
	Old    int
	New    int
	Lowest int
}

// Trigger is one price line that satisfied the user's notification mode.
type Trigger struct {
	Line      Line
	Old       int
	New       int
	Reference int
}

func (t Trigger) Delta() int {
	return t.New - t.Old
}

type Decision struct {
	Mode     models.NotificationMode
	Triggers []Trigger
}

func (d Decision) Notify() bool {
	return len(d.Triggers) > 0
}

func (d Decision) Trigger(line Line) (Trigger, bool) {
	for _, t := range d.Triggers {
		if t.Line == line {
			return t, true
		}
	}
	return Trigger{}, false
}

// rule reports whether a line fires and the price it was compared against.
type rule func(o Observation, pref *models.UserPreference) (int, bool)

var rules = map[models.NotificationMode]rule{
	models.NotifyThreshold:     thresholdRule,
	models.NotifyAnyDrop:       anyDropRule,
	models.NotifyAnyChange:     anyChangeRule,
	models.NotifyTargetPrice:   targetPriceRule,
	models.NotifyHistoricalLow: historicalLowRule,
}

func thresholdRule(o Observation, pref *models.UserPreference) (int, bool) {
	return o.Old, o.Old > 0 && o.New > 0 && o.New < o.Old && o.Old-o.New >= pref.ThresholdAmount
}

func anyDropRule(o Observation, _ *models.UserPreference) (int, bool) {
	return o.Old, o.Old > 0 && o.New > 0 && o.New < o.Old
}

func anyChangeRule(o Observation, _ *models.UserPreference) (int, bool) {
	return o.Old, o.Old > 0 && o.New > 0 && o.New != o.Old
}

// targetPriceRule ignores the previous price, so it is the only rule that can
// fire on a first observation.
func targetPriceRule(o Observation, pref *models.UserPreference) (int, bool) {
	if pref.TargetPrice == nil || *pref.TargetPrice <= 0 {
		return 0, false
	}
	return *pref.TargetPrice, o.New > 0 && o.New <= *pref.TargetPrice
}

// historicalLowRule compares against the all-time low when one is known and
// falls back to the previous price otherwise.
func historicalLowRule(o Observation, _ *models.UserPreference) (int, bool) {
	if o.Old <= 0 || o.New <= 0 {
		return 0, false
	}
	ref := o.Old
	if o.Lowest > 0 {
		ref = o.Lowest
	}
	return ref, o.New < ref
}

// Decide applies the user's notification mode to each price line enabled by
// the notification scope. Both lines firing yields one decision carrying two
// triggers.
func Decide(restricted, overall Observation, pref *models.UserPreference) Decision {
	d := Decision{Mode: pref.NotificationMode}
	r, ok := rules[pref.NotificationMode]
	if !ok {
		return d
	}
	if pref.Scope.Restricted() {
		if ref, fire := r(restricted, pref); fire {
			d.Triggers = append(d.Triggers, Trigger{Line: LineRestricted, Old: restricted.Old, New: restricted.New, Reference: ref})
		}
	}
	if pref.Scope.Overall() {
		if ref, fire := r(overall, pref); fire {
			d.Triggers = append(d.Triggers, Trigger{Line: LineOverall, Old: overall.Old, New: overall.New, Reference: ref})
		}
	}
	return d
}
