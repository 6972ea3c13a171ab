package providers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gookit/validate"
	"github.com/lyw1217/flight-price-checker/internal/structures"
)

const (
	intervalFloorMinutes   = 5
	intervalCeilingMinutes = 1440
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors
	}

	n := cv.conf.Notification
	if n.MinIntervalMinutes < intervalFloorMinutes || n.MaxIntervalMinutes > intervalCeilingMinutes {
		return fmt.Errorf("notification interval bounds must stay within %d..%d minutes", intervalFloorMinutes, intervalCeilingMinutes)
	}
	if n.MinIntervalMinutes > n.MaxIntervalMinutes {
		return errors.New("notification.minIntervalMinutes is greater than notification.maxIntervalMinutes")
	}

	if _, err := time.LoadLocation(cv.conf.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", cv.conf.Timezone, err)
	}

	if cv.conf.Retention.RunAt != "" {
		if _, err := time.Parse("15:04", cv.conf.Retention.RunAt); err != nil {
			return fmt.Errorf("retention.runAt must be HH:MM: %w", err)
		}
	}

	for _, id := range cv.conf.Telegram.AdminIDs {
		if id <= 0 {
			return fmt.Errorf("telegram.adminIds contains invalid id %d", id)
		}
	}
	return nil
}
