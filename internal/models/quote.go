package models

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.Korean)

// Quote is one round-trip offer parsed from a search result.
type Quote struct {
	DepartTime   string
	ArriveTime   string
	ReturnDepart string
	ReturnArrive string
	Price        int
}

func (q Quote) Detail() string {
	return fmt.Sprintf("가는 편: %s → %s\n오는 편: %s → %s\n왕복 가격: %s원",
		q.DepartTime, q.ArriveTime, q.ReturnDepart, q.ReturnArrive, FormatPrice(q.Price))
}

// FetchResult carries the lowest constrained and unconstrained prices of one
// search. A zero price means nothing was observed for that line.
type FetchResult struct {
	Restricted       int
	RestrictedDetail string
	Overall          int
	OverallDetail    string
	SourceURL        string
}

func FormatPrice(p int) string {
	return pricePrinter.Sprintf("%d", p)
}
