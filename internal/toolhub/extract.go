package toolhub

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Matches a currency amount followed by a million/billion unit, after
// thousands separators have been stripped from the line.
var monetaryRe = regexp.MustCompile(`(?i)\$?(\d+(\.\d+)?)\s*(million|billion)`)

var thousand = decimal.NewFromInt(1000)

// Extraction is the finance_calc_extract_first_billions result. Both fields
// are nil when no line matches.
type Extraction struct {
	ValueBillions *float64 `json:"value_billions"`
	Evidence      *string  `json:"evidence"`
}

// ExtractFirstBillions scans text line by line in order and returns the first
// monetary amount found, converted to billions. Amounts stated in millions are
// divided by 1000. Scan order is deterministic, so the first matching line
// wins.
func ExtractFirstBillions(text string) Extraction {
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.ReplaceAll(line, ",", "")
		m := monetaryRe.FindStringSubmatch(stripped)
		if m == nil {
			continue
		}

		amount, err := decimal.NewFromString(m[1])
		if err != nil {
			continue
		}
		if strings.EqualFold(m[3], "million") {
			amount = amount.Div(thousand)
		}

		value := amount.InexactFloat64()
		evidence := strings.TrimSpace(line)
		return Extraction{ValueBillions: &value, Evidence: &evidence}
	}
	return Extraction{}
}
