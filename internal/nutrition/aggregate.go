// Package nutrition folds nutrient payloads into daily totals.
package nutrition

import (
	"math"

	"alcyxob/health-tracker/internal/domain"
)

// Aggregate sums a list of nutrient payloads. Core fields treat non-finite
// values as zero. A micro field is nil in the result if any input has it nil;
// otherwise it is the numeric sum. An empty list yields zero core fields and
// known-zero micro fields.
func Aggregate(list []domain.Nutrients) domain.Nutrients {
	var out domain.Nutrients
	for i := range list {
		n := list[i]
		out.Calories += finite(n.Calories)
		out.FatG += finite(n.FatG)
		out.CarbsG += finite(n.CarbsG)
		out.ProteinG += finite(n.ProteinG)
	}
	for _, field := range domain.MicroFields {
		*out.Micro(field) = sumMicro(list, field)
	}
	return out
}

func sumMicro(list []domain.Nutrients, field domain.MicroField) *float64 {
	total := 0.0
	for i := range list {
		v := *list[i].Micro(field)
		if v == nil {
			return nil
		}
		total += finite(*v)
	}
	return &total
}

// Equal compares two payloads field by field. A nil micro field only matches nil.
func Equal(a, b domain.Nutrients) bool {
	if a.Calories != b.Calories || a.FatG != b.FatG || a.CarbsG != b.CarbsG || a.ProteinG != b.ProteinG {
		return false
	}
	for _, field := range domain.MicroFields {
		x, y := *a.Micro(field), *b.Micro(field)
		if (x == nil) != (y == nil) {
			return false
		}
		if x != nil && *x != *y {
			return false
		}
	}
	return true
}

// Round rounds every field to one decimal place, keeping nil micro fields nil.
func Round(n domain.Nutrients) domain.Nutrients {
	n.Calories = round1(n.Calories)
	n.FatG = round1(n.FatG)
	n.CarbsG = round1(n.CarbsG)
	n.ProteinG = round1(n.ProteinG)
	for _, field := range domain.MicroFields {
		slot := n.Micro(field)
		if *slot != nil {
			v := round1(**slot)
			*slot = &v
		}
	}
	return n
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
