// Package analytics aggregates order rows into the figures the vendor and
// admin dashboards display. Cancelled orders are counted by status but never
// contribute to sales.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"foodconnect/models"
)

type Summary struct {
	TotalSales        float64                    `json:"total_sales"`
	TotalOrders       int                        `json:"total_orders"`
	AverageOrderValue float64                    `json:"average_order_value"`
	ByStatus          map[models.OrderStatus]int `json:"by_status"`
}

func Summarize(orders []models.Order) Summary {
	s := Summary{ByStatus: map[models.OrderStatus]int{}}
	for _, o := range orders {
		s.ByStatus[o.Status]++
		if o.Status == models.StatusCancelled {
			continue
		}
		s.TotalOrders++
		s.TotalSales += o.TotalAmount
	}
	if s.TotalOrders > 0 {
		s.AverageOrderValue = s.TotalSales / float64(s.TotalOrders)
	}
	return s
}

type Granularity string

const (
	Hourly Granularity = "hour"
	Daily  Granularity = "day"
	Weekly Granularity = "week"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Hourly, Daily, Weekly:
		return g, nil
	case "":
		return Daily, nil
	default:
		return "", fmt.Errorf("unknown bucket %q (want hour, day or week)", s)
	}
}

// Point is one time bucket of sales
type Point struct {
	Start   time.Time `json:"start"`
	Orders  int       `json:"orders"`
	Sales   float64   `json:"sales"`
	Average float64   `json:"average"`
}

// Series buckets orders by creation time in loc, filling empty buckets between
// the first and last order
func Series(orders []models.Order, g Granularity, loc *time.Location) []Point {
	if loc == nil {
		loc = time.UTC
	}
	buckets := map[time.Time]*Point{}
	var first, last time.Time
	for _, o := range orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		start := truncate(o.CreatedAt.In(loc), g)
		p, ok := buckets[start]
		if !ok {
			p = &Point{Start: start}
			buckets[start] = p
		}
		p.Orders++
		p.Sales += o.TotalAmount
		if first.IsZero() || start.Before(first) {
			first = start
		}
		if start.After(last) {
			last = start
		}
	}
	if len(buckets) == 0 {
		return []Point{}
	}

	var out []Point
	for t := first; !t.After(last); t = next(t, g) {
		p := Point{Start: t}
		if b, ok := buckets[t]; ok {
			p = *b
			p.Average = p.Sales / float64(p.Orders)
		}
		out = append(out, p)
	}
	return out
}

func truncate(t time.Time, g Granularity) time.Time {
	y, m, d := t.Date()
	switch g {
	case Hourly:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
	case Weekly:
		day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		offset := (int(day.Weekday()) + 6) % 7 // weeks start on Monday
		return day.AddDate(0, 0, -offset)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
}

func next(t time.Time, g Granularity) time.Time {
	switch g {
	case Hourly:
		return t.Add(time.Hour)
	case Weekly:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 0, 1)
	}
}

type PopularItem struct {
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Revenue    float64 `json:"revenue"`
}

// PopularItems ranks order lines by quantity sold; limit <= 0 returns all
func PopularItems(orders []models.Order, limit int) []PopularItem {
	byID := map[string]*PopularItem{}
	for _, o := range orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		for _, line := range o.Items {
			p, ok := byID[line.MenuItemID]
			if !ok {
				p = &PopularItem{MenuItemID: line.MenuItemID, Name: line.Name}
				byID[line.MenuItemID] = p
			}
			p.Quantity += line.Quantity
			p.Revenue += line.Price * float64(line.Quantity)
		}
	}

	out := make([]PopularItem, 0, len(byID))
	for _, p := range byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
