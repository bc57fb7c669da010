package dataaccess

import (
	"context"

	"foodconnect/analytics"
	"foodconnect/models"
	"foodconnect/querycache"
	"foodconnect/store"
)

// RestaurantWithAnalytics is a row of the admin restaurant table. TotalOrders
// and the sales figures leave out cancelled orders, which CancelledOrders counts.
type RestaurantWithAnalytics struct {
	models.Restaurant
	TotalSales        float64 `json:"total_sales"`
	TotalOrders       int     `json:"total_orders"`
	CancelledOrders   int     `json:"cancelled_orders"`
	AverageOrderValue float64 `json:"average_order_value"`
}

type AdminRestaurants struct {
	base
}

func NewAdminRestaurants(d Deps) *AdminRestaurants {
	return &AdminRestaurants{base{d}}
}

// List returns restaurants whose name matches search, each with its sales figures
func (a *AdminRestaurants) List(ctx context.Context, search string) ([]RestaurantWithAnalytics, error) {
	return querycache.Fetch(ctx, a.Cache, querycache.Key("admin-restaurants", search), func(ctx context.Context) ([]RestaurantWithAnalytics, error) {
		restaurants, err := a.Store.ListRestaurants(ctx, store.RestaurantFilter{Search: search})
		if err != nil {
			return nil, err
		}
		orders, err := a.Store.Orders(ctx, store.OrderFilter{})
		if err != nil {
			return nil, err
		}

		byRestaurant := map[string][]models.Order{}
		for _, o := range orders {
			byRestaurant[o.RestaurantID] = append(byRestaurant[o.RestaurantID], o)
		}

		out := make([]RestaurantWithAnalytics, 0, len(restaurants))
		for _, r := range restaurants {
			s := analytics.Summarize(byRestaurant[r.ID])
			out = append(out, RestaurantWithAnalytics{
				Restaurant:        r,
				TotalSales:        s.TotalSales,
				TotalOrders:       s.TotalOrders,
				CancelledOrders:   s.ByStatus[models.StatusCancelled],
				AverageOrderValue: s.AverageOrderValue,
			})
		}
		return out, nil
	})
}
