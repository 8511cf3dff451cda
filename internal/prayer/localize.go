package prayer

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-app/minaret/internal/model"
)

// FetchLocal fetches the table for the queried location's current civil day
// and returns now expressed in the table's timezone, so window and fasting
// math runs against the location's wall clock rather than the server's.
//
// The first fetch has to use the server's date since the timezone is only
// known from the response; when the location's clock is already on a
// different date (either side of midnight), the table for that date is
// fetched instead.
func FetchLocal(ctx context.Context, p Provider, coord model.Coordinate, method CalculationMethod, now time.Time) (Table, time.Time, error) {
	table, err := p.FetchTimings(ctx, coord, now.Format("2006-01-02"), method)
	if err != nil {
		return Table{}, now, err
	}

	if table.Timezone != "" {
		loc, lerr := time.LoadLocation(table.Timezone)
		if lerr != nil {
			log.Warn().Err(lerr).Str("timezone", table.Timezone).Msg("unknown provider timezone, using server clock")
			return table, now, nil
		}
		now = now.In(loc)
		if day := now.Format("2006-01-02"); day != table.Date {
			table, err = p.FetchTimings(ctx, coord, day, method)
			if err != nil {
				return Table{}, now, err
			}
		}
	}
	return table, now, nil
}
