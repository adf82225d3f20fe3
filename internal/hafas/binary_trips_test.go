package hafas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitdecode.org/hafas/internal/models"
)

func decodeFixture(t *testing.T, d *Decoder, f fxResponse) (*models.TripsResult, error) {
	t.Helper()
	return d.DecodeBinaryTrips(f.build(), nil, nil, nil)
}

func TestDecodeBinaryTrips(t *testing.T) {
	d := newTestDecoder(t)

	result, err := decodeFixture(t, d, defaultResponse())
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, result.Status)
	require.Len(t, result.Trips, 1)

	trip := result.Trips[0]
	assert.Equal(t, "C-1", trip.ID)
	assert.Equal(t, "Berlin Hbf", trip.From.Name)
	assert.Equal(t, models.LocationStation, trip.From.Type)
	assert.Equal(t, int32(52525589), trip.From.Lat)
	assert.Equal(t, "Potsdam Hbf", trip.To.Name)
	require.Len(t, trip.Legs, 2)

	t.Run("individual leg", func(t *testing.T) {
		walk, ok := trip.Legs[0].(*models.IndividualLeg)
		require.True(t, ok)
		assert.Equal(t, models.IndividualWalk, walk.Kind)
		assert.Equal(t, "8011160", walk.From.ID)
		assertTime(t, on(4, 8, 0), walk.Depart)
		assertTime(t, on(4, 8, 5), walk.Arrive)
	})

	t.Run("public leg", func(t *testing.T) {
		leg, ok := trip.Legs[1].(*models.PublicLeg)
		require.True(t, ok)
		assert.Equal(t, models.ProductRegional, leg.Line.Product)
		assert.Equal(t, "RE1", leg.Line.Label)
		require.NotNil(t, leg.Destination)
		assert.Equal(t, models.LocationAny, leg.Destination.Type)
		assert.Equal(t, "Magdeburg Hbf", leg.Destination.Name)

		dep := leg.DepartureStop
		assert.Equal(t, "8011160", dep.Location.ID)
		assertTime(t, on(4, 8, 10), dep.PlannedDeparture)
		assertTime(t, on(4, 8, 12), dep.PredictedDeparture)
		require.NotNil(t, dep.PlannedDeparturePosition)
		assert.Equal(t, "13", dep.PlannedDeparturePosition.Name)
		assert.False(t, dep.DepartureCancelled)

		arr := leg.ArrivalStop
		assert.Equal(t, "8012666", arr.Location.ID)
		assertTime(t, on(4, 8, 45), arr.PlannedArrival)
		assert.Nil(t, arr.PredictedArrival)
		require.NotNil(t, arr.PlannedArrivalPosition)
		assert.Equal(t, "4", arr.PlannedArrivalPosition.Name)
	})

	t.Run("intermediate stops", func(t *testing.T) {
		leg := trip.Legs[1].(*models.PublicLeg)
		require.Len(t, leg.IntermediateStops, 2)

		first := leg.IntermediateStops[0]
		assert.Equal(t, "8010406", first.Location.ID)
		assertTime(t, on(4, 8, 16), first.PlannedArrival)
		assert.Nil(t, first.PredictedArrival)

		second := leg.IntermediateStops[1]
		assert.Equal(t, "8010405", second.Location.ID)
		assertTime(t, on(4, 8, 35), second.PredictedArrival)
		assertTime(t, on(4, 8, 36), second.PredictedDeparture)
	})

	t.Run("context", func(t *testing.T) {
		ctx, ok := result.Context.(models.BinaryContext)
		require.True(t, ok)
		assert.Equal(t, "req-42", ctx.RequestID)
		assert.Equal(t, 1, ctx.SequenceNumber)
		assert.Equal(t, "ld-7", ctx.Marker)
		assert.True(t, ctx.CanScroll)
		assert.Positive(t, ctx.UsedBufferSize)
		assert.Equal(t, models.DefaultBufferSize+ctx.UsedBufferSize, ctx.NextBufferSize())
	})
}

func TestDecodeBinaryTripsEchoesQuery(t *testing.T) {
	d := newTestDecoder(t)
	from, to := models.NewStation("8011160"), models.NewStation("8012666")

	result, err := d.DecodeBinaryTrips(defaultResponse().build(), &from, nil, &to)
	require.NoError(t, err)
	assert.Equal(t, &from, result.From)
	assert.Nil(t, result.Via)
	assert.Equal(t, &to, result.To)
}

func TestDecodeBinaryTripsStatus(t *testing.T) {
	d := newTestDecoder(t)

	statuses := map[uint16]models.Status{
		8:    models.StatusAmbiguous,
		890:  models.StatusNoTrips,
		9240: models.StatusNoTrips,
		9220: models.StatusUnresolvableAddress,
		9260: models.StatusUnknownFrom,
		9360: models.StatusInvalidDate,
		9380: models.StatusTooClose,
		895:  models.StatusTooClose,
	}
	for code, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			f := defaultResponse()
			f.errorCode = code
			result, err := decodeFixture(t, d, f)
			require.NoError(t, err)
			assert.Equal(t, status, result.Status)
			assert.Empty(t, result.Trips)
		})
	}

	t.Run("session expired code", func(t *testing.T) {
		f := defaultResponse()
		f.errorCode = 1
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("unknown code", func(t *testing.T) {
		f := defaultResponse()
		f.errorCode = 4711
		_, err := decodeFixture(t, d, f)
		var protocolErr *ProtocolError
		require.True(t, errors.As(err, &protocolErr))
		assert.Equal(t, "4711", protocolErr.Code)
		assert.NotErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestDecodeBinaryTripsHeader(t *testing.T) {
	d := newTestDecoder(t)

	t.Run("version 5 accepted", func(t *testing.T) {
		f := defaultResponse()
		f.version = 5
		_, err := decodeFixture(t, d, f)
		assert.NoError(t, err)
	})

	t.Run("unsupported version", func(t *testing.T) {
		f := defaultResponse()
		f.version = 4
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrProtocolVersionMismatch)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := d.DecodeBinaryTrips(defaultResponse().build()[:0x30], nil, nil, nil)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("empty buffer", func(t *testing.T) {
		_, err := d.DecodeBinaryTrips(nil, nil, nil, nil)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("short extension header", func(t *testing.T) {
		f := defaultResponse()
		f.extLength = 0x20
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("extension between attribute lengths", func(t *testing.T) {
		f := defaultResponse()
		f.extLength = 0x30
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("extension without trip attributes", func(t *testing.T) {
		f := defaultResponse()
		f.extLength = 0x2c
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		assert.Empty(t, result.Trips[0].ID)
	})

	t.Run("zero sequence number", func(t *testing.T) {
		f := defaultResponse()
		f.seqNr = 0
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("negative sequence number", func(t *testing.T) {
		f := defaultResponse()
		f.seqNr = -3
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("unknown trip details version", func(t *testing.T) {
		f := defaultResponse()
		f.detailsVersion = 2
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("unknown location type", func(t *testing.T) {
		f := defaultResponse()
		f.from.kind = 9
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("address and poi locations", func(t *testing.T) {
		f := defaultResponse()
		f.from = fxLocation{name: "Berlin, Unter den Linden 1", kind: 2}
		f.to = fxLocation{name: "Sanssouci", kind: 3}
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		from, to := result.Trips[0].From, result.Trips[0].To
		assert.Equal(t, models.LocationAddress, from.Type)
		assert.Equal(t, "Berlin", from.Place)
		assert.Equal(t, "Unter den Linden 1", from.Name)
		assert.Equal(t, models.LocationPOI, to.Type)
		assert.Equal(t, "Sanssouci", to.Name)
	})
}

func TestDecodeBinaryTripsEncoding(t *testing.T) {
	d := newTestDecoder(t)

	t.Run("latin-1", func(t *testing.T) {
		f := defaultResponse()
		f.stations[3].name = "Z\xfcrich HB"
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		leg := result.Trips[0].Legs[1].(*models.PublicLeg)
		assert.Equal(t, "Zürich HB", leg.ArrivalStop.Location.Name)
	})

	t.Run("utf-8", func(t *testing.T) {
		f := defaultResponse()
		f.encoding = "UTF-8"
		f.stations[3].name = "Zürich HB"
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		leg := result.Trips[0].Legs[1].(*models.PublicLeg)
		assert.Equal(t, "Zürich HB", leg.ArrivalStop.Location.Name)
	})

	t.Run("unknown charset", func(t *testing.T) {
		f := defaultResponse()
		f.encoding = "x-no-such-charset"
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestDecodeBinaryTripsPagination(t *testing.T) {
	d := newTestDecoder(t)

	t.Run("no trips", func(t *testing.T) {
		f := defaultResponse()
		f.trips = nil
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOK, result.Status)
		assert.Empty(t, result.Trips)
		assert.False(t, result.Context.CanQueryLater())
	})

	t.Run("single walk cannot scroll", func(t *testing.T) {
		f := defaultResponse()
		f.trips[0].legs = []fxLeg{
			{depTime: plainTime(8, 0), dep: 0, arrTime: plainTime(8, 5), arr: 1, legType: 1},
			{depTime: plainTime(8, 5), dep: 1, arrTime: plainTime(8, 12), arr: 2, legType: 1},
		}
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		require.Len(t, result.Trips[0].Legs, 1)

		walk := result.Trips[0].Legs[0].(*models.IndividualLeg)
		assert.Equal(t, "8011160", walk.From.ID)
		assert.Equal(t, "8010405", walk.To.ID)
		assertTime(t, on(4, 8, 0), walk.Depart)
		assertTime(t, on(4, 8, 12), walk.Arrive)
		assert.False(t, result.Context.CanQueryLater())
		assert.False(t, result.Context.CanQueryEarlier())
	})

	t.Run("cancelled trips are dropped", func(t *testing.T) {
		f := defaultResponse()
		cancelled := f.trips[0]
		cancelled.connectionID = "C-0"
		cancelled.realtimeStatus = realtimeCancelled
		f.trips = append([]fxTrip{cancelled}, f.trips...)
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		require.Len(t, result.Trips, 1)
		assert.Equal(t, "C-1", result.Trips[0].ID)
	})
}

func TestDecodeBinaryTripsServiceDays(t *testing.T) {
	d := newTestDecoder(t)

	tests := []struct {
		name string
		base uint16
		bits []byte
		day  int
	}{
		{"first bit", 0, []byte{0x80}, 4},
		{"third bit", 0, []byte{0x20}, 6},
		{"skips empty bytes", 1, []byte{0x00, 0x20}, 22},
		{"no bit keeps advanced offset", 0, []byte{0x00}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultResponse()
			f.trips[0].bitBase = tt.base
			f.trips[0].serviceBits = tt.bits
			result, err := decodeFixture(t, d, f)
			require.NoError(t, err)
			assertTime(t, on(tt.day, 8, 0), result.Trips[0].FirstDepartureTime())
		})
	}
}

func TestDecodeBinaryTripsLegs(t *testing.T) {
	t.Run("comments set attributes and on-demand", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[1].comments = []string{"bf Rollstuhl", "FB Fahrrad", "$R 1 Anruf 0800"}
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)

		line := result.Trips[0].Legs[1].(*models.PublicLeg).Line
		assert.Equal(t, models.ProductOnDemand, line.Product)
		assert.Equal(t, "Anruf 0800", line.Comment)
		assert.True(t, line.Attrs.Has(models.LineAttrWheelchairAccess))
		assert.True(t, line.Attrs.Has(models.LineAttrBicycleCarriage))
	})

	t.Run("category from line name", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[1].attrs = nil
		f.trips[0].legs[1].line = "ICE 597"
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)

		leg := result.Trips[0].Legs[1].(*models.PublicLeg)
		assert.Equal(t, models.ProductHighSpeed, leg.Line.Product)
		assert.Equal(t, "ICE597", leg.Line.Label)
		assert.Nil(t, leg.Destination)
	})

	t.Run("unknown category is unknown product", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[1].attrs = []fxAttr{{"Category", "QQQ"}}
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		assert.Equal(t, models.ProductUnknown, result.Trips[0].Legs[1].(*models.PublicLeg).Line.Product)
	})

	t.Run("class without product", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[1].attrs = []fxAttr{{"Class", "2048"}}
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("cancellation bits", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[1].bits = bitArrivalCancelled | bitDepartureCancelled
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		leg := result.Trips[0].Legs[1].(*models.PublicLeg)
		assert.True(t, leg.DepartureStop.DepartureCancelled)
		assert.True(t, leg.ArrivalStop.ArrivalCancelled)
	})

	t.Run("routing types", func(t *testing.T) {
		d := newTestDecoder(t)
		kinds := map[string]models.IndividualKind{
			"FOOT": models.IndividualWalk,
			"BIKE": models.IndividualBike,
			"CAR":  models.IndividualCar,
			"P+R":  models.IndividualCar,
		}
		for routing, kind := range kinds {
			f := defaultResponse()
			f.trips[0].legs[0].legType = 3
			f.trips[0].legs[0].attrs = []fxAttr{{"GisRoutingType", routing}}
			result, err := decodeFixture(t, d, f)
			require.NoError(t, err, routing)
			assert.Equal(t, kind, result.Trips[0].Legs[0].(*models.IndividualLeg).Kind, routing)
		}
	})

	t.Run("transfer without routing type", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[0].legType = 4
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		assert.Equal(t, models.IndividualTransfer, result.Trips[0].Legs[0].(*models.IndividualLeg).Kind)
	})

	t.Run("unknown routing type", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[0].attrs = []fxAttr{{"GisRoutingType", "BOAT"}}
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("unknown leg type", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[0].legType = 7
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("station index out of table", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[1].arr = 40
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("invalid minutes", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.trips[0].legs[0].depTime = 875
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("unexpected leg size", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.legSize = 20
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("unexpected stop size", func(t *testing.T) {
		d := newTestDecoder(t)
		f := defaultResponse()
		f.stopsSize = 30
		_, err := decodeFixture(t, d, f)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestDecodeBinaryTripsDominantPlan(t *testing.T) {
	fixture := func() fxResponse {
		f := defaultResponse()
		f.trips[0].legs[1].stops = []fxStop{{
			plannedArr: NoTime, plannedDep: plainTime(8, 17),
			predictedArr: NoTime, predictedDep: plainTime(8, 19),
			station: 1,
		}}
		return f
	}

	t.Run("disabled keeps predictions", func(t *testing.T) {
		result, err := decodeFixture(t, newTestDecoder(t), fixture())
		require.NoError(t, err)
		stop := result.Trips[0].Legs[1].(*models.PublicLeg).IntermediateStops[0]
		assertTime(t, on(4, 8, 19), stop.PredictedDeparture)
	})

	t.Run("enabled drops predictions of half planned stops", func(t *testing.T) {
		d := newTestDecoder(t, func(c *Config) { c.DominantPlanStopTime = true })
		result, err := decodeFixture(t, d, fixture())
		require.NoError(t, err)
		stop := result.Trips[0].Legs[1].(*models.PublicLeg).IntermediateStops[0]
		assertTime(t, on(4, 8, 17), stop.PlannedDeparture)
		assert.Nil(t, stop.PredictedDeparture)
		assert.Nil(t, stop.PredictedArrival)
	})
}

func TestDecodeBinaryTripsDisruptions(t *testing.T) {
	d := newTestDecoder(t)

	t.Run("long text wins", func(t *testing.T) {
		f := defaultResponse()
		f.trips[0].disruptions = []fxDisruption{
			{leg: 0, shortText: "Aufzug defekt"},
			{leg: 1, shortText: "<b>Bauarbeiten</b>", text: "Umleitung &amp; Ersatzverkehr"},
		}
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		assert.Equal(t, "Umleitung & Ersatzverkehr", result.Trips[0].Legs[1].(*models.PublicLeg).Message)
	})

	t.Run("short text formatted", func(t *testing.T) {
		f := defaultResponse()
		f.trips[0].disruptions = []fxDisruption{{leg: 1, shortText: "<b>Bauarbeiten</b> &amp; mehr"}}
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		assert.Equal(t, "Bauarbeiten & mehr", result.Trips[0].Legs[1].(*models.PublicLeg).Message)
	})

	t.Run("other legs untouched", func(t *testing.T) {
		f := defaultResponse()
		f.trips[0].disruptions = []fxDisruption{{leg: 0, shortText: "Aufzug defekt"}}
		result, err := decodeFixture(t, d, f)
		require.NoError(t, err)
		assert.Empty(t, result.Trips[0].Legs[1].(*models.PublicLeg).Message)
	})
}
