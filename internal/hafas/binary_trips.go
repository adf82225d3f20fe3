package hafas

import (
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"transitdecode.org/hafas/internal/models"
	"transitdecode.org/hafas/internal/tablereader"
)

// Binary trip response layout. Offsets are absolute unless named relative.
const (
	offVersion         = 0x00
	offResLocations    = 0x02
	offNumTrips        = 0x1e
	offServiceDaysPtr  = 0x20
	offStringTablePtr  = 0x24
	offStationTablePtr = 0x36
	offCommentTablePtr = 0x3a
	offExtensionPtr    = 0x46
	offTrips           = 0x4a

	tripRecordSize    = 12
	legRecordSize     = 20
	legDetailsSize    = 16
	stopRecordSize    = 26
	stationRecordSize = 14

	// relative to the extension header
	extErrorCode     = 0x10
	extSequence      = 0x08
	extEncoding      = 0x20
	extTripAttrsPtr  = 0x2c
	extMinLength     = 0x2c
	extTripAttrsLen  = 0x30
	extTripAttrsMinL = 0x32

	tripDetailsVersion = 1
	realtimeCancelled  = 2

	bitArrivalCancelled   = 0x10
	bitDepartureCancelled = 0x20

	maxDisruptionChain = 1 << 12
)

// binaryStatuses maps extension header status codes to semantic outcomes.
var binaryStatuses = map[int]models.Status{
	8:    models.StatusAmbiguous,
	887:  models.StatusNoTrips,
	890:  models.StatusNoTrips,
	891:  models.StatusNoTrips,
	892:  models.StatusNoTrips,
	895:  models.StatusTooClose,
	899:  models.StatusNoTrips,
	900:  models.StatusNoTrips,
	9220: models.StatusUnresolvableAddress,
	9240: models.StatusNoTrips,
	9260: models.StatusUnknownFrom,
	9320: models.StatusInvalidDate,
	9360: models.StatusInvalidDate,
	9380: models.StatusTooClose,
}

type tripDetailsHeader struct {
	indexOffset int
	legOffset   int
	legSize     int
	stopsSize   int
	stopsOffset int
}

// binaryResponse holds the tables of one binary response while it is decoded.
type binaryResponse struct {
	*cursor
	d *Decoder

	serviceDaysPtr int
	stations       tablereader.Table
	comments       tablereader.Table

	tripDetailsPtr int
	disruptionsPtr int
	attrsOffset    int
	tripAttrsPtr   int
	details        tripDetailsHeader

	resDate time.Time
}

// DecodeBinaryTrips decodes the response of the binary trip search endpoint.
// Semantic outcomes are reported through the result status; session expiry,
// unknown status codes and structural violations are returned as errors.
func (d *Decoder) DecodeBinaryTrips(data []byte, from, via, to *models.Location) (*models.TripsResult, error) {
	r := tablereader.NewReader(data)
	b := &binaryResponse{cursor: &cursor{r: r}, d: d}

	result, err := b.decode()
	if err != nil {
		return nil, wrapMalformed("binary trips", err)
	}
	result.From, result.Via, result.To = from, via, to

	d.logOperation("binary_trips_decoded",
		slog.String("status", string(result.Status)),
		slog.Int("trips", len(result.Trips)),
		slog.Int("bytes", r.Consumed()))
	return result, nil
}

func (b *binaryResponse) decode() (*models.TripsResult, error) {
	b.seek(offVersion)
	version := b.u16()
	if err := b.check("header"); err != nil {
		return nil, err
	}
	if version != 5 && version != 6 {
		return nil, fmt.Errorf("%w: binary version %d", ErrProtocolVersionMismatch, version)
	}

	b.seek(offServiceDaysPtr)
	b.serviceDaysPtr = b.i32()
	stringTablePtr := b.i32()
	b.seek(offStationTablePtr)
	stationTablePtr := b.i32()
	commentTablePtr := b.i32()
	b.seek(offExtensionPtr)
	extensionPtr := b.i32()
	if err := b.check("header pointers"); err != nil {
		return nil, err
	}

	stringTable, err := tablereader.NewStringTable(b.r, stringTablePtr, b.serviceDaysPtr)
	if err != nil {
		return nil, err
	}
	b.strings = stringTable

	b.seek(extensionPtr)
	extLength := b.i32()
	b.seek(extensionPtr + extErrorCode)
	errorCode := b.u16()
	if err := b.check("extension header"); err != nil {
		return nil, err
	}
	if extLength < extMinLength {
		return nil, malformed("extension header too short: %#x", extLength)
	}

	if errorCode != 0 {
		return binaryStatus(errorCode)
	}

	b.seek(extensionPtr + extEncoding)
	encoding := b.str()
	if err := b.check("string encoding"); err != nil {
		return nil, err
	}
	if encoding != "" {
		if err := b.strings.SetEncoding(encoding); err != nil {
			return nil, wrapMalformed("string encoding", err)
		}
	}

	b.seek(offNumTrips)
	numTrips := b.u16()
	if err := b.check("trip count"); err != nil {
		return nil, err
	}
	if numTrips == 0 {
		return &models.TripsResult{
			Status:  models.StatusOK,
			Trips:   []models.Trip{},
			Context: models.BinaryContext{UsedBufferSize: b.r.Consumed()},
		}, nil
	}

	b.seek(offResLocations)
	resDeparture, err := b.resLocation()
	if err != nil {
		return nil, err
	}
	resArrival, err := b.resLocation()
	if err != nil {
		return nil, err
	}
	b.skip(10)
	b.resDate = b.day(b.d.cfg.Location)
	b.skip(2) // resDate + 30
	if err := b.check("response dates"); err != nil {
		return nil, err
	}

	b.seek(extensionPtr + extSequence)
	seqNr := b.i16()
	requestID := b.str()
	b.tripDetailsPtr = b.i32()
	b.skip(4)
	b.disruptionsPtr = b.i32()
	b.skip(10)
	marker := b.str()
	b.attrsOffset = b.i32()
	if err := b.check("continuation state"); err != nil {
		return nil, err
	}
	if seqNr == 0 {
		return nil, ErrSessionExpired
	}
	if seqNr < 0 {
		return nil, malformed("illegal sequence number %d", seqNr)
	}
	if b.tripDetailsPtr == 0 {
		return nil, malformed("no trip details")
	}

	if extLength >= extTripAttrsLen {
		if extLength < extTripAttrsMinL {
			return nil, malformed("extension header too short for trip attributes: %#x", extLength)
		}
		b.seek(extensionPtr + extTripAttrsPtr)
		b.tripAttrsPtr = b.i32()
	}

	b.seek(b.tripDetailsPtr)
	detailsVersion := b.u16()
	b.skip(2)
	b.details = tripDetailsHeader{
		indexOffset: b.u16(),
		legOffset:   b.u16(),
		legSize:     b.u16(),
		stopsSize:   b.u16(),
		stopsOffset: b.u16(),
	}
	if err := b.check("trip details header"); err != nil {
		return nil, err
	}
	if detailsVersion != tripDetailsVersion {
		return nil, malformed("unknown trip details version %d", detailsVersion)
	}

	if b.stations, err = tablereader.NewTable(b.r, "station", stationTablePtr, commentTablePtr); err != nil {
		return nil, err
	}
	if b.comments, err = tablereader.NewTable(b.r, "comment", commentTablePtr, b.tripDetailsPtr); err != nil {
		return nil, err
	}

	trips := make([]models.Trip, 0, numTrips)
	for i := 0; i < numTrips; i++ {
		trip, cancelled, err := b.trip(i, resDeparture, resArrival)
		if err != nil {
			return nil, err
		}
		if !cancelled {
			trips = append(trips, trip)
		}
	}

	canScroll := true
	if len(trips) == 1 && len(trips[0].Legs) == 1 {
		if _, individual := trips[0].Legs[0].(*models.IndividualLeg); individual {
			canScroll = false
		}
	}

	return &models.TripsResult{
		Status: models.StatusOK,
		Trips:  trips,
		Context: models.BinaryContext{
			RequestID:      requestID,
			SequenceNumber: seqNr,
			Marker:         marker,
			UsedBufferSize: b.r.Consumed(),
			CanScroll:      canScroll,
		},
	}, nil
}

func binaryStatus(code int) (*models.TripsResult, error) {
	if code == 1 {
		return nil, ErrSessionExpired
	}
	if status, ok := binaryStatuses[code]; ok {
		return models.NewTripsStatus(status), nil
	}
	return nil, &ProtocolError{Code: strconv.Itoa(code)}
}

// resLocation reads one of the response's from/to records.
func (b *binaryResponse) resLocation() (models.Location, error) {
	name := b.str()
	b.skip(2)
	kind := b.u16()
	lon := int32(b.i32())
	lat := int32(b.i32())
	if err := b.check("response location"); err != nil {
		return models.Location{}, err
	}
	switch kind {
	case 1:
		return b.d.station("", lat, lon, name), nil
	case 2:
		return b.d.address("", lat, lon, name), nil
	case 3:
		return models.Location{Type: models.LocationPOI, Lat: lat, Lon: lon, Name: name}, nil
	}
	return models.Location{}, malformed("unknown location type %d for %q", kind, name)
}

// station reads a station table reference at the cursor.
func (b *binaryResponse) station() models.Location {
	index := b.u16()
	if b.err != nil {
		return models.Location{}
	}
	rec := b.sub(b.stations, index*stationRecordSize)
	name := rec.str()
	id := rec.i32()
	lon := int32(rec.i32())
	lat := int32(rec.i32())
	b.fail(rec.err)
	if b.err != nil {
		return models.Location{}
	}
	var stationID string
	if id != 0 {
		stationID = strconv.Itoa(id)
	}
	return b.d.station(stationID, lat, lon, name)
}

// commentList reads a comment table reference at the cursor.
func (b *binaryResponse) commentList() []string {
	ptr := b.u16()
	if b.err != nil {
		return nil
	}
	rec := b.sub(b.comments, ptr)
	n := rec.u16()
	comments := make([]string, 0, n)
	for i := 0; i < n && rec.err == nil; i++ {
		if s, ok := rec.strOK(); ok {
			comments = append(comments, s)
		}
	}
	b.fail(rec.err)
	return comments
}

// attributes walks the null-key-terminated key/value list at index in the
// shared attribute table and returns the values of the wanted keys.
func (b *binaryResponse) attributes(index int, wanted ...string) map[string]string {
	values := make(map[string]string, len(wanted))
	b.seek(b.attrsOffset + index*4)
	for b.err == nil {
		key, ok := b.strOK()
		if !ok {
			break
		}
		if slices.Contains(wanted, key) {
			values[key] = b.str()
		} else {
			b.skip(2)
		}
	}
	return values
}

// serviceDayOffset scans the service-day bitmask for the first day the trip runs.
// A mask with no set bit leaves the offset advanced past every scanned byte.
func (b *binaryResponse) serviceDayOffset(tableOffset int) int {
	b.seek(b.serviceDaysPtr + tableOffset)
	b.str()
	bitBase := b.u16()
	bitLength := b.u16()

	offset := bitBase * 8
	for i := 0; i < bitLength && b.err == nil; i++ {
		bits := b.u8()
		if bits == 0 {
			offset += 8
			continue
		}
		for bits&0x80 == 0 {
			bits <<= 1
			offset++
		}
		break
	}
	return offset
}

type tripRecord struct {
	index          int
	legsOffset     int
	numLegs        int
	numChanges     int
	dayOffset      int
	detailsOffset  int
	realtimeStatus int
}

func (b *binaryResponse) trip(index int, from, to models.Location) (models.Trip, bool, error) {
	rec := tripRecord{index: index}

	b.seek(offTrips + index*tripRecordSize)
	serviceDaysOffset := b.u16()
	rec.legsOffset = b.i32()
	rec.numLegs = b.u16()
	rec.numChanges = b.u16()
	b.u16() // duration
	if err := b.check("trip %d", index); err != nil {
		return models.Trip{}, false, err
	}

	rec.dayOffset = b.serviceDayOffset(serviceDaysOffset)

	b.seek(b.tripDetailsPtr + b.details.indexOffset + index*2)
	rec.detailsOffset = b.u16()
	b.seek(b.tripDetailsPtr + rec.detailsOffset)
	rec.realtimeStatus = b.u16()
	b.u16() // delay
	if err := b.check("trip %d realtime", index); err != nil {
		return models.Trip{}, false, err
	}

	var connectionID string
	if b.tripAttrsPtr != 0 {
		b.seek(b.tripAttrsPtr + index*2)
		attrIndex := b.u16()
		connectionID = b.attributes(attrIndex, "ConnectionId")["ConnectionId"]
		if err := b.check("trip %d attributes", index); err != nil {
			return models.Trip{}, false, err
		}
	}

	legs := make([]models.Leg, 0, rec.numLegs)
	for j := 0; j < rec.numLegs; j++ {
		var err error
		if legs, err = b.leg(rec, j, legs); err != nil {
			return models.Trip{}, false, err
		}
	}

	trip := models.Trip{
		ID:         connectionID,
		From:       from,
		To:         to,
		Legs:       legs,
		NumChanges: rec.numChanges,
	}
	return trip, rec.realtimeStatus == realtimeCancelled, nil
}

type legComments struct {
	attrs    models.LineAttr
	onDemand bool
	comment  string
}

func classifyComments(comments []string) legComments {
	var lc legComments
	for _, c := range comments {
		switch {
		case strings.HasPrefix(c, "bf "):
			lc.attrs |= models.LineAttrWheelchairAccess
		case strings.HasPrefix(c, "FA "), strings.HasPrefix(c, "FB "), strings.HasPrefix(c, "FR "):
			lc.attrs |= models.LineAttrBicycleCarriage
		case strings.HasPrefix(c, "$R "), strings.HasPrefix(c, "ga "), strings.HasPrefix(c, "Vs "):
			lc.onDemand = true
			if len(c) > 5 {
				lc.comment = c[5:]
			}
		}
	}
	return lc
}

func (b *binaryResponse) leg(rec tripRecord, j int, legs []models.Leg) ([]models.Leg, error) {
	base, dayOffset := b.resDate, rec.dayOffset

	b.seek(offTrips + rec.legsOffset + j*legRecordSize)
	plannedDeparture := b.clock(base, dayOffset)
	departure := b.station()
	plannedArrival := b.clock(base, dayOffset)
	arrival := b.station()
	legType := b.u16()
	lineName := b.str()
	plannedDeparturePosition := NormalizePosition(b.str())
	plannedArrivalPosition := NormalizePosition(b.str())
	attrIndex := b.u16()
	comments := classifyComments(b.commentList())
	if err := b.check("trip %d leg %d", rec.index, j); err != nil {
		return nil, err
	}

	attrs := b.attributes(attrIndex, "Direction", "Class", "Category", "Operator", "GisRoutingType")
	if err := b.check("trip %d leg %d attributes", rec.index, j); err != nil {
		return nil, err
	}
	category := attrs["Category"]
	if category == "" && lineName != "" {
		category = CategoryFromName(lineName)
	}

	if b.details.legSize != legDetailsSize {
		return nil, malformed("unhandled trip details leg size %d", b.details.legSize)
	}
	b.seek(b.tripDetailsPtr + rec.detailsOffset + b.details.legOffset + j*b.details.legSize)
	predictedDeparture := b.clock(base, dayOffset)
	predictedArrival := b.clock(base, dayOffset)
	predictedDeparturePosition := NormalizePosition(b.str())
	predictedArrivalPosition := NormalizePosition(b.str())
	bits := b.u16()
	b.skip(2)
	firstStop := b.u16()
	numStops := b.u16()
	if err := b.check("trip %d leg %d realtime", rec.index, j); err != nil {
		return nil, err
	}

	message, err := b.disruption(rec.index, j)
	if err != nil {
		return nil, err
	}

	var intermediate []models.Stop
	if numStops > 0 {
		if intermediate, err = b.stops(firstStop, numStops, base, dayOffset); err != nil {
			return nil, err
		}
	}

	switch legType {
	case 1, 3, 4:
		kind, err := individualKind(legType, attrs["GisRoutingType"])
		if err != nil {
			return nil, err
		}
		return models.AppendIndividual(legs, &models.IndividualLeg{
			Kind:   kind,
			From:   departure,
			Depart: plannedDeparture,
			To:     arrival,
			Arrive: plannedArrival,
		}), nil

	case 2:
		product, err := b.legProduct(comments, attrs["Class"], category)
		if err != nil {
			return nil, err
		}
		var label string
		if lineName != "" {
			label = NormalizeLineName(lineName)
		}
		leg := &models.PublicLeg{
			Line: models.NewLine(product, label, comments.comment, comments.attrs),
			DepartureStop: models.Stop{
				Location:                   departure,
				PlannedDeparture:           plannedDeparture,
				PredictedDeparture:         predictedDeparture,
				PlannedDeparturePosition:   plannedDeparturePosition,
				PredictedDeparturePosition: predictedDeparturePosition,
				DepartureCancelled:         bits&bitDepartureCancelled != 0,
			},
			ArrivalStop: models.Stop{
				Location:                 arrival,
				PlannedArrival:           plannedArrival,
				PredictedArrival:         predictedArrival,
				PlannedArrivalPosition:   plannedArrivalPosition,
				PredictedArrivalPosition: predictedArrivalPosition,
				ArrivalCancelled:         bits&bitArrivalCancelled != 0,
			},
			IntermediateStops: intermediate,
			Message:           message,
		}
		if direction := attrs["Direction"]; direction != "" {
			dest := b.d.anyPlace(direction)
			leg.Destination = &dest
		}
		return append(legs, leg), nil
	}
	return nil, malformed("unhandled leg type %d", legType)
}

func individualKind(legType int, routingType string) (models.IndividualKind, error) {
	switch routingType {
	case "":
		if legType == 1 {
			return models.IndividualWalk, nil
		}
		return models.IndividualTransfer, nil
	case "FOOT":
		return models.IndividualWalk, nil
	case "BIKE":
		return models.IndividualBike, nil
	case "CAR", "P+R":
		return models.IndividualCar, nil
	}
	return 0, malformed("unknown routing type %q", routingType)
}

func (b *binaryResponse) legProduct(comments legComments, class, category string) (models.Product, error) {
	if comments.onDemand {
		return models.ProductOnDemand, nil
	}
	if class != "" {
		n, err := strconv.Atoi(class)
		if err != nil {
			return models.ProductNone, malformed("invalid product class %q", class)
		}
		if n != 0 {
			return b.d.classProduct(n)
		}
	}
	if p := b.d.custom.NormalizeType(category); p != models.ProductNone {
		return p, nil
	}
	return models.ProductUnknown, nil
}

var pHTMLTag = regexp.MustCompile(`<[^>]*>`)

func formatHTML(s string) string {
	s = html.UnescapeString(pHTMLTag.ReplaceAllString(s, " "))
	return strings.TrimSpace(pWhitespace.ReplaceAllString(s, " "))
}

// disruption follows the trip's chain of disruption records and returns the
// text of the one attached to leg, if any.
func (b *binaryResponse) disruption(tripIndex, leg int) (string, error) {
	if b.disruptionsPtr == 0 {
		return "", nil
	}
	b.seek(b.disruptionsPtr)
	if b.u16() != 1 {
		return "", b.check("disruptions")
	}
	b.seek(b.disruptionsPtr + 2 + tripIndex*2)
	offset := b.u16()

	var message string
	for n := 0; offset != 0; n++ {
		if n >= maxDisruptionChain {
			return "", malformed("disruption chain of trip %d does not terminate", tripIndex)
		}
		b.seek(b.disruptionsPtr + offset)
		b.str()
		disruptionLeg := b.u16()
		b.skip(2)
		b.str() // start of line
		b.str() // end of line
		b.str() // id
		b.str() // title
		shortText := formatHTML(b.str())
		offset = b.u16()

		if disruptionLeg == leg {
			attrIndex := b.u16()
			text := html.UnescapeString(b.attributes(attrIndex, "Text")["Text"])
			message = shortText
			if text != "" {
				message = text
			}
		}
		if err := b.check("disruption of trip %d", tripIndex); err != nil {
			return "", err
		}
	}
	return message, nil
}

func (b *binaryResponse) stops(first, count int, base time.Time, dayOffset int) ([]models.Stop, error) {
	if b.details.stopsSize != stopRecordSize {
		return nil, malformed("unhandled stops size %d", b.details.stopsSize)
	}
	b.seek(b.tripDetailsPtr + b.details.stopsOffset + first*b.details.stopsSize)

	stops := make([]models.Stop, 0, count)
	for i := 0; i < count; i++ {
		plannedDeparture := b.clock(base, dayOffset)
		plannedArrival := b.clock(base, dayOffset)
		plannedDeparturePosition := NormalizePosition(b.str())
		plannedArrivalPosition := NormalizePosition(b.str())
		b.skip(4)
		predictedDeparture := b.clock(base, dayOffset)
		predictedArrival := b.clock(base, dayOffset)
		predictedDeparturePosition := NormalizePosition(b.str())
		predictedArrivalPosition := NormalizePosition(b.str())
		bits := b.u16()
		b.skip(2)
		location := b.station()
		if err := b.check("intermediate stop %d", first+i); err != nil {
			return nil, err
		}

		if b.d.cfg.DominantPlanStopTime && (plannedArrival == nil || plannedDeparture == nil) {
			predictedArrival, predictedDeparture = nil, nil
		}

		stops = append(stops, models.Stop{
			Location:                   location,
			PlannedArrival:             plannedArrival,
			PredictedArrival:           predictedArrival,
			PlannedArrivalPosition:     plannedArrivalPosition,
			PredictedArrivalPosition:   predictedArrivalPosition,
			ArrivalCancelled:           bits&bitArrivalCancelled != 0,
			PlannedDeparture:           plannedDeparture,
			PredictedDeparture:         predictedDeparture,
			PlannedDeparturePosition:   plannedDeparturePosition,
			PredictedDeparturePosition: predictedDeparturePosition,
			DepartureCancelled:         bits&bitDepartureCancelled != 0,
		})
	}
	return stops, nil
}
