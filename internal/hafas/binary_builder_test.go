package hafas

import (
	"encoding/binary"
	"time"
)

// leBuffer is a little-endian byte writer for building binary fixtures.
type leBuffer struct {
	b []byte
}

func (w *leBuffer) u8(v uint8)   { w.b = append(w.b, v) }
func (w *leBuffer) u16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *leBuffer) i16(v int16)  { w.u16(uint16(v)) }
func (w *leBuffer) i32(v int32)  { w.b = binary.LittleEndian.AppendUint32(w.b, uint32(v)) }
func (w *leBuffer) zero(n int)   { w.b = append(w.b, make([]byte, n)...) }
func (w *leBuffer) len() int     { return len(w.b) }

func (w *leBuffer) putU16(at int, v uint16) { binary.LittleEndian.PutUint16(w.b[at:], v) }
func (w *leBuffer) putI32(at int, v int32)  { binary.LittleEndian.PutUint32(w.b[at:], uint32(v)) }

// stringPool interns raw strings; offset 0 is reserved for "no string".
type stringPool struct {
	buf     leBuffer
	offsets map[string]uint16
}

func newStringPool() *stringPool {
	p := &stringPool{offsets: map[string]uint16{}}
	p.buf.u8(0)
	return p
}

func (p *stringPool) ref(s string) uint16 {
	if s == "" {
		return 0
	}
	if off, ok := p.offsets[s]; ok {
		return off
	}
	off := uint16(p.buf.len())
	p.buf.b = append(p.buf.b, s...)
	p.buf.u8(0)
	p.offsets[s] = off
	return off
}

type fxAttr struct {
	key, value string
}

// attrPool holds null-key-terminated key/value lists addressed by pair index.
type attrPool struct {
	buf     leBuffer
	strings *stringPool
}

func (p *attrPool) list(attrs ...fxAttr) uint16 {
	index := uint16(p.buf.len() / 4)
	for _, a := range attrs {
		p.buf.u16(p.strings.ref(a.key))
		p.buf.u16(p.strings.ref(a.value))
	}
	p.buf.zero(4)
	return index
}

type fxLocation struct {
	name     string
	kind     uint16
	lon, lat int32
}

type fxStation struct {
	name     string
	id       int32
	lon, lat int32
}

type fxStop struct {
	plannedDep, plannedArr         uint16
	plannedDepPlat, plannedArrPlat string
	predictedDep, predictedArr     uint16
	bits                           uint16
	station                        uint16
}

type fxLeg struct {
	depTime, arrTime uint16
	dep, arr         uint16
	legType          uint16
	line             string
	depPlat, arrPlat string
	attrs            []fxAttr
	comments         []string

	predictedDep, predictedArr         uint16
	predictedDepPlat, predictedArrPlat string
	bits                               uint16
	stops                              []fxStop
}

type fxDisruption struct {
	leg       uint16
	shortText string
	text      string
}

type fxTrip struct {
	bitBase        uint16
	serviceBits    []byte
	numChanges     uint16
	realtimeStatus uint16
	connectionID   string
	legs           []fxLeg
	disruptions    []fxDisruption
}

type fxResponse struct {
	version        uint16
	errorCode      uint16
	encoding       string
	resDate        time.Time
	seqNr          int16
	requestID      string
	marker         string
	extLength      int32
	detailsVersion uint16
	legSize        uint16
	stopsSize      uint16
	from, to       fxLocation
	stations       []fxStation
	trips          []fxTrip
	rawStrings     []byte
}

// plainTime encodes hours and minutes the way the binary format does.
func plainTime(h, m int) uint16 {
	return uint16(h*100 + m)
}

func dayNumber(t time.Time) uint16 {
	epoch := time.Date(1979, time.December, 31, 0, 0, 0, 0, time.UTC)
	return uint16(t.Sub(epoch) / (24 * time.Hour))
}

// defaultResponse is a single walk+train trip, the shape most tests start from.
func defaultResponse() fxResponse {
	return fxResponse{
		version:   6,
		encoding:  "iso-8859-1",
		resDate:   time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		seqNr:     1,
		requestID: "req-42",
		marker:    "ld-7",
		extLength: 0x32,
		from:      fxLocation{name: "Berlin Hbf", kind: 1, lon: 13369549, lat: 52525589},
		to:        fxLocation{name: "Potsdam Hbf", kind: 1, lon: 13066702, lat: 52391640},
		stations: []fxStation{
			{name: "Berlin Hbf", id: 8011160, lon: 13369549, lat: 52525589},
			{name: "Berlin Zoologischer Garten", id: 8010406, lon: 13332711, lat: 52506921},
			{name: "Berlin-Wannsee", id: 8010405, lon: 13179285, lat: 52421148},
			{name: "Potsdam Hbf", id: 8012666, lon: 13066702, lat: 52391640},
		},
		trips: []fxTrip{{
			serviceBits:  []byte{0x80},
			numChanges:   0,
			connectionID: "C-1",
			legs: []fxLeg{
				{
					depTime: plainTime(8, 0), dep: 0,
					arrTime: plainTime(8, 5), arr: 0,
					legType: 1,
				},
				{
					depTime: plainTime(8, 10), dep: 0,
					arrTime: plainTime(8, 45), arr: 3,
					legType:      2,
					line:         "RE 1",
					depPlat:      "Gleis 13",
					arrPlat:      "4",
					attrs:        []fxAttr{{"Direction", "Magdeburg Hbf"}, {"Class", "4"}, {"Category", "RE"}},
					predictedDep: plainTime(8, 12), predictedArr: NoTime,
					stops: []fxStop{
						{plannedArr: plainTime(8, 16), plannedDep: plainTime(8, 17), predictedArr: NoTime, predictedDep: NoTime, station: 1},
						{plannedArr: plainTime(8, 33), plannedDep: plainTime(8, 34), predictedArr: plainTime(8, 35), predictedDep: plainTime(8, 36), station: 2},
					},
				},
			},
		}},
	}
}

func (f fxResponse) build() []byte {
	strs := newStringPool()
	attrs := &attrPool{strings: strs}

	if f.legSize == 0 {
		f.legSize = legDetailsSize
	}
	if f.stopsSize == 0 {
		f.stopsSize = stopRecordSize
	}
	if f.detailsVersion == 0 {
		f.detailsVersion = tripDetailsVersion
	}

	var trips, legs, serviceDays, stations, comments, details, disruptions, tripAttrs leBuffer

	for _, s := range f.stations {
		stations.u16(strs.ref(s.name))
		stations.i32(s.id)
		stations.i32(s.lon)
		stations.i32(s.lat)
	}

	// trip details: header, per-trip index, per-trip records, then stops
	detailsIndexOffset := 14
	detailsRecords := leBuffer{}
	stops := leBuffer{}
	stopCount := 0
	detailOffsets := make([]int, len(f.trips))
	recordsStart := detailsIndexOffset + 2*len(f.trips)

	disruptions.u16(1)
	for range f.trips {
		disruptions.u16(0)
	}
	hasDisruptions := false

	for i, trip := range f.trips {
		serviceDaysOffset := serviceDays.len()
		serviceDays.u16(strs.ref("service"))
		serviceDays.u16(trip.bitBase)
		serviceDays.u16(uint16(len(trip.serviceBits)))
		serviceDays.b = append(serviceDays.b, trip.serviceBits...)

		legsOffset := len(f.trips)*tripRecordSize + legs.len()
		trips.u16(uint16(serviceDaysOffset))
		trips.i32(int32(legsOffset))
		trips.u16(uint16(len(trip.legs)))
		trips.u16(trip.numChanges)
		trips.u16(60)

		detailOffsets[i] = recordsStart + detailsRecords.len()
		detailsRecords.u16(trip.realtimeStatus)
		detailsRecords.u16(0)
		detailsRecords.u16(0)
		detailsRecords.zero(2)
		detailsRecords.u16(0)
		detailsRecords.zero(2)

		for _, leg := range trip.legs {
			commentsPtr := comments.len()
			comments.u16(uint16(len(leg.comments)))
			for _, c := range leg.comments {
				comments.u16(strs.ref(c))
			}

			legs.u16(leg.depTime)
			legs.u16(leg.dep)
			legs.u16(leg.arrTime)
			legs.u16(leg.arr)
			legs.u16(leg.legType)
			legs.u16(strs.ref(leg.line))
			legs.u16(strs.ref(leg.depPlat))
			legs.u16(strs.ref(leg.arrPlat))
			legs.u16(attrs.list(leg.attrs...))
			legs.u16(uint16(commentsPtr))

			predictedDep, predictedArr := leg.predictedDep, leg.predictedArr
			if predictedDep == 0 {
				predictedDep = NoTime
			}
			if predictedArr == 0 {
				predictedArr = NoTime
			}
			detailsRecords.u16(predictedDep)
			detailsRecords.u16(predictedArr)
			detailsRecords.u16(strs.ref(leg.predictedDepPlat))
			detailsRecords.u16(strs.ref(leg.predictedArrPlat))
			detailsRecords.u16(leg.bits)
			detailsRecords.zero(2)
			detailsRecords.u16(uint16(stopCount))
			detailsRecords.u16(uint16(len(leg.stops)))
			detailsRecords.zero(int(f.legSize) - legDetailsSize)

			for _, s := range leg.stops {
				stops.u16(s.plannedDep)
				stops.u16(s.plannedArr)
				stops.u16(strs.ref(s.plannedDepPlat))
				stops.u16(strs.ref(s.plannedArrPlat))
				stops.zero(4)
				stops.u16(s.predictedDep)
				stops.u16(s.predictedArr)
				stops.zero(4)
				stops.u16(s.bits)
				stops.zero(2)
				stops.u16(s.station)
				stopCount++
			}
		}

		prev := 0
		for k := len(trip.disruptions) - 1; k >= 0; k-- {
			d := trip.disruptions[k]
			off := disruptions.len()
			disruptions.u16(strs.ref("disruption"))
			disruptions.u16(d.leg)
			disruptions.zero(2)
			disruptions.u16(strs.ref("start"))
			disruptions.u16(strs.ref("end"))
			disruptions.u16(strs.ref("id"))
			disruptions.u16(strs.ref("title"))
			disruptions.u16(strs.ref(d.shortText))
			disruptions.u16(uint16(prev))
			if d.text != "" {
				disruptions.u16(attrs.list(fxAttr{"Text", d.text}))
			} else {
				disruptions.u16(attrs.list())
			}
			prev = off
			hasDisruptions = true
		}
		disruptions.putU16(2+2*i, uint16(prev))

		tripAttrs.u16(attrs.list(fxAttr{"Reference", "x"}, fxAttr{"ConnectionId", trip.connectionID}))
	}

	details.u16(f.detailsVersion)
	details.zero(2)
	details.u16(uint16(detailsIndexOffset))
	details.u16(tripRealtimeSize)
	details.u16(f.legSize)
	details.u16(f.stopsSize)
	details.u16(uint16(recordsStart + detailsRecords.len()))
	for _, off := range detailOffsets {
		details.u16(uint16(off))
	}
	details.b = append(details.b, detailsRecords.b...)
	details.b = append(details.b, stops.b...)

	// intern every remaining string before the string table is laid out
	fromRef, toRef := strs.ref(f.from.name), strs.ref(f.to.name)
	encodingRef, requestRef, markerRef := strs.ref(f.encoding), strs.ref(f.requestID), strs.ref(f.marker)
	stringTable := append(append([]byte{}, strs.buf.b...), f.rawStrings...)

	var out leBuffer
	out.zero(offTrips)
	out.b = append(out.b, trips.b...)
	out.b = append(out.b, legs.b...)
	stringTablePtr := out.len()
	out.b = append(out.b, stringTable...)
	serviceDaysPtr := out.len()
	out.b = append(out.b, serviceDays.b...)
	stationTablePtr := out.len()
	out.b = append(out.b, stations.b...)
	commentTablePtr := out.len()
	out.b = append(out.b, comments.b...)
	tripDetailsPtr := out.len()
	out.b = append(out.b, details.b...)
	disruptionsPtr := 0
	if hasDisruptions {
		disruptionsPtr = out.len()
		out.b = append(out.b, disruptions.b...)
	}
	attrsOffset := out.len()
	out.b = append(out.b, attrs.buf.b...)
	tripAttrsPtr := out.len()
	out.b = append(out.b, tripAttrs.b...)
	extPtr := out.len()
	var ext leBuffer
	ext.i32(f.extLength)
	ext.zero(4)
	ext.i16(f.seqNr)
	ext.u16(requestRef)
	ext.i32(int32(tripDetailsPtr))
	ext.u16(f.errorCode)
	ext.zero(2)
	ext.i32(int32(disruptionsPtr))
	ext.zero(8)
	ext.u16(encodingRef)
	ext.u16(markerRef)
	ext.i32(int32(attrsOffset))
	ext.zero(4)
	ext.i32(int32(tripAttrsPtr))
	ext.zero(2)
	out.b = append(out.b, ext.b...)

	out.putU16(offVersion, f.version)
	writeLocation := func(at int, ref uint16, l fxLocation) {
		out.putU16(at, ref)
		out.putU16(at+4, l.kind)
		out.putI32(at+6, l.lon)
		out.putI32(at+10, l.lat)
	}
	writeLocation(offResLocations, fromRef, f.from)
	writeLocation(offResLocations+stationRecordSize, toRef, f.to)
	out.putU16(offNumTrips, uint16(len(f.trips)))
	out.putI32(offServiceDaysPtr, int32(serviceDaysPtr))
	out.putI32(offStringTablePtr, int32(stringTablePtr))
	out.putU16(0x28, dayNumber(f.resDate))
	out.putU16(0x2a, dayNumber(f.resDate)+30)
	out.putI32(offStationTablePtr, int32(stationTablePtr))
	out.putI32(offCommentTablePtr, int32(commentTablePtr))
	out.putI32(offExtensionPtr, int32(extPtr))
	return out.b
}

const tripRealtimeSize = 12
