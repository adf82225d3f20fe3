package hafas

import (
	"encoding/xml"
	"errors"
	"html"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"transitdecode.org/hafas/internal/models"
)

// boardRepairs makes the loosely escaped station board markup parseable.
var boardRepairs = strings.NewReplacer(
	" & ", " &amp; ",
	"<b>", " ",
	"</b>", " ",
	"<u>", " ",
	"</u>", " ",
	"<br />", " ",
	" ->", " &#x2192;",
	" <-", " &#x2190;",
	" <> ", " &#x2194; ",
)

var (
	pBoardTime  = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	pBoardDelay = regexp.MustCompile(`^(?:-|k\.A\.?|cancel|\+?\s*(\d+))$`)
)

type xmlBoardStation struct {
	EvaID *string `xml:"evaId,attr"`
	Name  *string `xml:"name,attr"`
}

type xmlBoardJourney struct {
	FpTime      string  `xml:"fpTime,attr"`
	FpDate      string  `xml:"fpDate,attr"`
	Delay       *string `xml:"delay,attr"`
	EDelay      *string `xml:"e_delay,attr"`
	Platform    *string `xml:"platform,attr"`
	TargetLoc   *string `xml:"targetLoc,attr"`
	DirNr       *string `xml:"dirnr,attr"`
	Prod        string  `xml:"prod,attr"`
	Class       *string `xml:"class,attr"`
	Dir         *string `xml:"dir,attr"`
	Capacity    *string `xml:"capacity,attr"`
	DepStation  *string `xml:"depStation,attr"`
	DelayReason *string `xml:"delayReason,attr"`
}

// stationBoard accumulates the departure groups of one board response.
type stationBoard struct {
	d         *Decoder
	stationID string
	place     string
	name      string
	result    *models.DeparturesResult
}

// DecodeStationBoard decodes the departure board of stationID. Departures at
// equivalent stations are grouped by their own station when the backend
// reports them.
func (d *Decoder) DecodeStationBoard(r io.Reader, stationID string) (*models.DeparturesResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	board := &stationBoard{
		d:         d,
		stationID: NormalizeStationID(stationID),
		result:    &models.DeparturesResult{Status: models.StatusOK, StationDepartures: []models.StationDepartures{}},
	}
	if err := board.decode(body); err != nil {
		return nil, wrapMalformed("station board", err)
	}

	departures := 0
	for i := range board.result.StationDepartures {
		group := board.result.StationDepartures[i].Departures
		slices.SortStableFunc(group, func(a, b models.Departure) int {
			return a.PlannedTime.Compare(b.PlannedTime)
		})
		departures += len(group)
	}

	d.logOperation("station_board_decoded",
		slog.String("station_id", board.stationID),
		slog.String("status", string(board.result.Status)),
		slog.Int("groups", len(board.result.StationDepartures)),
		slog.Int("departures", departures))
	return board.result, nil
}

// boardDecoder normalizes the body to UTF-8 before parsing; bodies that are
// not valid UTF-8 are read as Latin-1.
func boardDecoder(body []byte) (*xml.Decoder, error) {
	body, err := utf8Text(body)
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(strings.NewReader(boardRepairs.Replace(string(body))))
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return dec, nil
}

// decode walks the board: an optional StationTable wrapper around an
// optional St header followed by Journey elements. Anything else, including
// content after the wrapper closes, is malformed.
func (b *stationBoard) decode(body []byte) error {
	dec, err := boardDecoder(body)
	if err != nil {
		return err
	}

	cfg := b.d.cfg
	first := true
	inTable, tableClosed := false, false
	seenStation, seenJourney := false, false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		var start xml.StartElement
		switch t := tok.(type) {
		case xml.StartElement:
			start = t
		case xml.EndElement:
			// Children are consumed whole, so only the wrapper ends here.
			tableClosed = true
			continue
		default:
			continue
		}

		if tableClosed {
			return malformed("unexpected element %s after StationTable", start.Name.Local)
		}

		if first {
			first = false
			if start.Name.Local == "Err" {
				var e xmlErr
				if err := dec.DecodeElement(&e, &start); err != nil {
					return err
				}
				return b.boardError(e)
			}
			if cfg.StationBoardHasStationTable {
				if start.Name.Local != "StationTable" {
					return malformed("expected StationTable, got %s", start.Name.Local)
				}
				inTable = true
				continue
			}
		}

		switch start.Name.Local {
		case "St":
			if !cfg.StationBoardHasLocation || seenStation || seenJourney {
				return malformed("unexpected element St")
			}
			var st xmlBoardStation
			if err := dec.DecodeElement(&st, &start); err != nil {
				return err
			}
			if err := b.header(st); err != nil {
				return err
			}
			seenStation = true
		case "Journey":
			if cfg.StationBoardHasLocation && !seenStation {
				return malformed("journey before station header")
			}
			var j xmlBoardJourney
			if err := dec.DecodeElement(&j, &start); err != nil {
				return err
			}
			if err := b.journey(&j); err != nil {
				return err
			}
			seenJourney = true
		default:
			return malformed("unexpected element %s", start.Name.Local)
		}
	}

	switch {
	case first:
		return malformed("empty station board")
	case inTable && !tableClosed:
		return malformed("unterminated StationTable")
	case cfg.StationBoardHasLocation && !seenStation:
		return malformed("missing station header")
	}
	return nil
}

func (b *stationBoard) boardError(e xmlErr) error {
	switch e.Code {
	case "H730":
		b.result.Status = models.StatusInvalidStation
		return nil
	case "H890":
		b.result.StationDepartures = append(b.result.StationDepartures, models.StationDepartures{
			Location:   models.NewStation(b.stationID),
			Departures: []models.Departure{},
		})
		return nil
	}
	return &ProtocolError{Code: e.Code, Text: e.Text}
}

func (b *stationBoard) header(st xmlBoardStation) error {
	if st.EvaID == nil {
		return nil
	}
	if *st.EvaID != b.stationID {
		return malformed("board of station %s reports evaId %s", b.stationID, *st.EvaID)
	}
	if st.Name != nil {
		b.place, b.name = b.d.custom.SplitStationName(strings.TrimSpace(*st.Name))
	}
	return nil
}

func (b *stationBoard) journey(j *xmlBoardJourney) error {
	if j.EDelay != nil && *j.EDelay == "cancel" {
		return nil
	}

	planned, err := b.d.boardPlannedTime(j.FpTime, j.FpDate)
	if err != nil {
		return err
	}
	predicted, err := boardPredictedTime(planned, j.EDelay, j.Delay)
	if err != nil {
		return err
	}

	var position *models.Position
	if j.Platform != nil {
		position = models.NewPosition("Gl. " + html.UnescapeString(*j.Platform))
	}

	var destinationName string
	switch {
	case j.Dir != nil:
		destinationName = strings.TrimSpace(*j.Dir)
	case j.TargetLoc != nil:
		destinationName = strings.TrimSpace(*j.TargetLoc)
	}
	destination := models.Location{Type: models.LocationAny, Name: destinationName}
	if j.DirNr != nil {
		destination = b.d.station(*j.DirNr, 0, 0, destinationName)
	}

	line, err := b.d.ParseLineAndType(j.Prod)
	if err != nil {
		return err
	}
	if j.Class != nil {
		class, err := strconv.Atoi(strings.TrimSpace(*j.Class))
		if err != nil {
			return malformed("product class %q", *j.Class)
		}
		product, err := b.d.classProduct(class)
		if err != nil {
			return err
		}
		line = models.NewLine(product, line.Label, "", line.Attrs)
	}

	capacity, err := boardCapacity(j.Capacity)
	if err != nil {
		return err
	}

	var message string
	if j.DelayReason != nil {
		message = strings.TrimSpace(*j.DelayReason)
	}

	location := models.Location{Type: models.LocationStation, ID: b.stationID, Place: b.place, Name: b.name}
	if b.d.cfg.StationBoardCanDoEquivs && j.DepStation != nil {
		location = b.d.station("", 0, 0, *j.DepStation)
	}

	group := b.result.FindStationDepartures(location)
	if group == nil {
		b.result.StationDepartures = append(b.result.StationDepartures, models.StationDepartures{Location: location})
		group = &b.result.StationDepartures[len(b.result.StationDepartures)-1]
	}
	group.Departures = append(group.Departures, models.Departure{
		PlannedTime:   planned,
		PredictedTime: predicted,
		Line:          line,
		Position:      position,
		Destination:   destination,
		Capacity:      capacity,
		Message:       message,
	})
	return nil
}

// boardPlannedTime combines an "HH:mm" time with a "dd.MM.yy" or "yyyy-MM-dd" date.
func (d *Decoder) boardPlannedTime(fpTime, fpDate string) (time.Time, error) {
	m := pBoardTime.FindStringSubmatch(fpTime)
	if m == nil {
		return time.Time{}, malformed("time %q", fpTime)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])

	var layout string
	switch len(fpDate) {
	case 8:
		layout = "02.01.06"
	case 10:
		layout = "2006-01-02"
	default:
		return time.Time{}, malformed("date %q", fpDate)
	}
	date, err := time.ParseInLocation(layout, fpDate, d.cfg.Location)
	if err != nil {
		return time.Time{}, malformed("date %q", fpDate)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, second, 0, d.cfg.Location), nil
}

func boardPredictedTime(planned time.Time, eDelay, delay *string) (*time.Time, error) {
	var minutes int
	switch {
	case eDelay != nil:
		n, err := strconv.Atoi(strings.TrimSpace(*eDelay))
		if err != nil {
			return nil, malformed("e_delay %q", *eDelay)
		}
		minutes = n
	case delay != nil:
		m := pBoardDelay.FindStringSubmatch(*delay)
		if m == nil {
			return nil, malformed("delay %q", *delay)
		}
		if m[1] == "" {
			return nil, nil
		}
		minutes, _ = strconv.Atoi(m[1])
	default:
		return nil, nil
	}
	t := planned.Add(time.Duration(minutes) * time.Minute)
	return &t, nil
}

func boardCapacity(s *string) ([]int, error) {
	if s == nil || *s == "0|0" {
		return nil, nil
	}
	first, second, ok := strings.Cut(*s, "|")
	if !ok {
		return nil, malformed("capacity %q", *s)
	}
	a, errA := strconv.Atoi(first)
	b, errB := strconv.Atoi(second)
	if errA != nil || errB != nil {
		return nil, malformed("capacity %q", *s)
	}
	return []int{a, b}, nil
}
