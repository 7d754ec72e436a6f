package protocol

import (
	"encoding/xml"
	"strconv"
	"time"
)

// ProgressStatus classifies a poll of the progress endpoint. The vendor has no single
// "done" signal, so callers must distinguish terminal success, terminal failure, and
// keep-polling; anything the classifier doesn't recognize is Unknown and treated as
// terminal by the poll loop.
type ProgressStatus int

const (
	StatusUnknown ProgressStatus = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
)

func (s ProgressStatus) String() string {
	switch s {
	case StatusInProgress:
		return "in progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Progress values observed while a command works its way to the vehicle: the SMS wakeup has
// been sent, the DCM has not picked the request up yet, or the DCM is executing it.
var inProgressValues = map[string]bool{
	"SmsSent":           true,
	"WaitingDcmRequest": true,
	"OnDcmExecuting":    true,
}

const finishedValue = "NormalEnded"

var failedValues = map[string]bool{
	"211018": true,
}

func classifyProgress(progress string) ProgressStatus {
	switch {
	case inProgressValues[progress]:
		return StatusInProgress
	case progress == finishedValue:
		return StatusCompleted
	case failedValues[progress]:
		return StatusFailed
	}
	return StatusUnknown
}

// Progress is one snapshot of an asynchronous command's execution state. VehicleCode, when
// present, identifies the specific outcome (e.g. "01" for doors actually locked) beyond the
// generic result code.
type Progress struct {
	Code        string
	VehicleCode string
	Timestamp   time.Time
	Latitude    float64
	Longitude   float64
	HasLocation bool
	RawStatus   string
	Action      string
	Progress    string
	Status      ProgressStatus

	// ResponseText is the raw server response, kept for error reporting when the
	// namespace section carries no recognizable progress value.
	ResponseText string
}

type progressDocument struct {
	Result struct {
		Code        string `xml:"CODE"`
		VehicleCode string `xml:"VEHICLE_RESULT_CODE"`
	} `xml:"RESULT"`
	Lat      string            `xml:"LAT"`
	Lon      string            `xml:"LON"`
	Sections []progressSection `xml:",any"`
}

type progressSection struct {
	XMLName  xml.Name
	Date     string `xml:"DATE"`
	Status   string `xml:"STATUS"`
	Action   string `xml:"ACTION"`
	Progress string `xml:"PROGRESS"`
}

// ParseProgress decodes a progress poll response. The server names the result section
// after the namespace code of the command being tracked, so the caller must supply the
// namespace it asked about.
func ParseProgress(text, namespace string) (*Progress, error) {
	var doc progressDocument
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	p := &Progress{
		Code:         doc.Result.Code,
		VehicleCode:  doc.Result.VehicleCode,
		ResponseText: text,
	}
	for _, section := range doc.Sections {
		if section.XMLName.Local != namespace {
			continue
		}
		p.Timestamp = parseVendorTime(section.Date)
		p.RawStatus = section.Status
		p.Action = section.Action
		p.Progress = section.Progress
		break
	}
	if doc.Lat != "" && doc.Lon != "" {
		lat, latErr := strconv.ParseFloat(doc.Lat, 64)
		lon, lonErr := strconv.ParseFloat(doc.Lon, 64)
		if latErr == nil && lonErr == nil {
			p.Latitude = lat
			p.Longitude = lon
			p.HasLocation = true
		}
	}
	p.Status = classifyProgress(p.Progress)
	return p, nil
}
