package protocol

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reading is a numeric gauge value with its reported unit.
type Reading struct {
	Value float64
	Unit  string
}

// Component tracks the reported state of a door, window, or other closure. Closed and
// Locked are nil until a reading mentions them. Safe starts true and is ANDed with every
// contributing reading's SECURITY field: a door whose closed-state is safe but whose
// lock-state is not must come out unsafe.
type Component struct {
	Name   string
	Closed *bool
	Locked *bool
	Safe   bool
}

func newComponent(name string) *Component {
	return &Component{Name: name, Safe: true}
}

func (c *Component) setClosed(data, security string) {
	closed := data == "close"
	c.Closed = &closed
	c.Safe = c.Safe && security == "safe"
}

func (c *Component) setLocked(data, security string) {
	locked := data == "lock"
	c.Locked = &locked
	c.Safe = c.Safe && security == "safe"
}

// Door, window, and closure map keys.
const (
	PositionDriver        = "driver"
	PositionPassenger     = "passenger"
	PositionRearDriver    = "rear_driver"
	PositionRearPassenger = "rear_passenger"
	ClosureHood           = "hood"
	ClosureTrunk          = "trunk"
	ClosureSunroof        = "sunroof"
)

// VehicleStatus is the decoded realtime status snapshot.
type VehicleStatus struct {
	LastUpdated   time.Time
	DashboardTime time.Time

	Odometer  *Reading
	FuelGauge *Reading
	Range     *Reading
	TripA     *Reading
	TripB     *Reading

	HazardsOn bool

	Doors   map[string]*Component
	Windows map[string]*Component
	Other   map[string]*Component
}

func (s *VehicleStatus) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Last Updated: %s\n", s.LastUpdated)
	if s.Odometer != nil {
		fmt.Fprintf(&b, "Odometer: %g %s\n", s.Odometer.Value, s.Odometer.Unit)
	}
	if s.FuelGauge != nil {
		fmt.Fprintf(&b, "Fuel: %g %s\n", s.FuelGauge.Value, s.FuelGauge.Unit)
	}
	writeComponents := func(label string, components map[string]*Component) {
		fmt.Fprintf(&b, "%s:\n", label)
		for _, key := range []string{PositionDriver, PositionPassenger, PositionRearDriver, PositionRearPassenger, ClosureHood, ClosureTrunk, ClosureSunroof} {
			c, ok := components[key]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  %s:", c.Name)
			if c.Closed != nil {
				if *c.Closed {
					b.WriteString(" Closed")
				} else {
					b.WriteString(" Open")
				}
			}
			if c.Locked != nil {
				if *c.Locked {
					b.WriteString(" Locked")
				} else {
					b.WriteString(" Unlocked")
				}
			}
			if !c.Safe {
				b.WriteString(" (unsafe)")
			}
			b.WriteString("\n")
		}
	}
	writeComponents("Doors", s.Doors)
	writeComponents("Windows", s.Windows)
	writeComponents("Other", s.Other)
	return b.String()
}

type statusDocument struct {
	Datetime          string       `xml:"DATETIME"`
	DashboardDatetime string       `xml:"DASHBOARD_DATETIME"`
	Items             []statusItem `xml:"LIST>ITEM"`
}

type statusItem struct {
	Type     string `xml:"TYPE"`
	Data     string `xml:"DATA"`
	Unit     string `xml:"UNIT"`
	Security string `xml:"SECURITY"`
}

// ParseStatus decodes a realtime status document. Type codes the decoder does not
// recognize are skipped so new gateway firmware doesn't break old clients.
func ParseStatus(text string) (*VehicleStatus, error) {
	var doc statusDocument
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	status := &VehicleStatus{
		LastUpdated:   parseVendorTime(doc.Datetime),
		DashboardTime: parseVendorTime(doc.DashboardDatetime),
		Doors: map[string]*Component{
			PositionDriver:        newComponent("Driver Door"),
			PositionPassenger:     newComponent("Passenger Door"),
			PositionRearDriver:    newComponent("Rear Driver Door"),
			PositionRearPassenger: newComponent("Rear Passenger Door"),
		},
		Windows: map[string]*Component{
			PositionDriver:        newComponent("Driver Window"),
			PositionPassenger:     newComponent("Passenger Window"),
			PositionRearDriver:    newComponent("Rear Driver Window"),
			PositionRearPassenger: newComponent("Rear Passenger Window"),
		},
		Other: map[string]*Component{
			ClosureHood:    newComponent("Hood"),
			ClosureTrunk:   newComponent("Trunk"),
			ClosureSunroof: newComponent("Sunroof"),
		},
	}

	closedBy := map[string]*Component{
		"DCTY":  status.Doors[PositionDriver],
		"PCTY":  status.Doors[PositionPassenger],
		"RLCY":  status.Doors[PositionRearDriver],
		"RRCY":  status.Doors[PositionRearPassenger],
		"HDCY":  status.Other[ClosureHood],
		"LGCY":  status.Other[ClosureTrunk],
		"SRPOS": status.Other[ClosureSunroof],
		"PWDRD": status.Windows[PositionDriver],
		"PWDRP": status.Windows[PositionPassenger],
		"PWDRL": status.Windows[PositionRearDriver],
		"PWDRR": status.Windows[PositionRearPassenger],
	}
	lockedBy := map[string]*Component{
		"LSWD": status.Doors[PositionDriver],
		"LSWP": status.Doors[PositionPassenger],
		"LSWL": status.Doors[PositionRearDriver],
		"LSWR": status.Doors[PositionRearPassenger],
	}

	for _, item := range doc.Items {
		switch item.Type {
		case "ODO", "FUGAGE", "RAGE", "TRIPA", "TRIPB":
			value, err := strconv.ParseFloat(item.Data, 64)
			if err != nil {
				return nil, &ParseError{Err: fmt.Errorf("bad %s reading %q: %w", item.Type, item.Data, err)}
			}
			reading := &Reading{Value: value, Unit: item.Unit}
			switch item.Type {
			case "ODO":
				status.Odometer = reading
			case "FUGAGE":
				status.FuelGauge = reading
			case "RAGE":
				status.Range = reading
			case "TRIPA":
				status.TripA = reading
			case "TRIPB":
				status.TripB = reading
			}
		case "HAZB":
			status.HazardsOn = item.Data != "off"
		default:
			if c, ok := closedBy[item.Type]; ok {
				c.setClosed(item.Data, item.Security)
			} else if c, ok := lockedBy[item.Type]; ok {
				c.setLocked(item.Data, item.Security)
			}
			// Unknown type codes are ignored.
		}
	}
	return status, nil
}
