package main

import (
	"fmt"
	"math"
	"time"

	"github.com/c360/livebridge/coord"
	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/updater"
)

// Property names published with every vehicle and with the fleet summary.
var (
	vehicleProperties = []string{"speed", "battery"}
	fleetProperties   = []string{"active", "mean_battery", "tick"}
)

const (
	fleetSubject = "Fleet"
	baseRadius   = 5.0  // meters
	laneSpacing  = 2.5  // meters between circle radii
	vehicleSpeed = 1.5  // meters per second
	drainPerSec  = 0.05 // battery percent per second
)

type vehicle struct {
	obj    *updater.Object
	radius float64
	phase  float64
}

// Simulation drives a fleet of vehicles around concentric circles plus one
// data subject summarising them.
type Simulation struct {
	vehicles []vehicle
	fleet    *updater.Object
	values   []float64
	summary  []float64
}

// Stats counts what one Step did.
type Stats struct {
	Updated int
	Failed  int
}

// NewSimulation names vehicles "Vehicle_01", "Vehicle_02" and so on.
func NewSimulation(b updater.Bridge, count int) *Simulation {
	s := &Simulation{
		vehicles: make([]vehicle, count),
		fleet:    updater.New(b, fleetSubject),
		values:   make([]float64, len(vehicleProperties)),
		summary:  make([]float64, len(fleetProperties)),
	}
	for i := range s.vehicles {
		s.vehicles[i] = vehicle{
			obj:    updater.New(b, fmt.Sprintf("Vehicle_%02d", i+1)),
			radius: baseRadius + float64(i)*laneSpacing,
			phase:  2 * math.Pi * float64(i) / float64(max(count, 1)),
		}
	}
	return s
}

// Register declares every subject with its property schema.
func (s *Simulation) Register() error {
	var errs []error
	for _, v := range s.vehicles {
		if err := v.obj.RegisterWithProperties(vehicleProperties); err != nil {
			errs = append(errs, fmt.Errorf("register %s: %w", v.obj.Name(), err))
		}
	}
	if err := s.fleet.RegisterData(fleetProperties); err != nil {
		errs = append(errs, fmt.Errorf("register %s: %w", fleetSubject, err))
	}
	return errors.Join(errs...)
}

// Pose returns vehicle i's pose after elapsed time. Vehicles face along
// their direction of travel.
func (s *Simulation) Pose(i int, elapsed time.Duration) coord.Pose {
	v := s.vehicles[i]
	omega := vehicleSpeed / v.radius
	angle := v.phase + omega*elapsed.Seconds()

	x := v.radius * math.Cos(angle)
	z := v.radius * math.Sin(angle)
	heading := -angle*180/math.Pi - 90

	return coord.Pose{
		Position: [3]float64{x, 0, z},
		Rotation: [3]float64{0, heading, 0},
	}
}

func battery(elapsed time.Duration) float64 {
	return max(100-drainPerSec*elapsed.Seconds(), 0)
}

// Step publishes one frame per subject. Mode mismatches are returned since
// they are programming errors; other failures are counted.
func (s *Simulation) Step(tick int, elapsed time.Duration) (Stats, error) {
	var st Stats
	b := battery(elapsed)

	for i, v := range s.vehicles {
		s.values[0] = vehicleSpeed
		s.values[1] = b
		err := v.obj.UpdateTransformWithProperties(s.Pose(i, elapsed), s.values)
		switch {
		case err == nil:
			st.Updated++
		case errors.Is(err, errors.ErrModeMismatch):
			return st, err
		default:
			st.Failed++
		}
	}

	s.summary[0] = float64(len(s.vehicles))
	s.summary[1] = b
	s.summary[2] = float64(tick)
	if err := s.fleet.UpdateData(s.summary); err != nil {
		if errors.Is(err, errors.ErrModeMismatch) {
			return st, err
		}
		st.Failed++
	} else {
		st.Updated++
	}
	return st, nil
}

// Remove removes every subject. Errors are joined.
func (s *Simulation) Remove() error {
	var errs []error
	for _, v := range s.vehicles {
		errs = append(errs, v.obj.Remove())
	}
	errs = append(errs, s.fleet.Remove())
	return errors.Join(errs...)
}

// Len returns the number of subjects, the fleet summary included.
func (s *Simulation) Len() int { return len(s.vehicles) + 1 }
