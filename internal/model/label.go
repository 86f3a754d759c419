package model

import "fmt"

// Label is the closed set of plant health classes. The zero value is Healthy.
type Label int

const (
	Healthy Label = iota
	ModerateStress
	HighStress
)

// NumLabels is the width of every probability distribution.
const NumLabels = 3

// Labels returns every label in code order.
func Labels() [NumLabels]Label {
	return [NumLabels]Label{Healthy, ModerateStress, HighStress}
}

// LabelFromCode maps an artifact class code to a Label.
func LabelFromCode(code int64) (Label, error) {
	switch code {
	case 0:
		return Healthy, nil
	case 1:
		return ModerateStress, nil
	case 2:
		return HighStress, nil
	}
	return 0, fmt.Errorf("%w: code %d", ErrInvalidLabel, code)
}

// Code returns the integer class code the artifact uses for this label.
func (l Label) Code() int64 {
	l.mustValid()
	return int64(l)
}

func (l Label) String() string {
	switch l {
	case Healthy:
		return "Healthy"
	case ModerateStress:
		return "Moderate Stress"
	case HighStress:
		return "High Stress"
	}
	panic(fmt.Sprintf("model: impossible label %d", int(l)))
}

// Short is the legend name used on charts.
func (l Label) Short() string {
	switch l {
	case Healthy:
		return "Healthy"
	case ModerateStress:
		return "Moderate"
	case HighStress:
		return "High"
	}
	panic(fmt.Sprintf("model: impossible label %d", int(l)))
}

// Color is the status color shown for the label.
func (l Label) Color() string {
	switch l {
	case Healthy:
		return "#4CAF50"
	case ModerateStress:
		return "#FFC107"
	case HighStress:
		return "#FF5252"
	}
	panic(fmt.Sprintf("model: impossible label %d", int(l)))
}

// MarshalText encodes the label as its display name.
func (l Label) MarshalText() ([]byte, error) {
	if l < Healthy || l > HighStress {
		return nil, fmt.Errorf("%w: code %d", ErrInvalidLabel, int(l))
	}
	return []byte(l.String()), nil
}

func (l Label) mustValid() {
	if l < Healthy || l > HighStress {
		panic(fmt.Sprintf("model: impossible label %d", int(l)))
	}
}
