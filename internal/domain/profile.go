package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProfile is returned when a required profile field is missing.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile is the user-supplied intake data for a counseling session.
type Profile struct {
	Name             string `json:"name"`
	Age              string `json:"age"`
	EducationLevel   string `json:"educationLevel"`
	StreamOfInterest string `json:"streamOfInterest,omitempty"`
}

// Validate checks that name, age and education level are present.
func (p Profile) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Age) == "" {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(p.EducationLevel) == "" {
		missing = append(missing, "educationLevel")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidProfile, strings.Join(missing, ", "))
	}
	return nil
}

// Normalized returns a copy with surrounding whitespace removed.
func (p Profile) Normalized() Profile {
	return Profile{
		Name:             strings.TrimSpace(p.Name),
		Age:              strings.TrimSpace(p.Age),
		EducationLevel:   strings.TrimSpace(p.EducationLevel),
		StreamOfInterest: strings.TrimSpace(p.StreamOfInterest),
	}
}
