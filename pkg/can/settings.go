package can

import (
	"errors"
	"fmt"
)

var (
	// ErrZeroBaudRate is returned when settings carry no baud rate.
	ErrZeroBaudRate = errors.New("baud rate cannot be zero")
	// ErrInvalidSamplePoint is returned when the sample point is not a
	// percentage between 1 and 99.
	ErrInvalidSamplePoint = errors.New("sample point must be between 1 and 99 percent")
)

// Settings holds bus configuration handed to Transceiver.Configure.
// Settings is a comparable value type; two settings are equal when all
// fields are equal.
type Settings struct {
	// BaudRate is the nominal bit rate in bits per second.
	BaudRate uint32

	// SamplePoint is the bit sample point as a percentage of the bit
	// time (1..99). Zero means "use the driver default" until
	// SetDefaults is applied.
	SamplePoint uint8
}

// Validate checks that the settings are internally consistent.
// Drivers perform their own capability checks on top of this.
func (s *Settings) Validate() error {
	if s.BaudRate == 0 {
		return ErrZeroBaudRate
	}
	if s.SamplePoint == 0 || s.SamplePoint >= 100 {
		return fmt.Errorf("sample point %d: %w", s.SamplePoint, ErrInvalidSamplePoint)
	}
	return nil
}

// SetDefaults fills unset fields with sensible defaults: 100 kbit/s
// and an 87.5% sample point (rounded to 87), the common CANopen
// defaults.
func (s *Settings) SetDefaults() {
	if s.BaudRate == 0 {
		s.BaudRate = 100_000
	}
	if s.SamplePoint == 0 {
		s.SamplePoint = 87
	}
}
