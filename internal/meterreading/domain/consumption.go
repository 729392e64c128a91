package domain

// InvalidMeterReadingError reports a current reading below the previous one.
type InvalidMeterReadingError struct {
	Previous float64
	Current  float64
}

func (e *InvalidMeterReadingError) Error() string {
	return "Current reading cannot be less than previous reading"
}

// Consumption returns current minus previous. Readings are raw meter values;
// no rounding is applied. Equal readings yield zero consumption.
func Consumption(previous, current float64) (float64, error) {
	if current < previous {
		return 0, &InvalidMeterReadingError{Previous: previous, Current: current}
	}
	return current - previous, nil
}
