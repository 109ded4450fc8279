package config

import (
	"fmt"
	"time"
)

func fieldPath(topicIndex int, name string) string {
	return fmt.Sprintf("topics[%d].%s", topicIndex, name)
}

func fieldIndex(field string, i int) string {
	return fmt.Sprintf("%s[%d]", field, i)
}

func errMissing(field string) error {
	return fmt.Errorf("%s is required", field)
}

func errOneOf(field string, choices ...string) error {
	return fmt.Errorf("%s must be one of %v", field, choices)
}

func errRange(field, rng string) error {
	return fmt.Errorf("%s must be in range %s", field, rng)
}

func errMinDuration(field string, min time.Duration) error {
	return fmt.Errorf("%s must be >= %s", field, min)
}

func errMinInt(field string, min int64) error {
	return fmt.Errorf("%s must be >= %d", field, min)
}
