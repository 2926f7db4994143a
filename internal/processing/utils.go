package processing

import (
	"errors"
	"fmt"
	"time"
)

var (
	errMissingKey       = errors.New("missing key")
	errFieldInvalidType = errors.New("field type was not the expected one")
	errEmptyValue       = errors.New("empty value")
)

func ExtractString(payload map[string]interface{}, key string) (string, error) {
	value, present := payload[key]
	if !present {
		return "", errMissingKey
	}

	ret, ok := value.(string)
	if !ok {
		return "", errFieldInvalidType
	}

	if ret == "" {
		return "", errEmptyValue
	}

	return ret, nil
}

// ExtractNumber expects the json representation of a number, i.e. a float64.
func ExtractNumber(payload map[string]interface{}, key string) (float64, error) {
	value, present := payload[key]
	if !present {
		return 0, errMissingKey
	}

	ret, ok := value.(float64)
	if !ok {
		return 0, errFieldInvalidType
	}

	return ret, nil
}

func ExtractTime(payload map[string]interface{}, key string) (time.Time, error) {
	value, err := ExtractString(payload, key)
	if err != nil {
		return time.Time{}, err
	}

	ret, err := ParseTime(value)
	if err != nil {
		return time.Time{}, err
	}

	return ret, nil
}

func ParseTime(value string) (time.Time, error) {
	ret, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return ret, fmt.Errorf("failed to parse time: %w", err)
	}

	return ret, nil
}

func FormatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
