package utils

import (
	"fmt"
	"net/url"
	"strconv"
)

func invalidField(fieldErrors map[string][]string, key string) {
	fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
}

// ParseFloatParam retrieves a float64 value from the provided URL query parameters.
// If the key is not present it returns 0; an invalid value is recorded in fieldErrors.
func ParseFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return 0, fieldErrors
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		invalidField(fieldErrors, key)
	}
	return f, fieldErrors
}

// ParseIntParam is ParseFloatParam for non-negative integers, returning def when the key is absent.
func ParseIntParam(params url.Values, key string, def int, fieldErrors map[string][]string) (int, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return def, fieldErrors
	}

	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		invalidField(fieldErrors, key)
		return def, fieldErrors
	}
	return n, fieldErrors
}

// ParseBoolParam reads a boolean flag; absent means false.
func ParseBoolParam(params url.Values, key string, fieldErrors map[string][]string) (bool, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return false, fieldErrors
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		invalidField(fieldErrors, key)
	}
	return b, fieldErrors
}
