package contract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	locationSeparator = "__"
	lineMarker        = "_line_"
	fileHashLen       = 16
)

// LocationKey qualifies a key with the declaring file and line so that
// same-named declarations from different files never share a key.
//
//	LocationKey("Foo", "src/a.ts", 12) == "Foo__<16 hex digits>_line_12"
func LocationKey(name, file string, line int) string {
	return name + locationSeparator + FileHash(file) + lineMarker + strconv.Itoa(line)
}

// FileHash returns the fixed-width hash of a source file path used in
// location keys.
func FileHash(file string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(file))
}

// IsLocationKey reports whether key was produced by LocationKey.
func IsLocationKey(key string) bool {
	return strings.Contains(key, lineMarker)
}

// Location is the decomposed form of a location-qualified key.
type Location struct {
	Name     string
	FileHash string
	Line     int
}

// ParseLocationKey splits a location-qualified key into its parts.
func ParseLocationKey(key string) (Location, bool) {
	i := strings.LastIndex(key, lineMarker)
	if i < 0 {
		return Location{}, false
	}

	line, err := strconv.Atoi(key[i+len(lineMarker):])
	if err != nil {
		return Location{}, false
	}

	head := key[:i]
	j := strings.LastIndex(head, locationSeparator)
	if j <= 0 || len(head)-j-len(locationSeparator) != fileHashLen {
		return Location{}, false
	}

	return Location{
		Name:     head[:j],
		FileHash: head[j+len(locationSeparator):],
		Line:     line,
	}, true
}

// NameFromLocationKey returns the name embedded in a location-qualified key,
// or key itself when it is not location-qualified.
func NameFromLocationKey(key string) string {
	loc, ok := ParseLocationKey(key)
	if !ok {
		return key
	}

	return loc.Name
}
