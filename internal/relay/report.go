package relay

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/tzhsiao/eew-go/internal/errors"
)

// reportPattern matches the MM/DD-HH:MM prefix of a report description.
// Digits may be unpadded.
var reportPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})-(\d{1,2}):(\d{1,2})(.*)$`)

// localizeReport parses a timestamped report description into the localized
// human-readable form published to downstream subscribers.
func localizeReport(description string) (string, error) {
	m := reportPattern.FindStringSubmatch(description)
	if m == nil {
		return "", errors.Newf("report description %q does not match the expected format", description).
			Component("relay").
			Category(errors.CategoryParse).
			Build()
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])

	return fmt.Sprintf("%d月%d號%d點%d分%s", month, day, hour, minute, m[5]), nil
}
