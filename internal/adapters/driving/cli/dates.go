package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// defaultLookback is how many days before today an omitted date means.
const defaultLookback = 3

// now is replaced in tests.
var now = time.Now

var daysAgoPattern = regexp.MustCompile(`^-(\d+)d?$`)

// parseDate turns a command line date into a UTC day. Supported forms are
// YYYY-MM-DD, today, yesterday and -N or -Nd for N days ago. An empty input
// means three days ago. Days after ref are rejected.
func parseDate(input string, ref time.Time) (domain.DateKey, error) {
	input = strings.ToLower(strings.TrimSpace(input))

	today, err := domain.NewDateKey(ref)
	if err != nil {
		return domain.DateKey{}, err
	}

	var day domain.DateKey
	switch input {
	case "":
		day = today.AddDays(-defaultLookback)
	case "today":
		day = today
	case "yesterday":
		day = today.AddDays(-1)
	default:
		if m := daysAgoPattern.FindStringSubmatch(input); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return domain.DateKey{}, &domain.InvalidArgumentError{Arg: "date", Reason: fmt.Sprintf("bad offset %q", input)}
			}
			day = today.AddDays(-n)
			break
		}
		day, err = domain.ParseDateKey(input)
		if err != nil {
			return domain.DateKey{}, err
		}
	}

	if day.After(ref) {
		return domain.DateKey{}, &domain.InvalidArgumentError{Arg: "date", Reason: day.String() + " is in the future"}
	}
	return day, nil
}

// dateArg parses the optional date argument of a command.
func dateArg(args []string) (domain.DateKey, error) {
	if len(args) == 0 {
		return parseDate("", now())
	}
	return parseDate(args[0], now())
}
