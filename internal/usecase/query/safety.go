package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/plan"
)

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// Text fragments that indicate values were formatted into the query instead of bound.
var unsafeMarkers = []string{
	"' + ", `" + `, "%s", "%v", "%d", "{}", "format(", "--", ";",
}

// ValidateSafety checks that p binds exactly $1..$n for its n values and carries no
// interpolation markers. Failures wrap domain.ErrQueryUnsafe.
func ValidateSafety(p plan.Plan) error {
	if p.IsEmpty() {
		return nil
	}
	text := p.Text()

	lower := strings.ToLower(text)
	for _, m := range unsafeMarkers {
		if strings.Contains(lower, m) {
			return fmt.Errorf("%w: disallowed marker %q", domain.ErrQueryUnsafe, m)
		}
	}

	seen := make(map[int]struct{})
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: bad placeholder %q", domain.ErrQueryUnsafe, m[0])
		}
		seen[n] = struct{}{}
	}
	if len(seen) != p.Len() {
		return fmt.Errorf("%w: %d placeholders for %d values", domain.ErrQueryUnsafe, len(seen), p.Len())
	}
	for i := 1; i <= p.Len(); i++ {
		if _, ok := seen[i]; !ok {
			return fmt.Errorf("%w: placeholder $%d missing", domain.ErrQueryUnsafe, i)
		}
	}
	return nil
}
