package extraction

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/tradesearch/internal/domain/field"
)

const systemPrompt = `You turn natural-language questions about financial trades into search filters.
You know trading vocabulary: asset classes (FX, IRS, CDS, EQUITY, BOND, COMMODITY), trade lifecycle
statuses, booking and affirmation systems, clearing houses, account identifiers and calendar references.
Answer with a single JSON object and nothing else: no prose, no Markdown.
Every field that the question does not mention is null (booleans are false).`

// buildUserPrompt embeds the query and the reference dates every relative phrase resolves against.
func buildUserPrompt(query string, asOf time.Time) string {
	today := asOf.Format(field.DateLayout)
	yesterday := asOf.AddDate(0, 0, -1).Format(field.DateLayout)
	weekAgo := asOf.AddDate(0, 0, -7).Format(field.DateLayout)
	monthAgo := asOf.AddDate(0, 0, -30).Format(field.DateLayout)
	monday := asOf.AddDate(0, 0, -((int(asOf.Weekday()) + 6) % 7)).Format(field.DateLayout)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %q\n\n", query)
	fmt.Fprintf(&sb, "Today's date: %s (%s)\n\n", today, asOf.Weekday())
	sb.WriteString(`Return exactly these keys:
{
  "trade_id": integer or null,
  "accounts": [strings] or null,
  "asset_types": [strings] or null,
  "booking_systems": [strings] or null,
  "affirmation_systems": [strings] or null,
  "clearing_houses": [strings] or null,
  "statuses": [strings] or null,
  "date_from": "YYYY-MM-DD" or null,
  "date_to": "YYYY-MM-DD" or null,
  "with_exceptions_only": boolean,
  "cleared_trades_only": boolean
}

Rules:
1. An exact numeric trade id ("trade 77194044", "#77194044") goes in trade_id and every other key
   is null or false.
2. statuses only take ALLEGED, CLEARED, REJECTED, CANCELLED.
   pending / unconfirmed / alleged -> ALLEGED; cleared / confirmed / settled -> CLEARED;
   rejected / failed -> REJECTED; cancelled / canceled -> CANCELLED; "all" -> null.
3. Accounts, asset types, booking systems, affirmation systems and clearing houses are copied as
   written, upper-cased ("forex" and "foreign exchange" mean FX, "interest rate swap" IRS,
   "credit default swap" CDS). Never invent a value the query does not name.
4. "with exceptions" sets with_exceptions_only; "cleared trades only" sets cleared_trades_only.
5. Resolve relative dates against today's date:
`)
	fmt.Fprintf(&sb, "   today -> %s..%s\n", today, today)
	fmt.Fprintf(&sb, "   yesterday -> %s..%s\n", yesterday, yesterday)
	fmt.Fprintf(&sb, "   last week / past week -> %s..%s\n", weekAgo, today)
	fmt.Fprintf(&sb, "   last month / past month -> %s..%s\n", monthAgo, today)
	fmt.Fprintf(&sb, "   this week -> %s..%s\n", monday, today)
	sb.WriteString(`   "since X" -> date_from X, date_to null; "before X" -> date_from null, date_to X;
   "on X" -> X..X; "from X to Y" -> X..Y.

Example: "show me pending FX trades from last week" ->
`)
	fmt.Fprintf(&sb, `{"trade_id":null,"accounts":null,"asset_types":["FX"],"booking_systems":null,`+
		`"affirmation_systems":null,"clearing_houses":null,"statuses":["ALLEGED"],`+
		`"date_from":%q,"date_to":%q,"with_exceptions_only":false,"cleared_trades_only":false}`+"\n\n",
		weekAgo, today)
	sb.WriteString("Return only the JSON object.")
	return sb.String()
}
