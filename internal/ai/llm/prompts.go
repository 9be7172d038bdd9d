package llm

import (
	"fmt"
	"strings"

	"sevenms-engine/internal/engine"
)

// SystemPromptNarration frames the narrator role. The narration is
// commentary for the reviewer; it never feeds back into detection or
// sizing.
const SystemPromptNarration = `You are a price action trading assistant. You explain the output of an automated market structure analysis to the trader reviewing it.

The analysis follows a fixed sequence: swing points, liquidity sweep, market structure shift, point of interest, trade plan. You receive the facts the engine found and you describe them in plain trading language.

Rules:
- 3 to 5 sentences, no headings, no bullet points.
- Describe only what is in the data. Never invent levels or indicators.
- If no setup was found, explain which step stopped the analysis and what that means.
- Do not give financial advice, predictions, or confidence scores.`

// BuildRunPrompt renders one analysis result as the narration user
// prompt
func BuildRunPrompt(res *engine.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Symbol: %s\nTimeframe: %s\nBars analyzed: %d\n", res.Symbol, res.Timeframe, res.BarCount)
	fmt.Fprintf(&b, "Outcome: %s at step %q", res.Verdict, res.Stage)
	if res.Detail != "" {
		fmt.Fprintf(&b, " (%s)", res.Detail)
	}
	b.WriteString("\n")

	if n := len(res.Swings); n > 0 {
		last := res.Swings[n-1]
		fmt.Fprintf(&b, "Swing points: %d confirmed, most recent %s at %g\n", n, last.Kind, last.Price)
	}
	if res.Sweep != nil {
		fmt.Fprintf(&b, "Liquidity sweep: %s, swept the %g swing with a wick to %g\n",
			res.Sweep.Direction, res.Sweep.Swing.Price, res.Sweep.Extreme)
	}
	if res.Shift != nil {
		fmt.Fprintf(&b, "Structure shift: closed through %g with displacement %g\n",
			res.Shift.BreakLevel, res.Shift.Displacement)
	}
	if res.POI != nil {
		zone := "zone"
		if res.POI.Degraded {
			zone = "degraded sweep-bar zone"
		}
		fmt.Fprintf(&b, "Point of interest: %s %s between %g and %g\n",
			res.POI.Mode, zone, res.POI.ZoneLow, res.POI.ZoneHigh)
	}
	if res.Plan != nil {
		fmt.Fprintf(&b, "Plan: %s entry %g, stop %g, size %g, targets %v\n",
			res.Plan.Direction, res.Plan.Entry, res.Plan.StopLoss, res.Plan.Size, res.Plan.TakeProfits)
		if res.Plan.Size <= 0 {
			b.WriteString("Note: position size floored to zero under the current risk settings\n")
		}
	}
	if n := len(res.Imbalances); n > 0 {
		fmt.Fprintf(&b, "Unfilled imbalances on the chart: %d\n", n)
	}

	return b.String()
}
