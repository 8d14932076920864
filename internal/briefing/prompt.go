package briefing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"snowbrief/internal/config"
	"snowbrief/internal/types"
)

// historyDays is how far back the daily weather narrative reaches; the most
// recent detailDays of those are rendered individually.
const (
	historyDays = 14
	detailDays  = 7

	// snowDayThreshold is the snowfall (inches) above which a day counts as
	// a "snow day" in the history summary.
	snowDayThreshold = 0.5

	hourlyWindow = 24
)

// PromptInputs carries everything the composer needs to render one prompt.
type PromptInputs struct {
	Center    string
	Zone      string
	Forecast  *types.ForecastRecord
	Weather   *types.WeatherSnapshot
	Staleness *StalenessAssessment
}

// PromptComposer deterministically renders the generation prompt from typed
// inputs. The prompt carries both the data payload and the behavioral
// contract the model must follow; the contract variant ("standard" or
// "mentor") is a policy value, not a separate code path.
type PromptComposer struct {
	style string
	clock types.Clock
}

// NewPromptComposer creates a composer for the given contract style.
func NewPromptComposer(style string, clock types.Clock) *PromptComposer {
	return &PromptComposer{style: style, clock: clock}
}

// Compose renders the full prompt. Sections appear in a fixed order: persona,
// structured facts, staleness (when stale), weather (when available),
// official product (when enriched), output contract, authoring rules.
func (c *PromptComposer) Compose(in PromptInputs) string {
	var b strings.Builder

	c.writePersona(&b)

	b.WriteString("\nCreate a briefing for the following avalanche forecast:\n\n")
	c.writeFacts(&b, in)
	c.writeStaleness(&b, in.Staleness)
	c.writeWeather(&b, in.Weather)
	c.writeOfficialProduct(&b, in.Forecast)
	c.writeOutputContract(&b, in)
	c.writeAuthoringRules(&b)

	b.WriteString("\nIMPORTANT: Return ONLY valid JSON, no additional text before or after.")
	return b.String()
}

func (c *PromptComposer) writePersona(b *strings.Builder) {
	if c.style == config.PromptStyleMentor {
		b.WriteString("You are a pocket avalanche mentor: a backcountry avalanche educator who summarizes official forecast and weather data for recreational skiers and snowboarders. You summarize and cite -- you NEVER make go/no-go decisions for the reader, and you never present your own judgment as an official rating.\n")
		return
	}
	b.WriteString("You are a backcountry avalanche safety expert who teaches recreational skiers and snowboarders about avalanche conditions in a clear, educational way.\n")
}

func (c *PromptComposer) writeFacts(b *strings.Builder, in PromptInputs) {
	f := in.Forecast

	fmt.Fprintf(b, "**Location:** %s, %s\n", in.Zone, in.Center)
	fmt.Fprintf(b, "**Overall Danger Level:** %s\n", dangerText(&f.DangerOverall))
	b.WriteString("**Danger by Elevation:**\n")
	fmt.Fprintf(b, "- Above Treeline: %s\n", dangerText(f.DangerHigh))
	fmt.Fprintf(b, "- Near Treeline: %s\n", dangerText(f.DangerMiddle))
	fmt.Fprintf(b, "- Below Treeline: %s\n", dangerText(f.DangerLow))

	advice := f.TravelAdvice
	if advice == "" {
		advice = "No specific advice provided"
	}
	fmt.Fprintf(b, "**Official Travel Advice:** %s\n", advice)
}

func (c *PromptComposer) writeStaleness(b *strings.Builder, assessment *StalenessAssessment) {
	if assessment == nil || !assessment.IsStale {
		return
	}

	published := c.clock.Now().Add(-assessment.Elapsed).UTC()
	b.WriteString("\n--- DATA FRESHNESS WARNING ---\n")
	fmt.Fprintf(b, "The official forecast was published %.0f hours ago (at %s) and may no longer reflect current conditions. State this limitation clearly in the briefing and urge the reader to check for an updated forecast.\n",
		assessment.ElapsedHours(), published.Format(time.RFC3339))
}

// writeWeather renders the weather context: 14-day history, current
// conditions, today's forecast, and the next-24-hour trend. Sub-blocks that
// would require indexing a missing or misaligned series are omitted entirely
// rather than rendered with zero values.
func (c *PromptComposer) writeWeather(b *strings.Builder, w *types.WeatherSnapshot) {
	if w == nil {
		return
	}

	b.WriteString("\n--- WEATHER DATA ---\n")

	today := types.CalendarDate(c.clock.Now())
	todayIndex := -1
	if w.Daily.Aligned() {
		for i, date := range w.Daily.Time {
			if date == today {
				todayIndex = i
				break
			}
		}
	}

	if todayIndex > 0 {
		c.writeWeatherHistory(b, &w.Daily, todayIndex)
	}

	c.writeCurrentConditions(b, &w.Current)

	if todayIndex >= 0 {
		c.writeTodayForecast(b, &w.Daily, todayIndex)
	}

	c.writeNext24Hours(b, &w.Hourly)
}

func (c *PromptComposer) writeWeatherHistory(b *strings.Builder, daily *types.DailySeries, todayIndex int) {
	start := todayIndex - historyDays
	if start < 0 {
		start = 0
	}

	dates := daily.Time[start:todayIndex]
	snow := daily.SnowfallSum[start:todayIndex]
	highs := daily.TemperatureMax[start:todayIndex]
	gusts := daily.WindGustsMax[start:todayIndex]

	var totalSnow, tempSum, maxGust float64
	snowDays := 0
	for i := range dates {
		totalSnow += snow[i]
		tempSum += highs[i]
		maxGust = math.Max(maxGust, gusts[i])
		if snow[i] > snowDayThreshold {
			snowDays++
		}
	}

	fmt.Fprintf(b, `**Past %d Days (Recent Weather History):**
- Total snowfall: %.1f"
- Average high temperature: %.0f°F
- Max wind gusts: %.0f mph
- Snow days: %d days with >%.1f" snow

**Day-by-day recent history:**`,
		len(dates), totalSnow, tempSum/float64(len(dates)), maxGust, snowDays, snowDayThreshold)

	detail := detailDays
	if len(dates) < detail {
		detail = len(dates)
	}
	for i := len(dates) - detail; i < len(dates); i++ {
		daysAgo := len(dates) - i
		label := dates[i]
		if parsed, err := time.Parse("2006-01-02", dates[i]); err == nil {
			label = parsed.Format("Mon Jan 2")
		}
		fmt.Fprintf(b, "\n- %s (%dd ago): %.1f\" snow, High %.0f°F, Wind gusts %.0f mph",
			label, daysAgo, snow[i], highs[i], gusts[i])
	}

	b.WriteString("\n\n")
}

func (c *PromptComposer) writeCurrentConditions(b *strings.Builder, cur *types.CurrentConditions) {
	precip := "None"
	if cur.Precipitation > 0 {
		precip = fmt.Sprintf("%.2f\"", cur.Precipitation)
	}

	fmt.Fprintf(b, `**Current Conditions:**
- Temperature: %.0f°F (Feels like %.0f°F)
- Weather: %s
- Wind: %.0f mph %s (gusts %.0f mph)
- Humidity: %.0f%%
- Cloud Cover: %.0f%%
- Current Precipitation: %s
- Barometric Pressure: %.0f mb
`,
		cur.Temperature, cur.FeelsLike, cur.WeatherDescription,
		cur.WindSpeed, cur.WindDirectionCardinal, cur.WindGusts,
		cur.Humidity, cur.CloudCover, precip, cur.Pressure)
}

func (c *PromptComposer) writeTodayForecast(b *strings.Builder, daily *types.DailySeries, i int) {
	fmt.Fprintf(b, `
**Today's Forecast:**
- High/Low: %.0f°F / %.0f°F
- Precipitation: %.2f" (%.0f%% chance)
- Snowfall: %.1f"
- Max Wind: %.0f mph (gusts %.0f mph)
- UV Index: %.1f
`,
		daily.TemperatureMax[i], daily.TemperatureMin[i],
		daily.PrecipitationSum[i], daily.PrecipitationProbabilityMax[i],
		daily.SnowfallSum[i],
		daily.WindSpeedMax[i], daily.WindGustsMax[i],
		daily.UVIndexMax[i])
}

// writeNext24Hours summarizes the hourly window starting at the first
// timestamp at or after now. Hourly timestamps arrive zone-local without an
// offset ("2006-01-02T15:04").
func (c *PromptComposer) writeNext24Hours(b *strings.Builder, hourly *types.HourlySeries) {
	now := c.clock.Now()

	startIndex := -1
	for i, raw := range hourly.Time {
		parsed, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			continue
		}
		if !parsed.Before(now) {
			startIndex = i
			break
		}
	}
	if startIndex < 0 {
		return
	}

	end := startIndex + hourlyWindow
	if end > len(hourly.Time) {
		end = len(hourly.Time)
	}
	if end > len(hourly.Temperature) || end > len(hourly.Snowfall) ||
		end > len(hourly.WindSpeed) || end > len(hourly.PrecipitationProbability) {
		return
	}

	minTemp, maxTemp := hourly.Temperature[startIndex], hourly.Temperature[startIndex]
	var totalSnow, maxWind, maxPrecipProb float64
	for i := startIndex; i < end; i++ {
		minTemp = math.Min(minTemp, hourly.Temperature[i])
		maxTemp = math.Max(maxTemp, hourly.Temperature[i])
		totalSnow += hourly.Snowfall[i]
		maxWind = math.Max(maxWind, hourly.WindSpeed[i])
		maxPrecipProb = math.Max(maxPrecipProb, hourly.PrecipitationProbability[i])
	}

	fmt.Fprintf(b, `
**Next 24 Hours Trends:**
- Temperature range: %.0f°F - %.0f°F
- Expected snow: %.1f"
- Max wind speed: %.0f mph
- Precipitation probability: %.0f%%
`,
		minTemp, maxTemp, totalSnow, maxWind, maxPrecipProb)
}

func (c *PromptComposer) writeOfficialProduct(b *strings.Builder, f *types.ForecastRecord) {
	if !f.HasProductData {
		return
	}

	b.WriteString("\n--- OFFICIAL FORECAST DATA ---\n")

	if f.BottomLine != nil && *f.BottomLine != "" {
		fmt.Fprintf(b, "\n**Bottom Line (from forecasters):**\n%s\n", StripMarkup(*f.BottomLine))
	}
	if f.HazardDiscussion != nil && *f.HazardDiscussion != "" {
		fmt.Fprintf(b, "\n**Hazard Discussion:**\n%s\n", StripMarkup(*f.HazardDiscussion))
	}
	if f.WeatherDiscussion != nil && *f.WeatherDiscussion != "" {
		fmt.Fprintf(b, "\n**Weather Discussion:**\n%s\n", StripMarkup(*f.WeatherDiscussion))
	}

	if len(f.Problems) > 0 {
		b.WriteString("\n**Official Avalanche Problems:**\n")
		for i, problem := range f.Problems {
			name := problem.Name
			if name == "" {
				name = "Unknown Problem"
			}
			likelihood := problem.Likelihood
			if likelihood == "" {
				likelihood = "Not specified"
			}
			minSize := problem.MinSize
			if minSize == "" {
				minSize = "Small"
			}
			maxSize := problem.MaxSize
			if maxSize == "" {
				maxSize = "Large"
			}

			fmt.Fprintf(b, "\n%d. %s\n", i+1, name)
			fmt.Fprintf(b, "   Likelihood: %s\n", likelihood)
			fmt.Fprintf(b, "   Size: %s to %s\n", minSize, maxSize)
			if problem.Discussion != "" {
				fmt.Fprintf(b, "   Discussion: %s\n", StripMarkup(problem.Discussion))
			}
			if len(problem.Location) > 0 {
				fmt.Fprintf(b, "   Affected Areas: %s\n", strings.Join(problem.Location, ", "))
			}
		}
	}

	if len(f.Media) > 0 {
		fmt.Fprintf(b, "\n**Field Photos Available:** %d photos with observations\n", len(f.Media))
		for i, photo := range f.Media {
			if photo.Caption != "" {
				fmt.Fprintf(b, "  Photo %d: %s\n", i+1, StripMarkup(photo.Caption))
			}
		}
	}
}

func (c *PromptComposer) writeOutputContract(b *strings.Builder, in PromptInputs) {
	b.WriteString("\nYour response must be valid JSON in this exact format:\n")

	if c.style == config.PromptStyleMentor {
		fmt.Fprintf(b, `{
  "briefing": "2-3 paragraph briefing text here",
  "sourceUrl": "%s",
  "sourceCenter": "%s",
  "disclaimer": "One sentence reminding the reader this is an educational summary, not the official forecast, and that conditions can change.",
  "problems": [
    {
      "name": "Problem name (e.g., Wind Slabs, Persistent Slab, Wet Snow)",
      "description": "1-2 paragraph educational explanation of this problem.",
      "likelihood": "Possible/Likely/Very Likely/Almost Certain",
      "size": "Small/Medium/Large/Very Large",
      "officialSource": true
    }
  ],
  "fieldObservationPrompts": ["A short question the reader can answer in the field to test the forecast, e.g. 'Are you seeing shooting cracks on wind-loaded rolls?'"]
}

The "sourceUrl", "sourceCenter" and "disclaimer" fields are MANDATORY. Set "officialSource" to true only for problems taken from the official forecast data above.
`, in.Forecast.URL, in.Center)
	} else {
		b.WriteString(`{
  "briefing": "2-3 paragraph briefing text here",
  "problems": [
    {
      "name": "Problem name (e.g., Wind Slabs, Persistent Slab, Wet Snow)",
      "description": "1-2 paragraph educational explanation of this problem. Explain what it is, why it's happening, what terrain to avoid, and what signs to look for. Use analogies and simple language.",
      "likelihood": "Possible/Likely/Very Likely/Almost Certain",
      "size": "Small/Medium/Large/Very Large"
    }
  ]
}
`)
	}
}

func (c *PromptComposer) writeAuthoringRules(b *strings.Builder) {
	b.WriteString(`
For the briefing field:
1. Explain what the danger level means in practical terms
2. Teach WHY these conditions exist (weather patterns, snowpack structure, etc.)
3. Analyze the past 14 days of weather history to explain HOW the current snowpack was built: storm cycles and loading, wind events that built slabs, temperature swings that created crusts or facets
4. Explain the relationship between PAST weather and CURRENT avalanche problems
5. Connect current conditions and the near-term forecast to the existing snowpack structure
6. Provide terrain-selection context based on the forecast and weather history
7. Use analogies or simple explanations to help beginners understand
8. If official forecast data is provided above, USE IT as your primary source of information

For the problems array:
- If official avalanche problems are provided above, USE THOSE as your base and translate the discussions into beginner-friendly language
- If no official problems are provided, identify 1-3 most likely problems for these conditions
- Be specific about terrain features, aspects, and elevations
- Explain warning signs (sounds, cracks, recent avalanches, etc.)
- If field photo observations are provided, incorporate those details

Keep it conversational, like a knowledgeable friend explaining conditions. Avoid jargon unless you explain it.
`)

	if c.style == config.PromptStyleMentor {
		b.WriteString(`
Additional rules under the mentor contract:
- Attribute every factual claim to its source: official forecast statements versus weather data observations
- NEVER tell the reader whether to go or not to go; describe conditions and let them decide
- Do not invent danger ratings, observations, or closures that are not present in the data above
- The disclaimer must remind the reader to read the official forecast at the source URL before traveling
`)
	}

	b.WriteString("\nIMPORTANT: When official forecast data is available, your briefing should be based on that professional analysis, not speculation.\n")
}

// dangerText renders a danger rating for the prompt: nil means the band was
// not assessed ("No Data"), which is distinct from -1 ("No Rating (-1/5)").
func dangerText(level *types.DangerLevel) string {
	if level == nil {
		return "No Data"
	}
	return fmt.Sprintf("%s (%d/5)", level.Label(), int(*level))
}
