package notifier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"HammerScanner/internal/model"
)

// DefaultEmoji is used for categories missing from the emoji table.
const DefaultEmoji = "📈"

// DefaultCategoryEmoji is the stock category table.
func DefaultCategoryEmoji() map[string]string {
	return map[string]string{
		"CRYPTO":     "🚀",
		"SAHAM_INDO": "🇮🇩",
		"SAHAM_US":   "🇺🇸",
		"FOREX":      "💱",
		"GOLD":       "🥇",
	}
}

// Formatter renders signals and summaries. It is built from configuration at startup.
type Formatter struct {
	Emoji map[string]string
}

// NewFormatter copies the emoji table; a nil table selects the defaults.
func NewFormatter(emoji map[string]string) *Formatter {
	if emoji == nil {
		emoji = DefaultCategoryEmoji()
	}
	table := make(map[string]string, len(emoji))
	for k, v := range emoji {
		table[strings.ToUpper(k)] = v
	}
	return &Formatter{Emoji: table}
}

func (f *Formatter) emojiFor(category string) string {
	if e, ok := f.Emoji[strings.ToUpper(category)]; ok && e != "" {
		return e
	}
	return DefaultEmoji
}

// FormatPrice renders two decimals above 1 and six decimals otherwise.
// Rounding works on the exact binary value, so 1.005 prints as 1.00.
func FormatPrice(price float64) string {
	places := 6
	if price > 1 {
		places = 2
	}
	return strconv.FormatFloat(price, 'f', places, 64)
}

// FormatSignal renders one signal as a Markdown chat message.
func (f *Formatter) FormatSignal(sig *model.Signal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s **SIGNAL %s**\n", f.emojiFor(sig.Category), sig.Category))
	b.WriteString(fmt.Sprintf("Symbol: `%s`\n", sig.Symbol))
	b.WriteString(fmt.Sprintf("Price: `%s`\n", FormatPrice(sig.Price)))
	b.WriteString(fmt.Sprintf("RSI: `%.2f`\n", sig.Momentum))
	b.WriteString(fmt.Sprintf("TF: `%s`\n", sig.Timeframe))
	b.WriteString(fmt.Sprintf("Note: %s", sig.Note))
	return b.String()
}

// FormatSummary renders the end-of-scan message.
func (f *Formatter) FormatSummary(s model.ScanSummary, skipReasons map[string]int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 **SCAN SELESAI** | %s\n", s.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Mode: `%s`\n", s.Mode))
	b.WriteString(fmt.Sprintf("Scanned: `%d` | Signals: `%d` | Skipped: `%d`\n", s.Scanned, s.Signals, s.Skipped))
	if s.NotifyErrs > 0 {
		b.WriteString(fmt.Sprintf("Delivery errors: `%d`\n", s.NotifyErrs))
	}
	if len(skipReasons) > 0 {
		reasons := make([]string, 0, len(skipReasons))
		for r := range skipReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			b.WriteString(fmt.Sprintf("  • %s: %d\n", r, skipReasons[r]))
		}
	}
	b.WriteString(fmt.Sprintf("Duration: %s", s.Duration().Round(time.Second)))
	return b.String()
}

// FormatUniverse lists the configured instruments grouped by category, in configured order.
func FormatUniverse(instruments []model.Instrument) string {
	var b strings.Builder
	b.WriteString("📋 **UNIVERSE**\n")
	last := ""
	for _, inst := range instruments {
		if inst.Category != last {
			b.WriteString(fmt.Sprintf("\n%s (%s, %s):\n", inst.Category, inst.Source, inst.Interval))
			last = inst.Category
		}
		b.WriteString(fmt.Sprintf("  `%s`\n", inst.Symbol))
	}
	return b.String()
}
