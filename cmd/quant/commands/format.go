package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/wonny/bistpro/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	lockBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

var candidateColumns = []string{"#", "Code", "Price", "Score", "RSI", "P/E", "P/B", "Stop", "TP1", "TP2", "Sector"}

// renderCandidates renders the ranked table
func renderCandidates(cands []contracts.ScoredCandidate) string {
	rows := make([][]string, len(cands))
	for i, c := range cands {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			c.Code,
			money(c.Price),
			strconv.Itoa(c.Score),
			fmt.Sprintf("%.1f", c.RSI),
			ratio(c.EarningsMultiple),
			ratio(c.BookMultiple),
			money(c.StopLoss),
			money(c.TakeProfit1),
			money(c.TakeProfit2),
			c.Sector,
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(candidateColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 3 {
				return cellStyle.Inherit(scoreStyle(cands[row].Score))
			}
			return cellStyle
		})

	return t.String()
}

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return goodStyle
	case score >= 60:
		return warnStyle
	default:
		return mutedStyle
	}
}

// renderLock renders the lock banner
func renderLock(lock contracts.LockState, sel *contracts.PortfolioSelection) string {
	if sel == nil {
		return lockBoxStyle.BorderForeground(lipgloss.Color("42")).
			Render(goodStyle.Render("OPEN") + "  no active selection")
	}

	since := "since " + sel.StartDate.Format(contracts.DateLayout)
	if !lock.Locked {
		return lockBoxStyle.BorderForeground(lipgloss.Color("42")).
			Render(goodStyle.Render("OPEN") + "  holding period complete, " + since)
	}
	return lockBoxStyle.BorderForeground(lipgloss.Color("196")).
		Render(badStyle.Render("LOCKED") + fmt.Sprintf("  %d days remaining, %s", lock.DaysRemaining, since))
}

// progressBar renders a fixed-width bar for fraction in [0, 1]
func progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return goodStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", fraction*100)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func ratio(r contracts.Ratio) string {
	if !r.Known() {
		return mutedStyle.Render("n/a")
	}
	return fmt.Sprintf("%.1f", r.Float64())
}

// PrintTitle prints a styled section title
func PrintTitle(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(title))
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintln(w, warnStyle.Render("⚠️  "+message))
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintln(w, goodStyle.Render("✅ "+message))
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintln(w, badStyle.Render("❌ "+message))
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}
