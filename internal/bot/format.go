package bot

import (
	"fmt"
	"strings"

	"github.com/example/studydeck/internal/review"
	"github.com/example/studydeck/pkg/models"
)

// qualityLabels are the button captions for grades 0-5
var qualityLabels = [6]string{
	"0 · Blackout",
	"1 · Wrong",
	"2 · Almost",
	"3 · Hard",
	"4 · Good",
	"5 · Easy",
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func kindLabel(kind models.ItemKind) string {
	return strings.ReplaceAll(string(kind), "_", " ")
}

// formatCardFront renders the question side of the current session card
func formatCardFront(session *review.Session, item models.ReviewItem) string {
	return fmt.Sprintf("🃏 Card %d of %d (%s)\n\n❓ %s",
		session.Position()+1, session.Len(), kindLabel(item.Kind), item.Question)
}

// formatCardBack adds the answer to the question side
func formatCardBack(session *review.Session, item models.ReviewItem, showSource bool) string {
	var sb strings.Builder
	sb.WriteString(formatCardFront(session, item))
	sb.WriteString("\n\n💡 ")
	sb.WriteString(item.Answer)
	if showSource {
		if source := formatSource(item); source != "" {
			sb.WriteString("\n\n")
			sb.WriteString(source)
		}
	}
	sb.WriteString("\n\nHow well did you remember it?")
	return sb.String()
}

func formatSource(item models.ReviewItem) string {
	switch {
	case item.Source != "" && item.Location > 0:
		return fmt.Sprintf("📄 %s, page %d", item.Source, item.Location)
	case item.Source != "":
		return "📄 " + item.Source
	}
	return ""
}

// formatGradeResult tells the user when the card comes back
func formatGradeResult(res *review.GradeResult) string {
	mark := "✅"
	if !res.IsCorrect {
		mark = "🔁"
	}
	return fmt.Sprintf("%s Next review in %s (%s), easiness %.2f",
		mark, pluralize(res.IntervalDays, "day", "days"), res.DueDate.String(), res.Easiness)
}

// formatSubjectStats renders one subject's progress
func formatSubjectStats(name string, stats *models.SubjectStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📘 %s\n", name)
	fmt.Fprintf(&sb, "  Items: %d, due: %d, mastered: %d\n", stats.TotalItems, stats.DueItems, stats.MasteredItems)
	if stats.TotalItems > 0 {
		fmt.Fprintf(&sb, "  Average easiness: %.2f\n", stats.AvgEasiness)
	}
	fmt.Fprintf(&sb, "  Attempts: %d, correct: %d", stats.TotalAttempts, stats.CorrectAttempts)
	if stats.TotalAttempts > 0 {
		fmt.Fprintf(&sb, " (%.0f%%)", stats.Accuracy()*100)
	}
	return sb.String()
}

// formatReminder is the text of a due-items reminder
func formatReminder(count int) string {
	return fmt.Sprintf("⏰ You have %s due for review! Use /subjects to start a session.",
		pluralize(count, "card", "cards"))
}

// formatCardLine is one row of the /cards listing
func formatCardLine(n int, item models.ReviewItem, total, correct int, mastered, due bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d. %s\n   ", n, item.Question)
	if total == 0 {
		sb.WriteString("not answered yet")
	} else {
		fmt.Fprintf(&sb, "%d/%d correct (%.0f%%)", correct, total, float64(correct)/float64(total)*100)
	}
	if due {
		sb.WriteString(" · due now")
	} else {
		fmt.Fprintf(&sb, " · next %s", item.DueDate.String())
	}
	if mastered {
		sb.WriteString(" · ⭐ mastered")
	}
	return sb.String()
}

// formatCardDetail shows one card with its latest attempts, newest first
func formatCardDetail(item models.ReviewItem, attempts []models.Attempt, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🃏 %s\n💡 %s\n\n", item.Question, item.Answer)
	fmt.Fprintf(&sb, "Interval: %s, easiness %.2f, repetitions %d, lapses %d\nNext review: %s",
		pluralize(item.IntervalDays, "day", "days"), item.Easiness, item.Repetitions, item.LapseCount, item.DueDate.String())
	if len(attempts) == 0 {
		return sb.String()
	}

	sb.WriteString("\n\nRecent answers:")
	for i := len(attempts) - 1; i >= 0 && len(attempts)-i <= limit; i-- {
		a := attempts[i]
		mark := "✅"
		if !a.IsCorrect {
			mark = "❌"
		}
		fmt.Fprintf(&sb, "\n%s %s, grade %d", mark, a.CreatedAt.Format("2006-01-02 15:04"), a.Quality)
	}
	return sb.String()
}
