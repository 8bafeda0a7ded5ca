package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/evseev/channelgate/internal/domain"
)

// User-facing texts for the background jobs. Only Russian and English
// are shipped; anything else falls back to Russian, matching the bot's
// primary audience.

func isEnglish(lang string) bool {
	return strings.HasPrefix(lang, "en")
}

func renewButtonText(lang string) string {
	if isEnglish(lang) {
		return "🔄 Renew"
	}
	return "🔄 Продлить"
}

func expiredText(lang, title string) string {
	if isEnglish(lang) {
		return fmt.Sprintf(
			"⛔ Your subscription to <b>%s</b> has expired and access has been revoked.\n\nRenew to get back in.",
			title)
	}
	return fmt.Sprintf(
		"⛔ Ваша подписка на <b>%s</b> истекла, доступ закрыт.\n\nПродлите подписку, чтобы вернуться.",
		title)
}

func expiryWindowText(lang string, w domain.Window, title string, expiresAt time.Time) string {
	left := windowLabel(lang, w)
	when := expiresAt.UTC().Format("02.01.2006 15:04")
	if isEnglish(lang) {
		return fmt.Sprintf(
			"⏰ Your subscription to <b>%s</b> expires in %s (on %s UTC).\n\nRenew now to keep your access.",
			title, left, when)
	}
	return fmt.Sprintf(
		"⏰ Ваша подписка на <b>%s</b> истекает через %s (%s UTC).\n\nПродлите сейчас, чтобы не потерять доступ.",
		title, left, when)
}

func windowLabel(lang string, w domain.Window) string {
	if isEnglish(lang) {
		switch w {
		case domain.Window3Days:
			return "3 days"
		case domain.Window1Day:
			return "1 day"
		case domain.Window3Hrs:
			return "3 hours"
		}
		return string(w)
	}
	switch w {
	case domain.Window3Days:
		return "3 дня"
	case domain.Window1Day:
		return "1 день"
	case domain.Window3Hrs:
		return "3 часа"
	}
	return string(w)
}

func accessGrantedText(lang, title string, days int, links []string) string {
	var b strings.Builder
	if isEnglish(lang) {
		fmt.Fprintf(&b, "✅ Payment received! Your subscription to <b>%s</b> is active for %d days.\n", title, days)
		if len(links) > 0 {
			b.WriteString("\nYour invite links (single use, valid 24 hours):\n")
		}
	} else {
		fmt.Fprintf(&b, "✅ Оплата получена! Подписка на <b>%s</b> активна %d дней.\n", title, days)
		if len(links) > 0 {
			b.WriteString("\nВаши ссылки-приглашения (одноразовые, действуют 24 часа):\n")
		}
	}
	for _, link := range links {
		b.WriteString(link)
		b.WriteByte('\n')
	}
	return b.String()
}

// weeklyReportText renders the admin summary. Admin messages are
// Russian only.
func weeklyReportText(r *domain.WeeklyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Отчёт за неделю</b>\n%s — %s\n\n",
		r.From.UTC().Format("02.01.2006"), r.To.UTC().Format("02.01.2006"))
	fmt.Fprintf(&b, "👤 Новых пользователей: %d (всего %d)\n", r.NewUsers, r.TotalUsers)
	fmt.Fprintf(&b, "📝 Новых подписок: %d (активных %d)\n", r.NewSubscriptions, r.ActiveSubscriptions)
	fmt.Fprintf(&b, "💰 Платежей: %d на сумму %s\n", r.PaymentsCount, r.PaymentsAmount.String())

	if len(r.TopChannels) > 0 {
		b.WriteString("\n🏆 Топ каналов по активным подпискам:\n")
		for i, cc := range r.TopChannels {
			fmt.Fprintf(&b, "%d. %s — %d\n", i+1, cc.Title, cc.Count)
		}
	}
	return b.String()
}
