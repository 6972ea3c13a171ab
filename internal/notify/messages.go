package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/samber/lo"
)

func route(key models.MonitorKey) string {
	return fmt.Sprintf("%s ↔ %s", key.Origin, key.Destination)
}

func footer(key models.MonitorKey, link string) []string {
	if link == "" {
		link = key.SearchURL()
	}
	return []string{
		"",
		fmt.Sprintf("📅 %s → %s", models.FormatDate(key.DepartDate), models.FormatDate(key.ReturnDate)),
		fmt.Sprintf("🔗 [네이버 항공권](%s)", link),
	}
}

func title(mode models.NotificationMode, key models.MonitorKey) string {
	switch mode {
	case models.NotifyAnyChange:
		return fmt.Sprintf("📊 *%s 가격 변동 알림*", route(key))
	case models.NotifyTargetPrice:
		return fmt.Sprintf("🎯 *%s 목표가 도달 알림*", route(key))
	case models.NotifyHistoricalLow:
		return fmt.Sprintf("🏆 *%s 역대 최저가 갱신*", route(key))
	}
	return fmt.Sprintf("📉 *%s 가격 하락 알림*", route(key))
}

func signedDelta(d int) string {
	if d < 0 {
		return "-" + models.FormatPrice(-d) + "원"
	}
	return "+" + models.FormatPrice(d) + "원"
}

func priceLine(t Trigger) string {
	if t.Old <= 0 {
		return fmt.Sprintf("💰 *%s원*", models.FormatPrice(t.New))
	}
	return fmt.Sprintf("💰 %s원 → *%s원* (%s)", models.FormatPrice(t.Old), models.FormatPrice(t.New), signedDelta(t.Delta()))
}

// PriceAlert renders one message covering every trigger of the decision.
func PriceAlert(key models.MonitorKey, d Decision, res *models.FetchResult) string {
	lines := []string{title(d.Mode, key)}

	if t, ok := d.Trigger(LineRestricted); ok {
		lines = append(lines, "", "🎯 *시간 제한 적용 최저가*", priceLine(t), res.RestrictedDetail)
	}
	if t, ok := d.Trigger(LineOverall); ok {
		lines = append(lines, "", "📌 *전체 최저가*", priceLine(t), res.OverallDetail)
	}
	if d.Mode == models.NotifyTargetPrice && len(d.Triggers) > 0 {
		lines = append(lines, "", fmt.Sprintf("목표가: %s원", models.FormatPrice(d.Triggers[0].Reference)))
	}
	if d.Mode == models.NotifyHistoricalLow && len(d.Triggers) > 0 {
		lines = append(lines, "", fmt.Sprintf("이전 최저가: %s원", models.FormatPrice(d.Triggers[0].Reference)))
	}

	return strings.Join(append(lines, footer(key, res.SourceURL)...), "\n")
}

// NoMatchNotice tells the user that flights matching the time constraint are
// gone.
func NoMatchNotice(key models.MonitorKey, pref *models.UserPreference) string {
	lines := []string{
		fmt.Sprintf("ℹ️ *%s 항공권 알림*", route(key)),
		"",
		"현재 설정하신 시간 조건에 맞는 항공권이 없습니다.",
		"• 가는 편 시간: " + pref.FormatTimeRange(models.Outbound),
		"• 오는 편 시간: " + pref.FormatTimeRange(models.Inbound),
		"시간 설정을 변경하시려면 /settings 명령어를 사용해주세요.",
	}
	return strings.Join(append(lines, footer(key, "")...), "\n")
}

func MonitorCreated(key models.MonitorKey, st *models.MonitorState, pref *models.UserPreference, interval time.Duration) string {
	lines := []string{
		fmt.Sprintf("✅ *%s 모니터링 시작*", route(key)),
		"",
		"⚙️ *적용된 시간 조건*",
		"• 가는 편: " + pref.FormatTimeRange(models.Outbound),
		"• 오는 편: " + pref.FormatTimeRange(models.Inbound),
		"",
	}
	if st.Restricted > 0 {
		lines = append(lines, "🎯 *시간 제한 적용 최저가*", st.RestrictedDetail, "")
	} else {
		lines = append(lines, "🎯 *시간 제한 적용 최저가*", "조건에 맞는 항공권이 없습니다.", "")
	}
	if st.Overall > 0 {
		lines = append(lines, "📌 *전체 최저가*", st.OverallDetail, "")
	}
	lines = append(lines,
		"🔔 알림 조건: "+pref.FormatNotificationSetting(),
		"📢 알림 대상: "+pref.FormatScope(),
		fmt.Sprintf("⏱️ %d분마다 가격을 확인합니다.", int(interval.Minutes())),
	)
	return strings.Join(append(lines, footer(key, st.SourceURL)...), "\n")
}

func Settings(pref *models.UserPreference) string {
	return strings.Join([]string{
		"⚙️ *현재 설정*",
		"",
		"• 가는 편: " + pref.FormatTimeRange(models.Outbound),
		"• 오는 편: " + pref.FormatTimeRange(models.Inbound),
		"• 알림 조건: " + pref.FormatNotificationSetting(),
		"• 알림 대상: " + pref.FormatScope(),
		fmt.Sprintf("• 알림 주기: %d분", pref.IntervalMinutes),
	}, "\n")
}

// StatusEntry is one monitor listed in a status message.
type StatusEntry struct {
	Key   models.MonitorKey
	State *models.MonitorState
}

func StatusList(entries []StatusEntry, now time.Time, loc *time.Location) string {
	if len(entries) == 0 {
		return "현재 실행 중인 모니터링이 없습니다."
	}
	lines := []string{"📋 *모니터링 현황*"}
	for i, e := range entries {
		prices := make([]string, 0, 2)
		if e.State.Restricted > 0 {
			prices = append(prices, fmt.Sprintf("조건부: %s원", models.FormatPrice(e.State.Restricted)))
		}
		if e.State.Overall > 0 {
			prices = append(prices, fmt.Sprintf("전체: %s원", models.FormatPrice(e.State.Overall)))
		}
		priceInfo := "조회된 가격 없음"
		if len(prices) > 0 {
			priceInfo = strings.Join(prices, " / ")
		}

		elapsed := "-"
		if start, err := e.State.StartedAt(loc); err == nil {
			elapsed = fmt.Sprintf("%d일째 진행 중", int(now.Sub(start).Hours()/24))
		}

		lines = append(lines,
			"",
			fmt.Sprintf("*%d. %s*", i+1, route(e.Key)),
			fmt.Sprintf("📅 %s → %s", models.FormatShortDate(e.Key.DepartDate), models.FormatShortDate(e.Key.ReturnDate)),
			"💰 "+priceInfo,
			"⏱️ "+elapsed,
			"🔄 마지막 조회: "+e.State.LastFetch,
			fmt.Sprintf("[🔗 네이버 항공권](%s)", e.Key.SearchURL()),
		)
	}
	return strings.Join(lines, "\n")
}

// AdminStatusList groups every monitor by owner for administrators.
func AdminStatusList(entries []StatusEntry, now time.Time, loc *time.Location) string {
	if len(entries) == 0 {
		return "현재 실행 중인 모니터링이 없습니다."
	}
	byUser := lo.GroupBy(entries, func(e StatusEntry) int64 { return e.Key.UserID })
	users := lo.Keys(byUser)
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	lines := []string{fmt.Sprintf("👥 *전체 모니터링 현황* (%d명, %d건)", len(users), len(entries))}
	for _, uid := range users {
		lines = append(lines, "", fmt.Sprintf("👤 *사용자 %d*", uid), StatusList(byUser[uid], now, loc))
	}
	return strings.Join(lines, "\n")
}

// RetentionSummary is sent to administrators after a sweep removed anything.
func RetentionSummary(monitors, corrupt, preferences int, dataDays, configDays int) string {
	return strings.Join([]string{
		"🧹 *데이터 정리 완료*",
		"",
		fmt.Sprintf("• 만료된 모니터링 (%d일 경과): %d건", dataDays, monitors),
		fmt.Sprintf("• 손상된 모니터링 파일: %d건", corrupt),
		fmt.Sprintf("• 비활성 사용자 설정 (%d일 미사용): %d건", configDays, preferences),
	}, "\n")
}
