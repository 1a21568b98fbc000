package usecase

import (
	"fmt"
	"strings"
	"time"

	"ngx_pipeline/internal/feature/alerts/domain/entity"
	"ngx_pipeline/internal/shared/tradedate"
)

// digestTopN is how many alerts of each severity the digest lists.
const digestTopN = 5

// FormatAlert は1件のアラートを通知用テキストに整形します。
func FormatAlert(a entity.Alert) entity.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s ALERT*\n\n", a.Severity)
	fmt.Fprintf(&b, "*Stock*: %s\n", a.Code)
	fmt.Fprintf(&b, "*Rule*: %s\n", a.RuleName)
	fmt.Fprintf(&b, "*Date*: %s\n", tradedate.Format(a.Date))
	fmt.Fprintf(&b, "*Message*: %s\n", a.Message)
	fmt.Fprintf(&b, "*Trigger Value*: %.4g\n", a.TriggerValue)
	if a.ID != 0 {
		fmt.Fprintf(&b, "\nAlert ID: %d\n", a.ID)
	}
	return entity.Message{
		Subject:  fmt.Sprintf("Stock Alert: %s - %s", a.Severity, a.Code),
		Body:     b.String(),
		Severity: a.Severity,
		Alerts:   []entity.Alert{a},
	}
}

// FormatDigest は1日分のアラートを重大度ごとにまとめたダイジェストを作成します。
// 各重大度につき先頭 digestTopN 件のみ本文に含めます。
func FormatDigest(alerts []entity.Alert, date time.Time) entity.Message {
	groups := map[entity.Severity][]entity.Alert{}
	for _, a := range alerts {
		groups[a.Severity] = append(groups[a.Severity], a)
	}
	day := date.Format("January 2, 2006")

	var b strings.Builder
	fmt.Fprintf(&b, "*NGX Stock Alert Digest - %s*\n\n", day)
	fmt.Fprintf(&b, "*Summary*: %d total alerts\n", len(alerts))
	fmt.Fprintf(&b, "- Critical: %d\n", len(groups[entity.SeverityCritical]))
	fmt.Fprintf(&b, "- Warnings: %d\n", len(groups[entity.SeverityWarning]))
	fmt.Fprintf(&b, "- Info: %d\n", len(groups[entity.SeverityInfo]))

	sections := []struct {
		sev   entity.Severity
		title string
	}{
		{entity.SeverityCritical, "CRITICAL ALERTS"},
		{entity.SeverityWarning, "WARNINGS"},
		{entity.SeverityInfo, "INFO"},
	}
	top := entity.SeverityInfo
	for _, s := range sections {
		group := groups[s.sev]
		if len(group) == 0 {
			continue
		}
		if top == entity.SeverityInfo && s.sev != entity.SeverityInfo {
			top = s.sev
		}
		fmt.Fprintf(&b, "\n*%s*\n", s.title)
		for i, a := range group {
			if i == digestTopN {
				fmt.Fprintf(&b, "... and %d more\n", len(group)-digestTopN)
				break
			}
			fmt.Fprintf(&b, "• %s: %s\n", a.Code, a.Message)
		}
	}

	return entity.Message{
		Subject:  "Daily NGX Alert Digest - " + day,
		Body:     b.String(),
		Severity: top,
		Alerts:   alerts,
	}
}
