package injuryweb

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// Reports fetches the availability entries for one team
// ⭐ SSOT: 부상 리포트 파싱은 이 함수에서만
func (c *Client) Reports(ctx context.Context, sportKey, team string) ([]contracts.InjuryReport, error) {
	html, err := c.fetchHTML(ctx, "")
	if err != nil {
		return nil, err
	}

	reports := parseInjuryHTML(html, team)

	c.logger.WithFields(map[string]interface{}{
		"team":    team,
		"reports": len(reports),
	}).Debug("Fetched injury reports")

	return reports, nil
}

// parseInjuryHTML parses the injury report page for one team's block.
// Page structure: one div per team with the team name header and a row
// per listed player (player | role | injury | status).
func parseInjuryHTML(html, team string) []contracts.InjuryReport {
	var reports []contracts.InjuryReport

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return reports
	}

	doc.Find("div.team-block").Each(func(i int, block *goquery.Selection) {
		name := strings.TrimSpace(block.Find("h3.team-name").First().Text())
		if !strings.EqualFold(name, team) {
			return
		}

		block.Find("tr.injury-row").Each(func(j int, row *goquery.Selection) {
			player := strings.TrimSpace(row.Find("td.player").Text())
			if player == "" {
				return
			}

			status := normalizeStatus(row.Find("td.status").Text())
			if status == "" {
				return
			}

			reports = append(reports, contracts.InjuryReport{
				Team:       team,
				Player:     player,
				Status:     status,
				ImpactRank: roleImpact(row.Find("td.role").Text()),
				Note:       strings.TrimSpace(row.Find("td.injury").Text()),
			})
		})
	})

	return reports
}

// normalizeStatus maps the page's status text onto the four canonical
// availability states. Unknown text drops the row.
func normalizeStatus(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OUT", "OUT FOR SEASON", "SUSPENDED":
		return "OUT"
	case "DOUBTFUL":
		return "DOUBTFUL"
	case "QUESTIONABLE", "GAME TIME DECISION":
		return "QUESTIONABLE"
	case "PROBABLE", "DAY-TO-DAY":
		return "PROBABLE"
	default:
		return ""
	}
}

// roleImpact converts the listed rotation role into the 0..1 impact
// rank the factor calculators consume.
func roleImpact(raw string) float64 {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "STARTER":
		return 0.9
	case "ROTATION":
		return 0.6
	case "BENCH":
		return 0.25
	default:
		return 0.5
	}
}
