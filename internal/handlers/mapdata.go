package handlers

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/gmp-id/gmpcms/internal/httpx"
)

// Province is one area of the survey map.
type Province struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Timezone    string `json:"timezone"`
	Region      string `json:"region"`
	Respondents int64  `json:"respondents"`
}

var provinces = []Province{
	{ID: "ID-AC", Name: "Aceh", Timezone: "WIB", Region: "west"},
	{ID: "ID-SU", Name: "Sumatera Utara", Timezone: "WIB", Region: "west"},
	{ID: "ID-SB", Name: "Sumatera Barat", Timezone: "WIB", Region: "west"},
	{ID: "ID-RI", Name: "Riau", Timezone: "WIB", Region: "west"},
	{ID: "ID-JA", Name: "Jambi", Timezone: "WIB", Region: "west"},
	{ID: "ID-SS", Name: "Sumatera Selatan", Timezone: "WIB", Region: "west"},
	{ID: "ID-BE", Name: "Bengkulu", Timezone: "WIB", Region: "west"},
	{ID: "ID-LA", Name: "Lampung", Timezone: "WIB", Region: "west"},
	{ID: "ID-BB", Name: "Kepulauan Bangka Belitung", Timezone: "WIB", Region: "west"},
	{ID: "ID-KR", Name: "Kepulauan Riau", Timezone: "WIB", Region: "west"},
	{ID: "ID-JK", Name: "DKI Jakarta", Timezone: "WIB", Region: "west"},
	{ID: "ID-JB", Name: "Jawa Barat", Timezone: "WIB", Region: "west"},
	{ID: "ID-JT", Name: "Jawa Tengah", Timezone: "WIB", Region: "west"},
	{ID: "ID-YO", Name: "DI Yogyakarta", Timezone: "WIB", Region: "west"},
	{ID: "ID-JI", Name: "Jawa Timur", Timezone: "WIB", Region: "west"},
	{ID: "ID-BT", Name: "Banten", Timezone: "WIB", Region: "west"},
	{ID: "ID-KB", Name: "Kalimantan Barat", Timezone: "WIB", Region: "west"},
	{ID: "ID-KT", Name: "Kalimantan Tengah", Timezone: "WIB", Region: "west"},

	{ID: "ID-BA", Name: "Bali", Timezone: "WITA", Region: "central"},
	{ID: "ID-NB", Name: "Nusa Tenggara Barat", Timezone: "WITA", Region: "central"},
	{ID: "ID-NT", Name: "Nusa Tenggara Timur", Timezone: "WITA", Region: "central"},
	{ID: "ID-KS", Name: "Kalimantan Selatan", Timezone: "WITA", Region: "central"},
	{ID: "ID-KI", Name: "Kalimantan Timur", Timezone: "WITA", Region: "central"},
	{ID: "ID-KU", Name: "Kalimantan Utara", Timezone: "WITA", Region: "central"},
	{ID: "ID-SA", Name: "Sulawesi Utara", Timezone: "WITA", Region: "central"},
	{ID: "ID-ST", Name: "Sulawesi Tengah", Timezone: "WITA", Region: "central"},
	{ID: "ID-SN", Name: "Sulawesi Selatan", Timezone: "WITA", Region: "central"},
	{ID: "ID-SG", Name: "Sulawesi Tenggara", Timezone: "WITA", Region: "central"},
	{ID: "ID-GO", Name: "Gorontalo", Timezone: "WITA", Region: "central"},
	{ID: "ID-SR", Name: "Sulawesi Barat", Timezone: "WITA", Region: "central"},

	{ID: "ID-MA", Name: "Maluku", Timezone: "WIT", Region: "east"},
	{ID: "ID-MU", Name: "Maluku Utara", Timezone: "WIT", Region: "east"},
	{ID: "ID-PA", Name: "Papua", Timezone: "WIT", Region: "east"},
	{ID: "ID-PB", Name: "Papua Barat", Timezone: "WIT", Region: "east"},
}

var provinceByCode = func() map[string]Province {
	m := make(map[string]Province, len(provinces))
	for _, p := range provinces {
		m[p.ID] = p
	}
	return m
}()

// mapZones pairs each survey region_live value with its time zone.
var mapZones = []struct {
	region, key, timezone, color string
}{
	{"West", "west", "WIB", "#ffcb57"},
	{"Central", "central", "WITA", "#59caf5"},
	{"East", "east", "WIT", "#f06d98"},
}

// Survey answers the map highlights.
const (
	answerActivism         = "Pernah"
	answerDiscussVeryOften = "Sangat sering (hampir setiap hari)"
	answerDiscussOften     = "Sering (setidaknya sekali seminggu)"
	answerUnderstandQuite  = "Cukup paham"
	answerUnderstandVery   = "Sangat paham"
	answerVoicingActive    = "Sering terlibat"
	answerVoicingSometimes = "Kadang-kadang terlibat"
)

// surveyTally holds the answer counts of one region.
type surveyTally struct {
	Respondents     int64
	Age23, Age25    int64
	AgeSum, AgeSeen int64
	Activism        int64
	DiscussVeryOft  int64
	DiscussOften    int64
	UnderstandQuite int64
	UnderstandVery  int64
	VoicingActive   int64
	VoicingSometime int64
}

func (t *surveyTally) add(o surveyTally) {
	t.Respondents += o.Respondents
	t.Age23 += o.Age23
	t.Age25 += o.Age25
	t.AgeSum += o.AgeSum
	t.AgeSeen += o.AgeSeen
	t.Activism += o.Activism
	t.DiscussVeryOft += o.DiscussVeryOft
	t.DiscussOften += o.DiscussOften
	t.UnderstandQuite += o.UnderstandQuite
	t.UnderstandVery += o.UnderstandVery
	t.VoicingActive += o.VoicingActive
	t.VoicingSometime += o.VoicingSometime
}

// percent renders n/total with one decimal, or "0" when there is no total.
func percent(n, total int64) string {
	if total == 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", float64(n)*100/float64(total))
}

func share(n, total int64) fiber.Map {
	return fiber.Map{"percentage": percent(n, total)}
}

func (t surveyTally) zoneSummary() fiber.Map {
	avg := "0"
	if t.AgeSeen > 0 {
		avg = fmt.Sprintf("%.1f", float64(t.AgeSum)/float64(t.AgeSeen))
	}
	n := t.Respondents
	return fiber.Map{
		"respondents": n,
		"demographics": fiber.Map{
			"age23":  percent(t.Age23, n),
			"age25":  percent(t.Age25, n),
			"avgAge": avg,
		},
		"activism": fiber.Map{
			"hasActivism": percent(t.Activism, n),
			"politicalDiscussion": fiber.Map{
				"veryOften": percent(t.DiscussVeryOft, n),
				"often":     percent(t.DiscussOften, n),
			},
		},
		"civicSpace": fiber.Map{
			"understanding": fiber.Map{
				"quite": percent(t.UnderstandQuite, n),
				"very":  percent(t.UnderstandVery, n),
			},
			"engagement": fiber.Map{
				"active":     percent(t.VoicingActive, n),
				"occasional": percent(t.VoicingSometime, n),
			},
		},
	}
}

// MapDataHandler serves the survey aggregates behind the public map.
type MapDataHandler struct {
	DB *sql.DB
}

// HandleMapData tallies research_data per region and per province.
func (h *MapDataHandler) HandleMapData(c fiber.Ctx) error {
	ctx := c.Context()

	rows, err := h.DB.QueryContext(ctx, `
		SELECT region_live,
			COUNT(*),
			COUNT(*) FILTER (WHERE age = 23),
			COUNT(*) FILTER (WHERE age = 25),
			COALESCE(SUM(age), 0),
			COUNT(age),
			COUNT(*) FILTER (WHERE activism = $1),
			COUNT(*) FILTER (WHERE polexp_peers_intensity = $2),
			COUNT(*) FILTER (WHERE polexp_peers_intensity = $3),
			COUNT(*) FILTER (WHERE civspace_understanding = $4),
			COUNT(*) FILTER (WHERE civspace_understanding = $5),
			COUNT(*) FILTER (WHERE issue_commited_voicing = $6),
			COUNT(*) FILTER (WHERE issue_commited_voicing = $7)
		FROM research_data
		GROUP BY region_live`,
		answerActivism, answerDiscussVeryOften, answerDiscussOften,
		answerUnderstandQuite, answerUnderstandVery, answerVoicingActive, answerVoicingSometimes)
	if err != nil {
		return httpx.Internal(c, "Failed to fetch map data", err)
	}
	byRegion := make(map[string]surveyTally, len(mapZones))
	for rows.Next() {
		var region string
		var t surveyTally
		if err := rows.Scan(&region, &t.Respondents, &t.Age23, &t.Age25, &t.AgeSum, &t.AgeSeen, &t.Activism,
			&t.DiscussVeryOft, &t.DiscussOften, &t.UnderstandQuite, &t.UnderstandVery,
			&t.VoicingActive, &t.VoicingSometime); err != nil {
			_ = rows.Close()
			return httpx.Internal(c, "Failed to fetch map data", err)
		}
		byRegion[region] = t
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return httpx.Internal(c, "Failed to fetch map data", err)
	}

	perProvince, err := h.provinceCounts(c)
	if err != nil {
		return httpx.Internal(c, "Failed to fetch map data", err)
	}

	var total surveyTally
	for _, t := range byRegion {
		total.add(t)
	}

	list := make([]Province, len(provinces))
	for i, p := range provinces {
		p.Respondents = perProvince[p.ID]
		list[i] = p
	}

	regions := fiber.Map{}
	timezones := fiber.Map{}
	for _, z := range mapZones {
		t := byRegion[z.region]
		regions[z.key] = fiber.Map{"count": t.Respondents, "percentage": percent(t.Respondents, total.Respondents)}

		var members []Province
		for _, p := range list {
			if p.Timezone == z.timezone {
				members = append(members, p)
			}
		}
		timezones[z.timezone] = fiber.Map{
			"count":       len(members),
			"color":       z.color,
			"respondents": t.Respondents,
			"surveyData":  t.zoneSummary(),
			"provinces":   members,
		}
	}

	n := total.Respondents
	return httpx.OK(c, fiber.Map{
		"success": true,
		"data": fiber.Map{
			"provinces": list,
			"timezones": timezones,
			"surveyStats": fiber.Map{
				"totalRespondents": n,
				"regions":          regions,
				"hoverData": fiber.Map{
					"age23":                   share(total.Age23, n),
					"age25":                   share(total.Age25, n),
					"hasActivism":             share(total.Activism, n),
					"veryOftenDiscuss":        share(total.DiscussVeryOft, n),
					"oftenDiscuss":            share(total.DiscussOften, n),
					"quiteUnderstandCivspace": share(total.UnderstandQuite, n),
					"veryUnderstandCivspace":  share(total.UnderstandVery, n),
				},
				"civicEngagement": fiber.Map{
					"activeVoicing":     share(total.VoicingActive, n),
					"occasionalVoicing": share(total.VoicingSometime, n),
				},
			},
			"lastUpdated": nowFunc().UTC().Format(time.RFC3339),
		},
	})
}

func (h *MapDataHandler) provinceCounts(c fiber.Ctx) (map[string]int64, error) {
	rows, err := h.DB.QueryContext(c.Context(), `
		SELECT province_code, COUNT(*)
		FROM research_data
		WHERE province_code IS NOT NULL
		GROUP BY province_code`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	counts := make(map[string]int64, len(provinces))
	for rows.Next() {
		var code string
		var n int64
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		counts[code] = n
	}
	return counts, rows.Err()
}
