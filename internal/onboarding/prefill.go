package onboarding

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	prefillTimeout   = 15 * time.Second
	prefillUserAgent = "Mozilla/5.0"
	maxPrefillPages  = 8
)

// PrefillService is a candidate catalog entry scraped from the website.
type PrefillService struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	SourceURL       string `json:"source_url,omitempty"`
}

// PrefillBusinessInfo holds contact details extracted from the website.
type PrefillBusinessInfo struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	WebsiteURL string `json:"website_url,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
}

// DayWindow is an open/close pair in HH:MM, keyed by weekday below.
type DayWindow struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// PrefillResult seeds the onboarding wizard. Hours is keyed by weekday,
// 0 = Sunday, matching the availability templates.
type PrefillResult struct {
	BusinessInfo PrefillBusinessInfo `json:"business_info"`
	Services     []PrefillService    `json:"services"`
	Hours        map[int]*DayWindow  `json:"hours,omitempty"`
	Sources      []string            `json:"sources,omitempty"`
}

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// ScrapePrefill fetches a business website and extracts name, contact
// details, candidate services, and opening hours. Missing pages are
// tolerated; the result carries whatever could be found.
func ScrapePrefill(ctx context.Context, client *http.Client, rawURL string) (*PrefillResult, error) {
	baseURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = &http.Client{Timeout: prefillTimeout}
	}

	sitemapURLs, _ := fetchSitemapURLs(ctx, client, baseURL)
	contactURL := pickFirstURLContaining(sitemapURLs, "contact")
	if contactURL == "" {
		contactURL = joinURL(baseURL, "/contact")
	}
	servicesURL := pickFirstURLContaining(sitemapURLs, "/services")
	if servicesURL == "" {
		servicesURL = joinURL(baseURL, "/services")
	}

	baseTitle, _, _ := fetchText(ctx, client, baseURL)
	contactTitle, contactText, _ := fetchText(ctx, client, contactURL)
	servicesTitle, servicesText, _ := fetchText(ctx, client, servicesURL)

	info := PrefillBusinessInfo{
		Name: firstNonEmpty(
			extractBusinessName(baseTitle),
			extractBusinessName(contactTitle),
			extractBusinessName(servicesTitle),
			deriveNameFromHost(baseURL),
		),
		WebsiteURL: baseURL,
	}

	if contactText != "" {
		info.Email = extractEmail(contactText)
		info.Phone = extractPhone(contactText)
		info.Timezone = timezoneForState(extractState(contactText))
	}
	if info.Timezone == "" {
		info.Timezone = "America/New_York"
	}

	services := servicesFromSitemap(sitemapURLs)
	if len(services) == 0 {
		services = servicesFromText(servicesText)
	}

	return &PrefillResult{
		BusinessInfo: info,
		Services:     services,
		Hours:        parseBusinessHours(contactText),
		Sources:      uniqueStrings([]string{baseURL, contactURL, servicesURL}),
	}, nil
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("website_url is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid website_url")
	}
	parsed.Fragment = ""
	parsed.RawQuery = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}

func fetchSitemapURLs(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	body, err := fetchURL(ctx, client, joinURL(baseURL, "/sitemap.xml"))
	if err != nil {
		return nil, err
	}
	var sitemap sitemapURLSet
	if err := xml.Unmarshal([]byte(body), &sitemap); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(sitemap.URLs))
	for _, entry := range sitemap.URLs {
		if entry.Loc == "" {
			continue
		}
		urls = append(urls, strings.TrimSpace(entry.Loc))
	}
	return urls, nil
}

func fetchURL(ctx context.Context, client *http.Client, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", prefillUserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("prefill fetch failed: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 3<<20))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func fetchText(ctx context.Context, client *http.Client, target string) (string, string, error) {
	if target == "" {
		return "", "", nil
	}
	body, err := fetchURL(ctx, client, target)
	if err != nil {
		return "", "", err
	}
	return extractTitle(body), extractText(body), nil
}

func extractTitle(htmlBody string) string {
	re := regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	match := re.FindStringSubmatch(htmlBody)
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(match[1]))
}

func extractText(htmlBody string) string {
	clean := htmlBody
	for _, tag := range []string{"script", "style", "noscript"} {
		reScripts := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		clean = reScripts.ReplaceAllString(clean, " ")
	}
	reTags := regexp.MustCompile(`(?s)<[^>]+>`)
	clean = reTags.ReplaceAllString(clean, " ")
	clean = html.UnescapeString(clean)
	reSpace := regexp.MustCompile(`\s+`)
	return strings.TrimSpace(reSpace.ReplaceAllString(clean, " "))
}

func extractBusinessName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	parts := strings.Split(title, "|")
	candidates := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)
		if strings.Contains(lower, "contact") || strings.Contains(lower, "services") || strings.Contains(lower, "home") {
			continue
		}
		candidates = append(candidates, part)
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})
	return candidates[0]
}

func deriveNameFromHost(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if host == "" {
		return ""
	}
	host = strings.ReplaceAll(host, "-", " ")
	host = strings.ReplaceAll(host, ".", " ")
	return titleize(host)
}

func servicesFromSitemap(urls []string) []PrefillService {
	if len(urls) == 0 {
		return nil
	}
	excluded := map[string]bool{
		"":          true,
		"/":         true,
		"/contact":  true,
		"/about":    true,
		"/about-us": true,
		"/pricing":  true,
		"/blog":     true,
		"/shop":     true,
	}
	services := []PrefillService{}
	seen := map[string]bool{}
	for _, raw := range urls {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Path == "" {
			continue
		}
		slug := strings.TrimSuffix(parsed.Path, "/")
		if excluded[strings.ToLower(slug)] || !strings.Contains(strings.ToLower(slug), "/services/") {
			continue
		}
		segment := path.Base(slug)
		if segment == "" || segment == "." || segment == "services" {
			continue
		}
		name := titleize(strings.ReplaceAll(segment, "-", " "))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		services = append(services, PrefillService{
			Name:            name,
			DurationMinutes: 30,
			SourceURL:       raw,
		})
		if len(services) >= maxPrefillPages {
			break
		}
	}
	return services
}

func servicesFromText(text string) []PrefillService {
	if text == "" {
		return nil
	}
	common := []string{
		"Haircut", "Massage", "Facial", "Manicure", "Pedicure", "Waxing",
		"Consultation", "Personal Training", "Oil Change", "Tire Rotation",
		"Teeth Cleaning", "Physical Therapy",
	}
	services := []PrefillService{}
	lower := strings.ToLower(text)
	for _, name := range common {
		if strings.Contains(lower, strings.ToLower(name)) {
			services = append(services, PrefillService{Name: name, DurationMinutes: 30})
		}
	}
	return services
}

func extractEmail(text string) string {
	re := regexp.MustCompile(`[\w._%+\-]+@[\w.\-]+\.[A-Za-z]{2,}`)
	return strings.TrimSpace(re.FindString(text))
}

func extractPhone(text string) string {
	re := regexp.MustCompile(`\+?1?[\s\-.()]*\d{3}[\s\-.()]*\d{3}[\s\-.()]*\d{4}`)
	return strings.TrimSpace(re.FindString(text))
}

func extractState(text string) string {
	re := regexp.MustCompile(`(?i),\s*([A-Z]{2})\s*\d{5}`)
	match := re.FindStringSubmatch(text)
	if len(match) < 2 {
		return ""
	}
	return strings.ToUpper(match[1])
}

var weekdayNames = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tues": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thur": 4, "thurs": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

func parseBusinessHours(text string) map[int]*DayWindow {
	hoursText := extractBetween(text, "Hours:", []string{"Connect", "Contact", "Book"})
	if hoursText == "" {
		return nil
	}

	// RE2 has no lookahead, so locate each "Day:" label and slice the text
	// between consecutive labels.
	re := regexp.MustCompile(`(?i)\b(mon(?:day)?|tue(?:sday)?|tues|wed(?:nesday)?|thu(?:rsday)?|thur|thurs|fri(?:day)?|sat(?:urday)?|sun(?:day)?)\s*:`)
	labels := re.FindAllStringSubmatchIndex(hoursText, -1)

	hours := map[int]*DayWindow{}
	for i, label := range labels {
		day, ok := weekdayNames[strings.ToLower(hoursText[label[2]:label[3]])]
		if !ok {
			continue
		}
		segEnd := len(hoursText)
		if i+1 < len(labels) {
			segEnd = labels[i+1][0]
		}
		timePart := strings.TrimSpace(hoursText[label[1]:segEnd])
		if strings.Contains(strings.ToLower(timePart), "closed") {
			hours[day] = nil
			continue
		}
		open, close := parseTimeRange(timePart)
		if open == "" || close == "" {
			continue
		}
		hours[day] = &DayWindow{Open: open, Close: close}
	}
	if len(hours) == 0 {
		return nil
	}
	return hours
}

func extractBetween(text, start string, stops []string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, strings.ToLower(start))
	if idx == -1 {
		return ""
	}
	segment := text[idx+len(start):]
	stopIdx := len(segment)
	for _, stop := range stops {
		if stop == "" {
			continue
		}
		if i := strings.Index(strings.ToLower(segment), strings.ToLower(stop)); i >= 0 && i < stopIdx {
			stopIdx = i
		}
	}
	return strings.TrimSpace(segment[:stopIdx])
}

func parseTimeRange(raw string) (string, string) {
	re := regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*-\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	match := re.FindStringSubmatch(raw)
	if len(match) < 7 {
		return "", ""
	}
	startMeridiem := strings.ToLower(match[3])
	endMeridiem := strings.ToLower(match[6])
	if endMeridiem == "" {
		endMeridiem = startMeridiem
	}
	return formatClockTime(match[1], match[2], startMeridiem), formatClockTime(match[4], match[5], endMeridiem)
}

func formatClockTime(hourRaw, minRaw, meridiem string) string {
	hour := atoi(hourRaw)
	min := atoi(minRaw)
	if meridiem == "" {
		meridiem = "am"
	}
	if meridiem == "pm" && hour < 12 {
		hour += 12
	}
	if meridiem == "am" && hour == 12 {
		hour = 0
	}
	return fmt.Sprintf("%02d:%02d", hour, min)
}

func atoi(raw string) int {
	n := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func pickFirstURLContaining(urls []string, keyword string) string {
	keyword = strings.ToLower(keyword)
	for _, candidate := range urls {
		if strings.Contains(strings.ToLower(candidate), keyword) {
			return strings.TrimRight(candidate, "/")
		}
	}
	return ""
}

func joinURL(base, suffix string) string {
	base = strings.TrimRight(base, "/")
	if suffix == "" {
		return base
	}
	return base + suffix
}

func titleize(raw string) string {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return ""
	}
	for i, w := range words {
		lower := strings.ToLower(w)
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func uniqueStrings(values []string) []string {
	seen := map[string]bool{}
	result := []string{}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}

func timezoneForState(state string) string {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "CT", "DE", "FL", "GA", "IN", "KY", "ME", "MD", "MA", "MI", "NH", "NJ", "NY", "NC", "OH", "PA", "RI", "SC", "TN", "VT", "VA", "WV", "DC":
		return "America/New_York"
	case "AL", "AR", "IL", "IA", "LA", "MN", "MS", "MO", "OK", "WI", "TX", "KS", "NE", "ND", "SD":
		return "America/Chicago"
	case "AZ", "CO", "ID", "MT", "NM", "UT", "WY":
		return "America/Denver"
	case "CA", "NV", "OR", "WA":
		return "America/Los_Angeles"
	case "AK":
		return "America/Anchorage"
	case "HI":
		return "Pacific/Honolulu"
	default:
		return ""
	}
}
