package onboarding

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><title>Riverside Barbers | Home</title></head><body>Welcome</body></html>`))
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><title>Contact | Riverside Barbers</title></head><body>
			Email us at hello@riversidebarbers.com or call (512) 555-0142.
			123 Main St, Austin, TX 78701.
			Hours: Monday: 9am - 5pm Tuesday: 9am - 5pm Sunday: Closed
			Contact form below.</body></html>`))
	})
	mux.HandleFunc("/services", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>We offer the best Haircut in town plus hot towel shaves and Waxing.</body></html>`))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestScrapePrefill(t *testing.T) {
	site := fakeSite(t)
	defer site.Close()

	result, err := ScrapePrefill(t.Context(), site.Client(), site.URL)
	require.NoError(t, err)

	assert.Equal(t, "Riverside Barbers", result.BusinessInfo.Name)
	assert.Equal(t, "hello@riversidebarbers.com", result.BusinessInfo.Email)
	assert.Contains(t, result.BusinessInfo.Phone, "555")
	assert.Equal(t, "America/Chicago", result.BusinessInfo.Timezone)

	names := make([]string, 0, len(result.Services))
	for _, svc := range result.Services {
		names = append(names, svc.Name)
	}
	assert.Contains(t, names, "Haircut")
	assert.Contains(t, names, "Waxing")

	require.Contains(t, result.Hours, 1)
	assert.Equal(t, &DayWindow{Open: "09:00", Close: "17:00"}, result.Hours[1])
	closed, ok := result.Hours[0]
	require.True(t, ok)
	assert.Nil(t, closed)
}

func TestScrapePrefillServicesFromSitemap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		w.Write([]byte(`<?xml version="1.0"?><urlset>
			<url><loc>` + base + `/</loc></url>
			<url><loc>` + base + `/services/deep-tissue-massage</loc></url>
			<url><loc>` + base + `/services/hot-stone-massage/</loc></url>
			<url><loc>` + base + `/about</loc></url>
		</urlset>`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><title>Calm Studio</title></head><body></body></html>`))
	})
	site := httptest.NewServer(mux)
	defer site.Close()

	result, err := ScrapePrefill(t.Context(), site.Client(), site.URL)
	require.NoError(t, err)

	require.Len(t, result.Services, 2)
	assert.Equal(t, "Deep Tissue Massage", result.Services[0].Name)
	assert.Equal(t, "Hot Stone Massage", result.Services[1].Name)
	assert.Equal(t, 30, result.Services[0].DurationMinutes)
}

func TestNormalizeURL(t *testing.T) {
	normalized, err := normalizeURL("example.com/path?q=1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/path", normalized)

	_, err = normalizeURL("")
	assert.Error(t, err)

	_, err = normalizeURL("https://")
	assert.Error(t, err)
}

func TestTimezoneForState(t *testing.T) {
	assert.Equal(t, "America/New_York", timezoneForState("ny"))
	assert.Equal(t, "America/Los_Angeles", timezoneForState("CA"))
	assert.Equal(t, "", timezoneForState("ZZ"))
}
