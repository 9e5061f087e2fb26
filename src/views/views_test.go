package views

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/src/models"
	"natours/src/types"
)

func TestLoadParsesEveryPage(t *testing.T) {
	pages, err := Load()
	require.NoError(t, err)
	for _, name := range []string{"overview.html", "tour.html", "login.html", "signup.html", "account.html", "error.html", "head", "foot"} {
		assert.NotNil(t, pages.Lookup(name), name)
	}
}

func TestErrorPage(t *testing.T) {
	pages, err := Load()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pages.ExecuteTemplate(&buf, "error.html", map[string]any{"title": "500"}))
	assert.Contains(t, buf.String(), "<title>Natours | 500</title>")
	assert.Contains(t, buf.String(), "Please try again later.")
	assert.Contains(t, buf.String(), `href="/login"`)
}

func TestOverviewEscapesTourData(t *testing.T) {
	pages, err := Load()
	require.NoError(t, err)

	tours := []models.Tour{{Name: "<b>Snow</b> Adventurer", Slug: "snow-adventurer", Price: 997, Duration: 4}}
	var buf bytes.Buffer
	require.NoError(t, pages.ExecuteTemplate(&buf, "overview.html", map[string]any{"title": "All Tours", "tours": tours}))
	assert.Contains(t, buf.String(), "&lt;b&gt;Snow&lt;/b&gt; Adventurer")
	assert.Contains(t, buf.String(), "$997")
	assert.NotContains(t, buf.String(), "No tours to show yet.")
}

func TestFuncs(t *testing.T) {
	stars := funcs["stars"].(func(int) []bool)
	assert.Equal(t, []bool{true, true, true, false, false}, stars(3))
	assert.Equal(t, []bool{false, false, false, false, false}, stars(0))

	label := funcs["guideLabel"].(func(types.Role) string)
	assert.Equal(t, "Lead guide", label(types.RoleLeadGuide))
	assert.Equal(t, "Tour guide", label(types.RoleGuide))

	monthYear := funcs["monthYear"].(func(time.Time) string)
	assert.Equal(t, "April 2027", monthYear(time.Date(2027, time.April, 25, 0, 0, 0, 0, time.UTC)))

	paragraphs := funcs["paragraphs"].(func(string) []string)
	assert.Equal(t, []string{"First.", "Second."}, paragraphs("First.\nSecond.\n"))
}
