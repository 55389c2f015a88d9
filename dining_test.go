package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ─── Fixture helpers ────────────────────────────────────────────────── */

// nutritionRowLine renders one aData assignment with 25 positional fields,
// placing the given values at the indices the join consumes.
func nutritionRowLine(id, portion, calories, name, allergens string) string {
	fields := make([]string, 25)
	for i := range fields {
		fields[i] = "'0'"
	}
	fields[nutritionPortionIndex] = "'" + portion + "'"
	fields[nutritionCaloriesIndex] = "'" + calories + "'"
	fields[nutritionNameIndex] = "'" + name + "'"
	fields[nutritionAllergensIndex] = "'" + allergens + "'"
	return fmt.Sprintf("aData['%s'] = new Array(%s);\n", id, strings.Join(fields, ","))
}

// fixtureFeed builds a feed document with Monday/Tuesday days, each holding
// Breakfast and Lunch meals. Product 42 has a nutrition row; 99 does not.
func fixtureFeed() string {
	menu := map[string]any{
		"title":     "Breakers Menu",
		"startdate": "08/24/2026",
		"enddate":   "08/30/2026",
		"menus": []any{
			map[string]any{
				"title": "One Week Menu",
				"tabs": []any{
					map[string]any{
						"title": "Monday",
						"groups": []any{
							map[string]any{
								"title": "Breakfast",
								"category": []any{
									map[string]any{"title": "Main Line", "products": []string{"42", "99"}},
								},
							},
							map[string]any{
								"title": "Lunch",
								"category": []any{
									map[string]any{"title": "Grill", "products": []string{"7"}},
								},
							},
						},
					},
					map[string]any{
						"title": "Tuesday",
						"groups": []any{
							map[string]any{
								"title": "Breakfast",
								"category": []any{
									map[string]any{"title": "Main Line", "products": []string{"7"}},
								},
							},
						},
					},
				},
			},
		},
	}
	menuJSON, _ := json.Marshal([]any{menu})

	var b strings.Builder
	b.WriteString("var aData = new Object();\n")
	b.WriteString("menuData = ")
	b.Write(menuJSON)
	b.WriteString(";\n")
	b.WriteString(nutritionRowLine("42", "1 cup", "210", "Scrambled Eggs", "egg,milk"))
	b.WriteString(nutritionRowLine("7", "1 each", "350", "Cheeseburger", "wheat,milk"))
	return b.String()
}

// newTestMenuCache returns a cache backed by a fixed clock and a canned feed
// body, plus a counter of outbound fetches.
func newTestMenuCache(body string, fetchErr error) (*menuCache, *int, *time.Time) {
	fetches := 0
	now := time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC) // a Wednesday
	mc := &menuCache{
		ttl: menuCacheTTL,
		now: func() time.Time { return now },
		fetch: func(ctx context.Context, feedURL string) (string, error) {
			fetches++
			if fetchErr != nil {
				return "", fetchErr
			}
			return body, nil
		},
		entries: make(map[string]menuCacheEntry),
	}
	return mc, &fetches, &now
}

/* ─── Extraction tests ───────────────────────────────────────────────── */

func TestExtractMenuDocument(t *testing.T) {
	doc, err := extractMenuDocument(fixtureFeed())
	require.NoError(t, err)
	assert.Equal(t, "Breakers Menu", doc.Title)
	assert.Equal(t, "08/24/2026", doc.StartDate)
	assert.Equal(t, "08/30/2026", doc.EndDate)
	require.Len(t, doc.Menus, 1)
	require.Len(t, doc.Menus[0].Tabs, 2)
	assert.Equal(t, "Monday", doc.Menus[0].Tabs[0].Title)
}

func TestExtractMenuDocument_Missing(t *testing.T) {
	_, err := extractMenuDocument("<html>Service Unavailable</html>")
	assert.ErrorIs(t, err, errMenuDataMissing)
}

func TestExtractNutritionRows(t *testing.T) {
	rows := extractNutritionRows(fixtureFeed())
	require.Contains(t, rows, "42")
	row := rows["42"]
	require.Len(t, row, 25)
	assert.Equal(t, "1 cup", row[nutritionPortionIndex])
	assert.Equal(t, "210", row[nutritionCaloriesIndex])
	assert.Equal(t, "Scrambled Eggs", row[nutritionNameIndex])
	assert.Equal(t, "egg,milk", row[nutritionAllergensIndex])
}

func TestExtractNutritionRows_QuoteStripping(t *testing.T) {
	body := `aData['1'] = new Array("Toast", '2 slices', 140);`
	rows := extractNutritionRows(body)
	require.Contains(t, rows, "1")
	assert.Equal(t, []string{"Toast", "2 slices", "140"}, rows["1"])
}

// A comma inside a quoted field splits into two fields. This mirrors the
// feed's historical consumption; fixed index positions depend on it.
func TestExtractNutritionRows_EmbeddedCommaSplits(t *testing.T) {
	body := `aData['1'] = new Array('Macaroni, Baked', '1 cup');`
	rows := extractNutritionRows(body)
	require.Contains(t, rows, "1")
	assert.Equal(t, []string{"'Macaroni", "Baked'", "1 cup"}, rows["1"])
}

func TestJoinMenu(t *testing.T) {
	doc, err := extractMenuDocument(fixtureFeed())
	require.NoError(t, err)
	rows := extractNutritionRows(fixtureFeed())

	menu := joinMenu(doc, rows)
	require.Len(t, menu.Days, 2)
	require.Len(t, menu.Days[0].Meals, 2)

	// Product 99 has no nutrition row, so Main Line keeps only item 42.
	mainLine := menu.Days[0].Meals[0].Categories[0]
	require.Len(t, mainLine.Items, 1)
	assert.Equal(t, menuItem{
		ID:        "42",
		Name:      "Scrambled Eggs",
		Calories:  "210",
		Portion:   "1 cup",
		Allergens: "egg,milk",
	}, mainLine.Items[0])
}

/* ─── Anchor date and URL tests ──────────────────────────────────────── */

func TestAnchorMonday_MidWeek(t *testing.T) {
	wednesday := time.Date(2026, 8, 26, 15, 45, 10, 0, time.UTC)
	anchor := anchorMonday(wednesday)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), anchor)
}

func TestAnchorMonday_OnMonday(t *testing.T) {
	monday := time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), anchorMonday(monday))
}

func TestAnchorMonday_OnSunday(t *testing.T) {
	sunday := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), anchorMonday(sunday))
}

func TestFeedURLFor(t *testing.T) {
	anchor := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 26, 14, 5, 9, 0, time.UTC)
	feedURL := feedURLFor(anchor, now)
	assert.Contains(t, feedURL, "606_breakers_08-24-2026_one-week_Mon-Sun.json")
	assert.Contains(t, feedURL, "time="+`08%2F24%2F2026+02%3A05%3A09+PM`)
}

/* ─── Cache behavior tests ───────────────────────────────────────────── */

func TestMenuFor_CachesWithinTTL(t *testing.T) {
	mc, fetches, _ := newTestMenuCache(fixtureFeed(), nil)

	first, err := mc.MenuFor(context.Background(), "Monday", "Breakfast")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "Breakfast", first.Meal.Title)
	assert.Equal(t, "Monday", first.Date)

	second, err := mc.MenuFor(context.Background(), "Monday", "Breakfast")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, *fetches, "second call within TTL must not fetch")
}

func TestMenuFor_CaseInsensitiveLookup(t *testing.T) {
	mc, _, _ := newTestMenuCache(fixtureFeed(), nil)

	result, err := mc.MenuFor(context.Background(), "monday", "breakfast")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Breakfast", result.Meal.Title)
}

// Case-variant inputs land in separate cache slots even though they resolve
// to the same menu: the key is built from the raw strings.
func TestMenuFor_CaseVariantKeysPopulateSeparateSlots(t *testing.T) {
	mc, fetches, _ := newTestMenuCache(fixtureFeed(), nil)

	_, err := mc.MenuFor(context.Background(), "Monday", "Breakfast")
	require.NoError(t, err)
	_, err = mc.MenuFor(context.Background(), "monday", "breakfast")
	require.NoError(t, err)

	assert.Equal(t, 2, *fetches)
	assert.Len(t, mc.entries, 2)
}

func TestMenuFor_NotFoundIsNilAndCached(t *testing.T) {
	mc, fetches, _ := newTestMenuCache(fixtureFeed(), nil)

	result, err := mc.MenuFor(context.Background(), "Sunday", "Brunch")
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = mc.MenuFor(context.Background(), "Sunday", "Brunch")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, *fetches, "cached nil must not trigger a refetch")
}

func TestMenuFor_ExpiredEntryRefetches(t *testing.T) {
	mc, fetches, now := newTestMenuCache(fixtureFeed(), nil)

	_, err := mc.MenuFor(context.Background(), "Monday", "Lunch")
	require.NoError(t, err)

	*now = now.Add(menuCacheTTL + time.Minute)

	_, err = mc.MenuFor(context.Background(), "Monday", "Lunch")
	require.NoError(t, err)
	assert.Equal(t, 2, *fetches)
}

func TestMenuFor_FetchErrorNotCached(t *testing.T) {
	mc, fetches, _ := newTestMenuCache("", fmt.Errorf("dining facility feed returned status 500"))

	_, err := mc.MenuFor(context.Background(), "Monday", "Breakfast")
	require.Error(t, err)
	assert.Empty(t, mc.entries)

	_, err = mc.MenuFor(context.Background(), "Monday", "Breakfast")
	require.Error(t, err)
	assert.Equal(t, 2, *fetches, "failures must not be cached")
}

func TestMenuFor_MalformedFeedFails(t *testing.T) {
	mc, _, _ := newTestMenuCache("<html>maintenance page</html>", nil)

	_, err := mc.MenuFor(context.Background(), "Monday", "Breakfast")
	assert.ErrorIs(t, err, errMenuDataMissing)
	assert.Empty(t, mc.entries)
}

/* ─── Default view tests ─────────────────────────────────────────────── */

func TestDefaultView_AllMeals(t *testing.T) {
	mc, _, _ := newTestMenuCache(fixtureFeed(), nil)

	view, err := mc.DefaultView(context.Background())
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "Breakers Menu", view.Title)
	assert.Equal(t, "08/24/2026", view.Date)
	assert.Equal(t, "All Meals", view.Meal.Title)
	require.Len(t, view.Meal.Categories, 1)
	assert.Equal(t, "Main Line", view.Meal.Categories[0].Title)
}

func TestDefaultView_NeverCached(t *testing.T) {
	mc, fetches, _ := newTestMenuCache(fixtureFeed(), nil)

	_, err := mc.DefaultView(context.Background())
	require.NoError(t, err)
	_, err = mc.DefaultView(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, *fetches)
	assert.Empty(t, mc.entries)
}

/* ─── Route tests ────────────────────────────────────────────────────── */

func TestDiningFacilityRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mc, _, _ := newTestMenuCache(fixtureFeed(), nil)
	h := &Handler{menu: mc}

	router := gin.New()
	router.GET("/api/diningfacility", h.getDiningFacilityMenu)

	req := httptest.NewRequest("GET", "/api/diningfacility", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dayMealMenu
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "All Meals", resp.Meal.Title)
}

func TestDiningFacilityRoute_UpstreamFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mc, _, _ := newTestMenuCache("", fmt.Errorf("dining facility feed returned status 500"))
	h := &Handler{menu: mc}

	router := gin.New()
	router.GET("/api/diningfacility", h.getDiningFacilityMenu)

	req := httptest.NewRequest("GET", "/api/diningfacility", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed to fetch dining facility menu", resp["error"])
}
