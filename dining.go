package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// The dining facility publishes its weekly menu as a JavaScript document:
// a JSON array assigned to `menuData` holds the menu structure, and a series
// of `aData['<id>'] = new Array(...)` assignments hold per-product nutrition
// rows. Both are pulled out of the raw text by pattern matching.

const menuCacheTTL = time.Hour

const menuFeedURLFormat = "https://usafdining-vandenberg.catertrax.com/upload/606_breakers_%s_one-week_Mon-Sun.json?time=%s"

// Nutrition rows are positional; only these indices are consumed.
const (
	nutritionPortionIndex   = 0
	nutritionCaloriesIndex  = 1
	nutritionNameIndex      = 22
	nutritionAllergensIndex = 24
)

var (
	menuDataPattern     = regexp.MustCompile(`(?s)menuData\s*=\s*(\[.*?\]);`)
	nutritionRowPattern = regexp.MustCompile(`(?s)aData\['([^']+)'\]\s*=\s*new Array\((.*?)\);`)
)

var errMenuDataMissing = errors.New("could not find menu data in feed response")

/* ─── Feed document shapes ───────────────────────────────────────────── */

// feedDocument is the raw menu structure embedded in the feed. Tabs are days,
// groups are meals, and each category lists product ids whose details live in
// the nutrition rows.
type feedDocument struct {
	Title     string `json:"title"`
	StartDate string `json:"startdate"`
	EndDate   string `json:"enddate"`
	Menus     []struct {
		Title string `json:"title"`
		Tabs  []struct {
			Title  string `json:"title"`
			Groups []struct {
				Title    string `json:"title"`
				Category []struct {
					Title    string   `json:"title"`
					Products []string `json:"products"`
				} `json:"category"`
			} `json:"groups"`
		} `json:"tabs"`
	} `json:"menus"`
}

/* ─── Normalized menu shapes ─────────────────────────────────────────── */

// menuItem is one product joined with its nutrition row.
type menuItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Calories  string `json:"calories"`
	Portion   string `json:"portion"`
	Allergens string `json:"allergens"`
}

type menuCategory struct {
	Title string     `json:"title"`
	Items []menuItem `json:"items"`
}

type menuMeal struct {
	Title      string         `json:"title"`
	Categories []menuCategory `json:"categories"`
}

type menuDay struct {
	Day   string     `json:"day"`
	Meals []menuMeal `json:"meals"`
}

// weeklyMenu is the fully joined menu tree for the published week.
type weeklyMenu struct {
	Title     string    `json:"title"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Days      []menuDay `json:"days"`
}

// dayMealMenu is the narrowed result for one day and meal.
type dayMealMenu struct {
	Title string   `json:"title"`
	Date  string   `json:"date"`
	Meal  menuMeal `json:"meal"`
}

/* ─── Cache ──────────────────────────────────────────────────────────── */

type menuCacheEntry struct {
	data      *dayMealMenu
	timestamp time.Time
	key       string
}

// menuCache is the process-wide menu cache. The clock and fetch function are
// injectable so TTL behavior and parsing can be tested deterministically.
// Concurrent misses on the same key are not coalesced; each one fetches the
// feed independently and the last writer wins, which wastes bandwidth but
// cannot corrupt state since results are identical within an anchor week.
type menuCache struct {
	ttl   time.Duration
	now   func() time.Time
	fetch func(ctx context.Context, feedURL string) (string, error)

	mu      sync.Mutex
	entries map[string]menuCacheEntry
}

func newMenuCache() *menuCache {
	return &menuCache{
		ttl:     menuCacheTTL,
		now:     time.Now,
		fetch:   fetchFeedDocument,
		entries: make(map[string]menuCacheEntry),
	}
}

// fetchFeedDocument performs the outbound feed request. Any non-2xx status is
// an error; there are no retries.
func fetchFeedDocument(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("create feed request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch dining facility feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("dining facility feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read feed response: %w", err)
	}
	return string(body), nil
}

// anchorMonday returns the Monday of the week containing now, at local
// midnight. The feed is published per-Monday, so this anchors the URL.
func anchorMonday(now time.Time) time.Time {
	daysBack := (int(now.Weekday()) + 6) % 7
	d := now.AddDate(0, 0, -daysBack)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// feedURLFor formats the feed URL for the given anchor Monday. The time query
// parameter carries the anchor date plus the current clock time; upstream
// treats it as a cache-buster, not a semantic parameter.
func feedURLFor(anchor, now time.Time) string {
	timeParam := anchor.Format("01/02/2006") + " " + now.Format("03:04:05 PM")
	return fmt.Sprintf(menuFeedURLFormat, anchor.Format("01-02-2006"), url.QueryEscape(timeParam))
}

// load fetches and parses the current week's feed into a joined menu tree.
func (mc *menuCache) load(ctx context.Context) (*weeklyMenu, error) {
	now := mc.now()
	feedURL := feedURLFor(anchorMonday(now), now)

	body, err := mc.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	doc, err := extractMenuDocument(body)
	if err != nil {
		return nil, err
	}
	rows := extractNutritionRows(body)

	return joinMenu(doc, rows), nil
}

// DefaultView returns the first day's first meal's categories under a
// synthetic "All Meals" title. The result is never cached and never nil when
// the feed parses successfully.
func (mc *menuCache) DefaultView(ctx context.Context) (*dayMealMenu, error) {
	menu, err := mc.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(menu.Days) == 0 || len(menu.Days[0].Meals) == 0 {
		return nil, errMenuDataMissing
	}

	return &dayMealMenu{
		Title: menu.Title,
		Date:  menu.StartDate,
		Meal: menuMeal{
			Title:      "All Meals",
			Categories: menu.Days[0].Meals[0].Categories,
		},
	}, nil
}

// MenuFor returns the menu for one day and meal, consulting the cache first.
// A nil result (day or meal not present in the feed) is cached for the full
// TTL just like a hit. Fetch and parse failures surface immediately and are
// never cached. The cache key is built from the raw inputs, so case-variant
// spellings of the same day occupy separate slots even though the tree
// lookup itself is case-insensitive.
func (mc *menuCache) MenuFor(ctx context.Context, day, mealTime string) (*dayMealMenu, error) {
	key := cacheKeyPart(day) + "-" + cacheKeyPart(mealTime)
	now := mc.now()

	mc.mu.Lock()
	entry, ok := mc.entries[key]
	mc.mu.Unlock()
	if ok && now.Sub(entry.timestamp) < mc.ttl {
		return entry.data, nil
	}

	menu, err := mc.load(ctx)
	if err != nil {
		return nil, err
	}

	result := narrowMenu(menu, day, mealTime)

	mc.mu.Lock()
	mc.entries[key] = menuCacheEntry{data: result, timestamp: now, key: key}
	mc.mu.Unlock()

	return result, nil
}

func cacheKeyPart(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

/* ─── Extraction and joining ─────────────────────────────────────────── */

// extractMenuDocument pulls the first `menuData = [...]` assignment out of the
// feed text and parses it. The array's first element is the menu document.
func extractMenuDocument(body string) (*feedDocument, error) {
	match := menuDataPattern.FindStringSubmatch(body)
	if match == nil {
		return nil, errMenuDataMissing
	}

	var docs []feedDocument
	if err := json.Unmarshal([]byte(match[1]), &docs); err != nil {
		return nil, fmt.Errorf("parse menu data: %w", err)
	}
	if len(docs) == 0 {
		return nil, errMenuDataMissing
	}
	return &docs[0], nil
}

// extractNutritionRows collects every `aData['id'] = new Array(...)` assignment
// into a map of id to field sequence. Fields are split on commas and stripped
// of surrounding quotes; a comma embedded inside a quoted field therefore
// splits incorrectly, matching how the feed has always been consumed;
// downstream index positions assume this exact splitting.
func extractNutritionRows(body string) map[string][]string {
	rows := make(map[string][]string)
	for _, match := range nutritionRowPattern.FindAllStringSubmatch(body, -1) {
		id, valuesStr := match[1], match[2]
		parts := strings.Split(valuesStr, ",")
		values := make([]string, len(parts))
		for i, part := range parts {
			values[i] = stripQuotes(part)
		}
		rows[id] = values
	}
	return rows
}

// stripQuotes trims whitespace and one layer of surrounding double then
// single quotes. Each side is trimmed independently.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimPrefix(s, `'`)
	s = strings.TrimSuffix(s, `'`)
	return s
}

// joinMenu walks the first menu's tabs/groups/categories and joins each
// product id against its nutrition row. Ids with no row are dropped silently.
func joinMenu(doc *feedDocument, rows map[string][]string) *weeklyMenu {
	menu := &weeklyMenu{
		Title:     doc.Title,
		StartDate: doc.StartDate,
		EndDate:   doc.EndDate,
	}
	if len(doc.Menus) == 0 {
		return menu
	}

	for _, tab := range doc.Menus[0].Tabs {
		day := menuDay{Day: tab.Title}
		for _, group := range tab.Groups {
			meal := menuMeal{Title: group.Title}
			for _, cat := range group.Category {
				category := menuCategory{Title: cat.Title, Items: []menuItem{}}
				for _, productID := range cat.Products {
					row, ok := rows[productID]
					if !ok {
						continue
					}
					category.Items = append(category.Items, menuItem{
						ID:        productID,
						Name:      rowField(row, nutritionNameIndex),
						Calories:  rowField(row, nutritionCaloriesIndex),
						Portion:   rowField(row, nutritionPortionIndex),
						Allergens: rowField(row, nutritionAllergensIndex),
					})
				}
				meal.Categories = append(meal.Categories, category)
			}
			day.Meals = append(day.Meals, meal)
		}
		menu.Days = append(menu.Days, day)
	}
	return menu
}

// rowField returns the value at index i, or "" for rows too short to hold it.
func rowField(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// narrowMenu finds the requested day and meal by case-insensitive exact title
// match. Returns nil when either lookup misses.
func narrowMenu(menu *weeklyMenu, day, mealTime string) *dayMealMenu {
	for _, d := range menu.Days {
		if !strings.EqualFold(d.Day, day) {
			continue
		}
		for _, m := range d.Meals {
			if strings.EqualFold(m.Title, mealTime) {
				return &dayMealMenu{
					Title: menu.Title,
					Date:  d.Day,
					Meal:  menuMeal{Title: m.Title, Categories: m.Categories},
				}
			}
		}
		return nil
	}
	return nil
}

/* ─── Route handler ──────────────────────────────────────────────────── */

// getDiningFacilityMenu returns the unfiltered default menu view.
// GET /api/diningfacility (public; the menu is not user data).
func (h *Handler) getDiningFacilityMenu(c *gin.Context) {
	menu, err := h.menu.DefaultView(c.Request.Context())
	if err != nil {
		log.Printf("[diningfacility] %v", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch dining facility menu")
		return
	}
	c.JSON(http.StatusOK, menu)
}
