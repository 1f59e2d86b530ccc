// file: controllers/calendar_controller.go
package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"climb-calendar/calendar"
	"climb-calendar/i18n"
	"climb-calendar/logger"
	"climb-calendar/models"
	"climb-calendar/services"
)

// CalendarController lays competitions and personal events out on month grids.
type CalendarController struct {
	comps  *services.CompetitionService
	events *services.UserEventService
	tr     *i18n.Translator
	appURL string
	now    func() time.Time
}

func NewCalendarController(comps *services.CompetitionService, events *services.UserEventService, tr *i18n.Translator, appURL string) *CalendarController {
	return &CalendarController{comps: comps, events: events, tr: tr, appURL: appURL, now: time.Now}
}

type gridQuery struct {
	Year      int   `form:"year"`
	Month     int   `form:"month"`
	WeekStart *int  `form:"weekStart"`
	SixWeeks  *bool `form:"sixWeeks"`
}

func (q gridQuery) options() (calendar.GridOptions, error) {
	opts := calendar.DefaultGridOptions
	if q.WeekStart != nil {
		if *q.WeekStart < 0 || *q.WeekStart > 6 {
			return opts, errors.New("weekStart must be between 0 (Sunday) and 6")
		}
		opts.WeekStart = time.Weekday(*q.WeekStart)
	}
	if q.SixWeeks != nil {
		opts.SixWeeks = *q.SixWeeks
	}
	return opts, nil
}

// itemView is an item with its display dates.
type itemView struct {
	models.Item
	ID    string `json:"id"`
	Title string `json:"title"`
	Color string `json:"color"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func viewOf(it models.Item) itemView {
	return itemView{
		Item:  it,
		ID:    it.ID(),
		Title: it.Title(),
		Color: it.Color(),
		Start: calendar.FormatStart(it),
		End:   calendar.FormatEnd(it),
	}
}

type monthView struct {
	Grid       calendar.MonthGrid              `json:"grid"`
	Placements map[string][]calendar.Placement `json:"placements"`
}

// items gathers the filtered competitions and, for a signed-in session, its
// personal events.
func (cc *CalendarController) items(ctx context.Context, f calendar.Filter) ([]models.Item, error) {
	cs, _, err := loadCompetitions(ctx, cc.comps, f)
	if err != nil {
		return nil, err
	}
	items := models.CompetitionItems(cs)

	es, _, err := loadUserEvents(ctx, cc.events)
	switch {
	case errors.Is(err, services.ErrPermission):
	case err != nil:
		logger.Warn.Printf("[CalendarController.items] personal events unavailable: %v", err)
	default:
		items = append(items, models.UserEventItems(es)...)
	}
	return calendar.SortItems(items), nil
}

func (cc *CalendarController) bind(c *gin.Context) (gridQuery, calendar.GridOptions, calendar.Filter, bool) {
	var q gridQuery
	var f calendar.Filter
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return q, calendar.GridOptions{}, f, false
	}
	if !bindFilter(c, &f) {
		return q, calendar.GridOptions{}, f, false
	}
	opts, err := q.options()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return q, opts, f, false
	}

	today := cc.now()
	if q.Year == 0 {
		q.Year = today.Year()
	}
	if q.Month == 0 {
		q.Month = int(today.Month())
	}
	if q.Month < 1 || q.Month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be between 1 and 12"})
		return q, opts, f, false
	}
	return q, opts, f, true
}

// Month returns one month grid with the placements of every visible item.
//
//	GET /api/calendar/month?year=2024&month=4&weekStart=1&category=U12
func (cc *CalendarController) Month(c *gin.Context) {
	q, opts, f, ok := cc.bind(c)
	if !ok {
		return
	}
	items, err := cc.items(c.Request.Context(), f)
	if err != nil {
		respondError(c, cc.tr, err)
		return
	}

	g := calendar.Month(cc.now(), calendar.Date(q.Year, time.Month(q.Month), 1), opts)
	c.JSON(http.StatusOK, gin.H{
		"weekDays": calendar.WeekDays(opts),
		"month":    monthView{Grid: g, Placements: calendar.Project(g, items)},
		"items":    views(items),
	})
}

// Year returns the twelve month grids of a year.
func (cc *CalendarController) Year(c *gin.Context) {
	q, opts, f, ok := cc.bind(c)
	if !ok {
		return
	}
	items, err := cc.items(c.Request.Context(), f)
	if err != nil {
		respondError(c, cc.tr, err)
		return
	}

	grids := calendar.Year(cc.now(), q.Year, opts)
	months := make([]monthView, 0, len(grids))
	for _, g := range grids {
		months = append(months, monthView{Grid: g, Placements: calendar.Project(g, items)})
	}
	c.JSON(http.StatusOK, gin.H{
		"weekDays": calendar.WeekDays(opts),
		"months":   months,
		"items":    views(items),
	})
}

// ICS exports the filtered competitions as an iCalendar feed.
func (cc *CalendarController) ICS(c *gin.Context) {
	var f calendar.Filter
	if !bindFilter(c, &f) {
		return
	}
	cs, _, err := loadCompetitions(c.Request.Context(), cc.comps, f)
	if err != nil {
		respondError(c, cc.tr, err)
		return
	}

	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", `inline; filename="calendar.ics"`)
	c.Status(http.StatusOK)
	if err := calendar.WriteICS(c.Writer, "Climbing competitions", models.CompetitionItems(cs), cc.now()); err != nil {
		logger.Error.Printf("[ICS] write failed: %v", err)
	}
}

// QRCode renders a QR code of the ICS subscription URL.
func (cc *CalendarController) QRCode(c *gin.Context) {
	size := 256
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a number"})
			return
		}
		size = n
	}
	if size < services.QRSizeMin || size > services.QRSizeMax {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("size must be between %d and %d", services.QRSizeMin, services.QRSizeMax)})
		return
	}

	png, err := services.GenerateQRCode(services.SubscriptionURL(cc.appURL), size, nil)
	if err != nil {
		logger.Error.Printf("[QRCode] failed to generate QR code: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func views(items []models.Item) []itemView {
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		out = append(out, viewOf(it))
	}
	return out
}
