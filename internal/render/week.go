// Package render картинка недели коуча: свободные слоты и сессии
package render

import (
	"bytes"
	"image/color"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

type fontStyle int

const (
	fontRegular fontStyle = iota
	fontBold
)

// Константы размеров и отступов
const (
	ImageWidth       = 1400
	ImageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 120
	dayPaddingX      = 8
	minBlockHeight   = 8.0
	blockRadius      = 6.0
	shadowOffset     = 3.0
	daysInWeek       = 7
	hourPaddingTop   = 1
	hourPaddingBot   = 1
	defaultStartHour = 8
	defaultEndHour   = 20
)

const (
	titleFontSize      = 25.0
	dayFontSize        = 24.0
	hourLabelFontSize  = 16.0
	blockTimeFontSize  = 15.0
	legendItemFontSize = 12.0
)

var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	freeColor       = color.RGBA{133, 193, 85, 220}
	bookedColor     = color.RGBA{255, 182, 193, 255}
	inProgressColor = color.RGBA{120, 170, 230, 230}
	blockTextColor  = color.RGBA{20, 24, 28, 230}
	bookedTextColor = color.RGBA{120, 40, 50, 255}
	shadowColor     = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

type blockKind int

const (
	blockFree blockKind = iota
	blockBooked
	blockInProgress
)

// block прямоугольник на сетке в часовом поясе коуча
type block struct {
	start time.Time
	end   time.Time
	kind  blockKind
	label string
}

type weekBounds struct {
	start time.Time
	end   time.Time
}

type hourRange struct {
	start int
	end   int
	total int
}

// Week данные для картинки недели
type Week struct {
	Day      time.Time // любой день недели
	Location *time.Location
	Now      time.Time
	Free     []model.Slot
	Sessions []*model.Session
	Names    map[int64]string // имена менти для подписей
}

var (
	fontsMu     sync.Mutex
	cachedFonts = make(map[fontStyle]*opentype.Font)
)

// loadFont ставит шрифт Go нужного размера, при ошибке basicfont
func loadFont(dc *gg.Context, size float64, style fontStyle) {
	data := goregular.TTF
	if style == fontBold {
		data = gobold.TTF
	}

	fontsMu.Lock()
	parsed, ok := cachedFonts[style]
	if !ok {
		var err error
		parsed, err = opentype.Parse(data)
		if err != nil {
			fontsMu.Unlock()
			dc.SetFontFace(basicfont.Face7x13)
			return
		}
		cachedFonts[style] = parsed
	}
	fontsMu.Unlock()

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		dc.SetFontFace(basicfont.Face7x13)
		return
	}
	dc.SetFontFace(face)
}

// WeekImage рисует неделю (Пн-Вс) в PNG
func WeekImage(w Week) ([]byte, error) {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	week := weekOf(w.Day.In(loc))
	today := startOfDay(w.Now.In(loc))
	highlightToday := !today.Before(week.start) && !today.After(week.end)

	blocks := collectBlocks(w, loc)
	byDay := groupByDay(blocks)
	hours := calculateHourRange(blocks)

	dc := gg.NewContext(ImageWidth, ImageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (ImageWidth - leftLabelsWidth - legendWidth) / daysInWeek
	dayHeight := ImageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week)
	drawHourLabels(dc, hours, cellHeight)

	day := week.start
	for i := 0; i < daysInWeek; i++ {
		x := float64(leftLabelsWidth + i*dayWidth)
		y := float64(headerHeight)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, i, highlightToday && sameDay(day, today))
		drawDayHeader(dc, day, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, b := range byDay[day.Format("2006-01-02")] {
			drawBlock(dc, b, x, y, dayWidth, hours, cellHeight)
		}
		day = day.AddDate(0, 0, 1)
	}

	if highlightToday {
		drawCurrentTimeLine(dc, w.Now.In(loc), hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func collectBlocks(w Week, loc *time.Location) []block {
	blocks := make([]block, 0, len(w.Free)+len(w.Sessions))
	for _, s := range w.Free {
		blocks = append(blocks, block{start: s.Start.In(loc), end: s.End.In(loc), kind: blockFree})
	}
	for _, s := range w.Sessions {
		if !s.Status.IsActive() {
			continue
		}
		kind := blockBooked
		if s.Status == model.SessionStatusInProgress {
			kind = blockInProgress
		}
		blocks = append(blocks, block{
			start: s.ScheduledAt.In(loc),
			end:   s.EndsAt().In(loc),
			kind:  kind,
			label: w.Names[s.MenteeID],
		})
	}
	return blocks
}

// weekOf границы недели с понедельника
func weekOf(date time.Time) weekBounds {
	day := startOfDay(date)
	sinceMonday := int(day.Weekday()) - 1
	if day.Weekday() == time.Sunday {
		sinceMonday = 6
	}
	start := day.AddDate(0, 0, -sinceMonday)
	return weekBounds{start: start, end: start.AddDate(0, 0, 6)}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func groupByDay(blocks []block) map[string][]block {
	out := make(map[string][]block)
	for _, b := range blocks {
		key := b.start.Format("2006-01-02")
		out[key] = append(out[key], b)
	}
	return out
}

// calculateHourRange часы, которые попадут на картинку
func calculateHourRange(blocks []block) hourRange {
	minHour, maxHour := 24, 0
	for _, b := range blocks {
		startH := b.start.Hour()
		endH := b.end.Hour()
		if b.end.Minute() > 0 {
			endH++
		}
		if !sameDay(b.start, b.end) {
			endH = 24
		}
		if startH < minHour {
			minHour = startH
		}
		if endH > maxHour {
			maxHour = endH
		}
	}
	if minHour == 24 {
		minHour, maxHour = defaultStartHour, defaultEndHour
	}

	start := minHour - hourPaddingTop
	end := maxHour + hourPaddingBot
	if start < 0 {
		start = 0
	}
	if end > 24 {
		end = 24
	}
	return hourRange{start: start, end: end, total: end - start}
}

func drawHeader(dc *gg.Context, week weekBounds) {
	title := week.start.Format("January 2006")
	if week.start.Month() != week.end.Month() {
		title = week.start.Format("January") + " - " + week.end.Format("January 2006")
	}

	loadFont(dc, titleFontSize, fontBold)
	dc.SetColor(textColor)
	w, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, w/2+10, float64(headerHeight)/8+h/2, 0, 0)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	loadFont(dc, hourLabelFontSize, fontRegular)
	dc.SetColor(hourLabelColor)
	for i := 0; i <= hours.total; i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(model.FormatClock((hours.start+i)*60), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, index int, today bool) {
	switch {
	case today:
		dc.SetColor(todayBgColor)
	case index%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	loadFont(dc, dayFontSize, fontBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("02.01"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(date.Format("Mon"), x+float64(dayWidth)/2, y, 0.5, -0.2)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)
	for i := 0; i <= hours.total; i++ {
		hy := y + float64(i)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

func drawBlock(dc *gg.Context, b block, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	startHour := float64(b.start.Hour()) + float64(b.start.Minute())/60.0
	endHour := startHour + b.end.Sub(b.start).Hours()

	blockY := y + (startHour-float64(hours.start))*cellHeight
	height := (endHour - startHour) * cellHeight
	if height < minBlockHeight {
		height = minBlockHeight
	}

	fill := blockColor(b.kind)
	width := float64(dayWidth) - float64(dayPaddingX*2)

	// Тень
	dc.SetColor(shadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, blockY+2+shadowOffset, width, height-4, blockRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, blockY+2, width, height-4, blockRadius)
	dc.Fill()

	dc.SetColor(darken(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, blockY+2, width, height-4, blockRadius)
	dc.Stroke()

	txtColor := blockTextColor
	if b.kind == blockBooked {
		txtColor = bookedTextColor
	}

	loadFont(dc, blockTimeFontSize, fontRegular)
	dc.SetColor(txtColor)
	txtX := x + dayPaddingX + 8
	txtY := blockY + 18
	dc.DrawStringAnchored(b.start.Format("15:04"), txtX, txtY, 0, 0)

	if b.label != "" && height > 25 {
		label := []rune(b.label)
		if len(label) > 18 {
			label = append(label[:15], []rune("...")...)
		}
		loadFont(dc, blockTimeFontSize-2, fontRegular)
		dc.DrawStringAnchored(string(label), txtX, txtY+16, 0, 0)
	}
}

func blockColor(kind blockKind) color.RGBA {
	switch kind {
	case blockBooked:
		return bookedColor
	case blockInProgress:
		return inProgressColor
	}
	return freeColor
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// drawCurrentTimeLine красная линия текущего времени
func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	current := float64(now.Hour()) + float64(now.Minute())/60.0
	if current < float64(hours.start) || current > float64(hours.end) {
		return
	}
	y := float64(headerHeight) + (current-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), y, float64(leftLabelsWidth+daysInWeek*dayWidth), y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Free", freeColor},
		{"Booked", bookedColor},
		{"In progress", inProgressColor},
	}

	const boxW, boxH = 20.0, 14.0
	x := float64(leftLabelsWidth + daysInWeek*dayWidth + 10)
	y := float64(ImageHeight) - 78.0

	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		loadFont(dc, legendItemFontSize, fontRegular)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, x+boxW+8, y+boxH/2+1, 0, 0.2)
		y += boxH + 14
	}
}
