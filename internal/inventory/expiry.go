// Package inventory keeps the fridge contents and says what is about to go off.
package inventory

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"refrigee/internal/ai"
)

type Bucket string

const (
	BucketExpired Bucket = "expired"
	BucketToday   Bucket = "today"
	BucketUrgent  Bucket = "urgent"
	BucketSoon    Bucket = "soon"
	BucketFresh   Bucket = "fresh"
)

const (
	urgentDays = 3
	soonDays   = 7
)

type Item struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Quantity  float64     `json:"quantity"`
	Unit      string      `json:"unit"`
	Category  ai.Category `json:"category"`
	Emoji     string      `json:"emoji"`
	AddedAt   time.Time   `json:"addedAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// DaysLeft counts calendar days from now until expiresAt, in now's location. Times of day
// are ignored, so something expiring tonight has 0 days left all day.
func DaysLeft(expiresAt, now time.Time) int {
	return int(day(expiresAt.In(now.Location())).Sub(day(now)).Hours() / 24)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func BucketFor(daysLeft int) Bucket {
	switch {
	case daysLeft < 0:
		return BucketExpired
	case daysLeft == 0:
		return BucketToday
	case daysLeft <= urgentDays:
		return BucketUrgent
	case daysLeft <= soonDays:
		return BucketSoon
	default:
		return BucketFresh
	}
}

// SortByExpiry returns a copy ordered soonest first; items expiring together keep their order.
func SortByExpiry(items []Item) []Item {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Item) int { return a.ExpiresAt.Compare(b.ExpiresAt) })
	return sorted
}

// NewItem builds an item that expires shelfLifeDays after today.
func NewItem(name string, c ai.Classification, now time.Time) Item {
	return Item{
		Name:      name,
		Quantity:  1,
		Category:  c.Category,
		Emoji:     c.Emoji,
		AddedAt:   now,
		ExpiresAt: now.AddDate(0, 0, c.ShelfLifeDays),
	}
}

type Summary struct {
	Total int `json:"total"`
	// Expired counts items past their date.
	Expired int `json:"expired"`
	// ExpiringSoon counts items due today or within the urgent window.
	ExpiringSoon int            `json:"expiringSoon"`
	Attention    []View         `json:"attention"`
	Buckets      map[Bucket]int `json:"buckets"`
}

// View is an item as the UI shows it.
type View struct {
	Item
	DaysLeft int    `json:"daysLeft"`
	Bucket   Bucket `json:"bucket"`
}

func ViewOf(it Item, now time.Time) View {
	d := DaysLeft(it.ExpiresAt, now)
	return View{Item: it, DaysLeft: d, Bucket: BucketFor(d)}
}

// Summarize builds the dashboard. Attention lists the expiring-soon items, soonest first.
func Summarize(items []Item, now time.Time) Summary {
	views := lo.Map(SortByExpiry(items), func(it Item, _ int) View { return ViewOf(it, now) })
	s := Summary{
		Total:     len(items),
		Attention: []View{},
		Buckets:   lo.CountValuesBy(views, func(v View) Bucket { return v.Bucket }),
	}
	for _, v := range views {
		switch v.Bucket {
		case BucketExpired:
			s.Expired++
		case BucketToday, BucketUrgent:
			s.ExpiringSoon++
			s.Attention = append(s.Attention, v)
		}
	}
	return s
}
