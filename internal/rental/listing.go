package rental

import (
	"context"
	"time"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/store"
)

// ListedItem is an item together with its display state.
type ListedItem struct {
	model.Item
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	HoursLeft   int64  `json:"hours_left,omitempty"`
}

// Listing is the snapshot shown by the list command and the web panel.
type Listing struct {
	Items       []ListedItem           `json:"items"`
	Blacklist   []model.BlacklistEntry `json:"blacklist"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Listing returns all items with their computed status and all blacklist
// entries, read in one consistent snapshot.
func (s *Service) Listing(ctx context.Context) (Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := store.ListItems(ctx, s.db)
	if err != nil {
		return Listing{}, persistence("listing", err)
	}
	entries, err := store.ListBlacklist(ctx, s.db)
	if err != nil {
		return Listing{}, persistence("listing", err)
	}

	now := s.now()
	return BuildListing(items, entries, now), nil
}

// BuildListing projects items and blacklist entries onto a Listing at now.
func BuildListing(items []model.Item, entries []model.BlacklistEntry, now time.Time) Listing {
	l := Listing{
		Items:       make([]ListedItem, 0, len(items)),
		Blacklist:   entries,
		GeneratedAt: now.UTC(),
	}
	if l.Blacklist == nil {
		l.Blacklist = []model.BlacklistEntry{}
	}
	for _, item := range items {
		st := ItemStatus(item, now)
		l.Items = append(l.Items, ListedItem{
			Item:        item,
			Status:      st.Kind.String(),
			StatusLabel: st.Label(),
			HoursLeft:   st.HoursLeft,
		})
	}
	return l
}
