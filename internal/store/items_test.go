package store

import (
	"context"
	"testing"
	"time"

	"github.com/Clownyz/rentals-bot/internal/db"
	"github.com/Clownyz/rentals-bot/internal/model"
)

func TestUpsertAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	err := UpsertItem(ctx, database, &model.Item{Name: "Set1", Price: 1000, Currency: model.CurrencyCoins})
	if err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}

	item, err := GetItem(ctx, database, "Set1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item == nil {
		t.Fatal("expected item, got nil")
	}
	if item.Price != 1000 || item.Currency != model.CurrencyCoins {
		t.Errorf("unexpected item %+v", item)
	}
	if item.Rented() || item.ExpiresAt != nil || item.Paid {
		t.Errorf("expected available item, got %+v", item)
	}
}

func TestGetItemMissing(t *testing.T) {
	database := db.NewTestDB(t)

	item, err := GetItem(context.Background(), database, "nope")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item != nil {
		t.Errorf("expected nil for missing item, got %+v", item)
	}
}

func TestGetItemIsCaseSensitive(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	UpsertItem(ctx, database, &model.Item{Name: "Set1", Price: 10, Currency: model.CurrencyCoins})

	item, _ := GetItem(ctx, database, "set1")
	if item != nil {
		t.Error("expected lookup by differently cased name to miss")
	}
}

func TestUpsertReplacesRecord(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	exp := time.Unix(3600, 0).UTC()
	UpsertItem(ctx, database, &model.Item{Name: "Set1", Price: 1000, Currency: model.CurrencyCoins, RentedBy: "U1", Paid: true, ExpiresAt: &exp})

	// Replace, not merge: the rental fields are cleared.
	if err := UpsertItem(ctx, database, &model.Item{Name: "Set1", Price: 5, Currency: model.CurrencyMoney}); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}

	item, _ := GetItem(ctx, database, "Set1")
	if item.Price != 5 || item.Currency != model.CurrencyMoney {
		t.Errorf("expected replaced price/currency, got %+v", item)
	}
	if item.RentedBy != "" || item.Paid || item.ExpiresAt != nil {
		t.Errorf("expected rental fields cleared, got %+v", item)
	}
}

func TestRentalFieldsRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	exp := time.Unix(1700000000, 0).UTC()
	UpsertItem(ctx, database, &model.Item{Name: "Set1", Price: 1, Currency: model.CurrencyCoins, RentedBy: "U1", Paid: true, ExpiresAt: &exp})

	item, _ := GetItem(ctx, database, "Set1")
	if item.RentedBy != "U1" || !item.Paid {
		t.Errorf("unexpected rental fields %+v", item)
	}
	if item.ExpiresAt == nil || !item.ExpiresAt.Equal(exp) {
		t.Errorf("expected expiry %v, got %v", exp, item.ExpiresAt)
	}
}

func TestListItemsInsertionOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		UpsertItem(ctx, database, &model.Item{Name: name, Price: 1, Currency: model.CurrencyCoins})
	}
	// Replacing an existing record keeps its position.
	UpsertItem(ctx, database, &model.Item{Name: "Zeta", Price: 2, Currency: model.CurrencyCoins})

	items, err := ListItems(ctx, database)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	want := []string{"Zeta", "Alpha", "Mid"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}

func TestListExpiredItemsStrictlyBefore(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	exp := time.Unix(3600, 0).UTC()
	UpsertItem(ctx, database, &model.Item{Name: "Set1", Price: 1, Currency: model.CurrencyCoins, RentedBy: "U1", ExpiresAt: &exp})
	UpsertItem(ctx, database, &model.Item{Name: "Free", Price: 1, Currency: model.CurrencyCoins})

	due, _ := ListExpiredItems(ctx, database, exp)
	if len(due) != 0 {
		t.Errorf("expected nothing due at expiry time, got %d", len(due))
	}

	due, _ = ListExpiredItems(ctx, database, exp.Add(time.Second))
	if len(due) != 1 || due[0].Name != "Set1" {
		t.Errorf("expected Set1 due one second after expiry, got %+v", due)
	}
}

func TestFindItemRentedBy(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	exp := time.Unix(3600, 0).UTC()
	UpsertItem(ctx, database, &model.Item{Name: "Set1", Price: 1, Currency: model.CurrencyCoins})
	UpsertItem(ctx, database, &model.Item{Name: "Set2", Price: 1, Currency: model.CurrencyCoins, RentedBy: "U1", ExpiresAt: &exp})

	item, err := FindItemRentedBy(ctx, database, "U1")
	if err != nil {
		t.Fatalf("FindItemRentedBy: %v", err)
	}
	if item == nil || item.Name != "Set2" {
		t.Errorf("expected Set2, got %+v", item)
	}

	item, _ = FindItemRentedBy(ctx, database, "U2")
	if item != nil {
		t.Errorf("expected nil for user without rental, got %+v", item)
	}
}

func TestDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	UpsertItem(ctx, database, &model.Item{Name: "Set1", Price: 1, Currency: model.CurrencyCoins})

	removed, err := DeleteItem(ctx, database, "Set1")
	if err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if !removed {
		t.Error("expected existing item to be removed")
	}

	removed, err = DeleteItem(ctx, database, "Set1")
	if err != nil {
		t.Fatalf("DeleteItem again: %v", err)
	}
	if removed {
		t.Error("expected second delete to report nothing removed")
	}

	items, _ := ListItems(ctx, database)
	if len(items) != 0 {
		t.Errorf("expected no items after delete, got %d", len(items))
	}
}
