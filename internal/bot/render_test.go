package bot

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

func TestRenderListingGolden(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	pendingExp := now.Add(24 * time.Hour)
	paidExp := now.Add(36*time.Hour + 30*time.Minute)

	items := []model.Item{
		{Name: "Set1", Price: 1000, Currency: model.CurrencyCoins},
		{Name: "Diamond Set", Price: 2500, Currency: model.CurrencyMoney, RentedBy: "111", ExpiresAt: &pendingExp},
		{Name: "Netherite", Price: 10, Currency: model.CurrencyCoins, RentedBy: "222", Paid: true, ExpiresAt: &paidExp},
		{Name: "Legacy", Price: 1234567, Currency: model.CurrencyCoins, RentedBy: "333", Paid: true},
	}

	resp := RenderListing(rental.BuildListing(items, nil, now))

	g := goldie.New(t)
	g.Assert(t, "listing", []byte(resp.String()))
}

func TestRenderBlacklistGolden(t *testing.T) {
	entries := []model.BlacklistEntry{
		{UserID: "111", Reason: "chargeback"},
		{UserID: "222"},
	}

	g := goldie.New(t)
	g.Assert(t, "blacklist", []byte(RenderBlacklist(entries).String()))
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "Custom Sets\nNo sets listed yet.\n", RenderListing(rental.BuildListing(nil, nil, time.Now())).String())
	assert.Equal(t, "Blacklist\nNobody is blacklisted.\n", RenderBlacklist(nil).String())
}

func TestRenderHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	events := []model.Event{
		{Kind: model.EventItemRented, UserID: "111", ActorID: "9", Detail: "1w", CreatedAt: at},
		{Kind: model.EventItemAdded, ActorID: "9", Detail: "1000 coins", CreatedAt: at},
	}

	resp := RenderHistory("Set1", events)
	assert.Equal(t, "History of Set1", resp.Title)
	assert.Equal(t,
		"`2026-03-01 12:30` rented to <@111> for 1w by <@9>\n`2026-03-01 12:30` added for 1000 coins by <@9>",
		resp.Text)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1,000 coins", FormatPrice(1000, "coins"))
	assert.Equal(t, "5 money", FormatPrice(5, "money"))
}
