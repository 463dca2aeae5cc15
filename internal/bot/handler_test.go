package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clownyz/rentals-bot/internal/auth"
	"github.com/Clownyz/rentals-bot/internal/db"
	"github.com/Clownyz/rentals-bot/internal/imaging"
	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/notify"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

var (
	admin = Caller{UserID: "1", IsAdmin: true}
	user  = Caller{UserID: "42"}
)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) to(target notify.Target) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, m := range r.msgs {
		if m.Target == target {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	h   *Handler
	svc *rental.Service
	rec *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := rental.NewService(db.NewTestDB(t), rental.WithClock(func() time.Time { return time.Unix(0, 0) }))
	rec := &recorder{}
	h := New(svc, rec, Options{
		Prefix:       "?",
		PanelSecret:  "panel-secret",
		PanelBaseURL: "http://panel.test",
		FetchProof: func(_ context.Context, url string) (*imaging.Proof, error) {
			return &imaging.Proof{Thumbnail: []byte("thumb"), MIME: "image/jpeg", Fingerprint: "fp:" + url}, nil
		},
	})
	return &fixture{h: h, svc: svc, rec: rec}
}

func (f *fixture) run(t *testing.T, caller Caller, content string) string {
	t.Helper()
	resp, ok := f.h.Handle(context.Background(), caller, content)
	require.True(t, ok, "expected %q to be handled", content)
	return resp.String()
}

func TestHandleIgnoresOtherMessages(t *testing.T) {
	f := newFixture(t)

	for _, content := range []string{"hello", "list", "?", "?unknown thing"} {
		_, ok := f.h.Handle(context.Background(), user, content)
		assert.False(t, ok, content)
	}
}

func TestItemAdd(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Added **Set1** for 1,000 coins\n", f.run(t, admin, "?item add Set1 1000 coins"))
	assert.Equal(t, "Added **Diamond Set** for 2,500 money\n", f.run(t, admin, `?item add "Diamond Set" "2500 Money"`))

	item, err := f.svc.GetItem(context.Background(), "Diamond Set")
	require.NoError(t, err)
	assert.Equal(t, model.CurrencyMoney, item.Currency)

	assert.Equal(t, "Currency must be one of coins, money.\n", f.run(t, admin, "?item add Set2 10 gems"))
	assert.Equal(t, "Price must be a positive whole number.\n", f.run(t, admin, "?item add Set2 ten coins"))
	assert.Equal(t, "Specify price (e.g., 1000 coins or 1000 money)\n", f.run(t, admin, "?item add Set2"))
	assert.Equal(t, "Admin only.\n", f.run(t, user, "?item add Set2 10 coins"))

	require.Len(t, f.rec.to(notify.ToDisplays()), 2)
}

func TestItemRent(t *testing.T) {
	f := newFixture(t)
	f.run(t, admin, "?item add Set1 1000 coins")

	assert.Equal(t, "Set1 rented to <@42> for 1d\n", f.run(t, admin, "?item rent Set1 <@!42> 24h"))

	dms := f.rec.to(notify.ToUser("42"))
	require.Len(t, dms, 1)
	assert.Equal(t, "Your set **Set1** is ready for 1d. Send proof in **#proofs**", dms[0].Text)
	logs := f.rec.to(notify.ToLog())
	require.Len(t, logs, 1)
	assert.Equal(t, "RENTED: Set1 to <@42> for 1d", logs[0].Text)

	item, err := f.svc.GetItem(context.Background(), "Set1")
	require.NoError(t, err)
	assert.Equal(t, int64(86400), item.ExpiresAt.Unix())

	assert.Equal(t, "**Set1** is already rented. Return it first.\n", f.run(t, admin, "?item rent Set1 <@7> 1h"))
}

func TestItemRentValidation(t *testing.T) {
	f := newFixture(t)
	f.run(t, admin, "?item add Set1 1000 coins")

	assert.Equal(t, "Mention a user to rent the item to.\n", f.run(t, admin, "?item rent Set1"))
	assert.Equal(t, "Mention a user to rent the item to.\n", f.run(t, admin, "?item rent Set1 bob 1h"))
	assert.Equal(t, "Specify duration (e.g., 24h, 7d, 2w, 1m)\n", f.run(t, admin, "?item rent Set1 <@42>"))
	assert.True(t, strings.HasPrefix(f.run(t, admin, "?item rent Set1 <@42> 5x"), "Use a number followed by h, d, w or m"))
	assert.Equal(t, "Set **Nope** not found.\n", f.run(t, admin, "?item rent Nope <@42> 1h"))

	item, _ := f.svc.GetItem(context.Background(), "Set1")
	assert.False(t, item.Rented())
}

func TestNonAdminRentsOnlyToSelf(t *testing.T) {
	f := newFixture(t)
	f.run(t, admin, "?item add Set1 10 coins")

	assert.Equal(t, "You can only rent sets to yourself.\n", f.run(t, user, "?item rent Set1 <@7> 1h"))
	assert.Equal(t, "Set1 rented to <@42> for 1h\n", f.run(t, user, "?item rent Set1 <@42> 1h"))
}

func TestRentBlacklisted(t *testing.T) {
	f := newFixture(t)
	f.run(t, admin, "?item add Set1 10 coins")

	assert.Equal(t, "<@42> blacklisted: late payments\n", f.run(t, admin, "?blacklist add <@42> late payments"))
	assert.Equal(t, "<@42> is blacklisted.\n", f.run(t, user, "?item rent Set1 <@42> 1h"))

	list := f.run(t, admin, "?blacklist list")
	assert.Contains(t, list, "<@42>: late payments")

	assert.Equal(t, "<@42> removed from the blacklist.\n", f.run(t, admin, "?blacklist remove <@42>"))
	assert.Equal(t, "<@42> is not blacklisted.\n", f.run(t, admin, "?blacklist remove <@42>"))
	assert.Equal(t, "Admin only.\n", f.run(t, user, "?blacklist list"))
}

func TestPaidAndReturn(t *testing.T) {
	f := newFixture(t)
	f.run(t, admin, "?item add Set1 10 coins")

	assert.Equal(t, "**Set1** is not rented.\n", f.run(t, admin, "?item paid Set1"))

	f.run(t, admin, "?item rent Set1 <@42> 1w")
	assert.Equal(t, "**Set1** marked as paid.\n", f.run(t, admin, "?item paid Set1"))
	assert.Contains(t, f.run(t, user, "?list"), "Set1: 10 coins | RENTED (168h left) | <@42>")

	assert.Equal(t, "Set1 returned\n", f.run(t, admin, "?item return Set1"))
	assert.Contains(t, f.run(t, user, "?list"), "Set1: 10 coins | Available")

	// Returning again is a no-op that still succeeds.
	assert.Equal(t, "Set1 returned\n", f.run(t, admin, "?item return Set1"))
	assert.Equal(t, "Set **Nope** not found.\n", f.run(t, admin, "?item return Nope"))

	dms := f.rec.to(notify.ToUser("42"))
	require.Len(t, dms, 3)
	assert.Equal(t, "Payment approved for Set1", dms[1].Text)
	assert.Equal(t, "Your rental **Set1** was returned.", dms[2].Text)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.run(t, admin, "?item add Set1 10 coins")

	assert.Equal(t, "Admin only.\n", f.run(t, user, "?delete Set1"))
	assert.Equal(t, "Set **Set1** deleted.\n", f.run(t, admin, "?delete Set1"))
	assert.Equal(t, "Set **Set1** not found.\n", f.run(t, admin, "?delete Set1"))
	assert.Equal(t, "Custom Sets\nNo sets listed yet.\n", f.run(t, user, "?list"))
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	f.run(t, admin, "?item add Set1 10 coins")
	f.run(t, admin, "?item rent Set1 <@42> 2d")

	out := f.run(t, admin, "?history Set1")
	assert.Contains(t, out, "rented to <@42> for 2d by <@1>")
	assert.Contains(t, out, "added for 10 coins by <@1>")
	assert.Equal(t, "Admin only.\n", f.run(t, user, "?history Set1"))
}

func TestProofWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.run(t, admin, "?item add Set1 10 coins")

	attachments := []Attachment{{URL: "https://cdn.test/pay.png", ContentType: "image/png"}}

	// No rental, not a proof.
	_, ok := f.h.HandleProof(ctx, user, attachments)
	assert.False(t, ok)

	f.run(t, admin, "?item rent Set1 <@42> 1w")
	resp, ok := f.h.HandleProof(ctx, user, attachments)
	require.True(t, ok)
	assert.Equal(t, "Proof received for **Set1**. An admin will review it.", resp.Text)

	logs := f.rec.to(notify.ToLog())
	last := logs[len(logs)-1]
	assert.Equal(t, model.EventProofSubmitted, last.Kind)
	assert.Equal(t, "Proof from <@42> for **Set1**", last.Text)
	assert.Equal(t, []string{"https://cdn.test/pay.png"}, last.Attachments)
	require.NotEmpty(t, last.ProofID)

	// Same screenshot again.
	resp, ok = f.h.HandleProof(ctx, user, attachments)
	require.True(t, ok)
	assert.Equal(t, "This screenshot was already submitted as proof.", resp.Text)

	denied := f.h.HandleDecision(ctx, user, DecisionID(ActionApprove, last.ProofID))
	assert.Equal(t, "Admin only.", denied.Text)
	assert.True(t, denied.Ephemeral)

	approved := f.h.HandleDecision(ctx, admin, DecisionID(ActionApprove, last.ProofID))
	assert.Equal(t, "Approved.", approved.Text)
	assert.True(t, approved.Ephemeral)

	item, err := f.svc.GetItem(ctx, "Set1")
	require.NoError(t, err)
	assert.True(t, item.Paid)

	dms := f.rec.to(notify.ToUser("42"))
	assert.Equal(t, "Payment approved for Set1", dms[len(dms)-1].Text)

	again := f.h.HandleDecision(ctx, admin, DecisionID(ActionReject, last.ProofID))
	assert.Equal(t, "This proof was already reviewed.", again.Text)
}

func TestProofWithoutImageStillRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.h.opts.FetchProof = func(context.Context, string) (*imaging.Proof, error) {
		return nil, errors.New("download failed")
	}
	f.run(t, admin, "?item add Set1 10 coins")
	f.run(t, admin, "?item rent Set1 <@42> 1w")

	resp, ok := f.h.HandleProof(ctx, user, []Attachment{{URL: "https://cdn.test/a.png", ContentType: "image/png"}})
	require.True(t, ok)
	assert.Contains(t, resp.Text, "Proof received")

	rejected := f.h.HandleDecision(ctx, admin, DecisionID(ActionReject, f.rec.to(notify.ToLog())[1].ProofID))
	assert.Equal(t, "Rejected.", rejected.Text)

	dms := f.rec.to(notify.ToUser("42"))
	assert.Equal(t, "Your payment proof for **Set1** was rejected. Contact an admin.", dms[len(dms)-1].Text)
}

func TestPanelLink(t *testing.T) {
	f := newFixture(t)

	resp, ok := f.h.Handle(context.Background(), user, "?panel")
	require.True(t, ok)
	assert.Equal(t, "Sent you a panel link in DMs.", resp.Text)
	assert.True(t, resp.Ephemeral)

	dms := f.rec.to(notify.ToUser("42"))
	require.Len(t, dms, 1)
	_, token, found := strings.Cut(dms[0].Text, "http://panel.test/?token=")
	require.True(t, found)

	claims, err := auth.ValidateToken("panel-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.False(t, claims.Admin)
}

func TestHelpListsCommands(t *testing.T) {
	f := newFixture(t)
	out := f.run(t, user, "?help")
	assert.Contains(t, out, "?item rent <name> @user <24h|7d|2w|1m>")
	assert.Contains(t, out, "?blacklist add @user [reason]")
}

func TestUnterminatedQuote(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "Could not parse command: unterminated quote.\n", f.run(t, admin, `?item add "Set1 10 coins`))
}
